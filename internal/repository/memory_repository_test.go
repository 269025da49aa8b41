package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mushtrack/internal/models"
)

func appendEntry(entry models.LogEntry) func(*models.Session) error {
	return func(s *models.Session) error {
		s.Entries = append(s.Entries, entry)
		return nil
	}
}

func TestMemorySessionRepository_UpdateCreatesFromDefaults(t *testing.T) {
	defaults := models.AlertSettings{MaxTemperature: 28, MinHumidity: 85}
	repo := NewMemorySessionRepository(time.Hour, defaults)
	ctx := context.Background()

	_, err := repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := repo.Update(ctx, "s1", func(*models.Session) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, defaults, session.Alerts)
	assert.Equal(t, models.DefaultSensorSource(), session.Source)
	assert.Empty(t, session.Entries)
}

func TestMemorySessionRepository_AppendOrderAndIsolation(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour, models.DefaultAlertSettings())
	ctx := context.Background()

	first := models.LogEntry{Stage: models.StageMycelium, Temperature: 24, Humidity: 90, Notes: "inoculated"}
	second := models.LogEntry{Stage: models.StagePinhead, Temperature: 22.5, Humidity: 93, Notes: "pins"}

	_, err := repo.Update(ctx, "a", appendEntry(first))
	require.NoError(t, err)
	_, err = repo.Update(ctx, "a", appendEntry(second))
	require.NoError(t, err)
	_, err = repo.Update(ctx, "b", appendEntry(second))
	require.NoError(t, err)

	a, err := repo.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []models.LogEntry{first, second}, a.Entries)

	b, err := repo.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b.Entries, 1)
}

func TestMemorySessionRepository_LoadReturnsCopy(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour, models.DefaultAlertSettings())
	ctx := context.Background()

	_, err := repo.Update(ctx, "s", appendEntry(models.LogEntry{Stage: models.StageMature}))
	require.NoError(t, err)

	loaded, err := repo.Load(ctx, "s")
	require.NoError(t, err)
	loaded.Entries = append(loaded.Entries, models.LogEntry{Stage: models.StageHarvested})
	loaded.Alerts.MaxTemperature = 99

	again, err := repo.Load(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, again.Entries, 1)
	assert.Equal(t, models.DefaultMaxTemperature, again.Alerts.MaxTemperature)
}

func TestMemorySessionRepository_FailedUpdateStoresNothing(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour, models.DefaultAlertSettings())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := repo.Update(ctx, "s", func(s *models.Session) error {
		s.Entries = append(s.Entries, models.LogEntry{Stage: models.StageFruiting})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Load(ctx, "s")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute, models.DefaultAlertSettings())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := repo.Update(ctx, "old", appendEntry(models.LogEntry{Stage: models.StagePinhead}))
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = repo.Load(ctx, "old")
	require.NoError(t, err, "load within TTL refreshes the session")

	now = now.Add(59 * time.Second)
	_, err = repo.Load(ctx, "old")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = repo.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, repo.Len())
}
