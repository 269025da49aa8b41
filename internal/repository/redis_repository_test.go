package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mushtrack/internal/models"
)

func newTestRedisRepository(t *testing.T, ttl time.Duration) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	repo := NewRedisSessionRepository(client, ttl, models.DefaultAlertSettings(), zap.NewNop())
	t.Cleanup(func() { repo.Close() })
	return repo, mr
}

func TestRedisSessionRepository_RoundTrip(t *testing.T) {
	repo, mr := newTestRedisRepository(t, time.Hour)
	ctx := context.Background()

	entry := models.LogEntry{
		Date:        models.NewDate(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)),
		Temperature: 23.4,
		Humidity:    91,
		Stage:       models.StageFruiting,
		Notes:       "first flush",
		Photo:       &models.Photo{Filename: "flush.png", ContentType: models.ContentTypePNG, Data: []byte{1, 2, 3}},
	}

	_, err := repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = repo.Update(ctx, "s1", appendEntry(entry))
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:s1"))
	assert.Equal(t, time.Hour, mr.TTL("session:s1"))

	loaded, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, entry, loaded.Entries[0])
	assert.Equal(t, models.DefaultAlertSettings(), loaded.Alerts)
}

func TestRedisSessionRepository_Expiry(t *testing.T) {
	repo, mr := newTestRedisRepository(t, time.Minute)
	ctx := context.Background()

	_, err := repo.Update(ctx, "s1", appendEntry(models.LogEntry{Stage: models.StageMycelium}))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionRepository_ConcurrentAppends(t *testing.T) {
	repo, _ := newTestRedisRepository(t, time.Hour)
	ctx := context.Background()

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "shared", appendEntry(models.LogEntry{Stage: models.StagePinhead}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}

	loaded, err := repo.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, loaded.Entries, succeeded, "every successful update is kept")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

var _ SessionRepository = (*RedisSessionRepository)(nil)
var _ SessionRepository = (*MemorySessionRepository)(nil)
