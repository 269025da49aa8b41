package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mushtrack/internal/models"
)

// fakeInflux records line-protocol bodies posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	bodies []string
	query  []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v2/write" {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.query = append(f.query, r.URL.RawQuery)
	status := f.status
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func TestInfluxDBRepository_WriteEntry(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	repo := NewInfluxDBRepository(srv.URL, "token", "farm", "mushroom_growth", zap.NewNop())
	defer repo.Close()

	entry := models.LogEntry{
		Date:        models.NewDate(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)),
		Temperature: 24.5,
		Humidity:    88.5,
		Stage:       models.StageFruiting,
	}
	require.NoError(t, repo.WriteEntry(context.Background(), "s1", entry))

	require.Len(t, fake.bodies, 1)
	line := fake.bodies[0]
	assert.Contains(t, line, MeasurementGrowthLog+",")
	assert.Contains(t, line, "stage=Fruiting")
	assert.Contains(t, line, "session_id=s1")
	assert.Contains(t, line, "temperature=24.5")
	assert.Contains(t, line, "humidity=88.5")
	assert.Contains(t, line, `entry_date="2024-07-01"`)
	assert.Contains(t, fake.query[0], "bucket=mushroom_growth")
	assert.Contains(t, fake.query[0], "org=farm")
}

func TestInfluxDBRepository_WriteReading(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	repo := NewInfluxDBRepository(srv.URL, "token", "farm", "mushroom_growth", zap.NewNop())
	defer repo.Close()

	temp, hum := 27.3, 81.9
	reading := models.SensorReading{Temperature: &temp, Humidity: &hum, Source: models.SourceRemote, ReadAt: time.Now()}
	require.NoError(t, repo.WriteReading(context.Background(), "s1", reading))

	require.Len(t, fake.bodies, 1)
	assert.Contains(t, fake.bodies[0], MeasurementSensorReadings+",")
	assert.Contains(t, fake.bodies[0], "source=remote")
	assert.Contains(t, fake.bodies[0], "temperature=27.3")

	// Partial readings are not written.
	require.NoError(t, repo.WriteReading(context.Background(), "s1", models.SensorReading{Temperature: &temp}))
	assert.Len(t, fake.bodies, 1)
}

func TestInfluxDBRepository_WriteFailure(t *testing.T) {
	fake := &fakeInflux{status: http.StatusUnauthorized}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	repo := NewInfluxDBRepository(srv.URL, "bad-token", "farm", "mushroom_growth", zap.NewNop())
	defer repo.Close()

	err := repo.WriteEntry(context.Background(), "s1", models.LogEntry{Stage: models.StageMature})
	assert.Error(t, err)
}

// fakeBuckets serves the bucket and organization lookups used by EnsureBucket.
type fakeBuckets struct {
	mu      sync.Mutex
	buckets []string
	created []string
}

func (f *fakeBuckets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch {
	case r.URL.Path == "/api/v2/buckets" && r.Method == http.MethodGet:
		name := r.URL.Query().Get("name")
		found := []map[string]any{}
		for _, b := range f.buckets {
			if b == name {
				found = append(found, map[string]any{"id": "b1", "name": b, "retentionRules": []any{}})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"buckets": found})
	case r.URL.Path == "/api/v2/buckets" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body.Name)
		f.buckets = append(f.buckets, body.Name)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "b2", "name": body.Name, "retentionRules": []any{}})
	case r.URL.Path == "/api/v2/orgs":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"orgs": []map[string]any{{"id": "o1", "name": r.URL.Query().Get("org")}},
		})
	default:
		http.NotFound(w, r)
	}
}

func TestInfluxDBRepository_EnsureBucket(t *testing.T) {
	fake := &fakeBuckets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	repo := NewInfluxDBRepository(srv.URL, "token", "farm", "mushroom_growth", zap.NewNop())
	defer repo.Close()

	require.NoError(t, repo.EnsureBucket(context.Background()))
	assert.Equal(t, []string{"mushroom_growth"}, fake.created)

	// A second call finds the bucket and creates nothing.
	require.NoError(t, repo.EnsureBucket(context.Background()))
	assert.Len(t, fake.created, 1)
}

func TestNopReadingRepository(t *testing.T) {
	var repo ReadingRepository = NopReadingRepository{}
	assert.NoError(t, repo.WriteEntry(context.Background(), "s", models.LogEntry{}))
	assert.NoError(t, repo.WriteReading(context.Background(), "s", models.SensorReading{}))
	repo.Close()
}
