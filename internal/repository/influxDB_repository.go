package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap"

	"mushtrack/internal/models"
)

// Measurement names written to InfluxDB.
const (
	MeasurementGrowthLog      = "growth_log"
	MeasurementSensorReadings = "sensor_readings"
)

// InfluxDBRepository mirrors log entries and sensor readings to an InfluxDB bucket.
type InfluxDBRepository struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *zap.Logger
}

// NewInfluxDBRepository creates a new InfluxDBRepository.
func NewInfluxDBRepository(url, token, org, bucket string, logger *zap.Logger) *InfluxDBRepository {
	return &InfluxDBRepository{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
		logger: logger,
	}
}

// WriteEntry writes the entry's conditions, tagged with its growth stage.
func (r *InfluxDBRepository) WriteEntry(ctx context.Context, sessionID string, entry models.LogEntry) error {
	p := influxdb2.NewPoint(
		MeasurementGrowthLog,
		map[string]string{
			"session_id": sessionID,
			"stage":      entry.Stage.String(),
		},
		map[string]interface{}{
			"temperature": entry.Temperature,
			"humidity":    entry.Humidity,
			"entry_date":  entry.Date.String(),
			"has_photo":   entry.HasPhoto(),
		},
		time.Now(),
	)

	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)
	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("error writing log entry to InfluxDB: %w", err)
	}
	r.logger.Debug("Log entry written to InfluxDB",
		zap.String("bucket", r.bucket),
		zap.String("session", sessionID),
		zap.String("stage", entry.Stage.String()))
	return nil
}

// WriteReading writes an available sensor reading. Partial readings are skipped.
func (r *InfluxDBRepository) WriteReading(ctx context.Context, sessionID string, reading models.SensorReading) error {
	if !reading.Available() {
		return nil
	}
	ts := reading.ReadAt
	if ts.IsZero() {
		ts = time.Now()
	}
	p := influxdb2.NewPoint(
		MeasurementSensorReadings,
		map[string]string{
			"session_id": sessionID,
			"source":     string(reading.Source),
		},
		map[string]interface{}{
			"temperature": *reading.Temperature,
			"humidity":    *reading.Humidity,
		},
		ts,
	)

	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)
	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("error writing sensor reading to InfluxDB: %w", err)
	}
	r.logger.Debug("Sensor reading written to InfluxDB",
		zap.String("bucket", r.bucket),
		zap.String("session", sessionID),
		zap.String("source", string(reading.Source)))
	return nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (r *InfluxDBRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.BucketExists(ctx, r.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	r.logger.Info("Bucket does not exist, creating it", zap.String("bucket", r.bucket))
	return r.CreateBucket(ctx, r.bucket)
}

// BucketExists checks if a bucket exists in InfluxDB.
func (r *InfluxDBRepository) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := r.client.BucketsAPI().FindBucketByName(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	return true, nil
}

// CreateBucket creates a new bucket in the configured organization.
func (r *InfluxDBRepository) CreateBucket(ctx context.Context, name string) error {
	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("finding organization '%s': %w", r.org, err)
	}
	if org == nil {
		return fmt.Errorf("organization '%s' not found", r.org)
	}

	if _, err := r.client.BucketsAPI().CreateBucketWithName(ctx, org, name); err != nil {
		return fmt.Errorf("creating bucket '%s': %w", name, err)
	}
	r.logger.Info("Bucket created", zap.String("bucket", name), zap.String("org", r.org))
	return nil
}

func (r *InfluxDBRepository) Close() {
	r.client.Close()
}
