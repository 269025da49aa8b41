package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"mushtrack/internal/models"
	"mushtrack/internal/report"
	"mushtrack/internal/repository"
	"mushtrack/internal/sensor"
)

var (
	// ErrValidation wraps every rejected user input.
	ErrValidation = errors.New("validation failed")
	// ErrNoEntries is returned by operations that need a non-empty log.
	ErrNoEntries = errors.New("no entries")
	// ErrEntryNotFound is returned for an out-of-range entry index.
	ErrEntryNotFound = errors.New("entry not found")
)

// User-facing messages.
const (
	MsgLogAdded          = "Log added successfully."
	MsgHighTemperature   = "⚠️ High temperature!"
	MsgLowHumidity       = "⚠️ Low humidity!"
	MsgSensorUnavailable = "Sensor data not available."
)

// Accepted measurement ranges for log entries.
const (
	MinEntryTemperature = -50.0
	MaxEntryTemperature = 100.0
	MinEntryHumidity    = 0.0
	MaxEntryHumidity    = 100.0
)

// SensorReport is a sensor reading plus the message to show when the source
// failed.
type SensorReport struct {
	Reading models.SensorReading `json:"reading"`
	Source  models.SensorSource  `json:"source"`
	Message string               `json:"message,omitempty"`
}

// Failed reports whether the source itself errored, as opposed to returning
// an incomplete sample.
func (r SensorReport) Failed() bool {
	return r.Message != "" && r.Message != MsgSensorUnavailable
}

type Option func(*GrowthService)

// WithPhotoChecker replaces the simulated photo checker.
func WithPhotoChecker(p PhotoChecker) Option {
	return func(s *GrowthService) {
		s.photos = p
	}
}

// WithPublisher sends entry and reading events to live subscribers.
func WithPublisher(p EventPublisher) Option {
	return func(s *GrowthService) {
		s.events = p
	}
}

// GrowthService implements every user operation on a session's growth log.
type GrowthService struct {
	sessions repository.SessionRepository
	readings repository.ReadingRepository
	sensor   sensor.Reader
	photos   PhotoChecker
	events   EventPublisher
	defaults models.AlertSettings
	logger   *zap.Logger
}

// NewGrowthService creates a GrowthService. New sessions start with the given
// alert thresholds.
func NewGrowthService(
	sessions repository.SessionRepository,
	readings repository.ReadingRepository,
	reader sensor.Reader,
	defaults models.AlertSettings,
	logger *zap.Logger,
	opts ...Option,
) *GrowthService {
	s := &GrowthService{
		sessions: sessions,
		readings: readings,
		sensor:   reader,
		photos:   SimulatedPhotoChecker{},
		events:   nopPublisher{},
		defaults: defaults,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session, or a fresh unsaved one when it does not exist
// yet.
func (s *GrowthService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return models.NewSession(sessionID, s.defaults), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return session, nil
}

// AddEntry appends entry to the session log and evaluates the session's
// thresholds against it.
func (s *GrowthService) AddEntry(ctx context.Context, sessionID string, entry models.LogEntry) (models.LogEntry, []models.Alert, error) {
	if err := validateEntry(entry); err != nil {
		return models.LogEntry{}, nil, err
	}
	if entry.Date.IsZero() {
		entry.Date = models.Today()
	}

	var settings models.AlertSettings
	_, err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		session.Entries = append(session.Entries, entry)
		settings = session.Alerts
		return nil
	})
	if err != nil {
		return models.LogEntry{}, nil, fmt.Errorf("saving entry: %w", err)
	}

	alerts := EvaluateAlerts(entry, settings)

	if err := s.readings.WriteEntry(ctx, sessionID, entry); err != nil {
		s.logger.Warn("Failed to mirror entry", zap.String("session", sessionID), zap.Error(err))
	}
	s.events.Publish(sessionID, NewEntryEvent(entry, alerts))

	s.logger.Info("Log entry added",
		zap.String("session", sessionID),
		zap.String("stage", entry.Stage.String()),
		zap.Float64("temperature", entry.Temperature),
		zap.Float64("humidity", entry.Humidity),
		zap.Int("alerts", len(alerts)),
	)
	return entry, alerts, nil
}

func validateEntry(entry models.LogEntry) error {
	if !entry.Stage.Valid() {
		return fmt.Errorf("%w: unknown growth stage %q", ErrValidation, entry.Stage)
	}
	if !finite(entry.Temperature) || !finite(entry.Humidity) {
		return fmt.Errorf("%w: temperature and humidity must be finite numbers", ErrValidation)
	}
	if entry.Temperature < MinEntryTemperature || entry.Temperature > MaxEntryTemperature {
		return fmt.Errorf("%w: temperature must be between %g and %g °C", ErrValidation, MinEntryTemperature, MaxEntryTemperature)
	}
	if entry.Humidity < MinEntryHumidity || entry.Humidity > MaxEntryHumidity {
		return fmt.Errorf("%w: humidity must be between %g and %g %%", ErrValidation, MinEntryHumidity, MaxEntryHumidity)
	}
	if entry.Photo != nil && !entry.Photo.IsImage() {
		return fmt.Errorf("%w: photo must be a JPEG or PNG image", ErrValidation)
	}
	return nil
}

// EvaluateAlerts compares an entry against the thresholds. Both comparisons
// are strict.
func EvaluateAlerts(entry models.LogEntry, settings models.AlertSettings) []models.Alert {
	var alerts []models.Alert
	if entry.Temperature > settings.MaxTemperature {
		alerts = append(alerts, models.Alert{
			Kind:    models.AlertHighTemperature,
			Level:   models.AlertLevelError,
			Message: MsgHighTemperature,
		})
	}
	if entry.Humidity < settings.MinHumidity {
		alerts = append(alerts, models.Alert{
			Kind:    models.AlertLowHumidity,
			Level:   models.AlertLevelWarning,
			Message: MsgLowHumidity,
		})
	}
	return alerts
}

// Latest returns the most recent entry, if any.
func (s *GrowthService) Latest(ctx context.Context, sessionID string) (models.LogEntry, bool, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return models.LogEntry{}, false, err
	}
	entry, ok := session.Latest()
	return entry, ok, nil
}

// Entries returns the log in insertion order.
func (s *GrowthService) Entries(ctx context.Context, sessionID string) ([]models.LogEntry, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Entries, nil
}

// Entry returns the entry at a zero-based log position.
func (s *GrowthService) Entry(ctx context.Context, sessionID string, index int) (models.LogEntry, error) {
	entries, err := s.Entries(ctx, sessionID)
	if err != nil {
		return models.LogEntry{}, err
	}
	if index < 0 || index >= len(entries) {
		return models.LogEntry{}, ErrEntryNotFound
	}
	return entries[index], nil
}

// Trends returns the trend series ordered by date.
func (s *GrowthService) Trends(ctx context.Context, sessionID string) ([]report.TrendPoint, error) {
	entries, err := s.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return report.TrendSeries(entries), nil
}

// TrendChart writes the SVG trend chart.
func (s *GrowthService) TrendChart(ctx context.Context, sessionID string, w io.Writer) error {
	points, err := s.Trends(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return ErrNoEntries
	}
	return report.RenderTrendChart(w, points)
}

// ExportCSV writes the log as CSV. Nothing is written when the log is empty.
func (s *GrowthService) ExportCSV(ctx context.Context, sessionID string, w io.Writer) error {
	entries, err := s.Entries(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ErrNoEntries
	}
	if err := report.WriteCSV(w, entries); err != nil {
		return fmt.Errorf("exporting csv: %w", err)
	}
	return nil
}

// ReadSensor reads the session's selected source. Source failures do not fail
// the operation; they leave the values unset and set Message.
func (s *GrowthService) ReadSensor(ctx context.Context, sessionID string) (SensorReport, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return SensorReport{}, err
	}

	rep := SensorReport{Source: session.Source}
	reading, err := s.sensor.Read(ctx, session.Source)
	var fetchErr *sensor.FetchError
	switch {
	case errors.As(err, &fetchErr):
		s.logger.Warn("Sensor read failed",
			zap.String("session", sessionID),
			zap.String("source", string(session.Source.Kind)),
			zap.Error(err),
		)
		reading.Temperature, reading.Humidity = nil, nil
		rep.Reading = reading
		rep.Message = fetchErr.Message()
		return rep, nil
	case err != nil:
		return SensorReport{}, fmt.Errorf("reading sensor: %w", err)
	}

	rep.Reading = reading
	if !reading.Available() {
		rep.Message = MsgSensorUnavailable
		return rep, nil
	}

	if err := s.readings.WriteReading(ctx, sessionID, reading); err != nil {
		s.logger.Warn("Failed to mirror sensor reading", zap.String("session", sessionID), zap.Error(err))
	}
	s.events.Publish(sessionID, NewReadingEvent(reading))
	return rep, nil
}

// CheckPhoto runs the photo checker on an uploaded image.
func (s *GrowthService) CheckPhoto(ctx context.Context, photo *models.Photo) (string, error) {
	if photo == nil {
		return "", fmt.Errorf("%w: no photo uploaded", ErrValidation)
	}
	if !photo.IsImage() {
		return "", fmt.Errorf("%w: photo must be a JPEG or PNG image", ErrValidation)
	}
	return s.photos.Check(ctx, photo)
}

// UpdateAlertSettings replaces the session's thresholds.
func (s *GrowthService) UpdateAlertSettings(ctx context.Context, sessionID string, settings models.AlertSettings) (models.AlertSettings, error) {
	if !finite(settings.MaxTemperature) || !finite(settings.MinHumidity) {
		return models.AlertSettings{}, fmt.Errorf("%w: thresholds must be finite numbers", ErrValidation)
	}
	_, err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		session.Alerts = settings
		return nil
	})
	if err != nil {
		return models.AlertSettings{}, fmt.Errorf("saving alert settings: %w", err)
	}
	s.logger.Debug("Alert settings updated",
		zap.String("session", sessionID),
		zap.Float64("max_temperature", settings.MaxTemperature),
		zap.Float64("min_humidity", settings.MinHumidity),
	)
	return settings, nil
}

// SelectSource switches the session's sensor source. An empty path or URL
// keeps the previous one.
func (s *GrowthService) SelectSource(ctx context.Context, sessionID string, src models.SensorSource) (models.SensorSource, error) {
	var selected models.SensorSource
	_, err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		next := session.Source
		next.Kind = src.Kind
		if p := strings.TrimSpace(src.Path); p != "" {
			next.Path = p
		}
		if u := strings.TrimSpace(src.URL); u != "" {
			next.URL = u
		}
		if err := validateSource(next); err != nil {
			return err
		}
		session.Source = next
		selected = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return models.SensorSource{}, err
		}
		return models.SensorSource{}, fmt.Errorf("saving sensor source: %w", err)
	}
	return selected, nil
}

func validateSource(src models.SensorSource) error {
	switch src.Kind {
	case models.SourceManual:
		return nil
	case models.SourceFile:
		if src.Path == "" {
			return fmt.Errorf("%w: file path is required", ErrValidation)
		}
		return nil
	case models.SourceRemote:
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: remote URL must be an absolute http(s) URL", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown sensor source %q", ErrValidation, src.Kind)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
