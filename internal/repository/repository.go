package repository

import (
	"context"
	"errors"

	"mushtrack/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores per-session growth logs and settings.
type SessionRepository interface {
	// Load returns a copy of the session.
	Load(ctx context.Context, id string) (*models.Session, error)
	// Update applies fn to the session atomically, creating it from defaults
	// when missing, and refreshes its idle lifetime. Nothing is stored when fn
	// returns an error.
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
	Close() error
}

// ReadingRepository mirrors growth conditions to a time-series store.
type ReadingRepository interface {
	WriteEntry(ctx context.Context, sessionID string, entry models.LogEntry) error
	WriteReading(ctx context.Context, sessionID string, reading models.SensorReading) error
	Close()
}

// NopReadingRepository discards everything. Used when no time-series store is
// configured.
type NopReadingRepository struct{}

func (NopReadingRepository) WriteEntry(context.Context, string, models.LogEntry) error {
	return nil
}

func (NopReadingRepository) WriteReading(context.Context, string, models.SensorReading) error {
	return nil
}

func (NopReadingRepository) Close() {}
