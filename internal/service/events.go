package service

import (
	"time"

	"mushtrack/internal/models"
)

const (
	EventEntry   = "entry"
	EventReading = "reading"
)

// Event is pushed to live subscribers of a session. Photos are not included.
type Event struct {
	Type     string                `json:"type"`
	Entry    *models.LogEntry      `json:"entry,omitempty"`
	HasPhoto bool                  `json:"has_photo,omitempty"`
	Alerts   []models.Alert        `json:"alerts,omitempty"`
	Reading  *models.SensorReading `json:"reading,omitempty"`
	At       time.Time             `json:"at"`
}

func NewEntryEvent(entry models.LogEntry, alerts []models.Alert) Event {
	hasPhoto := entry.HasPhoto()
	entry.Photo = nil
	return Event{Type: EventEntry, Entry: &entry, HasPhoto: hasPhoto, Alerts: alerts, At: time.Now()}
}

func NewReadingEvent(reading models.SensorReading) Event {
	return Event{Type: EventReading, Reading: &reading, At: time.Now()}
}

// EventPublisher fans events out to a session's subscribers. Publish must not
// block.
type EventPublisher interface {
	Publish(sessionID string, event Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Event) {}
