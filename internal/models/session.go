package models

import "time"

// Session is the per-visitor state: the growth log and sidebar settings.
type Session struct {
	ID        string        `json:"id"`
	Entries   []LogEntry    `json:"entries"`
	Alerts    AlertSettings `json:"alerts"`
	Source    SensorSource  `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession creates an empty session with the given thresholds.
func NewSession(id string, alerts AlertSettings) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Entries:   []LogEntry{},
		Alerts:    alerts,
		Source:    DefaultSensorSource(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Latest returns the most recent entry.
func (s *Session) Latest() (LogEntry, bool) {
	if len(s.Entries) == 0 {
		return LogEntry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// Clone returns a copy whose entry slice can be appended to independently.
// Photos are shared; they are never mutated after upload.
func (s *Session) Clone() *Session {
	c := *s
	c.Entries = make([]LogEntry, len(s.Entries))
	copy(c.Entries, s.Entries)
	return &c
}
