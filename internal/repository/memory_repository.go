package repository

import (
	"context"
	"sync"
	"time"

	"mushtrack/internal/models"
)

type memoryItem struct {
	session   *models.Session
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory. Sessions idle for
// longer than the TTL are dropped.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*memoryItem
	ttl      time.Duration
	defaults models.AlertSettings
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory store.
func NewMemorySessionRepository(ttl time.Duration, defaults models.AlertSettings) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*memoryItem),
		ttl:      ttl,
		defaults: defaults,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Load(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.sessions[id]
	now := r.now()
	if !ok || !now.Before(item.expiresAt) {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	item.expiresAt = now.Add(r.ttl)
	return item.session.Clone(), nil
}

func (r *MemorySessionRepository) Update(_ context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	var session *models.Session
	if item, ok := r.sessions[id]; ok {
		session = item.session.Clone()
	} else {
		session = models.NewSession(id, r.defaults)
	}

	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = now

	r.sessions[id] = &memoryItem{session: session, expiresAt: now.Add(r.ttl)}
	return session.Clone(), nil
}

// Len returns the number of live sessions.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep(r.now())
	return len(r.sessions)
}

func (r *MemorySessionRepository) Close() error {
	return nil
}

func (r *MemorySessionRepository) sweep(now time.Time) {
	for id, item := range r.sessions {
		if !now.Before(item.expiresAt) {
			delete(r.sessions, id)
		}
	}
}
