package controller

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mushtrack/internal/middleware"
	"mushtrack/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type subscriber struct {
	send chan service.Event
}

// LiveHub pushes a session's entry and reading events to its websocket
// subscribers. It implements service.EventPublisher.
type LiveHub struct {
	mu       sync.RWMutex
	subs     map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewLiveHub accepts upgrades from the same host or from allowedOrigins.
func NewLiveHub(allowedOrigins []string, logger *zap.Logger) *LiveHub {
	h := &LiveHub{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Publish never blocks. Events for a subscriber whose buffer is full are
// dropped.
func (h *LiveHub) Publish(sessionID string, event service.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.send <- event:
		default:
			h.logger.Debug("Dropping live event for slow subscriber", zap.String("session", sessionID))
		}
	}
}

// Subscribers returns the number of open connections for a session.
func (h *LiveHub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *LiveHub) subscribe(sessionID string) *subscriber {
	sub := &subscriber{send: make(chan service.Event, sendBuffer)}
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *LiveHub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	delete(h.subs[sessionID], sub)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
	h.mu.Unlock()
}

// HandleLive upgrades the request and streams the session's events as JSON
// until the client goes away.
func (h *LiveHub) HandleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.subscribe(sessionID)
	defer h.unsubscribe(sessionID, sub)
	h.logger.Debug("Live subscriber connected", zap.String("session", sessionID))

	// Incoming messages are ignored; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case event := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
