package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookieName = "mushtrack_session"
	SessionHeader     = "X-Session-ID"
)

type sessionKey struct{}

// Session attaches a session ID to every request. The ID is taken from the
// X-Session-ID header, then from the session cookie, and is otherwise
// generated and returned as a cookie.
func Session(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := validID(r.Header.Get(SessionHeader))
			if !ok {
				if c, err := r.Cookie(SessionCookieName); err == nil {
					id, ok = validID(c.Value)
				}
				if !ok {
					id = uuid.NewString()
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

func validID(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// WithSessionID returns a copy of ctx carrying the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the request's session ID, or "" outside the Session
// middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
