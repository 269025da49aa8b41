package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SessionID(r.Context())))
	})
}

func TestSession_IssuesCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	Session(time.Hour)(echoSession()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Body.String()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestSession_ReusesCookie(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})

	rec := httptest.NewRecorder()
	Session(time.Hour)(echoSession()).ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Body.String())
}

func TestSession_HeaderWins(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, id)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: uuid.NewString()})

	rec := httptest.NewRecorder()
	Session(time.Hour)(echoSession()).ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_RejectsInvalidIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "../../etc")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-uuid"})

	rec := httptest.NewRecorder()
	Session(time.Hour)(echoSession()).ServeHTTP(rec, req)

	id := rec.Body.String()
	assert.NotEqual(t, "not-a-uuid", id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	token, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	require.NoError(t, err)
	return token
}

func validClaims() jwt.Claims {
	now := time.Now()
	return jwt.Claims{
		Issuer:   "mushtrack",
		Audience: jwt.Audience{"mushtrack-api"},
		Subject:  "grower-1",
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func newJWT(t *testing.T) http.Handler {
	t.Helper()
	mw, err := JWT(AuthConfig{Secret: testSecret, Issuer: "mushtrack", Audience: "mushtrack-api"}, zap.NewNop())
	require.NoError(t, err)
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := Claims(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.RegisteredClaims.Subject))
	}))
}

func TestJWT(t *testing.T) {
	handler := newJWT(t)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body["code"])
		assert.Equal(t, "Authorization token required", body["message"])
	})

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "grower-1", rec.Body.String())
	})

	t.Run("query parameter token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/live?token="+signToken(t, testSecret, validClaims()), nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "ffffffffffffffffffffffffffffffff", validClaims()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims.Audience = jwt.Audience{"someone-else"}
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims.Expiry = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, claims))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestJWT_RequiresIssuer(t *testing.T) {
	_, err := JWT(AuthConfig{Secret: testSecret, Audience: "mushtrack-api"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := Session(time.Hour)(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs/new", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/logs/new", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.NotEmpty(t, fields["session"])
}

func TestRequestLogger_ServerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 1, logs.FilterMessage("Request failed").Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}
