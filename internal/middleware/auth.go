package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"

	"mushtrack/internal/models"
	"mushtrack/internal/utils"
)

// AuthConfig describes the accepted HS256 bearer tokens.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// JWT returns a middleware that rejects requests without a valid bearer
// token. The token may also be passed as the "token" query parameter, which
// browsers need for websocket upgrades.
func JWT(cfg AuthConfig, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc := func(context.Context) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, err
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Debug("JWT authentication failed", zap.String("path", r.URL.Path), zap.Error(err))

		message := "Invalid token"
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			message = "Authorization token required"
		}
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeUnauthorized, message, nil, http.StatusUnauthorized))
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.ParameterTokenExtractor("token"),
		)),
	)
	return mw.CheckJWT, nil
}

// Claims returns the validated token claims of an authenticated request.
func Claims(ctx context.Context) (*validator.ValidatedClaims, bool) {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return claims, ok
}
