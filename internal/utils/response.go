package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"mushtrack/internal/models"
)

// RespondWithError sends a JSON error response using the APIError model.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(writer).Encode(apiErr); err != nil {
		zap.L().Error("Failed to encode error response", zap.Error(err))
	}
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}
