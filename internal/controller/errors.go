package controller

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mushtrack/internal/models"
	"mushtrack/internal/service"
	"mushtrack/internal/utils"
)

// apiErrorFor maps service errors to API errors.
func apiErrorFor(err error) models.APIError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return models.NewAPIError(models.ErrorCodeValidationFailed, err.Error(), nil, http.StatusUnprocessableEntity)
	case errors.Is(err, errPhotoTooLarge):
		return models.NewAPIError(models.ErrorCodePayloadTooLarge, err.Error(), nil, http.StatusRequestEntityTooLarge)
	case errors.Is(err, service.ErrNoEntries):
		return models.NewAPIError(models.ErrorCodeResourceNotFound, "No entries yet.", nil, http.StatusNotFound)
	case errors.Is(err, service.ErrEntryNotFound):
		return models.NewAPIError(models.ErrorCodeResourceNotFound, "Entry not found", nil, http.StatusNotFound)
	}
	return models.NewAPIError(models.ErrorCodeInternalServerError, "Internal server error", nil, http.StatusInternalServerError)
}

func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	apiErr := apiErrorFor(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}
	utils.RespondWithError(w, apiErr)
}
