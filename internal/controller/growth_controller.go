package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mushtrack/internal/middleware"
	"mushtrack/internal/models"
	"mushtrack/internal/report"
	"mushtrack/internal/service"
	"mushtrack/internal/utils"
)

// GrowthController handles the JSON API.
type GrowthController struct {
	service *service.GrowthService
	logger  *zap.Logger
}

// NewGrowthController creates a new GrowthController.
func NewGrowthController(service *service.GrowthService, logger *zap.Logger) *GrowthController {
	return &GrowthController{
		service: service,
		logger:  logger,
	}
}

type photoPayload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type createLogRequest struct {
	Date        models.Date   `json:"date"`
	Temperature *float64      `json:"temperature"`
	Humidity    *float64      `json:"humidity"`
	Stage       string        `json:"stage"`
	Notes       string        `json:"notes"`
	Photo       *photoPayload `json:"photo"`
}

type createLogResponse struct {
	Message string          `json:"message"`
	Entry   models.LogEntry `json:"entry"`
	Alerts  []models.Alert  `json:"alerts"`
}

type dashboardResponse struct {
	Latest  *models.LogEntry     `json:"latest"`
	Alerts  models.AlertSettings `json:"alerts"`
	Message string               `json:"message,omitempty"`
}

type trendsResponse struct {
	Points  []report.TrendPoint `json:"points"`
	Message string              `json:"message,omitempty"`
}

type settingsResponse struct {
	Alerts models.AlertSettings `json:"alerts"`
	Source models.SensorSource  `json:"source"`
}

type alertSettingsRequest struct {
	MaxTemperature *float64 `json:"max_temperature"`
	MinHumidity    *float64 `json:"min_humidity"`
}

type sourceRequest struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// decodeJSON rejects non-JSON bodies and unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeUnsupportedMediaType, "Content-Type must be application/json", nil, http.StatusUnsupportedMediaType))
			return false
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*MaxPhotoBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apiErr := models.NewAPIError(models.ErrorCodeBadRequest, fmt.Sprintf("Invalid request payload: %v", err), nil, http.StatusBadRequest)
		utils.RespondWithError(w, apiErr)
		return false
	}
	return true
}

// HandleDashboard returns the latest entry.
func (c *GrowthController) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	session, err := c.service.Session(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}

	resp := dashboardResponse{Alerts: session.Alerts}
	if latest, ok := session.Latest(); ok {
		resp.Latest = &latest
	} else {
		resp.Message = "No logs yet."
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// HandleListLogs returns the whole log in insertion order.
func (c *GrowthController) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.Entries(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleCreateLog appends an entry to the log.
func (c *GrowthController) HandleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Temperature == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "temperature is required", nil, http.StatusBadRequest))
		return
	}
	if req.Humidity == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "humidity is required", nil, http.StatusBadRequest))
		return
	}
	stage, err := models.ParseGrowthStage(req.Stage)
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeValidationFailed, err.Error(), map[string]any{"allowed": models.GrowthStages}, http.StatusUnprocessableEntity))
		return
	}

	entry := models.LogEntry{
		Date:        req.Date,
		Temperature: *req.Temperature,
		Humidity:    *req.Humidity,
		Stage:       stage,
		Notes:       req.Notes,
	}
	if req.Photo != nil {
		if len(req.Photo.Data) > MaxPhotoBytes {
			respondServiceError(w, c.logger, errPhotoTooLarge)
			return
		}
		entry.Photo = models.NewPhoto(req.Photo.Filename, req.Photo.Data)
	}

	entry, alerts, err := c.service.AddEntry(r.Context(), middleware.SessionID(r.Context()), entry)
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	utils.RespondWithJSON(w, http.StatusCreated, createLogResponse{Message: service.MsgLogAdded, Entry: entry, Alerts: alerts})
}

// HandleTrends returns the trend series ordered by date.
func (c *GrowthController) HandleTrends(w http.ResponseWriter, r *http.Request) {
	points, err := c.service.Trends(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	resp := trendsResponse{Points: points}
	if len(points) == 0 {
		resp.Message = "No data to visualize."
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// HandleExportCSV serves the log as a CSV download.
func (c *GrowthController) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := c.service.ExportCSV(r.Context(), middleware.SessionID(r.Context()), &buf); err != nil {
		if apiErr := apiErrorFor(err); apiErr.StatusCode == http.StatusNotFound {
			apiErr.Message = "No data available to export."
			utils.RespondWithError(w, apiErr)
			return
		}
		respondServiceError(w, c.logger, err)
		return
	}
	writeCSV(w, buf.Bytes())
}

func writeCSV(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleSensor reads the session's selected sensor source.
func (c *GrowthController) HandleSensor(w http.ResponseWriter, r *http.Request) {
	rep, err := c.service.ReadSensor(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rep)
}

// HandlePhotoCheck analyzes an uploaded photo sent as multipart field "photo".
func (c *GrowthController) HandlePhotoCheck(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeUnsupportedMediaType, "Content-Type must be multipart/form-data", nil, http.StatusUnsupportedMediaType))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		c.respondUploadError(w, err)
		return
	}
	photo, err := readPhoto(r, "photo")
	if err != nil {
		c.respondUploadError(w, err)
		return
	}
	if photo == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "photo is required", nil, http.StatusBadRequest))
		return
	}

	result, err := c.service.CheckPhoto(r.Context(), photo)
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (c *GrowthController) respondUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPhotoTooLarge) {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeBadRequest, err.Error(), nil, http.StatusBadRequest))
}

// HandleGetSettings returns the session's thresholds and sensor source.
func (c *GrowthController) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	session, err := c.service.Session(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, settingsResponse{Alerts: session.Alerts, Source: session.Source})
}

// HandleUpdateAlerts replaces the session's thresholds.
func (c *GrowthController) HandleUpdateAlerts(w http.ResponseWriter, r *http.Request) {
	var req alertSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MaxTemperature == nil || req.MinHumidity == nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMissingParameter, "max_temperature and min_humidity are required", nil, http.StatusBadRequest))
		return
	}

	settings, err := c.service.UpdateAlertSettings(r.Context(), middleware.SessionID(r.Context()), models.AlertSettings{
		MaxTemperature: *req.MaxTemperature,
		MinHumidity:    *req.MinHumidity,
	})
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, settings)
}

// HandleUpdateSource switches the session's sensor source.
func (c *GrowthController) HandleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := models.ParseSourceKind(req.Kind)
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeValidationFailed, err.Error(), nil, http.StatusUnprocessableEntity))
		return
	}

	src, err := c.service.SelectSource(r.Context(), middleware.SessionID(r.Context()), models.SensorSource{Kind: kind, Path: req.Path, URL: req.URL})
	if err != nil {
		respondServiceError(w, c.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, src)
}
