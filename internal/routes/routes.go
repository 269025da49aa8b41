package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"mushtrack/internal/controller"
	"mushtrack/internal/middleware"
	"mushtrack/internal/models"
	"mushtrack/internal/utils"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	API   *controller.GrowthController
	Pages *controller.PageController
	Live  *controller.LiveHub
	// Auth guards /api when set.
	Auth func(http.Handler) http.Handler
}

// NewRouter builds the application router with session and request logging
// middleware.
func NewRouter(h Handlers, sessionTTL time.Duration, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Session(sessionTTL), middleware.RequestLogger(logger))
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path), nil, http.StatusMethodNotAllowed))
	})
	RegisterRoutes(router, h)
	return router
}

// RegisterRoutes registers all application routes.
func RegisterRoutes(router *mux.Router, h Handlers) {
	// Dashboard pages
	router.HandleFunc("/", h.Pages.Dashboard).Methods(http.MethodGet)
	router.HandleFunc("/logs/new", h.Pages.NewLogForm).Methods(http.MethodGet)
	router.HandleFunc("/logs/new", h.Pages.CreateLog).Methods(http.MethodPost)
	router.HandleFunc("/trends", h.Pages.Trends).Methods(http.MethodGet)
	router.HandleFunc("/trends/chart.svg", h.Pages.TrendChart).Methods(http.MethodGet)
	router.HandleFunc("/logbook", h.Pages.Logbook).Methods(http.MethodGet)
	router.HandleFunc("/logbook/{index:[0-9]+}/photo", h.Pages.LogPhoto).Methods(http.MethodGet)
	router.HandleFunc("/export", h.Pages.Export).Methods(http.MethodGet)
	router.HandleFunc("/export/growth_log.csv", h.Pages.ExportCSV).Methods(http.MethodGet)
	router.HandleFunc("/sensor", h.Pages.Sensor).Methods(http.MethodGet)
	router.HandleFunc("/photo-check", h.Pages.PhotoCheckForm).Methods(http.MethodGet)
	router.HandleFunc("/photo-check", h.Pages.PhotoCheck).Methods(http.MethodPost)

	// Sidebar forms
	router.HandleFunc("/settings/alerts", h.Pages.UpdateAlerts).Methods(http.MethodPost)
	router.HandleFunc("/settings/source", h.Pages.UpdateSource).Methods(http.MethodPost)

	// JSON API
	api := router.PathPrefix("/api").Subrouter()
	if h.Auth != nil {
		api.Use(h.Auth)
	}
	api.HandleFunc("/dashboard", h.API.HandleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.API.HandleListLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.API.HandleCreateLog).Methods(http.MethodPost)
	api.HandleFunc("/trends", h.API.HandleTrends).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", h.API.HandleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/sensor", h.API.HandleSensor).Methods(http.MethodGet)
	api.HandleFunc("/photo-check", h.API.HandlePhotoCheck).Methods(http.MethodPost)
	api.HandleFunc("/settings", h.API.HandleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/alerts", h.API.HandleUpdateAlerts).Methods(http.MethodPut)
	api.HandleFunc("/settings/source", h.API.HandleUpdateSource).Methods(http.MethodPut)
	api.HandleFunc("/live", h.Live.HandleLive).Methods(http.MethodGet)

	// Health check (GET only)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)
}
