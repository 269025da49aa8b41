package controller

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"mushtrack/internal/middleware"
	"mushtrack/internal/models"
	"mushtrack/internal/report"
	"mushtrack/internal/service"
	"mushtrack/internal/web"
)

type navItem struct {
	Path  string
	Label string
}

var navItems = []navItem{
	{"/", "Dashboard"},
	{"/logs/new", "New Log Entry"},
	{"/trends", "Visual Trends"},
	{"/logbook", "Logbook"},
	{"/export", "Export Report"},
	{"/sensor", "Sensor Readings"},
	{"/photo-check", "AI Photo Check"},
}

type flash struct {
	Level   string
	Message string
}

type pageData struct {
	Title   string
	Heading string
	Active  string
	Nav     []navItem
	Sources []models.SourceKind
	Session *models.Session
	Flashes []flash
	Data    any
}

type entryForm struct {
	Date        string
	Temperature string
	Humidity    string
	Stage       string
	Notes       string
}

type photoCheckResult struct {
	ImageURL template.URL
	Result   string
}

// PageController renders the HTML dashboard.
type PageController struct {
	service   *service.GrowthService
	templates map[string]*template.Template
	logger    *zap.Logger
}

// NewPageController parses the page templates.
func NewPageController(service *service.GrowthService, logger *zap.Logger) (*PageController, error) {
	templates, err := web.Templates(template.FuncMap{
		"number": report.FormatNumber,
		"stages": func() []models.GrowthStage { return models.GrowthStages },
		"deref": func(v *float64) float64 {
			if v == nil {
				return 0
			}
			return *v
		},
	})
	if err != nil {
		return nil, err
	}
	return &PageController{
		service:   service,
		templates: templates,
		logger:    logger,
	}, nil
}

func (c *PageController) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	session, err := c.service.Session(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	data.Session = session
	data.Nav = navItems
	data.Sources = []models.SourceKind{models.SourceManual, models.SourceFile, models.SourceRemote}
	if data.Title == "" {
		data.Title = data.Heading
	}

	var buf bytes.Buffer
	if err := c.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		c.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (c *PageController) fail(w http.ResponseWriter, err error) {
	c.logger.Error("Page rendering failed", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// Dashboard shows the latest entry.
func (c *PageController) Dashboard(w http.ResponseWriter, r *http.Request) {
	latest, ok, err := c.service.Latest(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	data := pageData{Title: "Dashboard", Heading: "📊 Smart Mushroom Growth Tracker", Active: "/"}
	if ok {
		data.Data = &latest
	}
	c.render(w, r, http.StatusOK, web.PageDashboard, data)
}

func blankForm() entryForm {
	return entryForm{Date: models.Today().String(), Stage: models.StageMycelium.String()}
}

// NewLogForm shows an empty entry form.
func (c *PageController) NewLogForm(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, web.PageNewLog, pageData{
		Title:   "New Log Entry",
		Heading: "📝 New Growth Log",
		Active:  "/logs/new",
		Data:    blankForm(),
	})
}

// CreateLog handles the entry form. The form is shown again with the result
// messages.
func (c *PageController) CreateLog(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "New Log Entry", Heading: "📝 New Growth Log", Active: "/logs/new"}

	form, entry, err := c.parseEntryForm(w, r)
	if err != nil {
		data.Data = form
		data.Flashes = []flash{{Level: "error", Message: err.Error()}}
		c.render(w, r, formErrorStatus(err), web.PageNewLog, data)
		return
	}

	_, alerts, err := c.service.AddEntry(r.Context(), middleware.SessionID(r.Context()), entry)
	if err != nil {
		if !errors.Is(err, service.ErrValidation) {
			c.fail(w, err)
			return
		}
		data.Data = form
		data.Flashes = []flash{{Level: "error", Message: err.Error()}}
		c.render(w, r, http.StatusUnprocessableEntity, web.PageNewLog, data)
		return
	}

	data.Data = blankForm()
	data.Flashes = []flash{{Level: "success", Message: service.MsgLogAdded}}
	for _, a := range alerts {
		data.Flashes = append(data.Flashes, flash{Level: string(a.Level), Message: a.Message})
	}
	c.render(w, r, http.StatusOK, web.PageNewLog, data)
}

func formErrorStatus(err error) int {
	if errors.Is(err, errPhotoTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusUnprocessableEntity
}

func (c *PageController) parseEntryForm(w http.ResponseWriter, r *http.Request) (entryForm, models.LogEntry, error) {
	var entry models.LogEntry
	if err := parseMultipart(w, r); err != nil {
		return blankForm(), entry, err
	}

	form := entryForm{
		Date:        strings.TrimSpace(r.FormValue("date")),
		Temperature: strings.TrimSpace(r.FormValue("temperature")),
		Humidity:    strings.TrimSpace(r.FormValue("humidity")),
		Stage:       r.FormValue("stage"),
		Notes:       r.FormValue("notes"),
	}

	var err error
	if form.Date != "" {
		if entry.Date, err = models.ParseDate(form.Date); err != nil {
			return form, entry, err
		}
	}
	if entry.Temperature, err = strconv.ParseFloat(form.Temperature, 64); err != nil {
		return form, entry, errors.New("temperature must be a number")
	}
	if entry.Humidity, err = strconv.ParseFloat(form.Humidity, 64); err != nil {
		return form, entry, errors.New("humidity must be a number")
	}
	if entry.Stage, err = models.ParseGrowthStage(form.Stage); err != nil {
		return form, entry, err
	}
	entry.Notes = form.Notes
	if entry.Photo, err = readPhoto(r, "photo"); err != nil {
		return form, entry, err
	}
	return form, entry, nil
}

// Trends shows the trend chart and table.
func (c *PageController) Trends(w http.ResponseWriter, r *http.Request) {
	points, err := c.service.Trends(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, r, http.StatusOK, web.PageTrends, pageData{
		Title:   "Visual Trends",
		Heading: "📈 Growth Analytics",
		Active:  "/trends",
		Data:    points,
	})
}

// TrendChart serves the SVG trend chart.
func (c *PageController) TrendChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := c.service.TrendChart(r.Context(), middleware.SessionID(r.Context()), &buf)
	if errors.Is(err, service.ErrNoEntries) {
		http.Error(w, "No data to visualize.", http.StatusNotFound)
		return
	}
	if err != nil {
		c.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Logbook lists every entry.
func (c *PageController) Logbook(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.Entries(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, r, http.StatusOK, web.PageLogbook, pageData{
		Title:   "Logbook",
		Heading: "📚 Growth Logbook",
		Active:  "/logbook",
		Data:    entries,
	})
}

// LogPhoto serves the photo attached to the entry at {index}.
func (c *PageController) LogPhoto(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	entry, err := c.service.Entry(r.Context(), middleware.SessionID(r.Context()), index)
	if errors.Is(err, service.ErrEntryNotFound) || (err == nil && !entry.HasPhoto()) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		c.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", entry.Photo.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(entry.Photo.Data)
}

// Export shows the export preview and download link.
func (c *PageController) Export(w http.ResponseWriter, r *http.Request) {
	entries, err := c.service.Entries(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, r, http.StatusOK, web.PageExport, pageData{
		Title:   "Export Report",
		Heading: "📤 Export Logs",
		Active:  "/export",
		Data:    entries,
	})
}

// ExportCSV serves growth_log.csv.
func (c *PageController) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := c.service.ExportCSV(r.Context(), middleware.SessionID(r.Context()), &buf)
	if errors.Is(err, service.ErrNoEntries) {
		http.Error(w, "No data available to export.", http.StatusNotFound)
		return
	}
	if err != nil {
		c.fail(w, err)
		return
	}
	writeCSV(w, buf.Bytes())
}

// Sensor reads and shows the selected sensor source.
func (c *PageController) Sensor(w http.ResponseWriter, r *http.Request) {
	rep, err := c.service.ReadSensor(r.Context(), middleware.SessionID(r.Context()))
	if err != nil {
		c.fail(w, err)
		return
	}
	c.render(w, r, http.StatusOK, web.PageSensor, pageData{
		Title:   "Sensor Readings",
		Heading: "📡 IoT Sensor Readings",
		Active:  "/sensor",
		Data:    rep,
	})
}

// PhotoCheckForm shows the upload form.
func (c *PageController) PhotoCheckForm(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, web.PagePhotoCheck, pageData{
		Title:   "AI Photo Check",
		Heading: "🧠 AI Image Detection (Demo)",
		Active:  "/photo-check",
	})
}

// PhotoCheck analyzes an uploaded photo and shows it with the verdict.
func (c *PageController) PhotoCheck(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "AI Photo Check", Heading: "🧠 AI Image Detection (Demo)", Active: "/photo-check"}

	photo, err := c.parsePhoto(w, r)
	if err == nil {
		var result string
		if result, err = c.service.CheckPhoto(r.Context(), photo); err == nil {
			data.Data = photoCheckResult{ImageURL: dataURI(photo), Result: result}
			c.render(w, r, http.StatusOK, web.PagePhotoCheck, data)
			return
		}
	}
	if !errors.Is(err, service.ErrValidation) && !errors.Is(err, errPhotoTooLarge) {
		c.fail(w, err)
		return
	}
	data.Flashes = []flash{{Level: "error", Message: err.Error()}}
	c.render(w, r, formErrorStatus(err), web.PagePhotoCheck, data)
}

func (c *PageController) parsePhoto(w http.ResponseWriter, r *http.Request) (*models.Photo, error) {
	if err := parseMultipart(w, r); err != nil {
		if errors.Is(err, errPhotoTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	photo, err := readPhoto(r, "photo")
	if err != nil && !errors.Is(err, errPhotoTooLarge) {
		return nil, fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return photo, err
}

// dataURI inlines an accepted image. Only JPEG and PNG reach this point.
func dataURI(p *models.Photo) template.URL {
	return template.URL("data:" + p.ContentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data))
}

// UpdateAlerts handles the sidebar threshold form.
func (c *PageController) UpdateAlerts(w http.ResponseWriter, r *http.Request) {
	maxTemp, err1 := strconv.ParseFloat(strings.TrimSpace(r.FormValue("max_temperature")), 64)
	minHum, err2 := strconv.ParseFloat(strings.TrimSpace(r.FormValue("min_humidity")), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "Thresholds must be numbers", http.StatusUnprocessableEntity)
		return
	}

	_, err := c.service.UpdateAlertSettings(r.Context(), middleware.SessionID(r.Context()), models.AlertSettings{
		MaxTemperature: maxTemp,
		MinHumidity:    minHum,
	})
	if err != nil {
		c.formError(w, err)
		return
	}
	http.Redirect(w, r, returnPath(r.FormValue("return")), http.StatusSeeOther)
}

// UpdateSource handles the sidebar data source form.
func (c *PageController) UpdateSource(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseSourceKind(r.FormValue("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	_, err = c.service.SelectSource(r.Context(), middleware.SessionID(r.Context()), models.SensorSource{
		Kind: kind,
		Path: r.FormValue("path"),
		URL:  r.FormValue("url"),
	})
	if err != nil {
		c.formError(w, err)
		return
	}
	http.Redirect(w, r, returnPath(r.FormValue("return")), http.StatusSeeOther)
}

func (c *PageController) formError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrValidation) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	c.fail(w, err)
}

// returnPath only redirects back to one of the dashboard's own pages.
func returnPath(p string) string {
	for _, item := range navItems {
		if item.Path == p {
			return p
		}
	}
	return "/"
}
