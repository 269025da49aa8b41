// Package web holds the dashboard's HTML templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Page template names.
const (
	PageDashboard  = "dashboard"
	PageNewLog     = "new_log"
	PageTrends     = "trends"
	PageLogbook    = "logbook"
	PageExport     = "export"
	PageSensor     = "sensor"
	PagePhotoCheck = "photo_check"
)

var pages = []string{
	PageDashboard,
	PageNewLog,
	PageTrends,
	PageLogbook,
	PageExport,
	PageSensor,
	PagePhotoCheck,
}

// Templates parses every page together with the shared layout. Each page is
// executed through the "layout" template.
func Templates(funcs template.FuncMap) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
