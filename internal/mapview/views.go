package mapview

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"

	"github.com/i474232898/weather-map/internal/common"
	"github.com/i474232898/weather-map/internal/weather"
)

//go:embed templates/*.html
var viewsFS embed.FS

var pageTmpl *template.Template

var funcs = template.FuncMap{
	"opt":    common.FormatOptional,
	"optInt": common.FormatOptionalInt,
	// Station plots come from the trusted observation server as SVG markup.
	"svg": func(s string) template.HTML { return template.HTML(s) },
}

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	t, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html")
	if err != nil {
		return err
	}
	pageTmpl = t
	return nil
}

// LoadTemplates loads embedded templates. Call during startup before serving
// requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// PageData is the view model of the map page.
type PageData struct {
	Timestamp weather.Timestamp
	Zoom      int
	MinZoom   int
	MaxZoom   int
	Center    LatLng
}

// NewPageData fills zoom limits and centre for the initial timestamp.
func NewPageData(ts weather.Timestamp, width int) *PageData {
	return &PageData{
		Timestamp: ts,
		Zoom:      ZoomForWidth(width),
		MinZoom:   MinZoom,
		MaxZoom:   MaxZoom,
		Center:    DefaultCenter,
	}
}

// RenderPage writes the map page.
func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call mapview.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "index.html", data)
}

// RenderPopup writes the station popup body. Values the station did not
// report are shown as N/A.
func RenderPopup(w io.Writer, d weather.StationDetail) error {
	if pageTmpl == nil {
		return errors.New("popup template not loaded: call mapview.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "popup.html", d)
}
