package ssr

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"time"

	"activity-notes/internal/classify"
	"activity-notes/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const descriptionPreview = 150

type SSR struct {
	templates  *template.Template
	categories []string
}

type dashboardPage struct {
	*models.Dashboard
	Categories []string
}

func New(categories []string) (*SSR, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"priorityClass": PriorityClass,
		"preview":       func(s string) string { return classify.Truncate(s, descriptionPreview) },
		"formatTime":    func(t time.Time) string { return t.Local().Format("Mon, Jan 2 15:04") },
		"selected":      slices.Contains[[]string, string],
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &SSR{templates: tmpl, categories: categories}, nil
}

// PriorityClass picks the badge style for a priority label.
func PriorityClass(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return "badge badge-high"
	case models.PriorityMedium:
		return "badge badge-medium"
	default:
		return "badge badge-low"
	}
}

func (s *SSR) RenderDashboard(w http.ResponseWriter, d *models.Dashboard) error {
	return s.render(w, "dashboard.html", dashboardPage{Dashboard: d, Categories: s.categories})
}

func (s *SSR) RenderIndex(w http.ResponseWriter) error {
	return s.render(w, "index.html", nil)
}

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// render buffers the page; nothing is written when the template fails.
func (s *SSR) render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
