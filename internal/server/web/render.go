package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"path"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/server/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "about", "register", "login", "reminders", "schedule"}

// pageData is the single view model shared by every page.
type pageData struct {
	Title       string
	CurrentUser *models.User
	Error       string
	Success     bool
	Reminders   []*models.Reminder
	Form        map[string]string
	CanExport   bool
}

func parsePages(loc *time.Location) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"localTime": func(t time.Time) string {
			return t.In(loc).Format("2006-01-02 15:04")
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", path.Join("templates", name+".html"))
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

// render writes page with the given status. The template is executed into a
// buffer first so a failing template never produces a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if sess, ok := sessionFrom(r.Context()); ok {
		data.CurrentUser = sess.User
	}
	if data.Title == "" {
		data.Title = "Email Reminder"
	}
	data.CanExport = s.exporter != nil

	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error(r.Context(), "rendering page", "page", page, "error", err)
		http.Error(w, "Server error.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
