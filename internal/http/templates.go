package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/core"
	"melodora/internal/i18n"
	"melodora/internal/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	pageLanding  = "landing"
	pageLogin    = "login"
	pageSignup   = "signup"
	pageHomepage = "homepage"
	pageHistory  = "history"
	pageProfile  = "profile"
	pageError    = "error"
)

var pageNames = []string{pageLanding, pageLogin, pageSignup, pageHomepage, pageHistory, pageProfile, pageError}

var templateFuncs = template.FuncMap{
	"bpm": func(v *float64) int {
		if v == nil {
			return 0
		}
		return core.RoundBPM(*v)
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// pageData is the root object of every page template.
type pageData struct {
	L       *i18n.Localizer
	Theme   theme.Theme
	User    *core.User
	Title   string
	Error   string
	Message string
	// Refresh asks the browser to reload after this many seconds.
	Refresh int

	Email    string
	View     core.View
	LinkHint string
	Warning  string
	Failure  string
	Items    []core.HistoryItem
	Stats    core.HistoryStats
}

func loadTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func staticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) localizer(r *http.Request) *i18n.Localizer {
	return i18n.NewLocalizer(i18n.Negotiate(r.Header.Get("Accept-Language"), s.config.App.Language))
}

// render executes a page into a buffer first so template errors never
// produce half-written responses.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, status int, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	if data.L == nil {
		data.L = s.localizer(r)
	}
	data.Theme = theme.FromContext(r.Context())
	data.User = auth.UserFromContext(r.Context())

	tmpl, ok := s.pages[page]
	if !ok {
		s.logger.Error("Unknown page template", zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("Failed to write page", zap.String("page", page), zap.Error(err))
	}
}
