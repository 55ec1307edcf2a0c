package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/application/listutil"
	"scolarite/internal/domain/navigation"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/theme"
)

//go:embed templates/*.html static/*
var assets embed.FS

// pageNames lists every page template; each is parsed together with layout.html.
var pageNames = []string{
	"login.html",
	"unauthorized.html",
	"list.html",
	"user_form.html",
	"course_form.html",
	"grade_form.html",
	"confirm.html",
	"stats_admin.html",
	"stats_scolarite.html",
	"student.html",
	"contact.html",
}

type pages map[string]*template.Template

var funcs = template.FuncMap{
	"add":    func(a, b int) int { return a + b },
	"sub":    func(a, b int) int { return a - b },
	"list":   func(items ...string) []string { return items },
	"active": func(e navigation.Entry, path string) bool { return e.Active(path) },
	// pageURL links page n of a list; path is a route constant, never user input.
	"pageURL": func(path string, p listutil.Pager, n int) template.URL {
		return template.URL(path + "?" + p.Query(n))
	},
	"percent": func(v int) template.CSS {
		return template.CSS(fmt.Sprintf("width: %d%%", v))
	},
}

func parsePages() pages {
	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		p[name] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name))
	}
	return p
}

// view is the data handed to the layout. Body is the page-specific data.
type view struct {
	Title          string
	Path           string
	Identity       *session.Identity
	Menu           []navigation.Entry
	Theme          theme.Mode
	Flash          *middleware.Flash
	CSRFToken      string
	RefreshURL     string // set while a list is still loading
	GoogleClientID string
	Body           any
}

// render writes a page inside the layout.
func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, body any) {
	s.renderView(w, r, status, name, view{Title: title, Body: body})
}

func (s *server) renderView(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	tpl, ok := s.pages[name]
	if !ok {
		internalError(w, errUnknownPage(name))
		return
	}
	v.Path = r.URL.Path
	v.Identity = middleware.CurrentSession(r.Context()).Identity
	if v.Identity != nil {
		v.Menu = navigation.MenuFor(v.Identity.Role)
	}
	v.Theme = s.themeMode(r)
	v.CSRFToken = csrf.Token(r)
	v.GoogleClientID = s.GoogleClientID
	if f, ok := s.Browser.PopFlash(w, r); ok {
		v.Flash = &f
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.Execute(w, v); err != nil {
		slog.Error("render_failed", "page", name, "error", err)
	}
}

type errUnknownPage string

func (e errUnknownPage) Error() string { return "unknown page " + string(e) }

// flash stores a one-shot message and redirects.
func (s *server) flash(w http.ResponseWriter, r *http.Request, kind, text, to string) {
	s.Browser.SetFlash(w, middleware.Flash{Kind: kind, Text: text})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func staticHandler() http.Handler {
	return http.FileServer(http.FS(assets))
}
