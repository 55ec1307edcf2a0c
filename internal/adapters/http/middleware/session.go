package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"scolarite/internal/domain/access"
	"scolarite/internal/domain/session"
)

type storeKey struct{}

// Session attaches the browser's session store to the request context.
// PRE: runs inside Browser.Identify
func Session(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := BrowserID(r.Context())
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			st := reg.For(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), storeKey{}, st)))
		})
	}
}

// SessionStore returns the request's session store, or nil.
func SessionStore(ctx context.Context) *session.Store {
	st, _ := ctx.Value(storeKey{}).(*session.Store)
	return st
}

// CurrentSession returns the request's session, zero when signed out.
func CurrentSession(ctx context.Context) session.Session {
	if st := SessionStore(ctx); st != nil {
		return st.Current()
	}
	return session.Session{}
}

// Guard applies the screen access table before any handler runs.
// Signed-out visitors go to the login page; wrong roles go to /unauthorized.
func Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := access.AllowedFor(r.URL.Path)
		identity := CurrentSession(r.Context()).Identity
		switch access.Decide(identity, allowed) {
		case access.RedirectLogin:
			slog.Info("access_denied", "path", r.URL.Path, "decision", access.RedirectLogin.String())
			deny(w, r, http.StatusUnauthorized, "/")
		case access.Unauthorized:
			slog.Warn("access_denied", "path", r.URL.Path, "role", identity.Role, "decision", access.Unauthorized.String())
			deny(w, r, http.StatusForbidden, "/unauthorized")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// WantsHTML reports whether the client asked for a page rather than the JSON twin.
// A missing Accept header counts as a browser.
func WantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func deny(w http.ResponseWriter, r *http.Request, status int, to string) {
	if !WantsHTML(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"` + strings.ToLower(http.StatusText(status)) + `"}`))
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
