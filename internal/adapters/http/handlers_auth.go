package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/application/orchestrators"
	"scolarite/internal/domain/fault"
	"scolarite/internal/domain/session"
)

// loginView is the body of login.html.
type loginView struct {
	Email string
	Error string
}

// handleLoginPage shows the login form, or sends a signed-in visitor to their landing screen.
func (s *server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if id := middleware.CurrentSession(r.Context()).Identity; id != nil {
		http.Redirect(w, r, session.LandingPath(id.Role), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", "Connexion", loginView{})
}

func (s *server) loginDeps(r *http.Request) (orchestrators.LoginDeps, bool) {
	st := middleware.SessionStore(r.Context())
	return orchestrators.LoginDeps{API: s.API, Session: st}, st != nil
}

// startFresh drops screens mounted under a previous identity of the browser.
func (s *server) startFresh(r *http.Request) {
	if n := s.Bindings.Unmount(middleware.BrowserID(r.Context())); n > 0 {
		slog.Debug("screens_unmounted", "count", n)
	}
}

// handleLogin exchanges credentials for a token. A 401 here means wrong
// credentials, not an expired session.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	deps, ok := s.loginDeps(r)
	if !ok {
		internalError(w, errors.New("no session store in context"))
		return
	}
	email := r.PostForm.Get("email")
	res, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    email,
		Password: r.PostForm.Get("password"),
	}, deps)
	if err != nil {
		status, msg := loginFailure(err)
		if !isHTMLRequest(r) {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		s.render(w, r, status, "login.html", "Connexion", loginView{Email: email, Error: msg})
		return
	}
	s.startFresh(r)
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]string{"role": string(res.Session.Identity.Role), "landing": res.Landing})
		return
	}
	http.Redirect(w, r, res.Landing, http.StatusSeeOther)
}

// loginFailure maps a login error to a status and a French message.
// The backend's own message is shown when it sent one.
func loginFailure(err error) (int, string) {
	var fe *fault.Error
	switch {
	case errors.Is(err, orchestrators.ErrMissingCredentials):
		return http.StatusUnprocessableEntity, "Tous les champs sont requis."
	case errors.As(err, &fe) && fe.Kind == fault.KindNetwork:
		return http.StatusBadGateway, "Erreur de connexion"
	case errors.As(err, &fe) && fe.Message != "":
		return http.StatusUnauthorized, fe.Message
	default:
		slog.Warn("login_failed", "error", err)
		return http.StatusUnauthorized, "Erreur de connexion"
	}
}

// handleGoogleLogin receives the Google Identity Services credential posted by
// the sign-in button callback.
func (s *server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	deps, ok := s.loginDeps(r)
	if !ok {
		internalError(w, errors.New("no session store in context"))
		return
	}
	res, err := orchestrators.ExecuteGoogleLogin(r.Context(), orchestrators.GoogleLoginInput{
		Credential: r.PostForm.Get("credential"),
	}, deps)
	if err != nil {
		const msg = "Échec de la connexion avec Google"
		if !isHTMLRequest(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
			return
		}
		s.render(w, r, http.StatusUnauthorized, "login.html", "Connexion", loginView{Error: msg})
		return
	}
	s.startFresh(r)
	http.Redirect(w, r, res.Landing, http.StatusSeeOther)
}

// handleLogout ends the session and unmounts the browser's screens.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if st := middleware.SessionStore(r.Context()); st != nil {
		if err := st.Logout(r.Context()); err != nil {
			slog.Warn("logout_failed", "error", err)
		}
	}
	s.startFresh(r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleTheme flips the light/dark palette and returns to the page it was posted from.
func (s *server) handleTheme(w http.ResponseWriter, r *http.Request) {
	mode, err := s.themeFor(r).Toggle(r.Context())
	if err != nil {
		slog.Warn("theme_toggle_failed", "error", err)
	}
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]string{"theme": string(mode)})
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the same-site path the request came from, or "/".
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func (s *server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	landing := ""
	if id := middleware.CurrentSession(r.Context()).Identity; id != nil {
		landing = session.LandingPath(id.Role)
	}
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	s.render(w, r, http.StatusForbidden, "unauthorized.html", "Accès refusé", landing)
}
