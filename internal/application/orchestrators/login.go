package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/domain/session"
)

// AuthAPI is the backend surface needed by the login flows.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (backend.AuthResult, error)
	GoogleLogin(ctx context.Context, idToken string) (backend.AuthResult, error)
}

// SessionWriter is the writable side of a browser's session.
type SessionWriter interface {
	Login(ctx context.Context, token string) (session.Session, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the started session and where to send the user.
type LoginResult struct {
	Session session.Session
	Landing string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	API     AuthAPI
	Session SessionWriter
}

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingCredential  = errors.New("google credential is required")
	ErrNoToken            = errors.New("backend returned no token")
)

// ExecuteLogin exchanges credentials for a token and starts the session.
// PRE: none
// POST: on success the session is persisted and Landing is the role's screen;
// a backend 401 is returned as is (wrong credentials)
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrMissingCredentials
	}
	res, err := deps.API.Login(ctx, email, input.Password)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "error", err)
		return LoginResult{}, err
	}
	return startSession(ctx, res, deps.Session, "password")
}

// GoogleLoginInput carries the Google Identity Services credential.
type GoogleLoginInput struct {
	Credential string
}

// ExecuteGoogleLogin exchanges a Google ID token for a backend token and starts the session.
// PRE: none
// POST: same as ExecuteLogin
func ExecuteGoogleLogin(ctx context.Context, input GoogleLoginInput, deps LoginDeps) (LoginResult, error) {
	if strings.TrimSpace(input.Credential) == "" {
		return LoginResult{}, ErrMissingCredential
	}
	res, err := deps.API.GoogleLogin(ctx, input.Credential)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "method", "google", "error", err)
		return LoginResult{}, err
	}
	return startSession(ctx, res, deps.Session, "google")
}

func startSession(ctx context.Context, res backend.AuthResult, w SessionWriter, method string) (LoginResult, error) {
	if res.Token == "" {
		return LoginResult{}, ErrNoToken
	}
	s, err := w.Login(ctx, res.Token)
	if err != nil {
		return LoginResult{}, fmt.Errorf("start session: %w", err)
	}
	slog.Info("auth_event", "event", "login_succeeded", "method", method, "subject", s.Identity.SubjectID, "role", s.Identity.Role)
	return LoginResult{Session: s, Landing: session.LandingPath(s.Identity.Role)}, nil
}
