package backend

import (
	"context"
	"net/http"

	"scolarite/internal/domain/user"
)

// AuthResult is the backend's answer to a successful sign-in.
type AuthResult struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login exchanges credentials for a session token.
// POST: a 401 is returned as a fault.KindAuth error meaning bad credentials
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	return out, err
}

// GoogleLogin exchanges a Google ID token for a session token.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/google-login",
		body:   map[string]string{"token": idToken},
	}, &out)
	return out, err
}

// Register creates an account.
// PRE: in was validated with Register set
func (c *Client) Register(ctx context.Context, in user.Input) (user.User, error) {
	var raw struct {
		user.User
		Wrapped *user.User `json:"user"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: in}, &raw); err != nil {
		return user.User{}, err
	}
	if raw.Wrapped != nil {
		return *raw.Wrapped, nil
	}
	return raw.User, nil
}
