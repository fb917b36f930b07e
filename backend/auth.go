package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/domain"
	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/session"
)

// Registration carries the sign-up form.
type Registration struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FullName  string `json:"full_name,omitempty"`
}

// Login authenticates with email and password and stores the resulting
// session in the provider.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, errors.New("email and password are required")
	}

	var tokens wireTokens
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/auth/login/",
		path:   "/auth/login/",
		body:   map[string]string{"email": email, "password": password},
		public: true,
	}, &tokens)
	if err != nil {
		return session.Session{}, err
	}

	access, refresh := tokens.pair()
	if access == "" {
		return session.Session{}, errors.New("login response did not contain an access token")
	}
	s := session.Session{AccessToken: access, RefreshToken: refresh}
	if u := tokens.User.toDomain(); u != nil {
		s.User = *u
	}
	if s.User.Email == "" {
		s.User.Email = email
	}
	if err := c.Session.Set(ctx, s); err != nil {
		return session.Session{}, err
	}
	return s, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, r Registration) (domain.User, error) {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return domain.User{}, errors.New("email and password are required")
	}
	if r.Password2 == "" {
		r.Password2 = r.Password
	}
	var resp struct {
		wireUser
		User *userRef `json:"user"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/auth/register/",
		path:   "/auth/register/",
		body:   r,
		public: true,
	}, &resp)
	if err != nil {
		return domain.User{}, err
	}
	if u := resp.User.toDomain(); u != nil {
		return *u, nil
	}
	return resp.wireUser.toDomain(), nil
}

// Profile fetches the signed-in user and refreshes the cached copy in the
// session.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var u wireUser
	if err := c.do(ctx, request{method: http.MethodGet, route: "/auth/profile/", path: "/auth/profile/"}, &u); err != nil {
		return domain.User{}, err
	}
	user := u.toDomain()
	if s, err := c.Session.Get(ctx); err == nil && !s.Empty() {
		s.User = user
		_ = c.Session.Set(ctx, s)
	}
	return user, nil
}

// Logout tells the API to revoke the refresh token and always clears the
// local session.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.Session.Get(ctx)
	if err != nil {
		return err
	}
	var apiErr error
	if !s.Empty() {
		apiErr = c.do(ctx, request{
			method: http.MethodPost,
			route:  "/auth/logout/",
			path:   "/auth/logout/",
			body:   map[string]string{"refresh": s.RefreshToken},
		}, nil)
		if apiErr != nil {
			c.Logger.WithError(apiErr).Warn("logout request failed")
		}
	}
	if err := c.Session.Clear(ctx); err != nil {
		return err
	}
	return nil
}
