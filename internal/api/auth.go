// ABOUTME: SocialConnect authentication endpoints.
// ABOUTME: Login, registration, and logout skip the refresh-and-retry path.
package api

import (
	"context"
	"net/http"

	"github.com/2389-research/connect/internal/models"
)

// Login exchanges credentials for a user profile and token pair.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (*models.LoginResponse, error) {
	body := map[string]string{
		"username_or_email": usernameOrEmail,
		"password":          password,
	}
	var resp models.LoginResponse
	if err := c.doNoRefresh(ctx, http.MethodPost, "/auth/login/", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. The server responds with the same shape as Login.
func (c *Client) Register(ctx context.Context, data models.RegisterData) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.doNoRefresh(ctx, http.MethodPost, "/auth/register/", data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout blacklists the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.doNoRefresh(ctx, http.MethodPost, "/auth/logout/", map[string]string{"refresh_token": refreshToken}, nil)
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.Do(ctx, http.MethodGet, "/users/me/", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
