// ABOUTME: Auth session manager: login, logout, registration, and token presence checks.
// ABOUTME: Tokens persist in the cache; logout always clears them locally.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
)

// TokenStore persists the session's token pair.
type TokenStore interface {
	api.TokenStore
	SetTokens(access, refresh string)
}

// AuthError is a rejected login or registration. Payload is the server's raw body.
type AuthError struct {
	StatusCode int
	Message    string
	Payload    []byte
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Message
}

// LoginResult is what a successful login or registration yields.
type LoginResult struct {
	User    models.User
	Access  string
	Refresh string
}

// Session owns the credential lifecycle.
type Session struct {
	client *api.Client
	tokens TokenStore
	log    *logrus.Entry
}

// NewSession returns a session backed by client and tokens.
func NewSession(client *api.Client, tokens TokenStore) *Session {
	return &Session{
		client: client,
		tokens: tokens,
		log:    logging.Log.WithField("component", "auth"),
	}
}

// WithLogger replaces the session's logger.
func (s *Session) WithLogger(l *logrus.Entry) *Session {
	s.log = l
	return s
}

// Login authenticates and stores both tokens.
func (s *Session) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	resp, err := s.client.Login(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, asAuthError(err)
	}
	return s.accept(resp)
}

// Register validates data locally, creates the account, and logs in with the issued tokens.
func (s *Session) Register(ctx context.Context, data models.RegisterData) (*LoginResult, error) {
	if verrs := ValidateRegistration(data); len(verrs) > 0 {
		return nil, verrs
	}
	resp, err := s.client.Register(ctx, data)
	if err != nil {
		return nil, asAuthError(err)
	}
	return s.accept(resp)
}

func (s *Session) accept(resp *models.LoginResponse) (*LoginResult, error) {
	if resp.Tokens.Access == "" || resp.Tokens.Refresh == "" {
		return nil, &AuthError{Message: "server response did not include tokens"}
	}
	s.tokens.SetTokens(resp.Tokens.Access, resp.Tokens.Refresh)
	s.log.WithFields(logrus.Fields{
		"user":   resp.User.Username,
		"access": logging.TokenPrefix(resp.Tokens.Access),
	}).Debug("session established")

	return &LoginResult{
		User:    resp.User,
		Access:  resp.Tokens.Access,
		Refresh: resp.Tokens.Refresh,
	}, nil
}

// Logout asks the server to invalidate the refresh token, then clears local tokens
// whatever the outcome. The server error, if any, is returned for reporting only.
func (s *Session) Logout(ctx context.Context) error {
	defer s.tokens.ClearTokens()

	refresh := s.tokens.RefreshToken()
	if refresh == "" {
		return nil
	}
	if err := s.client.Logout(ctx, refresh); err != nil {
		s.log.WithError(err).Warn("server logout failed, clearing local session anyway")
		return fmt.Errorf("server logout: %w", err)
	}
	return nil
}

// CurrentUser fetches the authenticated profile. HTTP and network errors are
// returned untouched so callers can tell them apart.
func (s *Session) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.client.Me(ctx)
}

// HasValidTokens reports whether both tokens are present. Expiry is not checked.
func (s *Session) HasValidTokens() bool {
	return s.tokens.AccessToken() != "" && s.tokens.RefreshToken() != ""
}

// IsAuthenticated reports whether an access token is present.
func (s *Session) IsAuthenticated() bool {
	return s.tokens.AccessToken() != ""
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	return s.tokens.AccessToken()
}

// ClearAuth drops both tokens without contacting the server.
func (s *Session) ClearAuth() {
	s.tokens.ClearTokens()
}

// asAuthError converts 4xx responses into AuthError; other failures pass through.
func asAuthError(err error) error {
	var ae *api.APIError
	if errors.As(err, &ae) && ae.StatusCode >= 400 && ae.StatusCode < 500 {
		return &AuthError{StatusCode: ae.StatusCode, Message: ae.Message(), Payload: ae.Body}
	}
	return err
}
