// ABOUTME: HTTP client for the SocialConnect REST API with bearer auth.
// ABOUTME: Recovers from an expired access token with one refresh and one retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/logging"
)

const refreshPath = "/auth/token/refresh/"

// TokenStore is where the client reads and rotates credentials.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(access string)
	SetRefreshToken(refresh string)
	ClearTokens()
}

// Client talks to the SocialConnect API.
type Client struct {
	baseURL string
	tokens  TokenStore
	client  *http.Client
	log     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithLogger replaces the client's logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL (e.g. https://host/api). tokens may be nil
// for unauthenticated use.
func NewClient(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logging.Log.WithField("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// requestBody is a pre-encoded payload that can be replayed on retry.
type requestBody struct {
	contentType string
	data        []byte
}

func jsonBody(v any) (*requestBody, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return &requestBody{contentType: "application/json", data: data}, nil
}

// Do sends a JSON request and decodes the response into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	rb, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, rb, out, true)
}

// doNoRefresh is Do without the 401 recovery, for credential endpoints.
func (c *Client) doNoRefresh(ctx context.Context, method, path string, body, out any) error {
	rb, err := jsonBody(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, rb, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, body *requestBody, out any, allowRefresh bool) error {
	data, err := c.send(ctx, method, path, body)
	if err != nil && allowRefresh && IsUnauthorized(err) && c.tokens != nil {
		if rerr := c.refresh(ctx); rerr != nil {
			c.log.WithError(rerr).WithField("path", path).Debug("token refresh failed, returning original error")
			return err
		}
		data, err = c.send(ctx, method, path, body)
	}
	if err != nil {
		return err
	}
	return decode(data, out)
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, method, path string, body *requestBody) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "request_id": requestID})
	log.Debug("api request")

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("api request failed")
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}

	log.WithField("status", resp.StatusCode).Debug("api response")
	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       data,
			RequestID:  requestID,
		}
	}
	return data, nil
}

// refresh exchanges the stored refresh token for a new access token. Tokens are
// cleared when no refresh token exists or the refresh itself is rejected with 401;
// any other failure leaves them in place.
func (c *Client) refresh(ctx context.Context) error {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		c.tokens.ClearTokens()
		return ErrNoRefreshToken
	}

	c.log.WithField("refresh", logging.TokenPrefix(refreshToken)).Debug("refreshing access token")

	rb, err := jsonBody(map[string]string{"refresh": refreshToken})
	if err != nil {
		return err
	}
	data, err := c.send(ctx, http.MethodPost, refreshPath, rb)
	if err != nil {
		if IsUnauthorized(err) {
			c.log.Info("refresh token rejected, clearing session tokens")
			c.tokens.ClearTokens()
		}
		return err
	}

	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if resp.Access == "" {
		return fmt.Errorf("refresh response missing access token")
	}

	c.tokens.SetAccessToken(resp.Access)
	if resp.Refresh != "" {
		c.tokens.SetRefreshToken(resp.Refresh)
	}
	return nil
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeList accepts either a paginated envelope ({"results": [...]}) or a bare array.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse list: %w", err)
		}
		return items, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("failed to parse list: %w", err)
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}

// getList fetches a list endpoint, tolerating both response shapes.
func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

// withQuery appends url-encoded query params to path.
func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
