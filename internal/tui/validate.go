// ABOUTME: Credential validation for the SocialConnect API.
// ABOUTME: Logs in once with the entered credentials and returns the issued tokens.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
)

// ValidateLogin posts the credentials to the login endpoint.
// The context allows cancellation when the user quits during validation.
func ValidateLogin(ctx context.Context, apiURL, username, password string) (*models.LoginResponse, error) {
	apiURL = strings.TrimRight(apiURL, "/")
	client := api.NewClient(apiURL, nil, api.WithTimeout(10*time.Second), api.WithLogger(logging.Log.WithField("component", "setup")))

	resp, err := client.Login(ctx, username, password)
	if err != nil {
		if api.IsNetworkError(err) {
			return nil, fmt.Errorf("connection failed: %w", err)
		}
		return nil, fmt.Errorf("login rejected (%d): %s", api.StatusCode(err), api.ErrorMessage(err))
	}
	if resp.Tokens.Access == "" || resp.Tokens.Refresh == "" {
		return nil, fmt.Errorf("login response did not include tokens")
	}
	return resp, nil
}
