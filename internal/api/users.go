// ABOUTME: SocialConnect user endpoints.
// ABOUTME: Profile, avatar, directory, search, and follow graph requests.
package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/2389-research/connect/internal/models"
)

// UpdateProfile saves profile edits and returns the server's copy of the user.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := c.Do(ctx, http.MethodPut, "/users/me/update/", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadAvatarData uploads an avatar encoded as a data URL.
func (c *Client) UploadAvatarData(ctx context.Context, dataURL string) (*models.AvatarResponse, error) {
	var resp models.AvatarResponse
	if err := c.Do(ctx, http.MethodPost, "/users/me/avatar/", map[string]string{"avatar_data": dataURL}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadAvatarFile uploads raw image bytes as multipart form field "avatar".
func (c *Client) UploadAvatarFile(ctx context.Context, filename, contentType string, data []byte) (*models.AvatarResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var resp models.AvatarResponse
	body := &requestBody{contentType: w.FormDataContentType(), data: buf.Bytes()}
	if err := c.do(ctx, http.MethodPost, "/users/me/avatar/", body, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers returns all active users.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return getList[models.User](ctx, c, "/users/")
}

// SearchUsers returns users matching query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return getList[models.User](ctx, c, withQuery("/users/", url.Values{"search": {query}}))
}

// GetUser returns one user's profile.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Follow makes the current user follow id.
func (c *Client) Follow(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow/", id), nil, nil)
}

// Unfollow removes the follow edge to id.
func (c *Client) Unfollow(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/unfollow/", id), nil, nil)
}

// Followers lists users following id.
func (c *Client) Followers(ctx context.Context, id int64) ([]models.User, error) {
	return getList[models.User](ctx, c, fmt.Sprintf("/users/%d/followers/", id))
}

// Following lists users id follows.
func (c *Client) Following(ctx context.Context, id int64) ([]models.User, error) {
	return getList[models.User](ctx, c, fmt.Sprintf("/users/%d/following/", id))
}
