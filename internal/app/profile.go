// ABOUTME: Profile edits and avatar uploads.
// ABOUTME: Server payloads are merged into the cached user; the local avatar survives failures.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/jinzhu/copier"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
)

// UpdateProfile saves profile edits. The server's user is merged over the
// current one; offline, the edit is applied locally.
func (a *App) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (optimistic.Result, error) {
	if _, err := a.requireUser(); err != nil {
		return optimistic.Result{}, err
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.User]{
		Key: state.Key("profile"),
		Remote: func(ctx context.Context) (*models.User, error) {
			return a.client.UpdateProfile(ctx, update)
		},
		Synced: func(server *models.User) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.user == nil {
				return ErrNotAuthenticated
			}
			merged := *a.user
			update.Apply(&merged)
			if server != nil {
				if err := mergeUser(&merged, server); err != nil {
					return err
				}
			}
			a.setUserLocked(&merged)
			a.syncPostAuthorsLocked()
			return nil
		},
		Local: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.user == nil {
				return
			}
			u := *a.user
			update.Apply(&u)
			a.setUserLocked(&u)
			a.syncPostAuthorsLocked()
		},
		CanFallback: a.hasUser,
		Notice:      "Backend unavailable. Profile saved locally.",
	})
	return res, nil
}

// mergeUser copies the non-empty fields of src over dst.
func mergeUser(dst, src *models.User) error {
	if err := copier.CopyWithOption(dst, src, copier.Option{IgnoreEmpty: true}); err != nil {
		return fmt.Errorf("merge user: %w", err)
	}
	return nil
}

// AvatarDataURL validates an image and encodes it as a data URL.
func AvatarDataURL(data []byte) (string, string, error) {
	if len(data) > MaxAvatarBytes {
		return "", "", ErrImageTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", ErrInvalidImage
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), contentType, nil
}

// UploadAvatar sets the current user's avatar. The image is applied locally
// before the upload and stays applied whatever the server says.
func (a *App) UploadAvatar(ctx context.Context, filename string, data []byte) (optimistic.Result, error) {
	if _, err := a.requireUser(); err != nil {
		return optimistic.Result{}, err
	}
	dataURL, contentType, err := AvatarDataURL(data)
	if err != nil {
		return optimistic.Result{}, err
	}

	a.mu.Lock()
	if a.user != nil {
		u := *a.user
		u.AvatarURL = dataURL
		a.setUserLocked(&u)
		a.syncPostAuthorsLocked()
	}
	a.mu.Unlock()

	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.AvatarResponse]{
		Key: state.Key("avatar"),
		Remote: func(ctx context.Context) (*models.AvatarResponse, error) {
			resp, err := a.client.UploadAvatarFile(ctx, filename, contentType, data)
			if err == nil || api.IsNetworkError(err) {
				return resp, err
			}
			a.log.WithError(err).Debug("multipart avatar upload failed, retrying as data url")
			return a.client.UploadAvatarData(ctx, dataURL)
		},
		Synced: func(resp *models.AvatarResponse) error {
			if resp == nil || resp.User == nil {
				return nil
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.user == nil {
				return nil
			}
			merged := *a.user
			if err := mergeUser(&merged, resp.User); err != nil {
				return err
			}
			merged.AvatarURL = dataURL
			a.setUserLocked(&merged)
			a.syncPostAuthorsLocked()
			return nil
		},
		CanFallback: func(error) bool { return true },
		Notice:      "Profile picture updated locally. Backend sync failed.",
	})
	return res, nil
}
