// ABOUTME: SocialConnect notification endpoints.
// ABOUTME: Listing, read marking, and unread counts for the current user.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2389-research/connect/internal/models"
)

// Notifications lists the current user's notifications.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	return getList[models.Notification](ctx, c, "/notifications/")
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/read/", id), nil, nil)
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/notifications/mark-all-read/", nil, nil)
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.Do(ctx, http.MethodGet, "/notifications/unread-count/", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}
