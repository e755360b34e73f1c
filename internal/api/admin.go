// ABOUTME: SocialConnect admin endpoints.
// ABOUTME: Site-wide listings, deletions, and global notifications.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2389-research/connect/internal/models"
)

// AdminPosts lists every post, including inactive ones.
func (c *Client) AdminPosts(ctx context.Context) ([]models.Post, error) {
	return getList[models.Post](ctx, c, "/posts/admin/")
}

// AdminDeletePost removes any post.
func (c *Client) AdminDeletePost(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/posts/admin/%d/delete/", id), nil, nil)
}

// AdminComments lists every comment.
func (c *Client) AdminComments(ctx context.Context) ([]models.Comment, error) {
	return getList[models.Comment](ctx, c, "/admin/comments/")
}

// AdminDeleteComment removes any comment.
func (c *Client) AdminDeleteComment(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/admin/comments/%d/delete/", id), nil, nil)
}

// AdminNotifications lists notifications across all users.
func (c *Client) AdminNotifications(ctx context.Context) ([]models.Notification, error) {
	return getList[models.Notification](ctx, c, "/admin/notifications/")
}

// SendGlobalNotification broadcasts message to every user.
func (c *Client) SendGlobalNotification(ctx context.Context, message string, kind models.NotificationType) (*models.GlobalNotificationResult, error) {
	body := map[string]string{
		"message":           message,
		"notification_type": string(kind),
	}
	var resp models.GlobalNotificationResult
	if err := c.Do(ctx, http.MethodPost, "/notifications/admin/send-global/", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdminMarkNotificationRead marks any user's notification read.
func (c *Client) AdminMarkNotificationRead(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/notifications/admin/%d/read/", id), nil, nil)
}
