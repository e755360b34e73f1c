// ABOUTME: Admin dashboard: parallel loading of site-wide resources and privileged actions.
// ABOUTME: Access is gated on server-issued role claims, never on usernames.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/auth"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
)

// MaxBroadcastLength is the longest global notification accepted.
const MaxBroadcastLength = 500

// RecentLimit is how many entries the stats' recent lists carry.
const RecentLimit = 5

// markAllConcurrency bounds parallel mark-read requests.
const markAllConcurrency = 8

var (
	ErrNotAdmin         = errors.New("admin access required")
	ErrEmptyMessage     = errors.New("notification message cannot be empty")
	ErrMessageTooLong   = fmt.Errorf("notification message exceeds %d characters", MaxBroadcastLength)
	ErrInvalidBroadcast = errors.New("invalid notification type")
)

// Resource names used as keys in Snapshot.Errors.
const (
	ResourceUsers         = "users"
	ResourcePosts         = "posts"
	ResourceComments      = "comments"
	ResourceNotifications = "notifications"
)

// Snapshot is everything the dashboard loaded. A failed resource is empty and
// has an entry in Errors.
type Snapshot struct {
	Users         []models.User
	Posts         []models.Post
	Comments      []models.Comment
	Notifications []models.Notification

	// NotificationsLimited is set when only the caller's own notifications
	// could be listed.
	NotificationsLimited bool

	Errors map[string]error
}

// Stats is a pure projection of a Snapshot.
type Stats struct {
	TotalUsers          int
	TotalPosts          int
	TotalComments       int
	TotalNotifications  int
	UnreadNotifications int
	ReadNotifications   int
	PostsWithImages     int
	ActiveComments      int
	InactiveComments    int

	RecentUsers    []models.User
	RecentPosts    []models.Post
	RecentComments []models.Comment
}

// Dashboard performs admin operations through the API client.
type Dashboard struct {
	client *api.Client
	log    *logrus.Entry
}

// New creates a dashboard.
func New(client *api.Client) *Dashboard {
	return &Dashboard{client: client, log: logging.Log.WithField("component", "admin")}
}

// WithLogger replaces the dashboard's logger.
func (d *Dashboard) WithLogger(l *logrus.Entry) *Dashboard {
	d.log = l
	return d
}

// RequireAdmin returns ErrNotAdmin unless the user or token carries an admin claim.
func RequireAdmin(user *models.User, accessToken string) error {
	if !auth.IsAdmin(user, accessToken) {
		return ErrNotAdmin
	}
	return nil
}

// Load fetches users, posts, comments and notifications in parallel. Failures
// are recorded per resource and never abort the other loads.
func (d *Dashboard) Load(ctx context.Context) *Snapshot {
	s := &Snapshot{Errors: make(map[string]error)}
	var mu sync.Mutex
	record := func(resource string, err error) {
		d.log.WithError(err).WithField("resource", resource).Warn("admin load failed")
		mu.Lock()
		s.Errors[resource] = err
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		users, err := d.client.ListUsers(ctx)
		if err != nil {
			record(ResourceUsers, err)
			return nil
		}
		s.Users = users
		return nil
	})
	g.Go(func() error {
		posts, err := d.client.AdminPosts(ctx)
		if err != nil {
			record(ResourcePosts, err)
			return nil
		}
		s.Posts = posts
		return nil
	})
	g.Go(func() error {
		comments, err := d.client.AdminComments(ctx)
		if err != nil {
			record(ResourceComments, err)
			return nil
		}
		s.Comments = comments
		return nil
	})
	g.Go(func() error {
		notifications, limited, err := d.loadNotifications(ctx)
		if err != nil {
			record(ResourceNotifications, err)
			return nil
		}
		s.Notifications = notifications
		s.NotificationsLimited = limited
		return nil
	})
	_ = g.Wait()

	return s
}

// loadNotifications lists every notification, falling back to the caller's own.
func (d *Dashboard) loadNotifications(ctx context.Context) ([]models.Notification, bool, error) {
	all, err := d.client.AdminNotifications(ctx)
	if err == nil {
		return all, false, nil
	}
	d.log.WithError(err).Info("system-wide notifications unavailable, using own notifications")

	own, ownErr := d.client.Notifications(ctx)
	if ownErr != nil {
		return nil, false, errors.Join(err, ownErr)
	}
	return own, true, nil
}

// ComputeStats summarizes a snapshot. Recent lists keep server order.
func ComputeStats(s *Snapshot) Stats {
	st := Stats{
		TotalUsers:         len(s.Users),
		TotalPosts:         len(s.Posts),
		TotalComments:      len(s.Comments),
		TotalNotifications: len(s.Notifications),
		RecentUsers:        head(s.Users, RecentLimit),
		RecentPosts:        head(s.Posts, RecentLimit),
		RecentComments:     head(s.Comments, RecentLimit),
	}
	for _, n := range s.Notifications {
		if n.IsRead {
			st.ReadNotifications++
		} else {
			st.UnreadNotifications++
		}
	}
	for _, p := range s.Posts {
		if p.ImageURL != "" {
			st.PostsWithImages++
		}
	}
	for _, c := range s.Comments {
		if c.IsActive {
			st.ActiveComments++
		} else {
			st.InactiveComments++
		}
	}
	return st
}

func head[T any](items []T, n int) []T {
	if len(items) < n {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}

// SendGlobalNotification broadcasts message to every user. An empty kind means
// announcement.
func (d *Dashboard) SendGlobalNotification(ctx context.Context, message string, kind models.NotificationType) (*models.GlobalNotificationResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxBroadcastLength {
		return nil, ErrMessageTooLong
	}
	if kind == "" {
		kind = models.NotificationAnnouncement
	}
	if !models.IsBroadcastType(kind) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBroadcast, kind)
	}

	res, err := d.client.SendGlobalNotification(ctx, message, kind)
	if err != nil {
		return nil, fmt.Errorf("send global notification: %w", err)
	}
	d.log.WithFields(logrus.Fields{
		"type":       kind,
		"recipients": res.Details.RecipientsCount,
	}).Info("global notification sent")
	return res, nil
}

// MarkRead marks any user's notification read.
func (d *Dashboard) MarkRead(ctx context.Context, id int64) error {
	if err := d.client.AdminMarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks the unread notifications in parallel and returns how many
// were sent. The first failure cancels the remaining requests.
func (d *Dashboard) MarkAllRead(ctx context.Context, notifications []models.Notification) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(markAllConcurrency)

	count := 0
	for _, n := range notifications {
		if n.IsRead {
			continue
		}
		id := n.ID
		count++
		g.Go(func() error {
			return d.MarkRead(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return count, nil
}

// DeletePost removes any user's post.
func (d *Dashboard) DeletePost(ctx context.Context, id int64) error {
	if err := d.client.AdminDeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

// DeleteComment removes any user's comment.
func (d *Dashboard) DeleteComment(ctx context.Context, id int64) error {
	if err := d.client.AdminDeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}
