// ABOUTME: Notification listing, read marking, and unread counts.
// ABOUTME: Read marks are applied locally when the server is unavailable.
package app

import (
	"context"
	"slices"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
)

// LoadNotifications refreshes notifications, falling back to cache then seed data.
func (a *App) LoadNotifications(ctx context.Context) optimistic.Result {
	return optimistic.Run(ctx, a.store, optimistic.Op[[]models.Notification]{
		Key: state.Key("notifications"),
		Remote: func(ctx context.Context) ([]models.Notification, error) {
			return a.client.Notifications(ctx)
		},
		Synced: func(n []models.Notification) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			if len(n) == 0 {
				a.useCachedNotificationsLocked()
				return nil
			}
			a.setNotificationsLocked(n)
			return nil
		},
		Local: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.useCachedNotificationsLocked()
		},
	})
}

// MarkNotificationRead marks one notification read.
func (a *App) MarkNotificationRead(ctx context.Context, id int64) optimistic.Result {
	apply := func() {
		a.markRead(func(n models.Notification) bool { return n.ID == id })
	}
	return optimistic.Run(ctx, a.store, optimistic.Op[struct{}]{
		Key: state.Key("markRead", id),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.client.MarkNotificationRead(ctx, id)
		},
		Synced: func(struct{}) error { apply(); return nil },
		Local:  apply,
	})
}

// MarkAllNotificationsRead marks every notification read. It does nothing when
// there is nothing unread; the server's count is used when it can be reached,
// since the local list may be stale.
func (a *App) MarkAllNotificationsRead(ctx context.Context) optimistic.Result {
	if unread, _ := a.UnreadCount(ctx); unread == 0 {
		return optimistic.Result{Outcome: optimistic.Synced}
	}
	apply := func() {
		a.markRead(func(models.Notification) bool { return true })
	}
	return optimistic.Run(ctx, a.store, optimistic.Op[struct{}]{
		Key: state.Key("markAllRead"),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.client.MarkAllNotificationsRead(ctx)
		},
		Synced: func(struct{}) error { apply(); return nil },
		Local:  apply,
	})
}

func (a *App) markRead(match func(models.Notification) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	changed := false
	n := slices.Clone(a.notifications)
	for i := range n {
		if !n[i].IsRead && match(n[i]) {
			n[i].IsRead = true
			changed = true
		}
	}
	if changed {
		a.setNotificationsLocked(n)
	}
}

// UnreadCount asks the server for the unread count. The bool is false when the
// count was computed locally.
func (a *App) UnreadCount(ctx context.Context) (int, bool) {
	count, err := a.client.UnreadCount(ctx)
	if err != nil {
		a.log.WithError(err).Debug("unread count unavailable, counting locally")
		return a.localUnread(), false
	}
	return count, true
}

func (a *App) localUnread() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := 0
	for _, n := range a.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}
