// ABOUTME: Session lifecycle for the interaction layer: restore, login, register, logout.
// ABOUTME: Also loads the initial data set with per-resource cache and seed fallbacks.
package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/state"
)

// OfflineNotice is shown when session validation could not reach the server.
const OfflineNotice = "You appear to be offline. Some features may not work."

// Restore validates stored credentials. A 401 ends the session only once the
// client has dropped the tokens; a 401 whose refresh could not complete, or a
// network error, keeps it and falls back to the cached user.
func (a *App) Restore(ctx context.Context) error {
	if !a.session.HasValidTokens() {
		return nil
	}

	u, err := a.session.CurrentUser(ctx)
	switch {
	case err == nil:
		a.mu.Lock()
		a.setUserLocked(u)
		a.mu.Unlock()
		a.SyncFollowGraph()
		a.store.ClearNotice()
		return nil
	case api.IsUnauthorized(err) && a.session.HasValidTokens():
		a.log.WithError(err).Info("token refresh did not complete, keeping cached session")
		a.store.SetNotice(OfflineNotice)
		return nil
	case api.IsUnauthorized(err):
		a.log.Info("stored session rejected, logging out")
		a.session.ClearAuth()
		a.mu.Lock()
		a.user = nil
		a.following, a.followers = nil, nil
		a.mu.Unlock()
		return err
	case api.IsNetworkError(err):
		a.log.WithError(err).Info("offline, keeping cached session")
		a.store.SetNotice(OfflineNotice)
		return nil
	default:
		a.log.WithError(err).Warn("session check failed, keeping cached session")
		return nil
	}
}

// Login authenticates and makes the returned user current.
func (a *App) Login(ctx context.Context, username, password string) (*models.User, error) {
	res, err := a.session.Login(ctx, username, password)
	if err != nil {
		a.store.Fail("login", err)
		return nil, err
	}
	a.store.Succeed("login")
	a.adoptUser(res.User)
	return a.CurrentUser(), nil
}

// Register creates an account and logs in with the issued tokens.
func (a *App) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	res, err := a.session.Register(ctx, data)
	if err != nil {
		a.store.Fail("register", err)
		return nil, err
	}
	a.store.Succeed("register")
	a.adoptUser(res.User)
	return a.CurrentUser(), nil
}

func (a *App) adoptUser(u models.User) {
	a.mu.Lock()
	a.setUserLocked(&u)
	a.mu.Unlock()
	a.SyncFollowGraph()
}

// Logout ends the session. Tokens, in-memory state and the namespaced cache are
// cleared even when the server call fails.
func (a *App) Logout(ctx context.Context) {
	if err := a.session.Logout(ctx); err != nil {
		a.log.WithError(err).Debug("server logout failed")
	}

	a.mu.Lock()
	a.user = nil
	a.posts = nil
	a.comments = make(map[int64][]models.Comment)
	a.notifications = nil
	a.following, a.followers = nil, nil
	a.allUsers = nil
	a.searchResults = nil
	a.mu.Unlock()

	a.cache.ClearAll()
}

// LoadInitialData fetches users, the feed and notifications in parallel. Each
// resource falls back to the cache, then to seed data, independently.
func (a *App) LoadInitialData(ctx context.Context) error {
	var (
		users         []models.User
		posts         []models.Post
		notifications []models.Notification
		usersErr      error
		postsErr      error
		notifErr      error
	)

	var g errgroup.Group
	g.Go(func() error {
		users, usersErr = a.client.ListUsers(ctx)
		return nil
	})
	g.Go(func() error {
		posts, postsErr = a.client.Feed(ctx)
		return nil
	})
	g.Go(func() error {
		notifications, notifErr = a.client.Notifications(ctx)
		return nil
	})
	_ = g.Wait()

	a.mu.Lock()
	if usersErr == nil && len(users) > 0 {
		a.setAllUsersLocked(users)
	} else {
		a.useCachedUsersLocked()
	}
	if postsErr == nil && len(posts) > 0 {
		a.setPostsLocked(posts)
	} else {
		a.useCachedPostsLocked()
	}
	if notifErr == nil && len(notifications) > 0 {
		a.setNotificationsLocked(notifications)
	} else {
		a.useCachedNotificationsLocked()
	}
	a.mu.Unlock()

	err := errors.Join(usersErr, postsErr, notifErr)
	if err != nil {
		a.store.SetNotice("Backend server not available - using offline mode with cached data")
		a.store.Fail("initialData", err)
		return err
	}
	a.store.Succeed("initialData")
	a.store.ClearNotice()
	return nil
}

func (a *App) useCachedUsersLocked() {
	if cached := a.cache.LoadAllUsers(); len(cached) > 0 {
		a.allUsers = cached
		return
	}
	a.setAllUsersLocked(models.DefaultUsers())
}

func (a *App) useCachedPostsLocked() {
	cached := a.cache.LoadPosts()
	valid := cached[:0]
	for _, p := range cached {
		if p.ID != 0 {
			valid = append(valid, p)
		}
	}
	if len(valid) > 0 {
		a.posts = valid
		if len(valid) != len(cached) {
			a.cache.SavePosts(valid)
		}
		return
	}
	a.setPostsLocked(models.DefaultPosts())
}

func (a *App) useCachedNotificationsLocked() {
	if cached := a.cache.LoadNotifications(); len(cached) > 0 {
		a.notifications = cached
		return
	}
	a.setNotificationsLocked(models.DefaultNotifications())
}

// SyncFollowGraph loads the current user's follow edges from the cache and
// patches the user's counters to match them.
func (a *App) SyncFollowGraph() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return
	}
	a.following = a.cache.LoadFollowing(a.user.ID)
	a.followers = a.cache.LoadFollowers(a.user.ID)

	if a.user.FollowingCount != len(a.following) || a.user.FollowersCount != len(a.followers) {
		u := *a.user
		u.FollowingCount = len(a.following)
		u.FollowersCount = len(a.followers)
		a.setUserLocked(&u)
	}
	a.store.Reset(state.Key("followGraph"))
}
