// ABOUTME: User directory, search, and profile views.
// ABOUTME: Search falls back to a local substring match over cached users.
package app

import (
	"context"
	"strings"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
	"github.com/2389-research/connect/internal/storage"
)

// LoadUsers refreshes the user directory, keeping the cached one when offline.
func (a *App) LoadUsers(ctx context.Context) optimistic.Result {
	return optimistic.Run(ctx, a.store, optimistic.Op[[]models.User]{
		Key: state.Key("users"),
		Remote: func(ctx context.Context) ([]models.User, error) {
			return a.client.ListUsers(ctx)
		},
		Synced: func(users []models.User) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			if len(users) == 0 {
				a.useCachedUsersLocked()
				return nil
			}
			a.setAllUsersLocked(users)
			return nil
		},
		Local: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.useCachedUsersLocked()
		},
	})
}

// SearchUsers queries the server, falling back to a substring match over the
// cached directory with follower counts taken from the local graph.
func (a *App) SearchUsers(ctx context.Context, query string) ([]models.User, optimistic.Result) {
	query = strings.TrimSpace(query)
	if query == "" {
		a.mu.Lock()
		a.searchResults = nil
		a.mu.Unlock()
		return nil, optimistic.Result{Outcome: optimistic.Synced}
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[[]models.User]{
		Key: state.Key("search"),
		Remote: func(ctx context.Context) ([]models.User, error) {
			return a.client.SearchUsers(ctx, query)
		},
		Synced: func(users []models.User) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.searchResults = users
			return nil
		},
		Local: func() {
			results := a.localSearch(query)
			a.mu.Lock()
			defer a.mu.Unlock()
			a.searchResults = results
		},
		Notice: "Search is using local data. Backend server not available.",
	})
	return a.SearchResults(), res
}

func (a *App) localSearch(query string) []models.User {
	q := strings.ToLower(query)
	following := a.cache.LoadAllFollowing()
	followers := a.cache.LoadAllFollowers()

	var out []models.User
	for _, u := range a.AllUsers() {
		fields := []string{u.Username, u.FullName, u.Email, u.Bio}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				u.FollowingCount = len(following[u.ID])
				u.FollowersCount = len(followers[u.ID])
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// Profile is a user together with their posts in the local feed.
type Profile struct {
	User        models.User
	Posts       []models.Post
	IsFollowing bool
}

// ViewProfile fetches a user, falling back to the cached directory.
func (a *App) ViewProfile(ctx context.Context, id int64) (Profile, optimistic.Result, error) {
	var found *models.User
	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.User]{
		Key: state.Key("profile", id),
		Remote: func(ctx context.Context) (*models.User, error) {
			return a.client.GetUser(ctx, id)
		},
		Synced: func(u *models.User) error {
			found = u
			return nil
		},
		Local: func() {
			for _, u := range a.AllUsers() {
				if u.ID == id {
					found = &u
					return
				}
			}
			if cur := a.CurrentUser(); cur != nil && cur.ID == id {
				found = cur
			}
		},
	})
	if found == nil {
		if res.Err != nil && res.Outcome == optimistic.Rejected {
			return Profile{}, res, res.Err
		}
		return Profile{}, res, ErrUserNotFound
	}

	posts := a.Posts()
	return Profile{
		User:        *found,
		Posts:       storage.FilterPosts(posts, storage.ListPostsOptions{AuthorID: id, Limit: max(1, len(posts))}),
		IsFollowing: a.IsFollowing(id),
	}, res, nil
}
