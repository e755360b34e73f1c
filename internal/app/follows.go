// ABOUTME: Following and unfollowing users.
// ABOUTME: Both sides of the edge are written to the cache together and counters are clamped.
package app

import (
	"context"
	"slices"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
)

// FollowUser follows target. The edge is recorded in the cached follow graph
// on both the synced and the local path.
func (a *App) FollowUser(ctx context.Context, target int64) (optimistic.Result, error) {
	return a.setFollow(ctx, target, true)
}

// UnfollowUser removes the follow edge to target.
func (a *App) UnfollowUser(ctx context.Context, target int64) (optimistic.Result, error) {
	return a.setFollow(ctx, target, false)
}

func (a *App) setFollow(ctx context.Context, target int64, follow bool) (optimistic.Result, error) {
	u, err := a.requireUser()
	if err != nil {
		return optimistic.Result{}, err
	}
	if target == u.ID {
		return optimistic.Result{}, models.ErrCannotFollowSelf
	}
	following := a.cache.IsFollowing(u.ID, target) || a.IsFollowing(target)
	if follow && following {
		return optimistic.Result{}, models.ErrAlreadyFollowing
	}
	if !follow && !following {
		return optimistic.Result{}, models.ErrNotFollowing
	}

	op, call := "unfollow", a.client.Unfollow
	if follow {
		op, call = "follow", a.client.Follow
	}
	apply := func() { a.applyFollow(u.ID, target, follow) }

	res := optimistic.Run(ctx, a.store, optimistic.Op[struct{}]{
		Key: state.Key(op, target),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx, target)
		},
		Synced: func(struct{}) error { apply(); return nil },
		Local:  apply,
	})
	return res, nil
}

func (a *App) applyFollow(self, target int64, follow bool) {
	if follow {
		a.cache.FollowUser(self, target)
	} else {
		a.cache.UnfollowUser(self, target)
	}

	delta := -1
	if follow {
		delta = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if follow {
		if !slices.Contains(a.following, target) {
			a.following = append(slices.Clone(a.following), target)
		}
	} else {
		a.following = slices.DeleteFunc(slices.Clone(a.following), func(id int64) bool { return id == target })
	}

	if a.user != nil {
		u := *a.user
		u.FollowingCount = max(0, u.FollowingCount+delta)
		a.setUserLocked(&u)
	}

	bump := func(users []models.User) ([]models.User, bool) {
		i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == target })
		if i < 0 {
			return users, false
		}
		users = slices.Clone(users)
		users[i].FollowersCount = max(0, users[i].FollowersCount+delta)
		return users, true
	}
	if users, ok := bump(a.allUsers); ok {
		a.setAllUsersLocked(users)
	}
	a.searchResults, _ = bump(a.searchResults)
}

// LoadFollowing lists the users userID follows. The server's answer replaces
// that user's edges in the cached graph; offline, the cached edges are used.
func (a *App) LoadFollowing(ctx context.Context, userID int64) ([]models.User, optimistic.Result) {
	return a.loadConnections(ctx, userID, true)
}

// LoadFollowers lists the users following userID.
func (a *App) LoadFollowers(ctx context.Context, userID int64) ([]models.User, optimistic.Result) {
	return a.loadConnections(ctx, userID, false)
}

func (a *App) loadConnections(ctx context.Context, userID int64, following bool) ([]models.User, optimistic.Result) {
	op := "followers"
	if following {
		op = "following"
	}

	var users []models.User
	res := optimistic.Run(ctx, a.store, optimistic.Op[[]models.User]{
		Key: state.Key(op, userID),
		Remote: func(ctx context.Context) ([]models.User, error) {
			if following {
				return a.client.Following(ctx, userID)
			}
			return a.client.Followers(ctx, userID)
		},
		Synced: func(list []models.User) error {
			ids := make([]int64, len(list))
			for i, u := range list {
				ids[i] = u.ID
			}
			if following {
				a.cache.ReplaceFollowing(userID, ids)
			} else {
				a.cache.ReplaceFollowers(userID, ids)
			}
			a.SyncFollowGraph()
			users = list
			return nil
		},
		Local: func() {
			var ids []int64
			if following {
				ids = a.cache.LoadFollowing(userID)
			} else {
				ids = a.cache.LoadFollowers(userID)
			}
			users = a.usersByID(ids)
		},
		Notice: "Showing cached connections. Backend server not available.",
	})
	return users, res
}

// usersByID resolves ids against the cached directory. Unknown ids come back
// as bare users so the caller still sees the edge.
func (a *App) usersByID(ids []int64) []models.User {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(a.allUsers, func(u models.User) bool { return u.ID == id })
		switch {
		case i >= 0:
			out = append(out, a.allUsers[i])
		case a.user != nil && a.user.ID == id:
			out = append(out, *a.user)
		default:
			out = append(out, models.User{ID: id})
		}
	}
	return out
}
