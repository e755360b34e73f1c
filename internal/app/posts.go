// ABOUTME: Feed loading, post creation and deletion, and likes.
// ABOUTME: Offline posts are synthesized locally with client-side ids.
package app

import (
	"context"
	"slices"
	"strings"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
)

// LoadFeed refreshes the feed. An empty or failed server response falls back to
// the cached feed, then to seed data.
func (a *App) LoadFeed(ctx context.Context) optimistic.Result {
	return optimistic.Run(ctx, a.store, optimistic.Op[[]models.Post]{
		Key: state.Key("feed"),
		Remote: func(ctx context.Context) ([]models.Post, error) {
			return a.client.ListPosts(ctx, 0)
		},
		Synced: func(posts []models.Post) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			if len(posts) == 0 {
				a.useCachedPostsLocked()
				return nil
			}
			a.setPostsLocked(posts)
			return nil
		},
		Local: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.useCachedPostsLocked()
		},
		Notice: "Backend server not available - showing cached posts",
	})
}

// CreatePost publishes content. When the server is unreachable a local post
// authored by the current user is prepended instead.
func (a *App) CreatePost(ctx context.Context, content, imageData string) (optimistic.Result, error) {
	if a.session.AccessToken() == "" {
		return optimistic.Result{}, ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if err := models.ValidatePostContent(content); err != nil {
		return optimistic.Result{}, err
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.Post]{
		Key: state.Key("createPost"),
		Remote: func(ctx context.Context) (*models.Post, error) {
			return a.client.CreatePost(ctx, models.CreatePostData{
				Content:   content,
				Category:  models.CategoryGeneral,
				ImageData: imageData,
			})
		},
		Synced: func(p *models.Post) error {
			if p == nil || p.ID == 0 {
				return ErrMissingPostID
			}
			a.prependPost(*p, false)
			return nil
		},
		Local: func() {
			u := a.CurrentUser()
			if u == nil {
				a.log.Warn("logged out before the local post was saved, dropping it")
				return
			}
			a.prependPost(models.NewLocalPost(*u, content, imageData, a.now()), true)
		},
		CanFallback: a.hasUser,
		Notice:      "Backend unavailable. Post saved locally.",
	})
	return res, nil
}

// prependPost adds p to the top of the feed. A local post whose id is already
// in use is moved past the highest id.
func (a *App) prependPost(p models.Post, local bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if local {
		ids := make([]int64, len(a.posts))
		for i, existing := range a.posts {
			ids[i] = existing.ID
		}
		p.ID = uniqueLocalID(p.ID, ids)
	}

	a.setPostsLocked(append([]models.Post{p}, a.posts...))

	mine := a.cache.LoadUserCreatedPosts()
	a.cache.SaveUserCreatedPosts(append([]models.Post{p}, mine...))

	if a.user != nil && p.Author.ID == a.user.ID {
		u := *a.user
		u.PostsCount++
		a.setUserLocked(&u)
	}
}

// DeletePost removes one of the current user's posts and its comments.
func (a *App) DeletePost(ctx context.Context, id int64) (optimistic.Result, error) {
	u, err := a.requireUser()
	if err != nil {
		return optimistic.Result{}, err
	}
	p, ok := a.Post(id)
	if !ok {
		return optimistic.Result{}, ErrPostNotFound
	}
	if p.Author.ID != u.ID {
		return optimistic.Result{}, ErrPermissionDenied
	}

	remove := func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.setPostsLocked(slices.DeleteFunc(slices.Clone(a.posts), func(p models.Post) bool { return p.ID == id }))

		if _, ok := a.comments[id]; ok {
			delete(a.comments, id)
			a.cache.SaveComments(a.comments)
		}

		mine := a.cache.LoadUserCreatedPosts()
		a.cache.SaveUserCreatedPosts(slices.DeleteFunc(mine, func(p models.Post) bool { return p.ID == id }))

		if a.user != nil {
			u := *a.user
			u.PostsCount = max(0, u.PostsCount-1)
			a.setUserLocked(&u)
		}
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[struct{}]{
		Key: state.Key("deletePost", id),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.client.DeletePost(ctx, id)
		},
		Synced: func(struct{}) error { remove(); return nil },
		Local:  remove,
	})
	return res, nil
}

// LoadPost fetches one post along with the caller's like state. Offline, the
// copy in the local feed is returned.
func (a *App) LoadPost(ctx context.Context, id int64) (models.Post, optimistic.Result, error) {
	var found *models.Post
	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.Post]{
		Key: state.Key("post", id),
		Remote: func(ctx context.Context) (*models.Post, error) {
			p, err := a.client.GetPost(ctx, id)
			if err != nil {
				return nil, err
			}
			if a.session.IsAuthenticated() {
				status, err := a.client.LikeStatus(ctx, id)
				if err != nil {
					a.log.WithError(err).WithField("post", id).Debug("like status unavailable")
				} else {
					p.IsLikedByUser = status.IsLiked
					p.LikeCount = status.LikeCount
				}
			}
			return p, nil
		},
		Synced: func(p *models.Post) error {
			if p == nil || p.ID == 0 {
				return ErrMissingPostID
			}
			found = p
			a.replacePost(*p)
			return nil
		},
		Local: func() {
			if p, ok := a.Post(id); ok {
				found = &p
			}
		},
	})
	if found == nil {
		if res.Outcome == optimistic.Rejected && res.Err != nil {
			return models.Post{}, res, res.Err
		}
		return models.Post{}, res, ErrPostNotFound
	}
	return *found, res, nil
}

// EditPost changes the content of one of the current user's posts.
func (a *App) EditPost(ctx context.Context, id int64, content string) (optimistic.Result, error) {
	u, err := a.requireUser()
	if err != nil {
		return optimistic.Result{}, err
	}
	existing, ok := a.Post(id)
	if !ok {
		return optimistic.Result{}, ErrPostNotFound
	}
	if existing.Author.ID != u.ID {
		return optimistic.Result{}, ErrEditDenied
	}
	content = strings.TrimSpace(content)
	if err := models.ValidatePostContent(content); err != nil {
		return optimistic.Result{}, err
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.Post]{
		Key: state.Key("editPost", id),
		Remote: func(ctx context.Context) (*models.Post, error) {
			return a.client.UpdatePost(ctx, id, models.CreatePostData{
				Content:  content,
				Category: existing.Category,
			})
		},
		Synced: func(p *models.Post) error {
			if p == nil || p.ID == 0 {
				return ErrMissingPostID
			}
			a.replacePost(*p)
			return nil
		},
		Local: func() {
			edited := existing
			edited.Content = content
			edited.UpdatedAt = a.now()
			a.replacePost(edited)
		},
		CanFallback: a.hasUser,
		Notice:      "Backend unavailable. Edit saved locally.",
	})
	return res, nil
}

// replacePost swaps in p wherever a post with its id is held, feed and
// user-created list alike. Posts not already held are ignored.
func (a *App) replacePost(p models.Post) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.postIndex(p.ID); i >= 0 {
		posts := slices.Clone(a.posts)
		posts[i] = p
		a.setPostsLocked(posts)
	}

	mine := a.cache.LoadUserCreatedPosts()
	if i := slices.IndexFunc(mine, func(m models.Post) bool { return m.ID == p.ID }); i >= 0 {
		mine[i] = p
		a.cache.SaveUserCreatedPosts(mine)
	}
}

// LikePost likes a post. A server-reported like_count replaces the local one.
func (a *App) LikePost(ctx context.Context, id int64) optimistic.Result {
	return a.toggleLike(ctx, id, true)
}

// UnlikePost removes a like. The local count never drops below zero.
func (a *App) UnlikePost(ctx context.Context, id int64) optimistic.Result {
	return a.toggleLike(ctx, id, false)
}

func (a *App) toggleLike(ctx context.Context, id int64, like bool) optimistic.Result {
	op, call := "unlike", a.client.UnlikePost
	if like {
		op, call = "like", a.client.LikePost
	}

	return optimistic.Run(ctx, a.store, optimistic.Op[*models.LikeResponse]{
		Key: state.Key(op, id),
		Remote: func(ctx context.Context) (*models.LikeResponse, error) {
			return call(ctx, id)
		},
		Synced: func(resp *models.LikeResponse) error {
			var count *int
			if resp != nil {
				count = resp.LikeCount
			}
			a.applyLike(id, like, count)
			return nil
		},
		Local: func() { a.applyLike(id, like, nil) },
	})
}

func (a *App) applyLike(id int64, like bool, serverCount *int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.postIndex(id)
	if i < 0 {
		return
	}
	posts := slices.Clone(a.posts)
	p := &posts[i]
	switch {
	case serverCount != nil:
		p.LikeCount = max(0, *serverCount)
	case like:
		p.LikeCount++
	default:
		p.LikeCount = max(0, p.LikeCount-1)
	}
	p.IsLikedByUser = like
	a.setPostsLocked(posts)
}
