// ABOUTME: Comment loading and posting for the interaction layer.
// ABOUTME: Offline comments get client-side ids and still bump the post's comment count.
package app

import (
	"context"
	"slices"
	"strings"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
)

// LoadComments fetches a post's comments, keeping the cached ones when offline.
func (a *App) LoadComments(ctx context.Context, postID int64) optimistic.Result {
	return optimistic.Run(ctx, a.store, optimistic.Op[[]models.Comment]{
		Key: state.Key("comments", postID),
		Remote: func(ctx context.Context) ([]models.Comment, error) {
			return a.client.Comments(ctx, postID)
		},
		Synced: func(comments []models.Comment) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.comments[postID] = comments
			a.cache.SaveComments(a.comments)
			return nil
		},
		Local: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if cached, ok := a.cache.LoadComments()[postID]; ok {
				a.comments[postID] = cached
			}
		},
	})
}

// AddComment appends a comment to a post and bumps its comment count.
func (a *App) AddComment(ctx context.Context, postID int64, content string) (optimistic.Result, error) {
	if _, err := a.requireUser(); err != nil {
		return optimistic.Result{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return optimistic.Result{}, models.ErrEmptyContent
	}

	res := optimistic.Run(ctx, a.store, optimistic.Op[*models.Comment]{
		Key: state.Key("comment", postID),
		Remote: func(ctx context.Context) (*models.Comment, error) {
			return a.client.AddComment(ctx, postID, content)
		},
		Synced: func(c *models.Comment) error {
			if c == nil {
				return nil
			}
			a.appendComment(postID, *c, false)
			return nil
		},
		Local: func() {
			u := a.CurrentUser()
			if u == nil {
				a.log.Warn("logged out before the local comment was saved, dropping it")
				return
			}
			a.appendComment(postID, models.NewLocalComment(*u, postID, content, a.now()), true)
		},
		CanFallback: a.hasUser,
	})
	return res, nil
}

func (a *App) appendComment(postID int64, c models.Comment, local bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if local {
		var ids []int64
		for _, comments := range a.comments {
			for _, existing := range comments {
				ids = append(ids, existing.ID)
			}
		}
		c.ID = uniqueLocalID(c.ID, ids)
	}

	a.comments[postID] = append(slices.Clone(a.comments[postID]), c)
	a.cache.SaveComments(a.comments)

	if i := a.postIndex(postID); i >= 0 {
		posts := slices.Clone(a.posts)
		posts[i].CommentCount++
		a.setPostsLocked(posts)
	}
}
