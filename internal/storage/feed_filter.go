// ABOUTME: Local feed filtering and pagination for offline browsing.
// ABOUTME: Posts are matched by author and category, then sorted newest first.
package storage

import (
	"sort"

	"github.com/2389-research/connect/internal/models"
)

// DefaultListLimit is the page size when none is given.
const DefaultListLimit = 10

// ListPostsOptions configures filtering and pagination for listing posts.
type ListPostsOptions struct {
	Limit          int
	Offset         int
	AuthorFilter   string // username
	CategoryFilter models.Category
	AuthorID       int64
}

// FilterPosts returns the posts matching opts, newest first. The input slice is not modified.
func FilterPosts(posts []models.Post, opts ListPostsOptions) []models.Post {
	var matched []models.Post
	for _, post := range posts {
		if opts.AuthorFilter != "" && post.Author.Username != opts.AuthorFilter {
			continue
		}
		if opts.AuthorID != 0 && post.Author.ID != opts.AuthorID {
			continue
		}
		if opts.CategoryFilter != "" && post.Category != opts.CategoryFilter {
			continue
		}
		matched = append(matched, post)
	}

	// Sort by date descending (most recent first)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil
		}
		matched = matched[opts.Offset:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > len(matched) {
		limit = len(matched)
	}
	return matched[:limit]
}
