// ABOUTME: SocialConnect post, like, and comment endpoints.
// ABOUTME: Request and response shapes follow the server routes, trailing slashes included.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/2389-research/connect/internal/models"
)

// CreatePost publishes a post. The returned post may have a zero ID if the
// server answered without one.
func (c *Client) CreatePost(ctx context.Context, data models.CreatePostData) (*models.Post, error) {
	var p models.Post
	if err := c.Do(ctx, http.MethodPost, "/posts/", data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Feed returns the personalized feed.
func (c *Client) Feed(ctx context.Context) ([]models.Post, error) {
	return getList[models.Post](ctx, c, "/posts/feed/")
}

// ListPosts returns the public post list, optionally paginated.
func (c *Client) ListPosts(ctx context.Context, page int) ([]models.Post, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return getList[models.Post](ctx, c, withQuery("/posts/list/", params))
}

// GetPost returns one post.
func (c *Client) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost edits a post's content.
func (c *Client) UpdatePost(ctx context.Context, id int64, data models.CreatePostData) (*models.Post, error) {
	var p models.Post
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/posts/%d/update/", id), data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes a post owned by the current user.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d/delete/", id), nil, nil)
}

// LikePost likes a post.
func (c *Client) LikePost(ctx context.Context, id int64) (*models.LikeResponse, error) {
	var resp models.LikeResponse
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like/", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnlikePost removes the current user's like.
func (c *Client) UnlikePost(ctx context.Context, id int64) (*models.LikeResponse, error) {
	var resp models.LikeResponse
	if err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d/unlike/", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LikeStatus reports whether the current user liked a post.
func (c *Client) LikeStatus(ctx context.Context, id int64) (*models.LikeStatus, error) {
	var s models.LikeStatus
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/like-status/", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Comments lists a post's comments in display order.
func (c *Client) Comments(ctx context.Context, postID int64) ([]models.Comment, error) {
	return getList[models.Comment](ctx, c, fmt.Sprintf("/posts/%d/comments/", postID))
}

// AddComment comments on a post.
func (c *Client) AddComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	var cm models.Comment
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments/", postID), map[string]string{"content": content}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}
