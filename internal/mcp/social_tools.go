// ABOUTME: MCP tool implementations for SocialConnect operations.
// ABOUTME: Each tool calls into the interaction layer and reports local-only outcomes.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/auth"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/storage"
)

var idSchema = `{
	"type": "object",
	"properties": {
		"%s": {"type": "integer", "description": "%s"}
	},
	"required": ["%s"]
}`

func idInput(field, description string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(idSchema, field, description, field))
}

func (s *Server) registerSocialTools() {
	s.addTool(&gomcp.Tool{
		Name:        "login",
		Description: "Log in to SocialConnect with a username (or email) and password.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"username": {"type": "string", "description": "Username or email address.", "minLength": 1},
				"password": {"type": "string", "description": "Account password.", "minLength": 1}
			},
			"required": ["username", "password"]
		}`),
	}, s.handleLogin)

	s.addTool(&gomcp.Tool{
		Name:        "create_post",
		Description: "Publish a post (at most 500 characters) to the feed.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {"type": "string", "description": "The content of the post.", "minLength": 1, "maxLength": 500}
			},
			"required": ["content"]
		}`),
	}, s.handleCreatePost)

	s.addTool(&gomcp.Tool{
		Name:        "read_posts",
		Description: "Retrieve posts from the feed with optional filtering.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "number", "description": "Maximum number of posts to retrieve (default 10)"},
				"offset": {"type": "number", "description": "Number of posts to skip (default 0)"},
				"author": {"type": "string", "description": "Filter posts by author username"},
				"category": {"type": "string", "enum": ["general", "announcement", "question"], "description": "Filter posts by category"},
				"refresh": {"type": "boolean", "description": "Reload the feed from the server first"}
			}
		}`),
	}, s.handleReadPosts)

	s.addTool(&gomcp.Tool{
		Name:        "like_post",
		Description: "Like a post.",
		InputSchema: idInput("post_id", "ID of the post to like."),
	}, s.handleLikePost)

	s.addTool(&gomcp.Tool{
		Name:        "unlike_post",
		Description: "Remove your like from a post.",
		InputSchema: idInput("post_id", "ID of the post to unlike."),
	}, s.handleUnlikePost)

	s.addTool(&gomcp.Tool{
		Name:        "follow_user",
		Description: "Follow another user.",
		InputSchema: idInput("user_id", "ID of the user to follow."),
	}, s.handleFollowUser)

	s.addTool(&gomcp.Tool{
		Name:        "unfollow_user",
		Description: "Stop following a user.",
		InputSchema: idInput("user_id", "ID of the user to unfollow."),
	}, s.handleUnfollowUser)

	s.addTool(&gomcp.Tool{
		Name:        "read_notifications",
		Description: "List your notifications.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"unread_only": {"type": "boolean", "description": "Only show unread notifications"}
			}
		}`),
	}, s.handleReadNotifications)

	s.addTool(&gomcp.Tool{
		Name:        "mark_notification_read",
		Description: "Mark a notification as read.",
		InputSchema: idInput("notification_id", "ID of the notification."),
	}, s.handleMarkNotificationRead)
}

// outcomeText renders an optimistic result for the agent.
func outcomeText(done string, res optimistic.Result) *gomcp.CallToolResult {
	switch res.Outcome {
	case optimistic.Synced:
		return toolText("%s", done)
	case optimistic.LocalOnly:
		return toolText("%s locally only; the server is unavailable (%s)", done, res.Message())
	default:
		return toolError("rejected by server: %s", res.Message())
	}
}

func (s *Server) handleLogin(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Username == "" || args.Password == "" {
		return toolError("username and password are required"), nil
	}

	u, err := s.app.Login(ctx, args.Username, args.Password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			return toolError("login failed: %s", authErr.Message), nil
		}
		return toolError("login failed: %v", err), nil
	}
	return toolText("Logged in as %s", u.Username), nil
}

func (s *Server) handleCreatePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	res, err := s.app.CreatePost(ctx, args.Content, "")
	if err != nil {
		return toolError("%v", err), nil
	}
	if !res.Applied() {
		return outcomeText("", res), nil
	}
	posts := s.app.Posts()
	if len(posts) == 0 {
		return outcomeText("Post created", res), nil
	}
	return outcomeText(fmt.Sprintf("Post created (ID: %d)", posts[0].ID), res), nil
}

func (s *Server) handleReadPosts(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Limit    int    `json:"limit"`
		Offset   int    `json:"offset"`
		Author   string `json:"author"`
		Category string `json:"category"`
		Refresh  bool   `json:"refresh"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}

	if args.Refresh {
		s.app.LoadFeed(ctx)
	}

	posts := s.app.ListPosts(storage.ListPostsOptions{
		Limit:          args.Limit,
		Offset:         args.Offset,
		AuthorFilter:   args.Author,
		CategoryFilter: models.Category(args.Category),
	})
	if len(posts) == 0 {
		return toolText("No posts found."), nil
	}

	var sb strings.Builder
	if notice := s.app.Notice(); notice != "" {
		sb.WriteString(fmt.Sprintf("(%s)\n", notice))
	}
	for _, post := range posts {
		sb.WriteString(fmt.Sprintf("---\n#%d @%s [%s] likes:%d comments:%d",
			post.ID, post.Author.Username, post.CreatedAt.Format("2006-01-02 15:04:05"), post.LikeCount, post.CommentCount))
		if post.Category != "" && post.Category != models.CategoryGeneral {
			sb.WriteString(fmt.Sprintf(" (%s)", post.Category))
		}
		sb.WriteString(fmt.Sprintf("\n%s\n", post.Content))
	}
	return toolText("%s", sb.String()), nil
}

func parseID(raw json.RawMessage, field string) (int64, error) {
	var args map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}
	n, ok := args[field]
	if !ok {
		return 0, fmt.Errorf("%s is required", field)
	}
	id, err := n.Int64()
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", field)
	}
	return id, nil
}

func (s *Server) handleLikePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, err := parseID(req.Params.Arguments, "post_id")
	if err != nil {
		return toolError("%v", err), nil
	}
	res := s.app.LikePost(ctx, id)
	return outcomeText(fmt.Sprintf("Liked post %d (%d likes)", id, s.likeCount(id)), res), nil
}

func (s *Server) handleUnlikePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, err := parseID(req.Params.Arguments, "post_id")
	if err != nil {
		return toolError("%v", err), nil
	}
	res := s.app.UnlikePost(ctx, id)
	return outcomeText(fmt.Sprintf("Unliked post %d (%d likes)", id, s.likeCount(id)), res), nil
}

func (s *Server) likeCount(id int64) int {
	p, _ := s.app.Post(id)
	return p.LikeCount
}

func (s *Server) handleFollowUser(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, err := parseID(req.Params.Arguments, "user_id")
	if err != nil {
		return toolError("%v", err), nil
	}
	res, err := s.app.FollowUser(ctx, id)
	if err != nil {
		return toolError("%v", err), nil
	}
	return outcomeText(fmt.Sprintf("Now following user %d", id), res), nil
}

func (s *Server) handleUnfollowUser(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, err := parseID(req.Params.Arguments, "user_id")
	if err != nil {
		return toolError("%v", err), nil
	}
	res, err := s.app.UnfollowUser(ctx, id)
	if err != nil {
		return toolError("%v", err), nil
	}
	return outcomeText(fmt.Sprintf("Unfollowed user %d", id), res), nil
}

func (s *Server) handleReadNotifications(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		UnreadOnly bool `json:"unread_only"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}

	s.app.LoadNotifications(ctx)

	var sb strings.Builder
	for _, n := range s.app.Notifications() {
		if args.UnreadOnly && n.IsRead {
			continue
		}
		marker := " "
		if !n.IsRead {
			marker = "*"
		}
		from := ""
		if u := n.From(); u != nil {
			from = "@" + u.Username + " "
		}
		sb.WriteString(fmt.Sprintf("%s #%d [%s] %s%s\n", marker, n.ID, n.NotificationType, from, n.Message))
	}
	if sb.Len() == 0 {
		return toolText("No notifications."), nil
	}
	return toolText("%s", sb.String()), nil
}

func (s *Server) handleMarkNotificationRead(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, err := parseID(req.Params.Arguments, "notification_id")
	if err != nil {
		return toolError("%v", err), nil
	}
	res := s.app.MarkNotificationRead(ctx, id)
	if res.Outcome == optimistic.Rejected && api.StatusCode(res.Err) == http.StatusNotFound {
		return toolError("notification %d not found", id), nil
	}
	return outcomeText(fmt.Sprintf("Marked notification %d read", id), res), nil
}
