// ABOUTME: CLI commands for the feed, posts, likes, and comments.
// ABOUTME: Mutations print whether they synced or were applied locally only.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/app"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/storage"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read the feed",
	Long:  "Refresh the feed from the server, falling back to cached posts, and list it.",
	RunE:  runFeed,
}

var postCmd = &cobra.Command{
	Use:   "post <content>",
	Short: "Create a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPost,
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostDelete,
}

var postShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostShow,
}

var postEditCmd = &cobra.Command{
	Use:   "edit <post-id> <content>",
	Short: "Change the content of one of your posts",
	Args:  cobra.ExactArgs(2),
	RunE:  runPostEdit,
}

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runLike(cmd, args[0], true) },
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <post-id>",
	Short: "Remove your like from a post",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runLike(cmd, args[0], false) },
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Read and write comments",
}

var commentListCmd = &cobra.Command{
	Use:   "list <post-id>",
	Short: "List comments on a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentList,
}

var commentAddCmd = &cobra.Command{
	Use:   "add <post-id> <content>",
	Short: "Comment on a post",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommentAdd,
}

// Flags
var (
	feedLimit    int
	feedOffset   int
	feedAuthor   string
	feedCategory string
	feedCached   bool
	postImage    string
)

func init() {
	rootCmd.AddCommand(feedCmd, postCmd, likeCmd, unlikeCmd, commentCmd)
	postCmd.AddCommand(postShowCmd, postEditCmd, postDeleteCmd)
	commentCmd.AddCommand(commentListCmd, commentAddCmd)

	feedCmd.Flags().IntVar(&feedLimit, "limit", storage.DefaultListLimit, "Maximum number of posts to show")
	feedCmd.Flags().IntVar(&feedOffset, "offset", 0, "Number of posts to skip")
	feedCmd.Flags().StringVar(&feedAuthor, "author", "", "Filter by author username")
	feedCmd.Flags().StringVar(&feedCategory, "category", "", "Filter by category (general, announcement, question)")
	feedCmd.Flags().BoolVar(&feedCached, "cached", false, "Show cached posts without contacting the server")

	postCmd.Flags().StringVar(&postImage, "image", "", "Path to an image to attach")
}

func runFeed(cmd *cobra.Command, args []string) error {
	if !feedCached {
		if res := globalApp.LoadFeed(cmd.Context()); res.Outcome == optimistic.Rejected {
			return fmt.Errorf("failed to load feed: %s", res.Message())
		}
	}

	posts := globalApp.ListPosts(storage.ListPostsOptions{
		Limit:          feedLimit,
		Offset:         feedOffset,
		AuthorFilter:   feedAuthor,
		CategoryFilter: models.Category(feedCategory),
	})
	if len(posts) == 0 {
		fmt.Println("No posts found.")
		return nil
	}
	for _, p := range posts {
		printPost(p)
	}
	return nil
}

func printPost(p models.Post) {
	liked := ""
	if p.IsLikedByUser {
		liked = " (liked)"
	}
	fmt.Printf("--- #%d @%s [%s] likes:%d comments:%d%s\n",
		p.ID, p.Author.Username, p.CreatedAt.Format("2006-01-02 15:04:05"), p.LikeCount, p.CommentCount, liked)
	if p.ImageURL != "" && !strings.HasPrefix(p.ImageURL, "data:") {
		fmt.Printf("[image] %s\n", p.ImageURL)
	}
	fmt.Printf("%s\n\n", p.Content)
}

func runPost(cmd *cobra.Command, args []string) error {
	var image string
	if postImage != "" {
		data, err := os.ReadFile(postImage)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		image, _, err = app.AvatarDataURL(data)
		if err != nil {
			return err
		}
	}

	res, err := globalApp.CreatePost(cmd.Context(), args[0], image)
	if err != nil {
		return err
	}
	return report("create post", "Post created", res)
}

func runPostDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	res, err := globalApp.DeletePost(cmd.Context(), id)
	if err != nil {
		return err
	}
	return report("delete post", fmt.Sprintf("Post #%d deleted", id), res)
}

func runPostShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, _, err := globalApp.LoadPost(cmd.Context(), id)
	if err != nil {
		return err
	}
	printPost(p)

	globalApp.LoadComments(cmd.Context(), id)
	for _, c := range globalApp.Comments(id) {
		fmt.Printf("  @%s: %s\n", c.Author.Username, c.Content)
	}
	return nil
}

func runPostEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	res, err := globalApp.EditPost(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}
	return report("edit post", fmt.Sprintf("Post #%d updated", id), res)
}

func runLike(cmd *cobra.Command, arg string, like bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}

	action, verb := "like", "Liked"
	var res optimistic.Result
	if like {
		res = globalApp.LikePost(cmd.Context(), id)
	} else {
		action, verb = "unlike", "Unliked"
		res = globalApp.UnlikePost(cmd.Context(), id)
	}
	if err := report(action, fmt.Sprintf("%s post #%d", verb, id), res); err != nil {
		return err
	}
	if p, ok := globalApp.Post(id); ok {
		fmt.Printf("likes:%d\n", p.LikeCount)
	}
	return nil
}

func runCommentList(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if res := globalApp.LoadComments(cmd.Context(), id); res.Outcome == optimistic.Rejected {
		return fmt.Errorf("failed to load comments: %s", res.Message())
	}

	comments := globalApp.Comments(id)
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return nil
	}
	for _, c := range comments {
		fmt.Printf("@%s [%s]: %s\n", c.Author.Username, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
	}
	return nil
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	res, err := globalApp.AddComment(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}
	return report("add comment", "Comment added", res)
}
