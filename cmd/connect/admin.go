// ABOUTME: CLI commands for the admin dashboard.
// ABOUTME: Every subcommand requires an admin role claim on the current session.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/admin"
	"github.com/2389-research/connect/internal/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Site administration",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return admin.RequireAdmin(globalApp.CurrentUser(), globalApp.Session().AccessToken())
	},
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show site-wide statistics",
	RunE:  runAdminStats,
}

var adminBroadcastCmd = &cobra.Command{
	Use:   "broadcast <message>",
	Short: "Send a notification to every user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminBroadcast,
}

var adminMarkReadCmd = &cobra.Command{
	Use:   "mark-read <notification-id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminMarkRead,
}

var adminMarkAllReadCmd = &cobra.Command{
	Use:   "mark-all-read",
	Short: "Mark every listed notification read",
	RunE:  runAdminMarkAllRead,
}

var adminDeletePostCmd = &cobra.Command{
	Use:   "delete-post <post-id>",
	Short: "Delete any post",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDeletePost,
}

var adminDeleteCommentCmd = &cobra.Command{
	Use:   "delete-comment <comment-id>",
	Short: "Delete any comment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDeleteComment,
}

var broadcastType string

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminStatsCmd, adminBroadcastCmd, adminMarkReadCmd, adminMarkAllReadCmd, adminDeletePostCmd, adminDeleteCommentCmd)

	types := make([]string, len(models.BroadcastTypes))
	for i, t := range models.BroadcastTypes {
		types[i] = string(t)
	}
	adminBroadcastCmd.Flags().StringVar(&broadcastType, "type", string(models.NotificationAnnouncement),
		"Notification type ("+strings.Join(types, ", ")+")")
}

func dashboard() *admin.Dashboard {
	return admin.New(globalApp.Client())
}

func runAdminStats(cmd *cobra.Command, args []string) error {
	snap := dashboard().Load(cmd.Context())
	for resource, err := range snap.Errors {
		fmt.Printf("! could not load %s: %v\n", resource, err)
	}
	st := admin.ComputeStats(snap)

	fmt.Printf("Users:         %d\n", st.TotalUsers)
	fmt.Printf("Posts:         %d (%d with images)\n", st.TotalPosts, st.PostsWithImages)
	fmt.Printf("Comments:      %d (%d active, %d inactive)\n", st.TotalComments, st.ActiveComments, st.InactiveComments)
	fmt.Printf("Notifications: %d (%d unread, %d read)", st.TotalNotifications, st.UnreadNotifications, st.ReadNotifications)
	if snap.NotificationsLimited {
		fmt.Print(" [own only]")
	}
	fmt.Println()

	if len(st.RecentUsers) > 0 {
		fmt.Println("\nRecent users:")
		for _, u := range st.RecentUsers {
			fmt.Printf("  #%d @%s\n", u.ID, u.Username)
		}
	}
	if len(st.RecentPosts) > 0 {
		fmt.Println("\nRecent posts:")
		for _, p := range st.RecentPosts {
			fmt.Printf("  #%d @%s: %s\n", p.ID, p.Author.Username, truncate(p.Content, 60))
		}
	}
	if len(st.RecentComments) > 0 {
		fmt.Println("\nRecent comments:")
		for _, c := range st.RecentComments {
			fmt.Printf("  #%d on post #%d @%s: %s\n", c.ID, c.Post, c.Author.Username, truncate(c.Content, 60))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func runAdminBroadcast(cmd *cobra.Command, args []string) error {
	res, err := dashboard().SendGlobalNotification(cmd.Context(), args[0], models.NotificationType(broadcastType))
	if err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}
	fmt.Printf("Sent to %d users.\n", res.Details.RecipientsCount)
	return nil
}

func runAdminMarkRead(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := dashboard().MarkRead(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	fmt.Printf("Notification #%d marked read.\n", id)
	return nil
}

func runAdminMarkAllRead(cmd *cobra.Command, args []string) error {
	d := dashboard()
	snap := d.Load(cmd.Context())
	if err := snap.Errors[admin.ResourceNotifications]; err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	n, err := d.MarkAllRead(cmd.Context(), snap.Notifications)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	fmt.Printf("Marked %d notifications read.\n", n)
	return nil
}

func runAdminDeletePost(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := dashboard().DeletePost(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	fmt.Printf("Post #%d deleted.\n", id)
	return nil
}

func runAdminDeleteComment(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := dashboard().DeleteComment(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	fmt.Printf("Comment #%d deleted.\n", id)
	return nil
}
