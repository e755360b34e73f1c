// ABOUTME: CLI commands for notifications.
// ABOUTME: Lists, counts, and marks notifications read, with local fallback when offline.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/optimistic"
)

var notifyCmd = &cobra.Command{
	Use:     "notify",
	Aliases: []string{"notifications"},
	Short:   "Manage notifications",
}

var notifyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	RunE:  runNotifyList,
}

var notifyReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyRead,
}

var notifyReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification read",
	RunE:  runNotifyReadAll,
}

var notifyUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the unread count",
	RunE:  runNotifyUnread,
}

var notifyUnreadOnly bool

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyListCmd, notifyReadCmd, notifyReadAllCmd, notifyUnreadCmd)

	notifyListCmd.Flags().BoolVar(&notifyUnreadOnly, "unread", false, "Only show unread notifications")
}

func runNotifyList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	if res := globalApp.LoadNotifications(cmd.Context()); res.Outcome == optimistic.Rejected {
		return fmt.Errorf("failed to load notifications: %s", res.Message())
	}

	shown := 0
	for _, n := range globalApp.Notifications() {
		if notifyUnreadOnly && n.IsRead {
			continue
		}
		mark := " "
		if !n.IsRead {
			mark = "•"
		}
		from := ""
		if u := n.From(); u != nil {
			from = " @" + u.Username
		}
		fmt.Printf("%s #%d [%s]%s %s\n", mark, n.ID, n.NotificationType, from, n.Message)
		shown++
	}
	if shown == 0 {
		fmt.Println("No notifications.")
	}
	return nil
}

func runNotifyRead(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	return report("mark notification read", fmt.Sprintf("Notification #%d marked read", id),
		globalApp.MarkNotificationRead(cmd.Context(), id))
}

func runNotifyReadAll(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	return report("mark notifications read", "All notifications marked read",
		globalApp.MarkAllNotificationsRead(cmd.Context()))
}

func runNotifyUnread(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	count, fromServer := globalApp.UnreadCount(cmd.Context())
	if fromServer {
		fmt.Printf("%d unread\n", count)
	} else {
		fmt.Printf("%d unread (cached)\n", count)
	}
	return nil
}
