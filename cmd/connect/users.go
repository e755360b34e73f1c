// ABOUTME: CLI commands for people: following, search, and profiles.
// ABOUTME: Follow changes update the local graph even when the server is down.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
)

var followCmd = &cobra.Command{
	Use:   "follow <user-id>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runFollow(cmd, args[0], true) },
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <user-id>",
	Short: "Stop following a user",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runFollow(cmd, args[0], false) },
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Browse users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUsersList,
}

var usersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users by name or username",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersSearch,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's profile and posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	Long:  "Update profile fields. Flags left empty keep their current value.",
	RunE:  runProfileUpdate,
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <image-file>",
	Short: "Upload a new avatar",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAvatar,
}

// Flags
var usersFollowingCmd = &cobra.Command{
	Use:   "following <user-id>",
	Short: "List the users someone follows",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runConnections(cmd, args[0], true) },
}

var usersFollowersCmd = &cobra.Command{
	Use:   "followers <user-id>",
	Short: "List someone's followers",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runConnections(cmd, args[0], false) },
}

var profileUpdate models.ProfileUpdate
var profilePrivacy string

func init() {
	rootCmd.AddCommand(followCmd, unfollowCmd, usersCmd, profileCmd)
	usersCmd.AddCommand(usersListCmd, usersSearchCmd, usersFollowingCmd, usersFollowersCmd)
	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd, profileAvatarCmd)

	profileUpdateCmd.Flags().StringVar(&profileUpdate.FullName, "name", "", "Full name")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.Bio, "bio", "", "Bio")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.Location, "location", "", "Location")
	profileUpdateCmd.Flags().StringVar(&profileUpdate.Website, "website", "", "Website")
	profileUpdateCmd.Flags().StringVar(&profilePrivacy, "privacy", "", "Privacy (public, private, followers_only)")
}

func runFollow(cmd *cobra.Command, arg string, follow bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	var res optimistic.Result
	if follow {
		res, err = globalApp.FollowUser(cmd.Context(), id)
	} else {
		res, err = globalApp.UnfollowUser(cmd.Context(), id)
	}
	if err != nil {
		return err
	}
	if follow {
		return report("follow user", fmt.Sprintf("Following user #%d", id), res)
	}
	return report("unfollow user", fmt.Sprintf("Unfollowed user #%d", id), res)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	if res := globalApp.LoadUsers(cmd.Context()); res.Outcome == optimistic.Rejected {
		return fmt.Errorf("failed to load users: %s", res.Message())
	}
	printUsers(globalApp.AllUsers())
	return nil
}

func runUsersSearch(cmd *cobra.Command, args []string) error {
	users, res := globalApp.SearchUsers(cmd.Context(), args[0])
	if res.Outcome == optimistic.Rejected {
		return fmt.Errorf("search failed: %s", res.Message())
	}
	printUsers(users)
	return nil
}

func runConnections(cmd *cobra.Command, arg string, following bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	var users []models.User
	var res optimistic.Result
	if following {
		users, res = globalApp.LoadFollowing(cmd.Context(), id)
	} else {
		users, res = globalApp.LoadFollowers(cmd.Context(), id)
	}
	if res.Outcome == optimistic.Rejected {
		return fmt.Errorf("failed to load connections: %s", res.Message())
	}
	printUsers(users)
	return nil
}

func printUsers(users []models.User) {
	if len(users) == 0 {
		fmt.Println("No users found.")
		return
	}
	for _, u := range users {
		mark := " "
		if globalApp.IsFollowing(u.ID) {
			mark = "*"
		}
		fmt.Printf("%s #%-5d @%-20s %s (followers:%d)\n", mark, u.ID, u.Username, u.DisplayName(), u.FollowersCount)
	}
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	profile, _, err := globalApp.ViewProfile(cmd.Context(), id)
	if err != nil {
		return err
	}

	u := profile.User
	fmt.Printf("%s (@%s)\n", u.DisplayName(), u.Username)
	if u.Bio != "" {
		fmt.Printf("  %s\n", u.Bio)
	}
	if u.Location != "" {
		fmt.Printf("  location: %s\n", u.Location)
	}
	if u.Website != "" {
		fmt.Printf("  website: %s\n", u.Website)
	}
	fmt.Printf("  posts:%d followers:%d following:%d\n", u.PostsCount, u.FollowersCount, u.FollowingCount)
	if profile.IsFollowing {
		fmt.Println("  you follow this user")
	}
	fmt.Println()
	for _, p := range profile.Posts {
		printPost(p)
	}
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	update := profileUpdate
	update.PrivacySetting = models.Privacy(profilePrivacy)
	res, err := globalApp.UpdateProfile(cmd.Context(), update)
	if err != nil {
		return err
	}
	return report("update profile", "Profile updated", res)
}

func runProfileAvatar(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	res, err := globalApp.UploadAvatar(cmd.Context(), filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	return report("upload avatar", "Avatar updated", res)
}
