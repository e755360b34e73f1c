// ABOUTME: CLI commands for the account session.
// ABOUTME: Provides login, logout, register, and whoami subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/models"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your SocialConnect session",
}

var authLoginCmd = &cobra.Command{
	Use:   "login <username-or-email>",
	Short: "Log in and store tokens",
	Long:  "Log in with a password from --password or CONNECT_PASSWORD.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear cached data",
	RunE:  runAuthLogout,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRegister,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user",
	RunE:  runAuthWhoami,
}

// Flags
var (
	authPassword  string
	authEmail     string
	authFirstName string
	authLastName  string
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authRegisterCmd, authWhoamiCmd)

	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Account password")

	authRegisterCmd.Flags().StringVar(&authPassword, "password", "", "Account password")
	authRegisterCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	authRegisterCmd.Flags().StringVar(&authFirstName, "first-name", "", "First name")
	authRegisterCmd.Flags().StringVar(&authLastName, "last-name", "", "Last name")
}

func password() (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv("CONNECT_PASSWORD"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("password required: pass --password or set CONNECT_PASSWORD")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	u, err := globalApp.Login(cmd.Context(), args[0], pw)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("Logged in as %s\n", u.Username)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	globalApp.Logout(cmd.Context())
	fmt.Println("Logged out.")
	return nil
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	u, err := globalApp.Register(cmd.Context(), models.RegisterData{
		Username:        args[0],
		Email:           authEmail,
		Password:        pw,
		PasswordConfirm: pw,
		FirstName:       authFirstName,
		LastName:        authLastName,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Printf("Registered and logged in as %s\n", u.Username)
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	u := globalApp.CurrentUser()
	if u == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s (@%s)\n", u.DisplayName(), u.Username)
	fmt.Printf("  posts:%d followers:%d following:%d\n", u.PostsCount, u.FollowersCount, u.FollowingCount)
	if globalApp.IsAdmin() {
		fmt.Println("  role: admin")
	}
	return nil
}
