// ABOUTME: Cobra command for interactive SocialConnect account setup.
// ABOUTME: Launches a bubbletea TUI wizard, then saves the API URL and login tokens.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/config"
	"github.com/2389-research/connect/internal/storage"
	"github.com/2389-research/connect/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your SocialConnect account",
	Long:  "Interactive wizard to configure the API URL and log in.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	kv, err := openKV(cfg)
	if err != nil {
		return err
	}
	cache := storage.NewCache(kv)
	defer cache.Close()

	var username string
	if u := cache.LoadUser(); u != nil {
		username = u.Username
	}
	model := tui.NewSetupModel(cfg.API.BaseURL, username)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, _ := final.Result()
	cfg.API.BaseURL = apiURL
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if login := final.Login(); login != nil {
		cache.SetTokens(login.Tokens.Access, login.Tokens.Refresh)
		cache.SaveUser(&login.User)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
