// ABOUTME: Root Cobra command and global state for the connect CLI.
// ABOUTME: Lifecycle hooks load config, open the cache backend, and restore the session.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/app"
	"github.com/2389-research/connect/internal/auth"
	"github.com/2389-research/connect/internal/config"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/storage"
)

var globalConfig *config.Config
var globalCache *storage.Cache
var globalApp *app.App

var rootCmd = &cobra.Command{
	Use:   "connect",
	Short: "SocialConnect from the terminal",
	Long: `
 ██████╗ ██████╗ ███╗   ██╗███╗   ██╗███████╗ ██████╗████████╗
██╔════╝██╔═══██╗████╗  ██║████╗  ██║██╔════╝██╔════╝╚══██╔══╝
██║     ██║   ██║██╔██╗ ██║██╔██╗ ██║█████╗  ██║        ██║
██║     ██║   ██║██║╚██╗██║██║╚██╗██║██╔══╝  ██║        ██║
╚██████╗╚██████╔╝██║ ╚████║██║ ╚████║███████╗╚██████╗   ██║
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝╚═╝  ╚═══╝╚══════╝ ╚═════╝   ╚═╝

   SOCIALCONNECT

Posts, follows, and notifications for SocialConnect.
Keeps working from the local cache when the server is down.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		if wd, err := os.Getwd(); err == nil {
			config.LoadDotEnvs(wd)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg
		logging.Init(cfg.GetLogLevel())

		kv, err := openKV(cfg)
		if err != nil {
			return err
		}
		globalCache = storage.NewCache(kv)

		client := api.NewClient(cfg.GetAPIBaseURL(), globalCache, api.WithTimeout(cfg.GetTimeout()))
		session := auth.NewSession(client, globalCache)
		globalApp = app.New(client, session, globalCache)

		if skipsRestore(cmd) {
			return nil
		}
		if err := globalApp.Restore(cmd.Context()); err != nil {
			fmt.Fprintln(os.Stderr, "Session expired. Run 'connect auth login' again.")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalApp != nil {
			if notice := globalApp.Notice(); notice != "" {
				fmt.Fprintf(os.Stderr, "! %s\n", notice)
			}
		}
		if globalCache != nil {
			_ = globalCache.Close()
			globalCache = nil
		}
		return nil
	},
}

// openKV opens the configured cache backend. An unreachable redis degrades to
// an unavailable cache instead of failing the command.
func openKV(cfg *config.Config) (storage.KV, error) {
	switch cfg.GetCacheBackend() {
	case config.CacheMemory:
		return storage.NewMemoryKV(), nil
	case config.CacheRedis:
		kv, err := storage.NewRedisKV(storage.RedisOptions{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   "connect:",
		})
		if err != nil {
			logging.Log.WithError(err).Warn("redis cache unavailable, continuing without persistence")
			return nil, nil
		}
		return kv, nil
	default:
		dir, err := cfg.GetCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		kv, err := storage.NewFileKV(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return kv, nil
	}
}

// skipsRestore lists commands that must not validate a stored session first.
func skipsRestore(cmd *cobra.Command) bool {
	switch cmd.CommandPath() {
	case "connect auth login", "connect auth register", "connect cache clear", "connect mcp":
		return true
	}
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// report prints the outcome of an optimistic operation. A rejection becomes the
// command's error.
func report(action, done string, res optimistic.Result) error {
	switch res.Outcome {
	case optimistic.Synced:
		fmt.Printf("%s.\n", done)
	case optimistic.LocalOnly:
		fmt.Printf("%s locally only. The server is unavailable, so the change is not synced.\n", done)
	default:
		return fmt.Errorf("failed to %s: %s", action, res.Message())
	}
	return nil
}

func requireLogin() error {
	if globalApp.CurrentUser() == nil {
		return fmt.Errorf("not logged in - run 'connect auth login' first")
	}
	return nil
}
