// ABOUTME: CLI commands for the local cache.
// ABOUTME: Clears cached data and tokens, and reports which backend is active.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the local cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached data, tokens included",
	RunE: func(cmd *cobra.Command, args []string) error {
		globalCache.ClearAll()
		globalCache.ClearTokens()
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which cache backend is in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("server:    %s\n", globalApp.Client().BaseURL())
		fmt.Printf("backend:   %s\n", globalConfig.GetCacheBackend())
		fmt.Printf("available: %t\n", globalCache.Available())
		fmt.Printf("has data:  %t\n", globalCache.HasStoredData())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd, cacheStatusCmd)
}
