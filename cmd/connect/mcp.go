// ABOUTME: MCP server command implementation for connect.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/connect/internal/logging"
	mcppkg "github.com/2389-research/connect/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents to read the
feed, post, like, follow, and manage notifications through a standardized
protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stdout carries the protocol; an expired session only gets logged.
	if err := globalApp.Restore(ctx); err != nil {
		logging.Log.WithError(err).Warn("stored session rejected")
	}

	server, err := mcppkg.NewServer(globalApp, mcppkg.WithVersion(version))
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
