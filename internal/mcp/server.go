// ABOUTME: MCP server initialization and configuration for connect.
// ABOUTME: Exposes the SocialConnect interaction layer as tools for AI agents over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/app"
	"github.com/2389-research/connect/internal/logging"
)

// Server wraps the MCP server around an App.
type Server struct {
	mcp      *gomcp.Server
	app      *app.App
	version  string
	log      *logrus.Entry
	handlers map[string]gomcp.ToolHandler
}

// ServerOption configures optional Server settings.
type ServerOption func(*Server)

// WithVersion sets the version reported to clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger replaces the server's logger.
func WithLogger(l *logrus.Entry) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates an MCP server with the social tools registered.
func NewServer(a *app.App, opts ...ServerOption) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("app is required")
	}

	s := &Server{
		app:      a,
		version:  "dev",
		log:      logging.Log,
		handlers: make(map[string]gomcp.ToolHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "mcp", "session": uuid.NewString()})

	s.mcp = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "connect",
			Version: s.version,
		},
		nil,
	)

	s.registerSocialTools()

	return s, nil
}

// addTool registers a tool with the MCP server and keeps its handler for direct dispatch.
func (s *Server) addTool(tool *gomcp.Tool, h gomcp.ToolHandler) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
