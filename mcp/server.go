// Package mcp exposes session management and manual pings as MCP tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/keepwarm/internal/models"
)

const (
	serverName    = "keepwarm"
	serverVersion = "1.0.0"
)

// Controller is what the tools act on.
type Controller interface {
	Sessions() []models.SessionSummary
	DeleteTarget(ctx context.Context, url string) (int, error)
	ClearAll(ctx context.Context) (int, error)
	Ping(ctx context.Context, url string) models.TickReport
}

// NewServer builds an MCP server with every tool registered.
func NewServer(ctrl Controller) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	registerTools(s, ctrl)
	return s
}

// Serve runs the MCP server on stdio until stdin closes.
func Serve(ctrl Controller) error {
	return server.ServeStdio(NewServer(ctrl))
}
