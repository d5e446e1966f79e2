package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/keepwarm/internal/models"
)

func registerTools(s *server.MCPServer, ctrl Controller) {
	// list_sessions
	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List stored browser sessions, most recently used first"),
	)
	s.AddTool(listTool, handleListSessions(ctrl))

	// delete_sessions
	deleteTool := mcp.NewTool("delete_sessions",
		mcp.WithDescription("Delete every session associated with a target URL"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Target URL whose sessions are deleted"),
		),
	)
	s.AddTool(deleteTool, handleDeleteSessions(ctrl))

	// clear_sessions
	clearTool := mcp.NewTool("clear_sessions",
		mcp.WithDescription("Delete all sessions and their persisted records"),
	)
	s.AddTool(clearTool, handleClearSessions(ctrl))

	// ping
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Send one keep-alive request now"),
		mcp.WithString("url",
			mcp.Description("Target URL (default: the configured target)"),
		),
	)
	s.AddTool(pingTool, handlePing(ctrl))
}

func handleListSessions(ctrl Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(ctrl.Sessions())
	}
}

func handleDeleteSessions(ctrl Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url := request.GetString("url", "")
		if url == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		n, err := ctrl.DeleteTarget(ctx, url)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete error: %v", err)), nil
		}
		return jsonResult(models.PurgeResult{Action: "delete", Target: url, Deleted: n})
	}
}

func handleClearSessions(ctrl Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := ctrl.ClearAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("clear error: %v", err)), nil
		}
		return jsonResult(models.PurgeResult{Action: "clear", Deleted: n})
	}
}

func handlePing(ctrl Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report := ctrl.Ping(ctx, request.GetString("url", ""))
		if report.Error != "" {
			return mcp.NewToolResultError(fmt.Sprintf("ping error: %s", report.Error)), nil
		}
		return jsonResult(report)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
