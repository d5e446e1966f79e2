package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/lukman83/keepwarm/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, so logs must only reach stderr or the file.
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting keepwarm MCP server on stdio...")

	if err := mcpserver.Serve(a); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
