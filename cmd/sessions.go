package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and purge stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recently used first",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every session associated with a target URL",
	RunE:  runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions and their records",
	RunE:  runSessionsClear,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions idle for longer than a given age",
	RunE:  runSessionsPrune,
}

func init() {
	sessionsListCmd.Flags().String("format", "table", "Output format: json, table")
	sessionsDeleteCmd.Flags().String("url", "", "Target URL whose sessions are deleted (default from $KEEPWARM_URL)")
	sessionsPruneCmd.Flags().Duration("older-than", 7*24*time.Hour, "Minimum idle time for a session to be pruned")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd, sessionsClearCmd, sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := a.Sessions()
	switch format {
	case "json":
		return writeJSON(cmd.OutOrStdout(), sessions)
	default:
		printSessionsTable(cmd.OutOrStdout(), sessions)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	target := cfg.URL
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		target = v
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.DeleteTarget(cmd.Context(), target)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s) for %s\n", n, target)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.ClearAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session record(s)\n", n)
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")
	if age <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.Prune(cmd.Context(), age)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s) idle for at least %s\n", n, age)
	return nil
}
