package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/keepwarm/internal/models"
	"github.com/lukman83/keepwarm/internal/pinger"
	"github.com/lukman83/keepwarm/internal/ui"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send a single keep-alive request now",
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().String("url", "", "Target URL (default from $KEEPWARM_URL)")
	pingCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		cfg.URL = v
	}
	format, _ := cmd.Flags().GetString("format")

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Pinging %s...", cfg.URL))
	ctx := pinger.WithProgress(cmd.Context(), spin.Update)
	out := a.pinger.Ping(ctx, "")
	spin.Stop()

	report := models.ReportFromOutcome(out)
	switch format {
	case "json":
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	default:
		printTickReport(cmd.OutOrStdout(), report)
	}
	if out.Err != nil {
		return fmt.Errorf("ping failed: %w", out.Err)
	}
	return nil
}
