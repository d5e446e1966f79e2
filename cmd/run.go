package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/scheduler"
	mcpserver "github.com/lukman83/keepwarm/mcp"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keep-alive loop in the foreground",
	RunE:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags is shared with the background command, which forwards them.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Target URL (default from $KEEPWARM_URL)")
	cmd.Flags().String("interval", "", `Wait range in seconds, "min-max" (default 60-240)`)
	cmd.Flags().String("control-addr", "", "Also serve the MCP control surface over HTTP on this address")
}

func applyRunFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		cfg.URL = v
	}
	if v, _ := cmd.Flags().GetString("interval"); v != "" {
		cfg.Interval = v
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	iv, err := scheduler.ParseInterval(cfg.Interval)
	if err != nil {
		a.log.Warn("invalid interval, using default",
			slog.String("interval", cfg.Interval),
			slog.String("default", scheduler.DefaultInterval.String()),
			logger.Error(err),
		)
		iv = scheduler.DefaultInterval
	}

	a.log.Info("keepwarm starting",
		logger.Target(cfg.URL),
		slog.String("interval", iv.String()),
		slog.Int("sessions", a.store.Len()),
	)

	sched := scheduler.New(a.pinger, iv, chance.New(), a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if addr, _ := cmd.Flags().GetString("control-addr"); addr != "" {
		g.Go(func() error {
			if err := mcpserver.ServeHTTP(gctx, addr, cfg.APIKey, a, a.log); err != nil {
				return fmt.Errorf("control server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	a.log.Info("keepwarm stopped")
	return nil
}
