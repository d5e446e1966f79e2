package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lukman83/keepwarm/internal/procs"
)

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Start the keep-alive loop detached, logging to a file",
	RunE:  runBackground,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every running keepwarm loop",
	RunE:  runStop,
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running keepwarm loops",
	RunE:  runPs,
}

func init() {
	addRunFlags(backgroundCmd)
	backgroundCmd.Flags().String("log", "", "Background output file (default from $KEEPWARM_BACKGROUND_LOG)")
	psCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(backgroundCmd, stopCmd, psCmd)
}

// forwardedArgs rebuilds the `run` invocation from every flag the user set,
// inherited ones included.
func forwardedArgs(cmd *cobra.Command) []string {
	args := []string{procs.RunCommand}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed || f.Name == "log" {
			return
		}
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}

func executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return exe, nil
}

func runBackground(cmd *cobra.Command, args []string) error {
	exe, err := executable()
	if err != nil {
		return err
	}
	logPath := cfg.BackgroundLog
	if v, _ := cmd.Flags().GetString("log"); v != "" {
		logPath = v
	}

	pid, err := procs.StartBackground(exe, forwardedArgs(cmd), logPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Started keepwarm in the background (pid %d), logging to %s\n", pid, logPath)
	fmt.Fprintf(out, "Follow the log with:\n  tail -f %s\n", logPath)
	fmt.Fprintf(out, "Stop it with:\n  %s stop\n", exe)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	exe, err := executable()
	if err != nil {
		return err
	}
	stopped, err := procs.Stop(cmd.Context(), filepath.Base(exe))
	out := cmd.OutOrStdout()
	for _, inst := range stopped {
		fmt.Fprintf(out, "Stopped pid %d\n", inst.PID)
	}
	if err != nil {
		return err
	}
	if len(stopped) == 0 {
		fmt.Fprintln(out, "No running keepwarm instances found")
		return nil
	}
	fmt.Fprintf(out, "Stopped %d instance(s)\n", len(stopped))
	return nil
}

func runPs(cmd *cobra.Command, args []string) error {
	exe, err := executable()
	if err != nil {
		return err
	}
	insts, err := procs.List(cmd.Context(), filepath.Base(exe))
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return writeJSON(cmd.OutOrStdout(), insts)
	default:
		printInstances(cmd.OutOrStdout(), insts)
	}
	return nil
}
