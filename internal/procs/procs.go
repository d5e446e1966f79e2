// Package procs finds, starts and stops detached `keepwarm run` instances.
package procs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/process"
)

// RunCommand is the subcommand a background instance executes.
const RunCommand = "run"

// Instance describes one running scheduler process.
type Instance struct {
	PID     int32     `json:"pid"`
	User    string    `json:"user"`
	Started time.Time `json:"started"`
	Cmdline string    `json:"cmdline"`
}

// boolFlags are the root flags that take no separate value.
var boolFlags = []string{"-v", "--verbose", "--respect-robots", "-h", "--help"}

// IsInstance reports whether argv belongs to a `<name> run` process. Flags
// may come before the subcommand, with their values as separate arguments.
func IsInstance(name string, argv []string) bool {
	if len(argv) < 2 || filepath.Base(argv[0]) != name {
		return false
	}
	for i := 1; i < len(argv); i++ {
		a := argv[i]
		if a == "--" {
			return i+1 < len(argv) && argv[i+1] == RunCommand
		}
		if !strings.HasPrefix(a, "-") {
			return a == RunCommand
		}
		if !strings.Contains(a, "=") && !slices.Contains(boolFlags, a) {
			i++
		}
	}
	return false
}

// List returns every running instance of the binary called name, excluding
// the calling process.
func List(ctx context.Context, name string) ([]Instance, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	self := int32(os.Getpid())

	var out []Instance
	for _, p := range ps {
		if p.Pid == self {
			continue
		}
		argv, err := p.CmdlineSliceWithContext(ctx)
		if err != nil || !IsInstance(name, argv) {
			continue
		}
		inst := Instance{PID: p.Pid, Cmdline: strings.Join(argv, " ")}
		if u, err := p.UsernameWithContext(ctx); err == nil {
			inst.User = u
		}
		if ms, err := p.CreateTimeWithContext(ctx); err == nil {
			inst.Started = time.UnixMilli(ms)
		}
		out = append(out, inst)
	}
	slices.SortFunc(out, func(a, b Instance) int { return int(a.PID - b.PID) })
	return out, nil
}

// Stop sends SIGTERM to every instance and returns the ones signalled.
func Stop(ctx context.Context, name string) ([]Instance, error) {
	insts, err := List(ctx, name)
	if err != nil {
		return nil, err
	}
	var stopped []Instance
	var errs []string
	for _, inst := range insts {
		p, err := process.NewProcessWithContext(ctx, inst.PID)
		if err == nil {
			err = p.TerminateWithContext(ctx)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("pid %d: %v", inst.PID, err))
			continue
		}
		stopped = append(stopped, inst)
	}
	if len(errs) > 0 {
		return stopped, fmt.Errorf("stop instances: %s", strings.Join(errs, "; "))
	}
	return stopped, nil
}

// StartBackground re-executes exe with args detached from the terminal,
// appending stdout and stderr to logPath. It returns the child's PID.
func StartBackground(exe string, args []string, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open background log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = detached()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start background instance: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release background instance: %w", err)
	}
	return pid, nil
}
