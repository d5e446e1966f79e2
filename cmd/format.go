package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lukman83/keepwarm/internal/models"
	"github.com/lukman83/keepwarm/internal/procs"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSessionsTable prints one row per session, stale ones flagged.
func printSessionsTable(w io.Writer, sessions []models.SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No stored sessions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVISITS\tCOOKIES\tLAST USED\tPLATFORM\tTARGET")
	for _, s := range sessions {
		last := formatAgo(s.LastUsed)
		if s.Stale {
			last += " (stale)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			s.ID, s.VisitCount, s.Cookies, last, orDash(s.Platform), s.Target)
	}
	tw.Flush()
}

// printTickReport prints a ping result as aligned key/value lines.
func printTickReport(w io.Writer, r models.TickReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Target:\t%s\n", r.Target)
	fmt.Fprintf(tw, "Session:\t%s (visit %d)\n", orDash(r.Session), r.Visits)
	if r.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
	} else {
		status := fmt.Sprintf("%d", r.Status)
		if r.NotModified {
			status += " (not modified)"
		}
		fmt.Fprintf(tw, "Status:\t%s\n", status)
	}
	fmt.Fprintf(tw, "Elapsed:\t%dms\n", r.ElapsedMS)
	if r.Title != "" {
		fmt.Fprintf(tw, "Title:\t%s\n", r.Title)
	}
	fmt.Fprintf(tw, "Identity:\t%s / %s\n", orDash(r.Platform), truncate(r.UserAgent, 80))
	fmt.Fprintf(tw, "Cookies:\t%d\n", r.Cookies)
	tw.Flush()
}

func printInstances(w io.Writer, insts []procs.Instance) {
	if len(insts) == 0 {
		fmt.Fprintln(w, "No running keepwarm instances found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tUSER\tSTARTED\tCOMMAND")
	for _, p := range insts {
		started := "-"
		if !p.Started.IsZero() {
			started = p.Started.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.PID, orDash(p.User), started, p.Cmdline)
	}
	tw.Flush()
}

// formatAgo renders t relative to now at a coarse granularity.
func formatAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
