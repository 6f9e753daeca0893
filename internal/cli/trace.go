package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	List  bool
	Limit int
	Type  string // optional - filter to one event type
}

// TraceEvent represents a single event in the run timeline.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Line    int         `json:"line"`
	Type    string      `json:"type"`
	ID      string      `json:"id"`
	Payload ir.IRObject `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Played      int `json:"played"`
	Branches    int `json:"branches"`
	Jumps       int `json:"jumps"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show the trace of a run",
		Long: `Show what a run did: variables set, branches taken, jumps and the
tracks it queued, in order. Without a run id the latest run is shown.

Examples:
  playscript trace
  playscript trace 0192f0c4-7a51-7c9e-8d7e-3b2b1f8e9a10 --type play
  playscript trace --list --limit 10
  playscript trace --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list recent runs")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one event type (var|branch|jump|play|quit)")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			if runs == nil {
				runs = []store.Run{}
			}
			return formatter.Success(runs)
		}
		outputRunList(formatter, runs)
		return nil
	}

	var run store.Run
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		msg := "no runs recorded"
		if runID != "" {
			msg = fmt.Sprintf("run not found: %s", runID)
		}
		_ = formatter.Error("not_found", msg, nil)
		return &ExitError{Code: ExitCommandError, Message: msg, Reported: true}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{Run: run, Timeline: buildTimeline(events, opts.Type)}
	result.Stats = buildStats(events)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// buildTimeline converts events, keeping only typ when set.
func buildTimeline(events []store.Event, typ string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		if typ != "" && string(ev.Type) != typ {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:     ev.Seq,
			Line:    ev.Line,
			Type:    string(ev.Type),
			ID:      ev.ID,
			Payload: ev.Payload,
		})
	}
	return timeline
}

func buildStats(events []store.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Type {
		case store.EventPlay:
			stats.Played++
		case store.EventBranch:
			stats.Branches++
		case store.EventJump:
			stats.Jumps++
		}
	}
	return stats
}

func outputTraceText(f *OutputFormatter, r TraceResult) {
	w := f.Writer
	fmt.Fprintf(w, "Run: %s\n", r.Run.ID)
	fmt.Fprintf(w, "Script: %s\n", r.Run.Script)
	fmt.Fprintf(w, "Started: %s\n", r.Run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Status: %s\n", statusStyle(r.Run.Status).Render(string(r.Run.Status)))
	if r.Run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Run.Error)
	}
	fmt.Fprintln(w)

	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, dimStyle.Render("(no events)"))
	}
	for _, ev := range r.Timeline {
		fmt.Fprintf(w, "[%d] line %-3d %-6s %s\n", ev.Seq, ev.Line, ev.Type, describeEvent(ev))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Events: %d, played: %d, branches: %d, jumps: %d\n",
		r.Stats.TotalEvents, r.Stats.Played, r.Stats.Branches, r.Stats.Jumps)
	f.VerboseLog("event ids are content hashes of (run, seq, payload)")
}

// describeEvent renders the payload of one event.
func describeEvent(ev TraceEvent) string {
	str := func(k string) string {
		if s, ok := ev.Payload[k].(ir.IRString); ok {
			return string(s)
		}
		return ""
	}
	switch store.EventType(ev.Type) {
	case store.EventVar:
		return fmt.Sprintf("%s = %s", str("name"), str("value"))
	case store.EventBranch:
		taken, _ := ev.Payload["taken"].(ir.IRBool)
		if taken {
			return str("keyword") + " taken"
		}
		return str("keyword") + " not taken"
	case store.EventJump:
		return "to " + str("target")
	case store.EventPlay:
		return fmt.Sprintf("%s %s", str("name"), dimStyle.Render(str("id")))
	}
	return ""
}

func outputRunList(f *OutputFormatter, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%s  %s  %-9s  %s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), statusStyle(r.Status).Render(string(r.Status)), r.Script)
	}
}

func statusStyle(s store.RunStatus) lipgloss.Style {
	switch s {
	case store.StatusFailed:
		return errorStyle
	case store.StatusRunning:
		return warningStyle
	}
	return successStyle
}
