package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/script"
)

// DefaultScript is run when no script argument is given.
const DefaultScript = "example"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SessionOptions
}

// RunResult is the data payload of a run.
type RunResult struct {
	RunID    string              `json:"run_id"`
	Script   string              `json:"script"`
	Status   string              `json:"status"`
	Played   []catalog.TrackInfo `json:"played"`
	Vars     map[string]string   `json:"vars"`
	Warnings []string            `json:"warnings,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Run a playback script",
		Long: `Run a playback script from the first line to the last, or until quit or
the first error.

The argument is a path, or a name looked up as <scripts_dir>/<name>.txt.
Without an argument the "example" script is run.

Example:
  playscript run
  playscript run ./mornings.txt --seed 7
  playscript run party --library ~/Music --queue-file party.m3u`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := DefaultScript
			if len(args) == 1 {
				name = args[0]
			}
			opts.HasSeed = cmd.Flags().Changed("seed")
			return runScript(opts, name, cmd)
		},
	}

	addSessionFlags(cmd, &opts.SessionOptions)
	return cmd
}

func addSessionFlags(cmd *cobra.Command, opts *SessionOptions) {
	cmd.Flags().StringVar(&opts.Library, "library", "", "play from a local music directory instead of Spotify")
	cmd.Flags().StringVar(&opts.QueueFile, "queue-file", "", "M3U file the offline queue is written to")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed the random source for reproducible runs")
}

func runScript(opts *RunOptions, name string, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx, cancel := withSignals(cmd.Context())
	defer cancel()

	sess, err := openSession(ctx, opts.RootOptions, &opts.SessionOptions, logger)
	if err != nil {
		return err
	}

	path, err := script.Find(name, sess.cfg.ScriptsDir)
	if err != nil {
		_ = sess.close(ctx)
		return WrapExitError(ExitCommandError, "failed to find script", err)
	}
	s, err := script.Load(path)
	if err != nil {
		_ = sess.close(ctx)
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	slog.Info("running script", "script", s.Name, "path", path)
	res, runErr := sess.interp.Run(ctx, s)

	if err := sess.close(ctx); err != nil {
		slog.Error("error closing session", "error", err)
	}

	if res == nil {
		return WrapExitError(ExitCommandError, "failed to start run", runErr)
	}
	result := RunResult{
		RunID:    res.RunID,
		Script:   s.Name,
		Status:   string(res.Status),
		Played:   res.Played,
		Vars:     formatVars(sess.interp.Env()),
		Warnings: res.Warnings,
	}
	if result.Played == nil {
		result.Played = []catalog.TrackInfo{}
	}

	if runErr != nil {
		return reportRunError(formatter, result, runErr)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	printRunSummary(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
	return nil
}

// reportRunError prints a failed run and returns the exit error.
func reportRunError(f *OutputFormatter, result RunResult, runErr error) error {
	if errors.Is(runErr, context.Canceled) {
		_ = f.Error("interrupted", "run interrupted", map[string]any{"run_id": result.RunID})
		return &ExitError{Code: ExitFailure, Message: "run interrupted", Err: runErr, Reported: true}
	}

	d, ok := diag.AsDiagnostic(runErr)
	if !ok {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	if f.Format == "json" {
		_ = f.encode(CLIResponse{
			Status: "error",
			RunID:  result.RunID,
			Data:   result,
			Error: &CLIError{
				Code:    string(d.Kind()),
				Message: diag.Message(d.Err),
				Details: map[string]any{"line": d.Line, "text": d.Text},
			},
		})
	} else {
		renderDiagnostic(f.GetErrWriter(), d)
	}
	return &ExitError{Code: ExitFailure, Message: "script failed", Err: runErr, Reported: true}
}

func printRunSummary(out, errOut io.Writer, r RunResult) {
	for _, t := range r.Played {
		fmt.Fprintf(out, "%s %s %s\n", successStyle.Render("queued"), t.Name, dimStyle.Render(t.ID))
	}
	for _, w := range r.Warnings {
		renderWarning(errOut, w)
	}
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("run %s %s, %d tracks queued", r.RunID, r.Status, len(r.Played))))
}

// formatVars renders the environment with the number formatting used in
// trace events.
func formatVars(env *expr.Env) map[string]string {
	out := make(map[string]string, env.Len())
	for name, v := range env.Snapshot() {
		out[name] = expr.FormatNumber(v)
	}
	return out
}
