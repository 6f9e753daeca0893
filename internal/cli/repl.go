package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/playscript/internal/config"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/store"
)

// ReplScript names REPL runs in the run log.
const ReplScript = "<repl>"

const replHelp = `Enter script lines one at a time. Line numbers count every entered line.
  :vars   show variables
  :state  show branch and jump state
  :help   show this help
  :quit   leave (also Ctrl-D)
`

// LineReader reads REPL input. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	SessionOptions
	HistoryFile string

	// Input overrides the line editor (for testing).
	Input LineReader
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive interpreter",
		Long: `Run script lines interactively. Variables and branch state carry over
between lines; errors are reported and the session continues.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.HasSeed = cmd.Flags().Changed("seed")
			return runRepl(opts, cmd)
		},
	}

	addSessionFlags(cmd, &opts.SessionOptions)
	cmd.Flags().StringVar(&opts.HistoryFile, "history", "", "history file (default $HOME/.config/playscript/history)")
	return cmd
}

func runRepl(opts *ReplOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())

	ctx, cancel := withSignals(cmd.Context())
	defer cancel()

	sess, err := openSession(ctx, opts.RootOptions, &opts.SessionOptions, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.close(ctx); err != nil {
			logger.Error("error closing session", "error", err)
		}
	}()

	in := opts.Input
	if in == nil {
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		histPath := opts.historyPath()
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
		in = ln
	}

	r := &repl{sess: sess, in: in, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	return r.loop(ctx)
}

func (o *ReplOptions) historyPath() string {
	if o.HistoryFile != "" {
		return o.HistoryFile
	}
	dir, err := config.Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "playscript_history")
	}
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "history")
}

// repl feeds entered lines to one interpreter run.
type repl struct {
	sess   *session
	in     LineReader
	out    io.Writer
	errOut io.Writer
	line   int
}

func (r *repl) loop(ctx context.Context) error {
	interp := r.sess.interp
	if err := interp.Begin(ctx, ReplScript); err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	fmt.Fprintln(r.out, dimStyle.Render("playscript repl - :help for commands, :quit to leave"))

	status := store.StatusCompleted
	var fatal error
	for ctx.Err() == nil {
		text, err := r.in.Prompt(fmt.Sprintf("%d> ", r.line+1))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fatal = err
			break
		}

		if cmd := strings.TrimSpace(text); strings.HasPrefix(cmd, ":") {
			if r.command(cmd) {
				break
			}
			continue
		}

		r.line++
		r.in.AppendHistory(text)
		quit, err := r.step(ctx, text)
		if err != nil {
			fatal = err
			break
		}
		if quit {
			status = store.StatusQuit
			break
		}
	}

	res, err := interp.Finish(ctx, status, fatal)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to finish session", err)
	}
	if fatal != nil && !errors.Is(fatal, context.Canceled) {
		return WrapExitError(ExitFailure, "session failed", fatal)
	}
	fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("run %s %s, %d tracks queued", res.RunID, res.Status, len(res.Played))))
	return nil
}

// step runs one line. Script errors are printed; only errors outside the
// script (run log, cancellation) are returned.
func (r *repl) step(ctx context.Context, text string) (bool, error) {
	before := len(r.sess.interp.Played())
	quit, err := r.sess.interp.Step(ctx, r.line, text)
	for _, t := range r.sess.interp.Played()[before:] {
		fmt.Fprintf(r.out, "%s %s %s\n", successStyle.Render("queued"), t.Name, dimStyle.Render(t.ID))
	}
	if err == nil {
		return quit, nil
	}
	if d, ok := diag.AsDiagnostic(err); ok {
		renderDiagnostic(r.errOut, d)
		return false, nil
	}
	return false, err
}

// command handles a ":" command and reports whether the session ends.
func (r *repl) command(cmd string) bool {
	switch strings.ToLower(strings.Fields(cmd)[0]) {
	case ":quit", ":exit":
		return true
	case ":vars":
		env := r.sess.interp.Env()
		names := env.Names()
		sort.Strings(names)
		if len(names) == 0 {
			fmt.Fprintln(r.out, dimStyle.Render("(no variables)"))
		}
		for _, name := range names {
			v, _ := env.Get(name)
			fmt.Fprintf(r.out, "%s = %s\n", name, expr.FormatNumber(v))
		}
	case ":state":
		st := r.sess.interp.State()
		jump := "none"
		if st.Jump != nil {
			jump = st.Jump.String()
		}
		fmt.Fprintf(r.out, "branch %s, jump %s\n", st.Branch, jump)
	case ":help":
		fmt.Fprint(r.out, replHelp)
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for help.\n", cmd)
	}
	return false
}
