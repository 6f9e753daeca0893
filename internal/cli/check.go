package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/playscript/internal/script"
)

// CheckResult holds the problems found in one script.
type CheckResult struct {
	Script   string           `json:"script"`
	Path     string           `json:"path"`
	Valid    bool             `json:"valid"`
	Problems []script.Problem `json:"problems,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <script>...",
		Short: "Check scripts without running them",
		Long: `Check playback scripts without touching the catalog or the player.

Every line is checked: keywords, var lines, the syntax of every
expression, if/fi balance and jumpto targets. Loops are reported as
not implemented. Warnings do not fail the check.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	results := make([]CheckResult, 0, len(args))
	failed := 0
	for _, arg := range args {
		path, err := script.Find(arg, cfg.ScriptsDir)
		if err != nil {
			return outputCheckError(formatter, "not_found", err.Error())
		}
		s, err := script.Load(path)
		if err != nil {
			return outputCheckError(formatter, "read_error", err.Error())
		}
		formatter.VerboseLog("Checking %s (%d lines)", path, s.Len())

		problems := script.Check(s)
		valid := !script.HasErrors(problems)
		if !valid {
			failed++
		}
		results = append(results, CheckResult{Script: s.Name, Path: path, Valid: valid, Problems: problems})
	}

	if opts.Format == "json" {
		if failed > 0 {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   results,
				Error: &CLIError{
					Code:    "check_failed",
					Message: fmt.Sprintf("%d of %d script(s) have errors", failed, len(results)),
				},
			})
		} else if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printCheckResult(formatter, r)
		}
	}

	if failed > 0 {
		// Check failures = exit code 1 (test/validation failure)
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("check failed for %d script(s)", failed),
			Reported: true,
		}
	}
	return nil
}

func printCheckResult(f *OutputFormatter, r CheckResult) {
	if r.Valid {
		fmt.Fprintf(f.Writer, "%s %s\n", successStyle.Render("✓"), r.Path)
	} else {
		fmt.Fprintf(f.Writer, "%s %s\n", errorStyle.Render("✗"), r.Path)
	}
	for _, p := range r.Problems {
		style := errorStyle
		if p.Severity == script.SeverityWarning {
			style = warningStyle
		}
		fmt.Fprintf(f.Writer, "  line %d %s %s\n", p.Line, style.Render(p.Code), p.Message)
		if p.Text != "" {
			fmt.Fprintf(f.Writer, "    %s\n", sourceStyle.Render(">>> "+p.Text))
		}
	}
}

// outputCheckError outputs a single command error.
func outputCheckError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("%s: %s", code, message), Reported: true}
}
