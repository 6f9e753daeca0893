package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/queryir"
	"github.com/roach88/playscript/internal/store"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the track cache and playlist aliases",
		Long: `Inspect the tracks cached from earlier runs and manage playlist aliases.

Examples:
  playscript cache list
  playscript cache query 'year=span(2000, 2010), artist="Air"'
  playscript cache alias set "sunday" 37i9dQZF1DX0UrRvztWcAU
  playscript cache alias list`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newCacheListCommand(rootOpts))
	cmd.AddCommand(newCacheQueryCommand(rootOpts))
	cmd.AddCommand(newAliasCommand(rootOpts))
	return cmd
}

func newCacheListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List cached tracks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheQuery(rootOpts, "", cmd)
		},
	}
}

func newCacheQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <filters>",
		Short: "Query cached tracks with filter keywords",
		Long: `Query cached tracks with the keywords a script passes to filter(),
for example: year=span(2000, 2010), artist="Air"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheQuery(rootOpts, strings.Join(args, " "), cmd)
		},
	}
}

// withStore loads the config, opens the database and calls fn.
func withStore(opts *RootOptions, fn func(st *store.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func runCacheQuery(opts *RootOptions, filters string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var pred queryir.Predicate
	if filters != "" {
		p, err := expr.New(nil, nil).Predicates(ctx, filters)
		if err != nil {
			_ = formatter.Error("invalid_filter", err.Error(), nil)
			return &ExitError{Code: ExitCommandError, Message: "invalid filter", Err: err, Reported: true}
		}
		if res := queryir.Validate(p, catalog.TrackFields); !res.Valid {
			msg := strings.Join(res.Problems, "; ")
			_ = formatter.Error("invalid_filter", msg, nil)
			return &ExitError{Code: ExitCommandError, Message: "invalid filter: " + msg, Reported: true}
		}
		pred = p
		formatter.VerboseLog("filter on %s: %s", strings.Join(queryir.Fields(p), ", "), p)
	}

	return withStore(opts, func(st *store.Store) error {
		tracks, err := st.QueryTracks(ctx, pred)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query tracks", err)
		}
		total, err := st.CountTracks(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count tracks", err)
		}

		if opts.Format == "json" {
			return formatter.Success(tracks)
		}
		for _, t := range tracks {
			fmt.Fprintf(formatter.Writer, "%s  %s - %s (%d) %s\n",
				dimStyle.Render(t.ID), t.Artist, t.Name, t.Year, formatDuration(t.Duration))
		}
		fmt.Fprintf(formatter.Writer, "%d of %d cached tracks\n", len(tracks), total)
		return nil
	})
}

func formatDuration(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func newAliasCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "alias",
		Short:         "Manage playlist aliases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List aliases",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAliasList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "set <name> <playlist-id>",
		Short:         "Resolve playlist(name) to a playlist id",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, func(st *store.Store) error {
				if err := st.SetAlias(cmd.Context(), args[0], args[1]); err != nil {
					return WrapExitError(ExitCommandError, "failed to set alias", err)
				}
				return aliasDone(rootOpts, cmd, fmt.Sprintf("alias %q set", args[0]))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete an alias",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, func(st *store.Store) error {
				ok, err := st.DeleteAlias(cmd.Context(), args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to delete alias", err)
				}
				if !ok {
					return NewExitError(ExitCommandError, fmt.Sprintf("no alias named %q", args[0]))
				}
				return aliasDone(rootOpts, cmd, fmt.Sprintf("alias %q deleted", args[0]))
			})
		},
	})
	return cmd
}

func runAliasList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return withStore(opts, func(st *store.Store) error {
		aliases, err := st.Aliases(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list aliases", err)
		}
		if opts.Format == "json" {
			return formatter.Success(aliases)
		}
		if len(aliases) == 0 {
			fmt.Fprintln(formatter.Writer, "No aliases.")
		}
		for _, a := range aliases {
			fmt.Fprintf(formatter.Writer, "%s -> %s\n", a.Name, a.PlaylistID)
		}
		return nil
	})
}

func aliasDone(opts *RootOptions, cmd *cobra.Command, msg string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(map[string]string{"message": msg})
	}
	return formatter.Success(successStyle.Render(msg))
}
