package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/roach88/playscript/internal/spotify"
)

// ExchangeFunc trades an authorization code for a token.
type ExchangeFunc func(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions

	// State overrides the random authorization state (for testing).
	State string

	// Exchange overrides the token exchange (for testing).
	Exchange ExchangeFunc
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize playscript with Spotify",
		Long: `Authorize playscript to search the catalog and control playback.

Open the printed URL, approve access, then paste the address the browser
was redirected to. The token is stored in token_file and refreshed
automatically.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return NewExitError(ExitCommandError, "client_id and client_secret must be set in the config file")
	}

	oc := spotify.OAuthConfig(credentials(cfg))
	state := opts.State
	if state == "" {
		state = uuid.NewString()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL and approve access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+oc.AuthCodeURL(state))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the URL you were redirected to: ")

	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to read redirect URL", err)
		}
		return NewExitError(ExitCommandError, "no redirect URL given")
	}
	code, err := spotify.CodeFromRedirect(strings.TrimSpace(sc.Text()), state)
	if err != nil {
		return WrapExitError(ExitCommandError, "login failed", err)
	}

	exchange := opts.Exchange
	if exchange == nil {
		exchange = func(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
			return cfg.Exchange(ctx, code)
		}
	}
	tok, err := exchange(cmd.Context(), oc, code)
	if err != nil {
		return WrapExitError(ExitCommandError, "token exchange failed", err)
	}
	if err := spotify.SaveToken(cfg.TokenFile, tok); err != nil {
		return WrapExitError(ExitCommandError, "failed to save token", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, successStyle.Render("Logged in. Token saved to "+cfg.TokenFile))
	return nil
}
