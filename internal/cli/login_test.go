package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/roach88/playscript/internal/spotify"
)

func loginEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.writeConfig(t, `
client_id: "cid"
client_secret: "secret"
token_file: "`+strings.ReplaceAll(env.dir, `\`, `/`)+`/token.json"
`)
	return env
}

func TestLogin(t *testing.T) {
	env := loginEnv(t)

	var gotCode string
	opts := &LoginOptions{
		RootOptions: env.root,
		State:       "st4te",
		Exchange: func(_ context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
			assert.Equal(t, "cid", cfg.ClientID)
			gotCode = code
			return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}, nil
		},
	}
	cmd, out, _ := testCommand()
	cmd.SetIn(strings.NewReader("http://127.0.0.1:8888/callback?code=c0de&state=st4te\n"))

	require.NoError(t, runLogin(opts, cmd))

	assert.Equal(t, "c0de", gotCode)
	assert.Contains(t, out.String(), "https://accounts.spotify.com/authorize?")
	assert.Contains(t, out.String(), "state=st4te")
	assert.Contains(t, out.String(), "Logged in.")

	tok, err := spotify.LoadToken(env.dir + "/token.json")
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestLoginStateMismatch(t *testing.T) {
	env := loginEnv(t)
	opts := &LoginOptions{
		RootOptions: env.root,
		State:       "expected",
		Exchange: func(context.Context, *oauth2.Config, string) (*oauth2.Token, error) {
			t.Fatal("exchange must not run")
			return nil, nil
		},
	}
	cmd, _, _ := testCommand()
	cmd.SetIn(strings.NewReader("http://127.0.0.1:8888/callback?code=c0de&state=forged\n"))

	err := runLogin(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestLoginNoInput(t *testing.T) {
	env := loginEnv(t)
	cmd, _, _ := testCommand()
	cmd.SetIn(strings.NewReader(""))

	err := runLogin(&LoginOptions{RootOptions: env.root, State: "s"}, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no redirect URL given")
}

func TestLoginRequiresCredentials(t *testing.T) {
	env := newTestEnv(t)
	cmd, _, _ := testCommand()

	err := runLogin(&LoginOptions{RootOptions: env.root}, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id and client_secret")
}
