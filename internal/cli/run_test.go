package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/engine"
	"github.com/roach88/playscript/internal/store"
)

func TestRunScript(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeScript(t, "morning", "var n = 2\nplay n from playlist(\"Morning\")\n")

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, out, _ := testCommand()
	require.NoError(t, runScript(opts, path, cmd))

	assert.Len(t, env.sink.Queue(), 2)
	assert.Contains(t, out.String(), "run run-1 completed, 2 tracks queued")
	assert.Contains(t, out.String(), "queued")
}

func TestRunScriptByName(t *testing.T) {
	env := newTestEnv(t)
	env.writeScript(t, "quiet", `play 1 from track("Quiet")`)
	env.writeConfig(t, `scripts_dir: "`+filepath.ToSlash(env.dir)+`"`)

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, _, _ := testCommand()
	require.NoError(t, runScript(opts, "quiet", cmd))

	assert.Equal(t, []string{"spotify:track:q1"}, env.sink.Queue())
}

func TestRunScriptNotFound(t *testing.T) {
	env := newTestEnv(t)

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, _, _ := testCommand()
	err := runScript(opts, "missing", cmd)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to find script")
}

func TestRunScriptDiagnostic(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeScript(t, "broken", "var n = 1\nplay n from playlist(\"Nowhere\")\nplay 1 from track(\"Quiet\")\n")

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, _, errOut := testCommand()
	err := runScript(opts, path, cmd)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, errOut.String(), "Traceback: exception on line 2")
	assert.Contains(t, errOut.String(), `>>> play n from playlist("Nowhere")`)
	assert.Contains(t, errOut.String(), `LookupError: no playlist matches "Nowhere"`)
	assert.Empty(t, env.sink.Queue())

	st, err := store.Open(env.root.Database)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.ReadRun(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
}

func TestRunScriptJSON(t *testing.T) {
	env := newTestEnv(t)
	env.root.Format = "json"
	path := env.writeScript(t, "quit", "play 1 from track(\"Quiet\")\nquit\nplay 1 from track(\"Walk\")\n")

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, out, _ := testCommand()
	require.NoError(t, runScript(opts, path, cmd))

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, "quit", resp.Data.Status)
	require.Len(t, resp.Data.Played, 1)
	assert.Equal(t, "Quiet", resp.Data.Played[0].Name)
}

func TestRunScriptDiagnosticJSON(t *testing.T) {
	env := newTestEnv(t)
	env.root.Format = "json"
	path := env.writeScript(t, "bad", "var x = 1\nbogus line\n")

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, out, _ := testCommand()
	err := runScript(opts, path, cmd)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SyntaxError", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "bogus")
}

func TestRunScriptWarnings(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeScript(t, "jump", "jumpto end\nplay 1 from track(\"Quiet\")\n")

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, _, errOut := testCommand()
	require.NoError(t, runScript(opts, path, cmd))

	assert.Empty(t, env.sink.Queue())
	assert.Contains(t, errOut.String(), "warning: jump target end was never reached")
}

func TestRunStartsSession(t *testing.T) {
	env := newTestEnv(t)
	env.sink.Active = false
	path := env.writeScript(t, "start", `play 1 from track("Quiet")`)

	opts := &RunOptions{RootOptions: env.root, SessionOptions: env.sessionOptions("run-1")}
	cmd, _, _ := testCommand()
	require.NoError(t, runScript(opts, path, cmd))

	assert.Equal(t, 1, env.sink.Starts())
	assert.Equal(t, []string{"spotify:track:q1"}, env.sink.Queue())
}

func TestRunPersistsTrackCache(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.runFixture(t, "run-1", `play 1 from playlist("Morning")`))

	st, err := store.Open(env.root.Database)
	require.NoError(t, err)
	tracks, err := st.LoadTracks(t.Context())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Every track of the playlist is cached, not just the one played.
	assert.Len(t, tracks, 3)
}

func TestRunPersistsTrackCacheAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	err := env.runFixture(t, "run-1", "play 1 from track(\"Quiet\")\nplay 1 from playlist(\"Nowhere\")\n")
	require.Error(t, err)

	st, err := store.Open(env.root.Database)
	require.NoError(t, err)
	defer st.Close()
	tracks, err := st.LoadTracks(t.Context())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "spotify:track:q1", tracks[0].ID)
}

func TestRunConfigAliases(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, `aliases: {"Wake Up": "pl-morning"}`)

	require.NoError(t, env.runFixture(t, "run-1", `play all from playlist("wake up")`))
	assert.Len(t, env.sink.Queue(), 3)

	st, err := store.Open(env.root.Database)
	require.NoError(t, err)
	defer st.Close()
	aliases, err := st.Aliases(t.Context())
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "pl-morning", aliases[0].PlaylistID)
}

func TestRunSeedIsReproducible(t *testing.T) {
	env := newTestEnv(t)
	script := "play 2 from playlist(\"Morning\")\n"

	require.NoError(t, env.runFixture(t, "run-1", script))
	first := env.sink.Queue()

	env.sink = engine.NewMemorySink()
	require.NoError(t, env.runFixture(t, "run-2", script))

	assert.Equal(t, first, env.sink.Queue())
}

func TestRunMissingClientID(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeScript(t, "quiet", `play 1 from track("Quiet")`)

	opts := &RunOptions{RootOptions: env.root}
	cmd, _, _ := testCommand()
	err := runScript(opts, path, cmd)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "client_id")
}

func TestRunHelpText(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	assert.Equal(t, "run [script]", cmd.Use)
	assert.Contains(t, cmd.Long, "scripts_dir")
}
