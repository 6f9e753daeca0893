package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/config"
	"github.com/roach88/playscript/internal/engine"
)

// testEnv is a temporary home with a config path, a database and an
// in-memory catalog and player.
type testEnv struct {
	dir    string
	root   *RootOptions
	source *catalog.MemorySource
	sink   *engine.MemorySink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	source := catalog.NewMemorySource()
	source.AddTracks(
		catalog.TrackInfo{ID: "spotify:track:m1", Name: "Sunrise", Artist: "Air", Year: 2001, Duration: 240},
		catalog.TrackInfo{ID: "spotify:track:m2", Name: "Coffee", Artist: "Air", Year: 2004, Duration: 200},
		catalog.TrackInfo{ID: "spotify:track:m3", Name: "Walk", Artist: "Bonobo", Year: 2010, Duration: 300},
		catalog.TrackInfo{ID: "spotify:track:q1", Name: "Quiet", Artist: "Nils", Year: 2015, Duration: 180},
	)
	source.AddPlaylist("pl-morning", "Morning", "spotify:track:m1", "spotify:track:m2", "spotify:track:m3")

	return &testEnv{
		dir: dir,
		root: &RootOptions{
			Format:     "text",
			ConfigPath: filepath.Join(dir, config.FileName),
			Database:   filepath.Join(dir, "test.db"),
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		source: source,
		sink:   engine.NewMemorySink(),
	}
}

func (e *testEnv) backend(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
	return &Backend{Source: e.source, Sink: e.sink}, nil
}

// sessionOptions injects the in-memory backend and fixed run ids.
func (e *testEnv) sessionOptions(runIDs ...string) SessionOptions {
	return SessionOptions{
		Backend: e.backend,
		RunIDs:  engine.NewFixedGenerator(runIDs...),
		Sleep:   func(context.Context, time.Duration) error { return nil },
		Seed:    1,
		HasSeed: true,
	}
}

func (e *testEnv) writeConfig(t *testing.T, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.root.ConfigPath, []byte(src), 0o644))
}

func (e *testEnv) writeScript(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(e.dir, name+".txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// testCommand returns a bare command with captured output, for calling
// run functions directly.
func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetContext(context.Background())
	return cmd, out, errOut
}

// execute runs cmd with args and returns its output.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// runFixture runs text as a script with a fixed run id.
func (e *testEnv) runFixture(t *testing.T, runID, text string) error {
	t.Helper()
	path := e.writeScript(t, runID, text)
	opts := &RunOptions{RootOptions: e.root, SessionOptions: e.sessionOptions(runID)}
	cmd, _, _ := testCommand()
	return runScript(opts, path, cmd)
}
