package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/config"
	"github.com/roach88/playscript/internal/library"
	"github.com/roach88/playscript/internal/spotify"
	"github.com/roach88/playscript/internal/store"
)

func TestDefaultBackendLibrary(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Library: config.Library{Dir: dir}}

	b, err := DefaultBackend(t.Context(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, library.TrackPrefix, b.TrackPrefix)
	assert.IsType(t, &library.Library{}, b.Source)
	assert.IsType(t, &library.QueueFile{}, b.Sink)

	// Starting a session writes the default queue file inside the library.
	require.NoError(t, b.Sink.StartSession(t.Context()))
	_, err = os.Stat(filepath.Join(dir, DefaultQueueFile))
	require.NoError(t, err)
}

func TestDefaultBackendLibraryMissing(t *testing.T) {
	cfg := &config.Config{Library: config.Library{Dir: filepath.Join(t.TempDir(), "nope")}}

	_, err := DefaultBackend(t.Context(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan library")
}

func TestDefaultBackendSpotify(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")
	cfg := &config.Config{ClientID: "cid", ClientSecret: "secret", Market: "SE", TokenFile: tokenPath}

	_, err := DefaultBackend(t.Context(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	require.NoError(t, spotify.SaveToken(tokenPath, &oauth2.Token{AccessToken: "a", TokenType: "Bearer"}))
	b, err := DefaultBackend(t.Context(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &spotify.Client{}, b.Source)
	assert.IsType(t, &spotify.Player{}, b.Sink)
	assert.Empty(t, b.TrackPrefix)
}

func TestLoadCacheSeedsAliases(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	ctx := t.Context()
	require.NoError(t, st.SetAlias(ctx, "old", "pl-old"))
	_, err = st.SaveTracks(ctx, []catalog.TrackInfo{{ID: "spotify:track:x", Name: "X"}})
	require.NoError(t, err)

	cache, err := loadCache(ctx, st, map[string]string{"Gym": "pl-gym"})
	require.NoError(t, err)

	id, ok := cache.Alias("gym")
	require.True(t, ok)
	assert.Equal(t, "pl-gym", id)
	id, ok = cache.Alias("OLD")
	require.True(t, ok)
	assert.Equal(t, "pl-old", id)

	_, ok = cache.Track("spotify:track:x")
	assert.True(t, ok)
	assert.Empty(t, cache.Added())
}

func TestOpenSessionFlagOverrides(t *testing.T) {
	env := newTestEnv(t)
	opts := env.sessionOptions("run-1")
	opts.Library = "/music"
	opts.QueueFile = "/tmp/q.m3u"

	sess, err := openSession(t.Context(), env.root, &opts, env.root.Logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, sess.close(t.Context())) }()

	assert.Equal(t, "/music", sess.cfg.Library.Dir)
	assert.Equal(t, "/tmp/q.m3u", sess.cfg.Library.QueueFile)
	assert.Equal(t, env.root.Database, sess.cfg.Database)
}
