package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/store"
)

func seedTracks(t *testing.T, env *testEnv) {
	t.Helper()
	st, err := store.Open(env.root.Database)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.SaveTracks(t.Context(), []catalog.TrackInfo{
		{ID: "spotify:track:a1", Name: "Sunrise", Artist: "Air", Year: 2001, Duration: 245},
		{ID: "spotify:track:a2", Name: "Coffee", Artist: "Air", Year: 2004, Duration: 200},
		{ID: "spotify:track:b1", Name: "Walk", Artist: "Bonobo", Year: 2010, Duration: 300},
	})
	require.NoError(t, err)
}

func TestCacheList(t *testing.T) {
	env := newTestEnv(t)
	seedTracks(t, env)

	stdout, _, err := execute(NewCacheCommand(env.root), "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Air - Sunrise (2001) 4:05")
	assert.Contains(t, stdout, "Bonobo - Walk (2010) 5:00")
	assert.Contains(t, stdout, "3 of 3 cached tracks")
}

func TestCacheQuery(t *testing.T) {
	env := newTestEnv(t)
	seedTracks(t, env)

	stdout, _, err := execute(NewCacheCommand(env.root), "query", `year=span(2000, 2005), artist="Air"`)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sunrise")
	assert.Contains(t, stdout, "Coffee")
	assert.NotContains(t, stdout, "Walk")
	assert.Contains(t, stdout, "2 of 3 cached tracks")
}

func TestCacheQueryVerboseNamesFilterFields(t *testing.T) {
	env := newTestEnv(t)
	env.root.Verbose = true
	seedTracks(t, env)

	_, stderr, err := execute(NewCacheCommand(env.root), "query", `year=span(2000, 2005), artist="Air"`)
	require.NoError(t, err)
	assert.Contains(t, stderr, "filter on year, artist:")
}

func TestCacheQueryJSON(t *testing.T) {
	env := newTestEnv(t)
	env.root.Format = "json"
	seedTracks(t, env)

	stdout, _, err := execute(NewCacheCommand(env.root), "query", "year=span(2005, None)")
	require.NoError(t, err)

	var resp struct {
		Data []catalog.TrackInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "spotify:track:b1", resp.Data[0].ID)
}

func TestCacheQueryInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		filter string
	}{
		{"syntax", "year=span(2000,"},
		{"unknown field", "colour=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(NewCacheCommand(env.root), "query", tt.filter)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stderr, "invalid_filter")
		})
	}
}

func TestCacheAlias(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := execute(NewCacheCommand(env.root), "alias", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No aliases.")

	stdout, _, err = execute(NewCacheCommand(env.root), "alias", "set", "Sunday", "pl-sunday")
	require.NoError(t, err)
	assert.Contains(t, stdout, `alias "Sunday" set`)

	stdout, _, err = execute(NewCacheCommand(env.root), "alias", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sunday -> pl-sunday")

	_, _, err = execute(NewCacheCommand(env.root), "alias", "delete", "SUNDAY")
	require.NoError(t, err)

	_, _, err = execute(NewCacheCommand(env.root), "alias", "delete", "sunday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no alias named "sunday"`)
}

func TestCacheAliasJSON(t *testing.T) {
	env := newTestEnv(t)
	env.root.Format = "json"

	_, _, err := execute(NewCacheCommand(env.root), "alias", "set", "gym", "pl-gym")
	require.NoError(t, err)

	stdout, _, err := execute(NewCacheCommand(env.root), "alias", "list")
	require.NoError(t, err)

	var resp struct {
		Data []store.Alias `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, []store.Alias{{Name: "gym", PlaylistID: "pl-gym"}}, resp.Data)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "4:05", formatDuration(245))
	assert.Equal(t, "61:01", formatDuration(3661))
}
