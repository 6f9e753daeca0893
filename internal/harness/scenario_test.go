package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
seed: 3
script: |
  play 1 from playlist("Mix")
catalog:
  tracks:
    - {id: "t1", name: "One", artist: "A", year: 2000, duration: 60, position: 1, popularity: 40}
  albums:
    - {id: "al1", name: "Album", artist: "A", year: 2000, tracks: ["t1"]}
  artists:
    - {id: "ar1", name: "A", followers: 10, genres: [rock], albums: ["al1"]}
  playlists:
    - {id: "pl1", name: "Mix", tracks: ["t1"]}
  aliases:
    gym: pl1
session:
  inactive: true
expect:
  status: completed
  played: ["t1"]
assertions:
  - type: trace_contains
    event: play
    payload: {id: "t1"}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, uint64(3), scenario.Seed)
	assert.True(t, scenario.Session.Inactive)
	require.Len(t, scenario.Catalog.Tracks, 1)
	assert.Equal(t, int64(40), scenario.Catalog.Tracks[0].Popularity)
	require.Len(t, scenario.Catalog.Albums, 1)
	assert.Equal(t, "Album", scenario.Catalog.Albums[0].Name)
	assert.Equal(t, []string{"t1"}, scenario.Catalog.Albums[0].TrackIDs)
	require.Len(t, scenario.Catalog.Artists, 1)
	assert.Equal(t, []string{"rock"}, scenario.Catalog.Artists[0].Genres)
	assert.Equal(t, "pl1", scenario.Catalog.Aliases["gym"])
	assert.Equal(t, []string{"t1"}, scenario.Expect.Played)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_ScriptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evening.txt"), []byte("var a = 1\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: from_file
description: "script read from a file"
script_file: evening.txt
expect:
  vars: {a: 1}
`), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "var a = 1\n", scenario.Script)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "misspelled assertions"
script: "pass"
assertion:
  - type: trace_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := map[string]struct {
		content string
		want    string
	}{
		"missing name": {
			content: "description: d\nscript: pass\nexpect: {status: completed}\n",
			want:    "name is required",
		},
		"missing description": {
			content: "name: n\nscript: pass\nexpect: {status: completed}\n",
			want:    "description is required",
		},
		"missing script": {
			content: "name: n\ndescription: d\nexpect: {status: completed}\n",
			want:    "script or script_file is required",
		},
		"nothing to check": {
			content: "name: n\ndescription: d\nscript: pass\n",
			want:    "expect or assertions is required",
		},
		"unknown status": {
			content: "name: n\ndescription: d\nscript: pass\nexpect: {status: done}\n",
			want:    `unknown status "done"`,
		},
		"error without kind": {
			content: "name: n\ndescription: d\nscript: pass\nexpect: {error: {line: 1}}\n",
			want:    "expect.error: kind is required",
		},
		"unknown track in playlist": {
			content: "name: n\ndescription: d\nscript: pass\nexpect: {status: completed}\ncatalog:\n  playlists:\n    - {id: p, name: P, tracks: [missing]}\n",
			want:    `playlists[0]: unknown track "missing"`,
		},
		"duplicate track": {
			content: "name: n\ndescription: d\nscript: pass\nexpect: {status: completed}\ncatalog:\n  tracks:\n    - {id: a}\n    - {id: a}\n",
			want:    `tracks[1]: duplicate id "a"`,
		},
		"unknown album for artist": {
			content: "name: n\ndescription: d\nscript: pass\nexpect: {status: completed}\ncatalog:\n  artists:\n    - {id: ar, name: A, albums: [nope]}\n",
			want:    `artists[0]: unknown album "nope"`,
		},
		"unknown assertion type": {
			content: "name: n\ndescription: d\nscript: pass\nassertions:\n  - type: trace_magic\n",
			want:    `unknown assertion type "trace_magic"`,
		},
		"trace_contains without event": {
			content: "name: n\ndescription: d\nscript: pass\nassertions:\n  - type: trace_contains\n",
			want:    "event is required for trace_contains",
		},
		"trace_order without events": {
			content: "name: n\ndescription: d\nscript: pass\nassertions:\n  - type: trace_order\n",
			want:    "events list is required for trace_order",
		},
		"negative count": {
			content: "name: n\ndescription: d\nscript: pass\nassertions:\n  - {type: trace_count, event: play, count: -1}\n",
			want:    "count must be non-negative",
		},
		"final_state without expect": {
			content: "name: n\ndescription: d\nscript: pass\nassertions:\n  - {type: final_state, table: runs}\n",
			want:    "expect is required for final_state",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ScriptAndScriptFile(t *testing.T) {
	path := writeScenario(t, "name: n\ndescription: d\nscript: pass\nscript_file: x.txt\nexpect: {status: completed}\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestFixture_Source(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
catalog:
  tracks:
    - {id: t1, name: One}
    - {id: t2, name: Two}
  albums:
    - {id: al1, name: Both, tracks: [t1, t2]}
  playlists:
    - {id: pl1, name: Mix, tracks: [t2]}
`))
	require.NoError(t, err)

	src := scenario.Catalog.Source()
	assert.Len(t, src.Tracks, 2)
	require.Len(t, src.Albums, 1)
	assert.Equal(t, int64(2), src.Albums[0].Length)
	assert.Equal(t, []string{"t2"}, src.Playlists["pl1"])
	assert.Equal(t, "Mix", src.PlaylistNames["pl1"])
}
