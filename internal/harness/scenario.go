package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/playscript/internal/catalog"
)

// Scenario runs one script against a fixture catalog and checks the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is the script text. ScriptFile, relative to the scenario file,
	// may be used instead.
	Script     string `yaml:"script,omitempty"`
	ScriptFile string `yaml:"script_file,omitempty"`

	// Seed fixes the random source used by track selection and rand().
	Seed uint64 `yaml:"seed,omitempty"`

	// Catalog is the in-memory music catalog the script resolves against.
	Catalog Fixture `yaml:"catalog"`

	// Session configures the fake playback service.
	Session Session `yaml:"session,omitempty"`

	// Expect checks the run outcome.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate the trace and final store state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Fixture describes a catalog. Track ids referenced by albums and
// playlists must be listed under tracks.
type Fixture struct {
	Tracks    []catalog.TrackInfo `yaml:"tracks"`
	Albums    []AlbumFixture      `yaml:"albums,omitempty"`
	Artists   []ArtistFixture     `yaml:"artists,omitempty"`
	Playlists []PlaylistFixture   `yaml:"playlists,omitempty"`
	Aliases   map[string]string   `yaml:"aliases,omitempty"`
}

// AlbumFixture is an album and its track ids.
type AlbumFixture struct {
	catalog.AlbumInfo `yaml:",inline"`
	TrackIDs          []string `yaml:"tracks"`
}

// ArtistFixture is an artist and its album ids.
type ArtistFixture struct {
	catalog.ArtistInfo `yaml:",inline"`
	AlbumIDs           []string `yaml:"albums"`
}

// PlaylistFixture is a named playlist.
type PlaylistFixture struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	TrackIDs []string `yaml:"tracks"`
}

// Session configures the fake playback sink.
type Session struct {
	// Inactive starts the run with no playback session, so the first
	// enqueue has to start one.
	Inactive bool `yaml:"inactive,omitempty"`

	// FailStart makes starting a session fail.
	FailStart bool `yaml:"fail_start,omitempty"`
}

// Expect specifies the expected run outcome. Unset fields are not checked.
type Expect struct {
	// Status is completed, quit or failed.
	Status string `yaml:"status,omitempty"`

	// Played is the exact sequence of queued track ids.
	Played []string `yaml:"played,omitempty"`

	// PlayedCount is the number of queued tracks.
	PlayedCount *int `yaml:"played_count,omitempty"`

	// Vars are expected variable values (subset match).
	Vars map[string]float64 `yaml:"vars,omitempty"`

	// Error describes the expected diagnostic.
	Error *ExpectError `yaml:"error,omitempty"`

	// Warnings are substrings each matched by one end-of-run warning.
	Warnings []string `yaml:"warnings,omitempty"`
}

// ExpectError describes an expected script failure.
type ExpectError struct {
	Kind    string `yaml:"kind"`
	Line    int    `yaml:"line,omitempty"`
	Message string `yaml:"message,omitempty"` // substring
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event of the given type with a matching payload
	// - "trace_order": event types appear in order
	// - "trace_count": an event type appears exactly N times
	// - "final_state": query a store table and verify expected values
	Type string `yaml:"type"`

	// Event is the event type (used by trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Payload holds expected payload fields (trace_contains, subset match).
	Payload map[string]interface{} `yaml:"payload,omitempty"`

	// Line restricts trace_contains to events raised by that line.
	Line int `yaml:"line,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected event type order (used by trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.ScriptFile != "" {
		if scenario.Script != "" {
			return nil, fmt.Errorf("invalid scenario: script and script_file are mutually exclusive")
		}
		scriptPath := scenario.ScriptFile
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(filepath.Dir(path), scriptPath)
		}
		text, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: script file: %w", err)
		}
		scenario.Script = string(text)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if strings.TrimSpace(s.Script) == "" {
		return fmt.Errorf("script or script_file is required")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if err := validateFixture(&s.Catalog); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	if s.Expect != nil {
		switch s.Expect.Status {
		case "", "completed", "quit", "failed":
		default:
			return fmt.Errorf("expect.status: unknown status %q", s.Expect.Status)
		}
		if s.Expect.Error != nil && s.Expect.Error.Kind == "" {
			return fmt.Errorf("expect.error: kind is required")
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateFixture checks ids are present and references resolve.
func validateFixture(f *Fixture) error {
	tracks := make(map[string]bool, len(f.Tracks))
	for i, t := range f.Tracks {
		if t.ID == "" {
			return fmt.Errorf("tracks[%d]: id is required", i)
		}
		if tracks[t.ID] {
			return fmt.Errorf("tracks[%d]: duplicate id %q", i, t.ID)
		}
		tracks[t.ID] = true
	}

	albums := make(map[string]bool, len(f.Albums))
	for i, a := range f.Albums {
		if a.ID == "" {
			return fmt.Errorf("albums[%d]: id is required", i)
		}
		albums[a.ID] = true
		for _, id := range a.TrackIDs {
			if !tracks[id] {
				return fmt.Errorf("albums[%d]: unknown track %q", i, id)
			}
		}
	}

	for i, a := range f.Artists {
		if a.ID == "" {
			return fmt.Errorf("artists[%d]: id is required", i)
		}
		for _, id := range a.AlbumIDs {
			if !albums[id] {
				return fmt.Errorf("artists[%d]: unknown album %q", i, id)
			}
		}
	}

	for i, p := range f.Playlists {
		if p.ID == "" {
			return fmt.Errorf("playlists[%d]: id is required", i)
		}
		for _, id := range p.TrackIDs {
			if !tracks[id] {
				return fmt.Errorf("playlists[%d]: unknown track %q", i, id)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// Source builds a MemorySource from the fixture.
func (f *Fixture) Source() *catalog.MemorySource {
	src := catalog.NewMemorySource()
	src.AddTracks(f.Tracks...)
	for _, a := range f.Albums {
		src.AddAlbum(a.AlbumInfo, a.TrackIDs...)
	}
	for _, a := range f.Artists {
		src.AddArtist(a.ArtistInfo, a.AlbumIDs...)
	}
	for _, p := range f.Playlists {
		src.AddPlaylist(p.ID, p.Name, p.TrackIDs...)
	}
	return src
}
