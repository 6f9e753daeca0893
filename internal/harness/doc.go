// Package harness runs playback scripts as conformance scenarios.
//
// A scenario pairs a script with an in-memory catalog, runs it through the
// real interpreter against a fake playback sink and an in-memory SQLite
// store, and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed: 7
//	script: |
//	  var n = 2
//	  play n from playlist("Mix")
//	catalog:
//	  tracks:
//	    - {id: "spotify:track:a", name: "A", artist: "X", year: 2001}
//	  playlists:
//	    - {id: "pl-mix", name: "Mix", tracks: ["spotify:track:a"]}
//	  aliases: {gym: "pl-mix"}
//	session: {inactive: true}
//	expect:
//	  status: completed
//	  played_count: 1
//	  vars: {n: 2}
//	assertions:
//	  - type: trace_contains
//	    event: play
//	    payload: {id: "spotify:track:a"}
//	  - type: final_state
//	    table: tracks
//	    where: {id: "spotify:track:a"}
//	    expect: {name: "A"}
//
// script_file may name a script relative to the scenario file instead of
// inlining it.
//
// # Assertion Types
//
//   - trace_contains: an event of a type, optionally on a line, with matching payload fields
//   - trace_order: event types appear in the given order
//   - trace_count: an event type appears exactly N times
//   - final_state: queries a store table and verifies expected values
//
// # Deterministic Testing
//
// Every run uses a seeded random source, a fixed now(), sequential run ids
// derived from the scenario name and a fresh in-memory database, so the
// same scenario always produces the same trace. RunWithGolden compares
// that trace against testdata/golden/<name>.golden.
package harness
