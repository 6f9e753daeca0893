package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario run.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts the snapshot to a map for canonical JSON.
// Variable values are rendered the way scripts print them since canonical
// JSON has no floats.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Result.Trace))
	for i, event := range s.Result.Trace {
		traceList[i] = map[string]any{
			"type":    event.Type,
			"line":    event.Line,
			"seq":     event.Seq,
			"payload": event.Payload,
		}
	}

	played := make([]any, len(s.Result.Played))
	for i, id := range s.Result.Played {
		played[i] = id
	}

	vars := make(map[string]any, len(s.Result.Vars))
	for name, v := range s.Result.Vars {
		vars[name] = expr.FormatNumber(v)
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.Result.RunID,
		"status":        s.Result.Status,
		"played":        played,
		"vars":          vars,
		"trace":         traceList,
	}
	if len(s.Result.Warnings) > 0 {
		warnings := make([]any, len(s.Result.Warnings))
		for i, w := range s.Result.Warnings {
			warnings[i] = w
		}
		result["warnings"] = warnings
	}
	if s.Result.ErrorKind != "" {
		result["error"] = map[string]any{
			"kind":    s.Result.ErrorKind,
			"line":    s.Result.ErrorLine,
			"message": s.Result.ErrorMessage,
		}
	}
	return result
}

// Canonical returns the snapshot as canonical JSON, the golden file format.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
