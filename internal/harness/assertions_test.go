package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: "var", Line: 1, Seq: 1, Payload: ir.IRObject{"name": ir.IRString("n"), "value": ir.IRString("2.0")}},
		{Type: "branch", Line: 2, Seq: 2, Payload: ir.IRObject{"keyword": ir.IRString("if"), "taken": ir.IRBool(true)}},
		{Type: "play", Line: 3, Seq: 3, Payload: ir.IRObject{"id": ir.IRString("t1"), "name": ir.IRString("One")}},
		{Type: "play", Line: 3, Seq: 4, Payload: ir.IRObject{"id": ir.IRString("t2"), "name": ir.IRString("Two")}},
		{Type: "quit", Line: 5, Seq: 5, Payload: ir.IRObject{}},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"type only", Assertion{Event: "quit"}, false},
		{"payload subset", Assertion{Event: "play", Payload: map[string]interface{}{"id": "t2"}}, false},
		{"bool payload", Assertion{Event: "branch", Payload: map[string]interface{}{"taken": true}}, false},
		{"on line", Assertion{Event: "play", Line: 3, Payload: map[string]interface{}{"name": "One"}}, false},
		{"wrong line", Assertion{Event: "play", Line: 4}, true},
		{"wrong value", Assertion{Event: "play", Payload: map[string]interface{}{"id": "t9"}}, true},
		{"missing key", Assertion{Event: "var", Payload: map[string]interface{}{"scope": "global"}}, true},
		{"absent type", Assertion{Event: "jump"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(trace, tt.assertion)
			if tt.wantErr {
				var aerr *AssertionError
				require.ErrorAs(t, err, &aerr)
				assert.Equal(t, "trace_contains", aerr.Type)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertTraceContains_FloatPayloadRejected(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{Event: "var", Payload: map[string]interface{}{"value": 2.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-integral")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"var", "play", "quit"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"play", "play"}}))

	err := assertTraceOrder(trace, Assertion{Events: []string{"quit", "var"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing var")

	err = assertTraceOrder(trace, Assertion{Events: []string{"play", "play", "play"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched 2 of 3")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "play", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "jump", Count: 0}))

	err := assertTraceCount(trace, Assertion{Event: "play", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 occurrences of play")
	assert.Contains(t, err.Error(), "Actual: 2 occurrences")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := assertTraceCount(sampleTrace(), Assertion{Event: "var", Count: 2})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, `[3] line 3 play`)
}

func newStateStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.BeginRun(ctx, store.Run{ID: "r1", Script: "evening", StartedAt: start, Status: store.StatusRunning}))
	require.NoError(t, st.FinishRun(ctx, "r1", store.StatusCompleted, start.Add(time.Minute), ""))
	require.NoError(t, st.BeginRun(ctx, store.Run{ID: "r2", Script: "evening", StartedAt: start, Status: store.StatusRunning}))
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := newStateStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "match",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"status": "completed", "script": "evening"}},
		},
		{
			name:      "row not found",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "r9"}, Expect: map[string]interface{}{"status": "completed"}},
			wantErr:   "row not found",
		},
		{
			name:      "ambiguous",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"script": "evening"}, Expect: map[string]interface{}{"status": "completed"}},
			wantErr:   "multiple rows matched",
		},
		{
			name:      "value mismatch",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "r2"}, Expect: map[string]interface{}{"status": "completed"}},
			wantErr:   `field "status" = running`,
		},
		{
			name:      "unknown column",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"mood": "calm"}},
			wantErr:   `field "mood" not present`,
		},
		{
			name:      "invalid table",
			assertion: Assertion{Table: "runs; DROP TABLE runs", Expect: map[string]interface{}{"id": "r1"}},
			wantErr:   "invalid table name",
		},
		{
			name:      "invalid column",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id = id OR 1": 1}, Expect: map[string]interface{}{"id": "r1"}},
			wantErr:   "invalid column name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", "a"))
	assert.True(t, stateValuesEqual("a", []byte("a")))
	assert.True(t, stateValuesEqual(3, int64(3)))
	assert.True(t, stateValuesEqual(int64(3), int64(3)))
	assert.True(t, stateValuesEqual(3.0, int64(3)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(nil, nil))

	assert.False(t, stateValuesEqual("3", int64(3)))
	assert.False(t, stateValuesEqual(3, "3"))
	assert.False(t, stateValuesEqual(false, int64(1)))
	assert.False(t, stateValuesEqual(nil, "a"))
}

func TestBuildWhereClause_SortedKeys(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]interface{}{"status": "quit", "id": "r1", "line": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "id = ? AND line = ? AND status = ?", sql)
	assert.Equal(t, []interface{}{"r1", int64(2), "quit"}, args)
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Event: "play", Count: 2},
		{Type: AssertTraceCount, Event: "play", Count: 1},
		{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"id": "x"}},
		{Type: "trace_magic"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], "final_state requires database context")
	assert.Contains(t, errs[2], `unknown assertion type "trace_magic"`)
}

func TestCheckExpect_Warnings(t *testing.T) {
	result := NewResult()
	result.Status = "completed"
	result.Warnings = []string{"jump target end was never reached"}

	checkExpect(result, &Expect{Warnings: []string{"end was never reached"}})
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	checkExpect(result, &Expect{Warnings: []string{"if block"}})
	assert.False(t, result.Pass)
}
