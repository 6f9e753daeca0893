package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] line %d %s %s\n", event.Seq, event.Line, event.Type, ir.Format(event.Payload))
		}
	}

	return buf.String()
}

// checkExpect compares the run outcome against the scenario's expect block.
func checkExpect(result *Result, expect *Expect) {
	if expect == nil {
		return
	}

	if expect.Status != "" && expect.Status != result.Status {
		result.AddError(fmt.Sprintf("expected status %s, got %s (%s)", expect.Status, result.Status, describeError(result)))
	}

	if expect.Played != nil && !equalStrings(expect.Played, result.Played) {
		result.AddError(fmt.Sprintf("expected played %v, got %v", expect.Played, result.Played))
	}
	if expect.PlayedCount != nil && *expect.PlayedCount != len(result.Played) {
		result.AddError(fmt.Sprintf("expected %d tracks played, got %d", *expect.PlayedCount, len(result.Played)))
	}

	for _, name := range sortedKeys(expect.Vars) {
		want := expect.Vars[name]
		got, ok := result.Vars[name]
		switch {
		case !ok:
			result.AddError(fmt.Sprintf("expected variable %s = %v, but it is not set", name, want))
		case got != want:
			result.AddError(fmt.Sprintf("expected variable %s = %v, got %v", name, want, got))
		}
	}

	if e := expect.Error; e != nil {
		switch {
		case result.ErrorKind == "":
			result.AddError(fmt.Sprintf("expected %s, but the script did not fail", e.Kind))
		case result.ErrorKind != e.Kind:
			result.AddError(fmt.Sprintf("expected %s, got %s", e.Kind, describeError(result)))
		}
		if e.Line != 0 && result.ErrorLine != e.Line {
			result.AddError(fmt.Sprintf("expected error on line %d, got line %d", e.Line, result.ErrorLine))
		}
		if e.Message != "" && !strings.Contains(result.ErrorMessage, e.Message) {
			result.AddError(fmt.Sprintf("expected error message containing %q, got %q", e.Message, result.ErrorMessage))
		}
	} else if result.ErrorKind != "" && expect.Status != "failed" {
		result.AddError(fmt.Sprintf("unexpected failure: %s", describeError(result)))
	}

	if len(expect.Warnings) != len(result.Warnings) {
		result.AddError(fmt.Sprintf("expected %d warnings, got %d: %v", len(expect.Warnings), len(result.Warnings), result.Warnings))
		return
	}
	for i, want := range expect.Warnings {
		if !strings.Contains(result.Warnings[i], want) {
			result.AddError(fmt.Sprintf("expected warning %d to contain %q, got %q", i+1, want, result.Warnings[i]))
		}
	}
}

func describeError(result *Result) string {
	if result.ErrorKind == "" {
		return "no error"
	}
	return fmt.Sprintf("%s on line %d: %s", result.ErrorKind, result.ErrorLine, result.ErrorMessage)
}

// assertTraceContains checks if the trace contains an event of the given
// type whose payload matches (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != assertion.Event {
			continue
		}
		if assertion.Line != 0 && event.Line != assertion.Line {
			continue
		}
		ok, err := matchPayload(event.Payload, assertion.Payload)
		if err != nil {
			return fmt.Errorf("trace_contains: %w", err)
		}
		if ok {
			return nil
		}
	}

	expected := fmt.Sprintf("%s event with payload %v", assertion.Event, assertion.Payload)
	if assertion.Line != 0 {
		expected += fmt.Sprintf(" on line %d", assertion.Line)
	}
	return &AssertionError{
		Type:     "trace_contains",
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if event types appear in the specified order.
// Events don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Events) && event.Type == assertion.Events[next] {
			next++
		}
	}
	if next == len(assertion.Events) {
		return nil
	}

	return &AssertionError{
		Type:     "trace_order",
		Expected: fmt.Sprintf("events in order: %v", assertion.Events),
		Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Events), assertion.Events[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks if the event type appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     "trace_count",
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// matchPayload checks if the payload contains all expected fields.
func matchPayload(actual ir.IRObject, expected map[string]interface{}) (bool, error) {
	for key, want := range expected {
		wantIR, err := ir.FromGo(want)
		if err != nil {
			return false, fmt.Errorf("payload field %q: %w", key, err)
		}
		got, ok := actual[key]
		if !ok || !ir.Equal(got, wantIR) {
			return false, nil
		}
	}
	return true, nil
}

// assertFinalState checks that a store table contains exactly one row
// matching Where, with the expected values.
//
// Table and column names are validated against a whitelist pattern since
// identifiers can't be parameterized.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     "final_state",
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     "final_state",
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     "final_state",
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for determinism.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL argument.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected YAML value with a column value.
// SQLite returns int64 for integers and string or []byte for text.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		actualInt, ok := actual.(int64)
		return ok && int64(exp) == actualInt
	case int64:
		actualInt, ok := actual.(int64)
		return ok && exp == actualInt
	case float64:
		switch a := actual.(type) {
		case float64:
			return exp == a
		case int64:
			return exp == float64(a)
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
