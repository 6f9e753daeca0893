package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/queryir"
)

// TrackColumns are the columns of the tracks table a predicate may name.
var TrackColumns = []string{"id", "name", "artist", "year", "duration", "position", "popularity"}

// SQLCompiler compiles predicates to parameterized SQL over the track cache.
//
// Every query carries ORDER BY id COLLATE BINARY so results are stable.
// Values are always bound as parameters, never interpolated.
type SQLCompiler struct {
	// Table is the table queried. Defaults to "tracks".
	Table string

	// Columns is the allow-list of columns a predicate may reference.
	Columns []string
}

// NewSQLCompiler creates a compiler for the tracks table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		Table:   "tracks",
		Columns: TrackColumns,
	}
}

// Compile converts a predicate to a SELECT over the compiler's table.
// A nil predicate selects every row. Returns (sql, params, error).
func (c *SQLCompiler) Compile(p queryir.Predicate) (string, []any, error) {
	var whereClause string
	var params []any
	if p != nil {
		filterSQL, filterParams, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(c.Columns, ", "),
		c.Table,
		whereClause,
		c.stableOrderKey())

	return sql, params, nil
}

// stableOrderKey uses COLLATE BINARY for ordering that does not depend on
// the SQLite build's collation defaults.
func (c *SQLCompiler) stableOrderKey() string {
	return "id ASC COLLATE BINARY"
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case queryir.Within:
		return c.compileWithin(pred)
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) column(field string) (string, error) {
	if !slices.Contains(c.Columns, field) {
		return "", fmt.Errorf("unknown column %q", field)
	}
	return field, nil
}

// compileEquals compiles an Equals predicate to "field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	col, err := c.column(eq.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	if param == nil {
		return col + " IS NULL", nil, nil
	}
	return col + " = ?", []any{param}, nil
}

// compileWithin compiles a span to one or two inclusive comparisons.
// CAST keeps text-typed numbers comparable as integers.
func (c *SQLCompiler) compileWithin(w queryir.Within) (string, []any, error) {
	col, err := c.column(w.Field)
	if err != nil {
		return "", nil, err
	}
	expr := fmt.Sprintf("CAST(%s AS INTEGER)", col)
	switch {
	case w.Span.IsAny():
		return col + " IS NOT NULL", nil, nil
	case w.Span.Lower == nil:
		return expr + " <= ?", []any{*w.Span.Upper}, nil
	case w.Span.Upper == nil:
		return expr + " >= ?", []any{*w.Span.Lower}, nil
	default:
		return expr + " BETWEEN ? AND ?", []any{*w.Span.Lower, *w.Span.Upper}, nil
	}
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// irValueToParam converts an ir.IRValue to a Go native SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
