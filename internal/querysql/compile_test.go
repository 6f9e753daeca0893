package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/queryir"
)

func TestCompile_Equals(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Equals{Field: "artist", Value: ir.IRString("Radiohead")})
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM tracks")
	assert.Contains(t, sql, "WHERE artist = ?")
	assert.NotContains(t, sql, "Radiohead")
	assert.Equal(t, []any{"Radiohead"}, params)
	assert.Contains(t, sql, "ORDER BY id ASC COLLATE BINARY")
}

func TestCompile_NilSelectsAll(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(nil)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, name, artist, year, duration, position, popularity FROM tracks ORDER BY id ASC COLLATE BINARY",
		sql)
	assert.Empty(t, params)
}

func TestCompile_Within(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name   string
		span   queryir.Span
		where  string
		params []any
	}{
		{"closed", queryir.NewSpan(queryir.Int(2000), queryir.Int(2010)), "CAST(year AS INTEGER) BETWEEN ? AND ?", []any{int64(2000), int64(2010)}},
		{"lower only", queryir.NewSpan(queryir.Int(2000), nil), "CAST(year AS INTEGER) >= ?", []any{int64(2000)}},
		{"upper only", queryir.NewSpan(nil, queryir.Int(1999)), "CAST(year AS INTEGER) <= ?", []any{int64(1999)}},
		{"any", queryir.Span{}, "year IS NOT NULL", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(queryir.Within{Field: "year", Span: tt.span})
			require.NoError(t, err)
			assert.Contains(t, sql, "WHERE "+tt.where)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompile_AndPreservesOrder(t *testing.T) {
	p := queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "artist", Value: ir.IRString("Low")},
		queryir.Within{Field: "duration", Span: queryir.NewSpan(nil, queryir.Int(240))},
		queryir.Equals{Field: "position", Value: ir.IRInt(1)},
	}}

	sql, params, err := NewSQLCompiler().Compile(p)
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE artist = ? AND CAST(duration AS INTEGER) <= ? AND position = ?")
	assert.Equal(t, []any{"Low", int64(240), int64(1)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.And{})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_UnknownColumnRejected(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Equals{Field: "name; DROP TABLE tracks", Value: ir.IRString("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")
}

func TestCompile_NullAndBool(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Equals{Field: "name", Value: ir.IRNull{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE name IS NULL")
	assert.Empty(t, params)

	_, params, err = compiler.Compile(queryir.Equals{Field: "position", Value: ir.IRBool(true)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, params)
}

func TestCompile_RejectsCompositeValues(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Equals{Field: "name", Value: ir.Strings("a", "b")})
	require.Error(t, err)
}
