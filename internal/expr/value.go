package expr

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/queryir"
)

// Value is the result of evaluating an expression. Sealed.
type Value interface {
	value()
}

// Number is every numeric value; integers are integral floats.
type Number float64

// Bool is True or False. Bools take part in arithmetic as 0 and 1.
type Bool bool

// String is a text value.
type String string

// None is the absent value.
type None struct{}

// List is a sequence of values.
type List []Value

// EntityValue wraps a catalog entity.
type EntityValue struct{ Entity catalog.Entity }

// SpanValue is a range predicate argument built by span().
type SpanValue struct{ Span queryir.Span }

// Record is a read-only set of named fields, such as the result of now().
type Record map[string]Value

// Func is a builtin or bound method.
type Func struct {
	Name string
	Call func(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error)
}

// NamedValue is an evaluated keyword argument.
type NamedValue struct {
	Name  string
	Value Value
}

func (Number) value()      {}
func (Bool) value()        {}
func (String) value()      {}
func (None) value()        {}
func (List) value()        {}
func (EntityValue) value() {}
func (SpanValue) value()   {}
func (Record) value()      {}
func (*Func) value()       {}

// TypeName names the type of v in diagnostics.
func TypeName(v Value) string {
	switch x := v.(type) {
	case Number:
		return "number"
	case Bool:
		return "bool"
	case String:
		return "str"
	case None:
		return "None"
	case List:
		return "list"
	case EntityValue:
		return string(x.Entity.Kind())
	case SpanValue:
		return "span"
	case Record:
		return "record"
	case *Func:
		return "function"
	}
	return "unknown"
}

// Repr renders v for diagnostics and the REPL.
func Repr(v Value) string {
	switch x := v.(type) {
	case Number:
		return FormatNumber(float64(x))
	case Bool:
		if x {
			return "True"
		}
		return "False"
	case String:
		return strconv.Quote(string(x))
	case None:
		return "None"
	case List:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case EntityValue:
		return x.Entity.String()
	case SpanValue:
		return x.Span.String()
	case Record:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + Repr(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Func:
		return "<function " + x.Name + ">"
	}
	return "?"
}

// FormatNumber renders a number the way the script language prints it:
// integral values keep one decimal place (5.0).
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Truthy reports the boolean value of v.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Number:
		return x != 0
	case Bool:
		return bool(x)
	case String:
		return x != ""
	case None:
		return false
	case List:
		return len(x) > 0
	case Record:
		return len(x) > 0
	case EntityValue:
		if c, ok := x.Entity.(*catalog.Collection); ok {
			return c.Len() > 0
		}
		return true
	}
	return true
}

// ToFloat converts v to a number for storage in the environment. Strings
// are parsed; anything else that is not numeric is a ValueError.
func ToFloat(v Value) (float64, error) {
	switch x := v.(type) {
	case Number:
		return float64(x), nil
	case Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, diag.Errorf(diag.KindValue, "could not convert string to float: %q", string(x))
		}
		return f, nil
	}
	return 0, diag.Errorf(diag.KindValue, "%s value %s is not a number", TypeName(v), Repr(v))
}

// numeric returns the number behind a Number or Bool.
func numeric(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// integral returns v as an int64 when it is a whole number.
func integral(v Value) (int64, bool) {
	f, ok := numeric(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// truncated converts a finite number to an integer, rounding toward zero.
func truncated(v Value) (int64, bool) {
	f, ok := numeric(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}

// FromIR converts an entity attribute to a Value.
func FromIR(v ir.IRValue) Value {
	switch x := v.(type) {
	case ir.IRInt:
		return Number(x)
	case ir.IRString:
		return String(x)
	case ir.IRBool:
		return Bool(x)
	case ir.IRArray:
		out := make(List, len(x))
		for i, e := range x {
			out[i] = FromIR(e)
		}
		return out
	case ir.IRObject:
		rec := make(Record, len(x))
		for k, e := range x {
			rec[k] = FromIR(e)
		}
		return rec
	}
	return None{}
}

// ToIR converts a predicate argument to an attribute value. Numbers must be
// integral.
func ToIR(v Value) (ir.IRValue, error) {
	switch x := v.(type) {
	case Number:
		n, ok := integral(x)
		if !ok {
			return nil, diag.Errorf(diag.KindValue, "filter value %s is not an integer", Repr(v))
		}
		return ir.IRInt(n), nil
	case Bool:
		return ir.IRBool(x), nil
	case String:
		return ir.IRString(x), nil
	case None:
		return ir.IRNull{}, nil
	}
	return nil, diag.Errorf(diag.KindType, "cannot filter by %s value", TypeName(v))
}

// Equal compares two values. Numbers and bools compare numerically;
// entities compare by kind and id.
func Equal(a, b Value) bool {
	if x, ok := numeric(a); ok {
		y, ok := numeric(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case None:
		_, ok := b.(None)
		return ok
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case EntityValue:
		y, ok := b.(EntityValue)
		if !ok {
			return false
		}
		return sameEntity(x.Entity, y.Entity)
	case SpanValue:
		y, ok := b.(SpanValue)
		return ok && x.Span.String() == y.Span.String()
	}
	return false
}

func sameEntity(a, b catalog.Entity) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() || a.Kind() == catalog.KindCollection {
		return false
	}
	return ir.Equal(a.Attrs()["id"], b.Attrs()["id"])
}
