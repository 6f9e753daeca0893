package expr

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/queryir"
)

// BuiltinNames lists the functions available to every expression.
var BuiltinNames = []string{
	"abs", "ceil", "choice", "choose", "float", "floor", "int", "len",
	"max", "min", "now", "rand", "randint", "random", "round", "span",
}

type builtinFunc func(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error)

func (e *Evaluator) newBuiltins() map[string]*Func {
	fns := map[string]builtinFunc{
		"rand":    e.builtinRandom,
		"random":  e.builtinRandom,
		"randint": e.builtinRandint,
		"choice":  e.builtinChoice,
		"choose":  e.builtinChoose,
		"now":     e.builtinNow,
		"floor":   builtinFloor,
		"ceil":    builtinCeil,
		"len":     builtinLen,
		"int":     builtinInt,
		"float":   builtinFloat,
		"abs":     builtinAbs,
		"min":     builtinMin,
		"max":     builtinMax,
		"round":   builtinRound,
		"span":    builtinSpan,
	}
	out := make(map[string]*Func, len(fns))
	for name, fn := range fns {
		out[name] = &Func{Name: name, Call: fn}
	}
	return out
}

func arity(name string, args []Value, kwargs []NamedValue, lo, hi int) error {
	if len(kwargs) > 0 {
		return diag.Errorf(diag.KindType, "%s() takes no keyword arguments", name)
	}
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return diag.Errorf(diag.KindType, "%s() takes %d arguments (%d given)", name, lo, len(args))
		}
		return diag.Errorf(diag.KindType, "%s() takes %d to %d arguments (%d given)", name, lo, hi, len(args))
	}
	return nil
}

func number(name string, v Value) (float64, error) {
	f, ok := numeric(v)
	if !ok {
		return 0, diag.Errorf(diag.KindType, "%s() argument must be a number, not %s", name, TypeName(v))
	}
	return f, nil
}

func (e *Evaluator) builtinRandom(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("random", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return Number(e.rng.Float64()), nil
}

func (e *Evaluator) builtinRandint(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("randint", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	a, ok1 := integral(args[0])
	b, ok2 := integral(args[1])
	if !ok1 || !ok2 {
		return nil, diag.Errorf(diag.KindValue, "randint() arguments must be integers")
	}
	if a > b {
		return nil, diag.Errorf(diag.KindValue, "empty range for randint(%d, %d)", a, b)
	}
	return Number(a + e.rng.Int64N(b-a+1)), nil
}

// sequence returns the items of a list, string or collection.
func sequence(ctx context.Context, name string, v Value) ([]Value, error) {
	switch x := v.(type) {
	case List:
		return x, nil
	case String:
		rs := []rune(string(x))
		out := make([]Value, len(rs))
		for i, r := range rs {
			out[i] = String(r)
		}
		return out, nil
	case EntityValue:
		c, err := asCollection(ctx, x.Entity)
		if err != nil {
			return nil, diag.Errorf(diag.KindType, "%s() argument must be a sequence, not %s", name, TypeName(v))
		}
		items := c.Items()
		out := make([]Value, len(items))
		for i, it := range items {
			out[i] = EntityValue{Entity: it}
		}
		return out, nil
	}
	return nil, diag.Errorf(diag.KindType, "%s() argument must be a sequence, not %s", name, TypeName(v))
}

func (e *Evaluator) pick(name string, items []Value) (Value, error) {
	if len(items) == 0 {
		return nil, diag.Errorf(diag.KindValue, "cannot %s from an empty sequence", name)
	}
	return items[e.rng.IntN(len(items))], nil
}

func (e *Evaluator) builtinChoice(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("choice", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(ctx, "choice", args[0])
	if err != nil {
		return nil, err
	}
	return e.pick("choice", items)
}

// builtinChoose returns a lone string argument unchanged, picks from a lone
// list argument, and otherwise picks one of its arguments.
func (e *Evaluator) builtinChoose(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if len(kwargs) > 0 {
		return nil, diag.Errorf(diag.KindType, "choose() takes no keyword arguments")
	}
	if len(args) == 1 {
		switch a := args[0].(type) {
		case String:
			return a, nil
		case List, EntityValue:
			items, err := sequence(ctx, "choose", a)
			if err != nil {
				return nil, err
			}
			return e.pick("choose", items)
		}
		return args[0], nil
	}
	return e.pick("choose", args)
}

func (e *Evaluator) builtinNow(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("now", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	t := e.now()
	// Monday is 0.
	weekday := (int(t.Weekday()) + 6) % 7
	return Record{
		"year":    Number(t.Year()),
		"month":   Number(t.Month()),
		"day":     Number(t.Day()),
		"hour":    Number(t.Hour()),
		"minute":  Number(t.Minute()),
		"second":  Number(t.Second()),
		"weekday": Number(weekday),
	}, nil
}

func builtinFloor(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("floor", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	f, err := number("floor", args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Floor(f)), nil
}

func builtinCeil(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("ceil", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	f, err := number("ceil", args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Ceil(f)), nil
}

func builtinLen(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("len", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case List:
		return Number(len(x)), nil
	case String:
		return Number(len([]rune(string(x)))), nil
	case Record:
		return Number(len(x)), nil
	case EntityValue:
		if s, ok := x.Entity.(catalog.Sized); ok {
			return Number(s.Len()), nil
		}
	}
	return nil, diag.Errorf(diag.KindType, "object of type %s has no len()", TypeName(args[0]))
}

func builtinInt(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("int", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(String); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
		if err != nil {
			return nil, diag.Errorf(diag.KindValue, "invalid literal for int(): %q", string(s))
		}
		return Number(n), nil
	}
	f, err := number("int", args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Trunc(f)), nil
}

func builtinFloat(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("float", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	f, err := ToFloat(args[0])
	if err != nil {
		return nil, err
	}
	return Number(f), nil
}

func builtinAbs(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("abs", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	f, err := number("abs", args[0])
	if err != nil {
		return nil, err
	}
	return Number(math.Abs(f)), nil
}

func extremum(ctx context.Context, name string, args []Value, kwargs []NamedValue, better func(a, b float64) bool) (Value, error) {
	if len(kwargs) > 0 {
		return nil, diag.Errorf(diag.KindType, "%s() takes no keyword arguments", name)
	}
	items := args
	if len(args) == 1 {
		seq, err := sequence(ctx, name, args[0])
		if err != nil {
			return nil, err
		}
		items = seq
	}
	if len(items) == 0 {
		return nil, diag.Errorf(diag.KindValue, "%s() arg is an empty sequence", name)
	}
	best := items[0]
	bf, err := number(name, best)
	if err != nil {
		return nil, err
	}
	for _, it := range items[1:] {
		f, err := number(name, it)
		if err != nil {
			return nil, err
		}
		if better(f, bf) {
			best, bf = it, f
		}
	}
	return best, nil
}

func builtinMin(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	return extremum(ctx, "min", args, kwargs, func(a, b float64) bool { return a < b })
}

func builtinMax(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	return extremum(ctx, "max", args, kwargs, func(a, b float64) bool { return a > b })
}

// builtinRound rounds half to even.
func builtinRound(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if err := arity("round", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	f, err := number("round", args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return Number(math.RoundToEven(f)), nil
	}
	digits, ok := integral(args[1])
	if !ok {
		return nil, diag.Errorf(diag.KindType, "round() digits must be an integer")
	}
	scale := math.Pow(10, float64(digits))
	return Number(math.RoundToEven(f*scale) / scale), nil
}

// builtinSpan builds a range from lower and upper bounds given by position
// or by name. None leaves an end open.
func builtinSpan(_ context.Context, args []Value, kwargs []NamedValue) (Value, error) {
	if len(args) > 2 {
		return nil, diag.Errorf(diag.KindType, "span() takes at most 2 arguments (%d given)", len(args))
	}
	bounds := map[string]Value{}
	names := []string{"lower", "upper"}
	for i, a := range args {
		bounds[names[i]] = a
	}
	for _, kw := range kwargs {
		if kw.Name != "lower" && kw.Name != "upper" {
			return nil, diag.Errorf(diag.KindType, "span() got an unexpected keyword argument '%s'", kw.Name)
		}
		if _, dup := bounds[kw.Name]; dup {
			return nil, diag.Errorf(diag.KindType, "span() got multiple values for argument '%s'", kw.Name)
		}
		bounds[kw.Name] = kw.Value
	}

	bound := func(name string) (*int64, error) {
		v, ok := bounds[name]
		if !ok {
			return nil, nil
		}
		if _, isNone := v.(None); isNone {
			return nil, nil
		}
		n, ok := integral(v)
		if !ok {
			return nil, diag.Errorf(diag.KindValue, "span() %s bound must be an integer, not %s", name, Repr(v))
		}
		return queryir.Int(n), nil
	}
	lower, err := bound("lower")
	if err != nil {
		return nil, err
	}
	upper, err := bound("upper")
	if err != nil {
		return nil, err
	}
	return SpanValue{Span: queryir.NewSpan(lower, upper)}, nil
}
