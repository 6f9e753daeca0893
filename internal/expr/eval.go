package expr

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/queryir"
)

// Resolver resolves catalog queries. *catalog.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, kind catalog.Kind, q any) (catalog.Entity, error)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRand sets the random source used by rand, randint and choice.
func WithRand(r *rand.Rand) Option {
	return func(e *Evaluator) {
		e.rng = r
	}
}

// WithClock sets the time source used by now().
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// Evaluator evaluates expressions against an environment and a catalog.
type Evaluator struct {
	env      *Env
	resolver Resolver
	rng      *rand.Rand
	now      func() time.Time
	builtins map[string]*Func
}

// New creates an Evaluator. resolver may be nil when no catalog is
// available; catalog queries then fail with LookupError.
func New(env *Env, resolver Resolver, opts ...Option) *Evaluator {
	if env == nil {
		env = NewEnv()
	}
	e := &Evaluator{
		env:      env,
		resolver: resolver,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builtins = e.newBuiltins()
	return e
}

// Env returns the evaluator's environment.
func (e *Evaluator) Env() *Env { return e.env }

// Rand returns the evaluator's random source.
func (e *Evaluator) Rand() *rand.Rand { return e.rng }

// EvalString parses and evaluates src.
func (e *Evaluator) EvalString(ctx context.Context, src string, dialect Dialect) (Value, error) {
	n, err := Parse(src, dialect)
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, n)
}

// Number evaluates a var expression in the native dialect and coerces the
// result to a number.
func (e *Evaluator) Number(ctx context.Context, src string) (float64, error) {
	v, err := e.EvalString(ctx, src, Native)
	if err != nil {
		return 0, err
	}
	return ToFloat(v)
}

// Condition evaluates an if/elseif condition in the script dialect.
func (e *Evaluator) Condition(ctx context.Context, src string) (bool, error) {
	v, err := e.EvalString(ctx, src, Script)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Query evaluates an expression that must denote a catalog entity.
func (e *Evaluator) Query(ctx context.Context, src string) (catalog.Entity, error) {
	v, err := e.EvalString(ctx, src, Native)
	if err != nil {
		return nil, err
	}
	ev, ok := v.(EntityValue)
	if !ok {
		return nil, diag.Errorf(diag.KindValue, "%s is not a catalog entity", Repr(v))
	}
	return ev.Entity, nil
}

// Predicates evaluates a keyword list such as `year=span(2000, 2010)` into
// a predicate.
func (e *Evaluator) Predicates(ctx context.Context, src string) (queryir.Predicate, error) {
	kwargs, err := ParseKwargs(src, Native)
	if err != nil {
		return nil, err
	}
	named, err := e.evalKwargs(ctx, kwargs)
	if err != nil {
		return nil, err
	}
	return buildPredicate(named)
}

// Eval evaluates a parsed expression.
func (e *Evaluator) Eval(ctx context.Context, n Node) (Value, error) {
	switch x := n.(type) {
	case NumberLit:
		return Number(x.Value), nil
	case StringLit:
		return String(x.Value), nil
	case BoolLit:
		return Bool(x.Value), nil
	case NoneLit:
		return None{}, nil
	case Ident:
		return e.lookup(x.Name)
	case ListLit:
		out := make(List, 0, len(x.Elems))
		for _, el := range x.Elems {
			v, err := e.Eval(ctx, el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case Unary:
		return e.evalUnary(ctx, x)
	case Binary:
		return e.evalBinary(ctx, x)
	case Logical:
		return e.evalLogical(ctx, x)
	case Compare:
		return e.evalCompare(ctx, x)
	case Call:
		return e.evalCall(ctx, x)
	case Attribute:
		return e.evalAttribute(ctx, x)
	case Index:
		return e.evalIndex(ctx, x)
	case Slice:
		return e.evalSlice(ctx, x)
	case CatalogQuery:
		return e.evalCatalogQuery(ctx, x)
	}
	return nil, diag.Errorf(diag.KindSyntax, "unsupported expression %T", n)
}

func (e *Evaluator) lookup(name string) (Value, error) {
	if v, ok := e.env.Get(name); ok {
		return Number(v), nil
	}
	if f, ok := e.builtins[name]; ok {
		return f, nil
	}
	if kind, ok := catalogFuncs[name]; ok {
		return e.catalogFunc(name, kind), nil
	}
	return nil, diag.Errorf(diag.KindName, "name '%s' is not defined", name)
}

func (e *Evaluator) evalUnary(ctx context.Context, u Unary) (Value, error) {
	x, err := e.Eval(ctx, u.X)
	if err != nil {
		return nil, err
	}
	if u.Op == "not" {
		return Bool(!Truthy(x)), nil
	}
	f, ok := numeric(x)
	if !ok {
		return nil, diag.Errorf(diag.KindType, "bad operand type for unary %s: %s", u.Op, TypeName(x))
	}
	if u.Op == "-" {
		return Number(-f), nil
	}
	return Number(f), nil
}

func (e *Evaluator) evalLogical(ctx context.Context, l Logical) (Value, error) {
	x, err := e.Eval(ctx, l.X)
	if err != nil {
		return nil, err
	}
	if l.Op == "and" && !Truthy(x) {
		return x, nil
	}
	if l.Op == "or" && Truthy(x) {
		return x, nil
	}
	return e.Eval(ctx, l.Y)
}

func (e *Evaluator) evalBinary(ctx context.Context, b Binary) (Value, error) {
	x, err := e.Eval(ctx, b.X)
	if err != nil {
		return nil, err
	}
	y, err := e.Eval(ctx, b.Y)
	if err != nil {
		return nil, err
	}
	return binaryOp(b.Op, x, y)
}

func binaryOp(op string, x, y Value) (Value, error) {
	if op == "+" {
		switch a := x.(type) {
		case String:
			if b, ok := y.(String); ok {
				return a + b, nil
			}
		case List:
			if b, ok := y.(List); ok {
				return append(append(List{}, a...), b...), nil
			}
		}
	}

	switch op {
	case "|", "&", "^":
		a, ok1 := integral(x)
		b, ok2 := integral(y)
		if !ok1 || !ok2 {
			return nil, unsupported(op, x, y)
		}
		switch op {
		case "|":
			return Number(a | b), nil
		case "&":
			return Number(a & b), nil
		default:
			return Number(a ^ b), nil
		}
	}

	a, ok1 := numeric(x)
	b, ok2 := numeric(y)
	if !ok1 || !ok2 {
		return nil, unsupported(op, x, y)
	}
	switch op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		if b == 0 {
			return nil, diag.Errorf(diag.KindValue, "division by zero")
		}
		return Number(a / b), nil
	case "//":
		if b == 0 {
			return nil, diag.Errorf(diag.KindValue, "division by zero")
		}
		return Number(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return nil, diag.Errorf(diag.KindValue, "division by zero")
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Number(m), nil
	case "**":
		r := math.Pow(a, b)
		if math.IsNaN(r) {
			return nil, diag.Errorf(diag.KindValue, "math domain error")
		}
		return Number(r), nil
	}
	return nil, diag.Errorf(diag.KindSyntax, "unknown operator %q", op)
}

func unsupported(op string, x, y Value) error {
	return diag.Errorf(diag.KindType, "unsupported operand types for %s: %s and %s", op, TypeName(x), TypeName(y))
}

func (e *Evaluator) evalCompare(ctx context.Context, c Compare) (Value, error) {
	left, err := e.Eval(ctx, c.Operands[0])
	if err != nil {
		return nil, err
	}
	for i, op := range c.Ops {
		right, err := e.Eval(ctx, c.Operands[i+1])
		if err != nil {
			return nil, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return Bool(false), nil
		}
		left = right
	}
	return Bool(true), nil
}

func compare(op string, x, y Value) (bool, error) {
	switch op {
	case "==":
		return Equal(x, y), nil
	case "!=":
		return !Equal(x, y), nil
	case "in":
		return contains(y, x)
	case "not in":
		ok, err := contains(y, x)
		return !ok, err
	}

	var c int
	if a, ok := numeric(x); ok {
		b, ok := numeric(y)
		if !ok {
			return false, unsupported(op, x, y)
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else if a, ok := x.(String); ok {
		b, ok := y.(String)
		if !ok {
			return false, unsupported(op, x, y)
		}
		c = strings.Compare(string(a), string(b))
	} else {
		return false, unsupported(op, x, y)
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, diag.Errorf(diag.KindSyntax, "unknown comparison %q", op)
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case List:
		for _, el := range c {
			if Equal(el, item) {
				return true, nil
			}
		}
		return false, nil
	case String:
		s, ok := item.(String)
		if !ok {
			return false, diag.Errorf(diag.KindType, "'in <str>' requires str as left operand, not %s", TypeName(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case Record:
		s, ok := item.(String)
		if !ok {
			return false, nil
		}
		_, found := c[string(s)]
		return found, nil
	case EntityValue:
		coll, ok := c.Entity.(*catalog.Collection)
		if !ok {
			return false, diag.Errorf(diag.KindType, "argument of type %s is not iterable", TypeName(container))
		}
		for _, el := range coll.Items() {
			if Equal(EntityValue{Entity: el}, item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, diag.Errorf(diag.KindType, "argument of type %s is not iterable", TypeName(container))
}

func (e *Evaluator) evalKwargs(ctx context.Context, kwargs []Kwarg) ([]NamedValue, error) {
	out := make([]NamedValue, 0, len(kwargs))
	for _, kw := range kwargs {
		v, err := e.Eval(ctx, kw.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedValue{Name: kw.Name, Value: v})
	}
	return out, nil
}

func (e *Evaluator) evalCall(ctx context.Context, c Call) (Value, error) {
	fv, err := e.Eval(ctx, c.Fun)
	if err != nil {
		return nil, err
	}
	f, ok := fv.(*Func)
	if !ok {
		return nil, diag.Errorf(diag.KindType, "%s object is not callable", TypeName(fv))
	}
	args := make([]Value, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := e.Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	kwargs, err := e.evalKwargs(ctx, c.Kwargs)
	if err != nil {
		return nil, err
	}
	return f.Call(ctx, args, kwargs)
}

func (e *Evaluator) evalCatalogQuery(ctx context.Context, q CatalogQuery) (Value, error) {
	arg, err := e.Eval(ctx, q.Arg)
	if err != nil {
		return nil, err
	}
	return e.resolve(ctx, q.Kind, arg)
}

func (e *Evaluator) resolve(ctx context.Context, kind catalog.Kind, arg Value) (Value, error) {
	var q any
	switch a := arg.(type) {
	case EntityValue:
		q = a.Entity
	case String:
		q = string(a)
	default:
		return nil, diag.Errorf(diag.KindType, "%s query must be a string, got %s", kind, TypeName(arg))
	}
	if e.resolver == nil {
		return nil, diag.Errorf(diag.KindLookup, "no catalog available to resolve %s %s", kind, Repr(arg))
	}
	ent, err := e.resolver.Resolve(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	return EntityValue{Entity: ent}, nil
}

// catalogFunc exposes a catalog namespace entry as a callable, for calls
// the parser did not fold into a CatalogQuery.
func (e *Evaluator) catalogFunc(name string, kind catalog.Kind) *Func {
	return &Func{Name: name, Call: func(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
		if len(args) != 1 || len(kwargs) != 0 {
			return nil, diag.Errorf(diag.KindType, "%s() takes exactly one argument", name)
		}
		return e.resolve(ctx, kind, args[0])
	}}
}

func (e *Evaluator) evalAttribute(ctx context.Context, a Attribute) (Value, error) {
	x, err := e.Eval(ctx, a.X)
	if err != nil {
		return nil, err
	}
	switch v := x.(type) {
	case Record:
		if f, ok := v[a.Name]; ok {
			return f, nil
		}
	case EntityValue:
		return entityAttribute(ctx, v.Entity, a.Name)
	}
	return nil, diag.Errorf(diag.KindAttribute, "%s has no attribute '%s'", TypeName(x), a.Name)
}

func entityAttribute(ctx context.Context, ent catalog.Entity, name string) (Value, error) {
	switch name {
	case "filter":
		if f, ok := ent.(catalog.Filterable); ok {
			return filterMethod(f), nil
		}
	case "tracks":
		if album, ok := ent.(*catalog.Album); ok {
			c, err := album.Tracks(ctx)
			if err != nil {
				return nil, err
			}
			return EntityValue{Entity: c}, nil
		}
	case "albums":
		if artist, ok := ent.(*catalog.Artist); ok {
			c, err := artist.Albums(ctx)
			if err != nil {
				return nil, err
			}
			return EntityValue{Entity: c}, nil
		}
	}
	v, err := catalog.Attr(ent, name)
	if err != nil {
		return nil, err
	}
	return FromIR(v), nil
}

func filterMethod(target catalog.Filterable) *Func {
	return &Func{Name: "filter", Call: func(ctx context.Context, args []Value, kwargs []NamedValue) (Value, error) {
		if len(args) > 0 {
			return nil, diag.Errorf(diag.KindType, "filter() takes keyword arguments only")
		}
		p, err := buildPredicate(kwargs)
		if err != nil {
			return nil, err
		}
		c, err := target.Filter(ctx, p)
		if err != nil {
			return nil, err
		}
		return EntityValue{Entity: c}, nil
	}}
}

// buildPredicate turns keyword arguments into a conjunction, in argument
// order. Span arguments become range predicates.
func buildPredicate(kwargs []NamedValue) (queryir.Predicate, error) {
	and := queryir.And{Predicates: make([]queryir.Predicate, 0, len(kwargs))}
	for _, kw := range kwargs {
		if s, ok := kw.Value.(SpanValue); ok {
			and.Predicates = append(and.Predicates, queryir.Within{Field: kw.Name, Span: s.Span})
			continue
		}
		v, err := ToIR(kw.Value)
		if err != nil {
			return nil, err
		}
		and.Predicates = append(and.Predicates, queryir.Equals{Field: kw.Name, Value: v})
	}
	return and, nil
}

func (e *Evaluator) evalIndex(ctx context.Context, ix Index) (Value, error) {
	x, err := e.Eval(ctx, ix.X)
	if err != nil {
		return nil, err
	}
	iv, err := e.Eval(ctx, ix.Index)
	if err != nil {
		return nil, err
	}
	if r, ok := x.(Record); ok {
		if k, ok := iv.(String); ok {
			if v, ok := r[string(k)]; ok {
				return v, nil
			}
			return nil, diag.Errorf(diag.KindAttribute, "record has no field %q", string(k))
		}
	}
	// Collections accept fractional indices, truncated toward zero.
	index := integral
	if _, ok := x.(EntityValue); ok {
		index = truncated
	}
	i, ok := index(iv)
	if !ok {
		return nil, diag.Errorf(diag.KindType, "indices must be integers, not %s", TypeName(iv))
	}
	switch v := x.(type) {
	case List:
		j, ok := normIndex(int(i), len(v))
		if !ok {
			return nil, diag.Errorf(diag.KindValue, "list index out of range")
		}
		return v[j], nil
	case String:
		rs := []rune(string(v))
		j, ok := normIndex(int(i), len(rs))
		if !ok {
			return nil, diag.Errorf(diag.KindValue, "string index out of range")
		}
		return String(rs[j]), nil
	case EntityValue:
		c, err := asCollection(ctx, v.Entity)
		if err != nil {
			return nil, err
		}
		ent, err := c.Index(int(i))
		if err != nil {
			return nil, err
		}
		return EntityValue{Entity: ent}, nil
	}
	return nil, diag.Errorf(diag.KindType, "%s object is not subscriptable", TypeName(x))
}

func normIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

func (e *Evaluator) evalSlice(ctx context.Context, s Slice) (Value, error) {
	x, err := e.Eval(ctx, s.X)
	if err != nil {
		return nil, err
	}
	lo, err := e.sliceBound(ctx, s.Lo)
	if err != nil {
		return nil, err
	}
	hi, err := e.sliceBound(ctx, s.Hi)
	if err != nil {
		return nil, err
	}

	switch v := x.(type) {
	case EntityValue:
		c, err := asCollection(ctx, v.Entity)
		if err != nil {
			return nil, err
		}
		return EntityValue{Entity: c.Slice(lo, hi)}, nil
	case List:
		start, end := sliceRange(lo, hi, len(v))
		return append(List{}, v[start:end]...), nil
	case String:
		rs := []rune(string(v))
		start, end := sliceRange(lo, hi, len(rs))
		return String(rs[start:end]), nil
	}
	return nil, diag.Errorf(diag.KindType, "%s object is not subscriptable", TypeName(x))
}

func (e *Evaluator) sliceBound(ctx context.Context, n Node) (*int, error) {
	if n == nil {
		return nil, nil
	}
	v, err := e.Eval(ctx, n)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(None); ok {
		return nil, nil
	}
	i, ok := integral(v)
	if !ok {
		return nil, diag.Errorf(diag.KindType, "slice indices must be integers, not %s", TypeName(v))
	}
	b := int(i)
	return &b, nil
}

func sliceRange(lo, hi *int, n int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
			if i < 0 {
				return 0
			}
		}
		return min(i, n)
	}
	start, end := 0, n
	if lo != nil {
		start = clamp(*lo)
	}
	if hi != nil {
		end = clamp(*hi)
	}
	return start, max(start, end)
}

// asCollection returns the sequence behind an entity: a Collection itself
// or an Album's tracks.
func asCollection(ctx context.Context, ent catalog.Entity) (*catalog.Collection, error) {
	switch v := ent.(type) {
	case *catalog.Collection:
		return v, nil
	case *catalog.Album:
		return v.Tracks(ctx)
	}
	return nil, diag.Errorf(diag.KindType, "%s object is not subscriptable", ent.Kind())
}
