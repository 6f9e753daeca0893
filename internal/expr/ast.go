package expr

import "github.com/roach88/playscript/internal/catalog"

// Node is an expression AST node. Sealed: only types in this package
// implement it.
type Node interface {
	node()
}

// NumberLit is a numeric literal.
type NumberLit struct{ Value float64 }

// StringLit is a quoted string literal.
type StringLit struct{ Value string }

// BoolLit is True or False.
type BoolLit struct{ Value bool }

// NoneLit is None.
type NoneLit struct{}

// Ident is a name: a variable, builtin or constant.
type Ident struct{ Name string }

// Unary applies "-", "+" or "not".
type Unary struct {
	Op string
	X  Node
}

// Binary applies an arithmetic or bitwise operator.
type Binary struct {
	Op   string
	X, Y Node
}

// Logical is a short-circuiting "and" or "or".
type Logical struct {
	Op   string
	X, Y Node
}

// Compare is a comparison chain: Operands[0] Ops[0] Operands[1] Ops[1] ...
// Ops include "in" and "not in".
type Compare struct {
	Ops      []string
	Operands []Node
}

// Kwarg is a keyword argument.
type Kwarg struct {
	Name  string
	Value Node
}

// Call is a function or method call.
type Call struct {
	Fun    Node
	Args   []Node
	Kwargs []Kwarg
}

// Attribute is X.Name.
type Attribute struct {
	X    Node
	Name string
}

// Index is X[Index].
type Index struct {
	X     Node
	Index Node
}

// Slice is X[Lo:Hi]; either bound may be nil.
type Slice struct {
	X      Node
	Lo, Hi Node
}

// ListLit is [a, b, ...].
type ListLit struct{ Elems []Node }

// CatalogQuery resolves Arg through the catalog as Kind.
type CatalogQuery struct {
	Kind catalog.Kind
	Arg  Node
}

func (NumberLit) node()    {}
func (StringLit) node()    {}
func (BoolLit) node()      {}
func (NoneLit) node()      {}
func (Ident) node()        {}
func (Unary) node()        {}
func (Binary) node()       {}
func (Logical) node()      {}
func (Compare) node()      {}
func (Call) node()         {}
func (Attribute) node()    {}
func (Index) node()        {}
func (Slice) node()        {}
func (ListLit) node()      {}
func (CatalogQuery) node() {}

// catalogFuncs maps the catalog namespace to entity kinds.
var catalogFuncs = map[string]catalog.Kind{
	"playlist": catalog.KindCollection,
	"album":    catalog.KindAlbum,
	"artist":   catalog.KindArtist,
	"track":    catalog.KindTrack,
}

// Names returns the identifiers referenced by n, in first-use order.
// Attribute names and keyword argument names are not included.
func Names(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Ident:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case Unary:
			walk(v.X)
		case Binary:
			walk(v.X)
			walk(v.Y)
		case Logical:
			walk(v.X)
			walk(v.Y)
		case Compare:
			for _, o := range v.Operands {
				walk(o)
			}
		case Call:
			walk(v.Fun)
			for _, a := range v.Args {
				walk(a)
			}
			for _, kw := range v.Kwargs {
				walk(kw.Value)
			}
		case Attribute:
			walk(v.X)
		case Index:
			walk(v.X)
			walk(v.Index)
		case Slice:
			walk(v.X)
			if v.Lo != nil {
				walk(v.Lo)
			}
			if v.Hi != nil {
				walk(v.Hi)
			}
		case ListLit:
			for _, e := range v.Elems {
				walk(e)
			}
		case CatalogQuery:
			walk(v.Arg)
		}
	}
	walk(n)
	return out
}
