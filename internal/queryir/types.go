package queryir

import (
	"strings"

	"github.com/roach88/playscript/internal/ir"
)

// Predicate is a filter condition over the attributes of a catalog item.
// Sealed: only types in this package implement it.
type Predicate interface {
	predicateNode()
	String() string
}

// Equals holds when the named attribute equals Value (see ir.Equal).
//
//	Equals{Field: "artist", Value: ir.IRString("Radiohead")}
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

func (p Equals) String() string {
	return p.Field + "=" + ir.Format(p.Value)
}

// Within holds when the named attribute, coerced to an integer, is inside
// Span. A value that cannot be coerced is an error, not a mismatch.
//
//	Within{Field: "year", Span: NewSpan(Int(2000), Int(2010))}
type Within struct {
	Field string
	Span  Span
}

func (Within) predicateNode() {}

func (p Within) String() string {
	return p.Field + "=" + p.Span.String()
}

// And holds when all of Predicates hold. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

func (p And) String() string {
	parts := make([]string, len(p.Predicates))
	for i, sub := range p.Predicates {
		parts[i] = sub.String()
	}
	return strings.Join(parts, ", ")
}

// Fields returns the attribute names referenced by a predicate, in order,
// without duplicates.
func Fields(p Predicate) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			if !seen[pred.Field] {
				seen[pred.Field] = true
				out = append(out, pred.Field)
			}
		case Within:
			if !seen[pred.Field] {
				seen[pred.Field] = true
				out = append(out, pred.Field)
			}
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
