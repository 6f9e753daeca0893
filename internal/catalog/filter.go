package catalog

import (
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/queryir"
)

// Predicate is the filter condition type collections accept.
type Predicate = queryir.Predicate

// Match reports whether e satisfies p. Sub-predicates of an And are tested
// in order and the first mismatch ends the test.
func Match(e Entity, p Predicate) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case queryir.And:
		for _, sub := range pred.Predicates {
			ok, err := Match(e, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case queryir.Equals:
		v, err := filterAttr(e, pred.Field)
		if err != nil {
			return false, err
		}
		return ir.Equal(v, pred.Value), nil
	case queryir.Within:
		v, err := filterAttr(e, pred.Field)
		if err != nil {
			return false, err
		}
		n, ok := ir.AsInt(v)
		if !ok {
			return false, diag.Errorf(diag.KindAttribute,
				"cannot match %s of %s against %s", pred.Field, e, pred.Span)
		}
		return pred.Span.Contains(n), nil
	default:
		return false, diag.Errorf(diag.KindType, "unsupported predicate %T", p)
	}
}

func filterAttr(e Entity, name string) (ir.IRValue, error) {
	v, ok := e.Attrs()[name]
	if !ok {
		return nil, diag.Errorf(diag.KindAttribute, "cannot filter by nonexistent attribute %q", name)
	}
	return v, nil
}
