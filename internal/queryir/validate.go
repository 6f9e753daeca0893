package queryir

import (
	"fmt"
	"slices"
)

// ValidationResult lists the problems found in a predicate.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each offending predicate.
	Problems []string
}

// Validate checks a predicate against the attribute names a backend can
// serve. Backends with a fixed schema (the SQL track cache) must reject
// unknown fields up front; the in-memory backend reports them lazily.
//
// Validate is a pure function with no side effects.
func Validate(p Predicate, fields []string) ValidationResult {
	v := &validator{fields: fields}
	v.validate(p)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	fields   []string
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Equals:
		v.checkField(pred.Field)
		if pred.Value == nil {
			v.addProblem("%s: missing value", pred.Field)
		}
	case Within:
		v.checkField(pred.Field)
		if pred.Span.Lower != nil && pred.Span.Upper != nil && *pred.Span.Lower > *pred.Span.Upper {
			v.addProblem("%s: %s can never match", pred.Field, pred.Span)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validate(sub)
		}
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}

func (v *validator) checkField(name string) {
	if !slices.Contains(v.fields, name) {
		v.addProblem("unknown attribute %q", name)
	}
}
