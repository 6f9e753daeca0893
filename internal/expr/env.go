package expr

import (
	"maps"
	"slices"
	"unicode"

	"github.com/roach88/playscript/internal/diag"
)

// Env is the variable environment: identifiers bound to numbers. It lives
// for one script run and is only written by var lines.
type Env struct {
	vars map[string]float64
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]float64)}
}

// IsIdentifier reports whether name is non-empty and made only of letters
// and underscores.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Set binds name to v, overwriting any earlier value.
func (e *Env) Set(name string, v float64) error {
	if !IsIdentifier(name) {
		return diag.Errorf(diag.KindSyntax, "invalid variable name %q", name)
	}
	e.vars[name] = v
	return nil
}

// Get returns the value bound to name.
func (e *Env) Get(name string) (float64, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Len returns the number of variables.
func (e *Env) Len() int { return len(e.vars) }

// Names returns the variable names in sorted order.
func (e *Env) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}

// Snapshot returns a copy of the bindings.
func (e *Env) Snapshot() map[string]float64 {
	return maps.Clone(e.vars)
}
