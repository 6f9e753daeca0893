package queryir

import "fmt"

// Span is an inclusive integer range with optional bounds.
// Both bounds absent matches anything.
//
// Lower <= Upper when both are present is the caller's responsibility;
// an inverted Span simply matches nothing.
type Span struct {
	Lower *int64
	Upper *int64
}

// Int returns a pointer bound for NewSpan.
func Int(n int64) *int64 { return &n }

// NewSpan builds a Span; pass nil for an open end.
func NewSpan(lower, upper *int64) Span {
	return Span{Lower: lower, Upper: upper}
}

// Contains reports whether n lies within the span.
func (s Span) Contains(n int64) bool {
	if s.Lower != nil && n < *s.Lower {
		return false
	}
	if s.Upper != nil && n > *s.Upper {
		return false
	}
	return true
}

// IsAny reports whether the span has no bounds.
func (s Span) IsAny() bool {
	return s.Lower == nil && s.Upper == nil
}

func (s Span) String() string {
	switch {
	case s.IsAny():
		return "span(any)"
	case s.Lower == nil:
		return fmt.Sprintf("span(<=%d)", *s.Upper)
	case s.Upper == nil:
		return fmt.Sprintf("span(>=%d)", *s.Lower)
	default:
		return fmt.Sprintf("span(%d-%d)", *s.Lower, *s.Upper)
	}
}
