// Package diag defines the error taxonomy shared by the expression
// evaluator, the catalog and the interpreter, and the line diagnostic that
// every fatal script error is reported through.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes script errors.
type Kind string

const (
	// KindSyntax covers unknown keywords, malformed lines and invalid identifiers.
	KindSyntax Kind = "SyntaxError"

	// KindName indicates a reference to an undeclared variable or function.
	KindName Kind = "NameError"

	// KindValue indicates a result that cannot be used as the expected type.
	KindValue Kind = "ValueError"

	// KindType indicates an operator or call applied to unsuitable operands.
	KindType Kind = "TypeError"

	// KindAttribute indicates a missing attribute or a range filter over a
	// non-numeric attribute.
	KindAttribute Kind = "AttributeError"

	// KindLookup indicates the catalog could not resolve a query.
	KindLookup Kind = "LookupError"

	// KindNotImplemented marks instructions reserved but not supported.
	KindNotImplemented Kind = "NotImplementedError"

	// KindPlayback indicates the playback service refused a track after
	// the single session-start retry.
	KindPlayback Kind = "PlaybackError"
)

// Error is a categorized script error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap categorizes an underlying error. The message defaults to the
// underlying error's text.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	} else if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the Kind from an error chain. The empty Kind means the
// error is not a categorized script error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the bare message of a categorized error, or err.Error()
// for anything else.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return err.Error()
}

// Diagnostic ties a script error to the 1-indexed line that raised it.
type Diagnostic struct {
	// Script names the script (file name or "<repl>").
	Script string

	// Line is the 1-indexed line number.
	Line int

	// Text is the offending line, verbatim.
	Text string

	// Err is the underlying (usually categorized) error.
	Err error
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Err)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Kind returns the error Kind of the underlying error. Uncategorized
// errors report as KindValue.
func (d *Diagnostic) Kind() Kind {
	if k := KindOf(d.Err); k != "" {
		return k
	}
	return KindValue
}

// Traceback renders the diagnostic in the three-line form:
//
//	Traceback: exception on line 4
//	>>> play 3 from playlist("nope")
//	LookupError: no playlist matches "nope"
func (d *Diagnostic) Traceback() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Traceback: exception on line %d\n", d.Line)
	fmt.Fprintf(&sb, ">>> %s\n", d.Text)
	fmt.Fprintf(&sb, "%s: %s", d.Kind(), Message(d.Err))
	return sb.String()
}

// AsDiagnostic extracts a Diagnostic from an error chain.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
