package script

import (
	"fmt"
	"slices"

	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
)

// Problem codes (E200-E299, W200-W299).
const (
	ErrUnknownKeyword   = "E201" // line does not start with an instruction
	ErrMalformedVar     = "E202" // var without "=" or with an invalid name
	ErrExpression       = "E203" // expression does not parse
	ErrMalformedPlay    = "E204" // play without "from"
	ErrMalformedJump    = "E205" // jumpto without a target
	ErrNestedIf         = "E206" // if inside an open block
	ErrUnmatchedBranch  = "E207" // elseif/else/fi with no open block
	ErrUnclosedIf       = "E208" // if without fi
	ErrNotImplemented   = "E209" // while/repeat
	WarnJumpUnreachable = "W201" // jumpto target is never reached
	WarnUndeclaredName  = "W202" // name is never declared by var
)

// Severity distinguishes errors that stop a run from warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is one finding of Check.
type Problem struct {
	Line     int      `json:"line"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Text     string   `json:"text"`
}

func (p Problem) Error() string {
	return fmt.Sprintf("[%s] line %d: %s", p.Code, p.Line, p.Message)
}

// HasErrors reports whether any problem has error severity.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}

// checker holds the state of one Check pass.
type checker struct {
	s        *Script
	problems []Problem
	declared map[string]bool
	openIf   int // line of the open if, 0 when none
	jumps    []jump
}

type jump struct {
	line   int
	target Target
}

// Check validates a script without running it and returns every problem
// found, in line order. Expressions are parsed, not evaluated.
func Check(s *Script) []Problem {
	c := &checker{s: s, declared: make(map[string]bool)}
	for n := 1; n <= s.Len(); n++ {
		c.checkLine(n, s.Line(n))
	}
	if c.openIf != 0 {
		c.add(c.openIf, ErrUnclosedIf, SeverityError, "if block is never closed with fi")
	}
	c.checkJumps()
	slices.SortStableFunc(c.problems, func(a, b Problem) int { return a.Line - b.Line })
	return c.problems
}

func (c *checker) add(line int, code string, sev Severity, format string, args ...any) {
	c.problems = append(c.problems, Problem{
		Line:     line,
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Text:     c.s.Line(line),
	})
}

func (c *checker) checkLine(n int, line string) {
	if Skippable(line) {
		return
	}
	kw, rest := Split(line)
	if err := ValidateKeyword(kw); err != nil {
		c.add(n, ErrUnknownKeyword, SeverityError, "%s", diag.Message(err))
		return
	}

	switch kw {
	case If:
		if c.openIf != 0 {
			c.add(n, ErrNestedIf, SeverityError, "nested if blocks are not supported (block opened on line %d)", c.openIf)
		} else {
			c.openIf = n
		}
		c.checkExpr(n, rest, expr.Script)
	case ElseIf:
		if c.openIf == 0 {
			c.add(n, ErrUnmatchedBranch, SeverityError, "elseif without an open if block")
		}
		c.checkExpr(n, rest, expr.Script)
	case Else:
		if c.openIf == 0 {
			c.add(n, ErrUnmatchedBranch, SeverityError, "else without an open if block")
		}
	case Fi:
		if c.openIf == 0 {
			c.add(n, ErrUnmatchedBranch, SeverityError, "fi without an open if block")
		}
		c.openIf = 0
	case Var:
		a, err := ParseVar(rest)
		if err != nil {
			c.add(n, ErrMalformedVar, SeverityError, "%s", diag.Message(err))
			return
		}
		c.checkExpr(n, a.Expr, expr.Native)
		c.declared[a.Name] = true
	case Play:
		p, err := ParsePlay(rest)
		if err != nil {
			c.add(n, ErrMalformedPlay, SeverityError, "%s", diag.Message(err))
			return
		}
		if !p.All() {
			c.checkExpr(n, p.Quantity, expr.Native)
		}
		c.checkExpr(n, p.Source, expr.Native)
	case JumpTo:
		t, err := ParseJump(rest)
		if err != nil {
			c.add(n, ErrMalformedJump, SeverityError, "%s", diag.Message(err))
			return
		}
		c.jumps = append(c.jumps, jump{line: n, target: t})
	case While, Repeat:
		c.add(n, ErrNotImplemented, SeverityError, "%s loops are not implemented", kw)
	}
}

func (c *checker) checkExpr(n int, src string, dialect expr.Dialect) {
	node, err := expr.Parse(src, dialect)
	if err != nil {
		c.add(n, ErrExpression, SeverityError, "%s", diag.Message(err))
		return
	}
	for _, name := range expr.Names(node) {
		if c.declared[name] || isPredeclared(name) {
			continue
		}
		c.add(n, WarnUndeclaredName, SeverityWarning, "name %q is not declared before this line", name)
	}
}

func isPredeclared(name string) bool {
	switch name {
	case "playlist", "album", "artist", "track":
		return true
	}
	return slices.Contains(expr.BuiltinNames, name)
}

// checkJumps warns about targets a forward scan never reaches: line
// numbers at or before the jump, past the end or on a blank or comment
// line, and labels with no coda after the jump.
func (c *checker) checkJumps() {
	for _, j := range c.jumps {
		if j.target.IsLine() {
			if j.target.Line <= j.line || j.target.Line > c.s.Len() || Skippable(c.s.Line(j.target.Line)) {
				c.add(j.line, WarnJumpUnreachable, SeverityWarning,
					"jumpto %d is never reached; the rest of the script is skipped", j.target.Line)
			}
			continue
		}
		found := false
		for n := j.line + 1; n <= c.s.Len(); n++ {
			if IsCoda(c.s.Line(n), j.target.Label) {
				found = true
				break
			}
		}
		if !found {
			c.add(j.line, WarnJumpUnreachable, SeverityWarning,
				"no \"coda %s\" follows this line; the rest of the script is skipped", j.target.Label)
		}
	}
}
