package script

import (
	"strconv"
	"strings"

	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
)

// Keyword is the instruction word that starts a line.
type Keyword string

const (
	If     Keyword = "if"
	Else   Keyword = "else"
	ElseIf Keyword = "elseif"
	Fi     Keyword = "fi"
	JumpTo Keyword = "jumpto"
	Coda   Keyword = "coda"
	While  Keyword = "while"
	Repeat Keyword = "repeat"
	Play   Keyword = "play"
	Var    Keyword = "var"
	Pass   Keyword = "pass"
	Quit   Keyword = "quit"
)

// Keywords lists every recognized instruction.
var Keywords = []Keyword{If, Else, ElseIf, Fi, JumpTo, Coda, While, Repeat, Play, Var, Pass, Quit}

// Valid reports whether k is a recognized instruction.
func (k Keyword) Valid() bool {
	for _, kw := range Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// Skippable reports whether a line is blank or a comment.
func Skippable(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

// Split returns the leading keyword of a line and the trimmed remainder.
// The keyword is not validated.
func Split(line string) (Keyword, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	t := strings.TrimSpace(line)
	rest := strings.TrimSpace(strings.TrimPrefix(t, fields[0]))
	return Keyword(fields[0]), rest
}

// ValidateKeyword fails with SyntaxError when k is not an instruction.
func ValidateKeyword(k Keyword) error {
	if !k.Valid() {
		return diag.Errorf(diag.KindSyntax, "%q is not a valid line descriptor", string(k))
	}
	return nil
}

// Assignment is a parsed var line.
type Assignment struct {
	Name string
	Expr string
}

// ParseVar parses the remainder of a var line, `name = expression`.
// The split is on the first "=".
func ParseVar(rest string) (Assignment, error) {
	name, value, ok := strings.Cut(rest, "=")
	if !ok {
		return Assignment{}, diag.Errorf(diag.KindSyntax, "Variable is declared but not given a value.")
	}
	name = strings.TrimSpace(name)
	if !expr.IsIdentifier(name) {
		return Assignment{}, diag.Errorf(diag.KindSyntax,
			"Invalid variable name %q - only alphabetic characters and underscores are allowed.", name)
	}
	return Assignment{Name: name, Expr: strings.TrimSpace(value)}, nil
}

// AllQuantity is the play quantity meaning every item of the pool.
const AllQuantity = "all"

// PlayCommand is a parsed play line.
type PlayCommand struct {
	// Quantity is "all" or an expression.
	Quantity string

	// Source is the expression denoting the pool.
	Source string
}

// All reports whether every item of the pool is requested.
func (p PlayCommand) All() bool { return p.Quantity == AllQuantity }

// ParsePlay parses the remainder of a play line, `<quantity> from <source>`.
func ParsePlay(rest string) (PlayCommand, error) {
	quantity, source, ok := strings.Cut(rest, " from ")
	quantity, source = strings.TrimSpace(quantity), strings.TrimSpace(source)
	if !ok || quantity == "" || source == "" {
		return PlayCommand{}, diag.Errorf(diag.KindSyntax, "play needs the form: play <quantity> from <source>")
	}
	return PlayCommand{Quantity: quantity, Source: source}, nil
}

// Target is a jumpto destination: a 1-indexed line or a coda label.
type Target struct {
	Line  int
	Label string
}

// IsLine reports whether the target is a line number.
func (t Target) IsLine() bool { return t.Label == "" }

func (t Target) String() string {
	if t.IsLine() {
		return strconv.Itoa(t.Line)
	}
	return t.Label
}

// ParseJump parses the remainder of a jumpto line. Integers are line
// numbers; anything else is a label.
func ParseJump(rest string) (Target, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Target{}, diag.Errorf(diag.KindSyntax, "jumpto needs a line number or a label")
	}
	if n, err := strconv.Atoi(rest); err == nil {
		if n < 1 {
			return Target{}, diag.Errorf(diag.KindValue, "jumpto line %d is out of range", n)
		}
		return Target{Line: n}, nil
	}
	return Target{Label: rest}, nil
}

// IsCoda reports whether line is exactly the coda marker for label.
func IsCoda(line, label string) bool {
	return strings.TrimSpace(line) == string(Coda)+" "+label
}
