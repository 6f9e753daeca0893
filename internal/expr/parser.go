package expr

import (
	"github.com/roach88/playscript/internal/diag"
)

// Parse parses a complete expression.
func Parse(src string, dialect Dialect) (Node, error) {
	p, err := newParser(src, dialect)
	if err != nil {
		return nil, err
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(TokEOF, "") {
		return nil, p.errorf("unexpected %s", p.describe(p.peek()))
	}
	return n, nil
}

// ParseKwargs parses a bare keyword-argument list such as
// `year=span(2000, 2010), artist="Low"`.
func ParseKwargs(src string, dialect Dialect) ([]Kwarg, error) {
	p, err := newParser(src, dialect)
	if err != nil {
		return nil, err
	}
	var kwargs []Kwarg
	for !p.at(TokEOF, "") {
		kw, ok, err := p.parseKwarg()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.errorf("expected name=value, found %s", p.describe(p.peek()))
		}
		kwargs = append(kwargs, kw)
		if !p.accept(TokOp, ",") {
			break
		}
	}
	if !p.at(TokEOF, "") {
		return nil, p.errorf("unexpected %s", p.describe(p.peek()))
	}
	return kwargs, nil
}

type parser struct {
	src  string
	toks []Token
	pos  int
}

func newParser(src string, dialect Dialect) (*parser, error) {
	toks, err := Lex(src, dialect)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks}, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

// at reports whether the current token has the kind and, when text is
// non-empty, the text.
func (p *parser) at(kind TokenKind, text string) bool {
	t := p.peek()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) accept(kind TokenKind, text string) bool {
	if p.at(kind, text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind TokenKind, text string) error {
	if !p.accept(kind, text) {
		return p.errorf("expected %q, found %s", text, p.describe(p.peek()))
	}
	return nil
}

func (p *parser) describe(t Token) string {
	if t.Kind == TokEOF {
		return "end of expression"
	}
	if t.Kind == TokString {
		return "string literal"
	}
	return "'" + t.Text + "'"
}

func (p *parser) errorf(format string, args ...any) error {
	return diag.Errorf(diag.KindSyntax, format, args...)
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(TokName, "or") {
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = Logical{Op: "or", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseAnd() (Node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(TokName, "and") {
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = Logical{Op: "and", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.accept(TokName, "not") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *parser) comparisonOp() (string, bool) {
	t := p.peek()
	switch {
	case t.Kind == TokOp && comparisonOps[t.Text]:
		p.next()
		return t.Text, true
	case t.Kind == TokName && t.Text == "in":
		p.next()
		return "in", true
	case t.Kind == TokName && t.Text == "not" && p.peekAt(1).Kind == TokName && p.peekAt(1).Text == "in":
		p.next()
		p.next()
		return "not in", true
	}
	return "", false
}

func (p *parser) parseComparison() (Node, error) {
	x, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	var cmp Compare
	for {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		y, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if len(cmp.Operands) == 0 {
			cmp.Operands = append(cmp.Operands, x)
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, y)
	}
	if len(cmp.Ops) == 0 {
		return x, nil
	}
	return cmp, nil
}

// binaryLevel parses a left-associative level of binary operators.
func (p *parser) binaryLevel(ops []string, operand func() (Node, error)) (Node, error) {
	x, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		for _, op := range ops {
			if p.at(TokOp, op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return x, nil
		}
		p.next()
		y, err := operand()
		if err != nil {
			return nil, err
		}
		x = Binary{Op: matched, X: x, Y: y}
	}
}

func (p *parser) parseBitOr() (Node, error) {
	return p.binaryLevel([]string{"|"}, p.parseBitXor)
}

func (p *parser) parseBitXor() (Node, error) {
	return p.binaryLevel([]string{"^"}, p.parseBitAnd)
}

func (p *parser) parseBitAnd() (Node, error) {
	return p.binaryLevel([]string{"&"}, p.parseSum)
}

func (p *parser) parseSum() (Node, error) {
	return p.binaryLevel([]string{"+", "-"}, p.parseTerm)
}

func (p *parser) parseTerm() (Node, error) {
	return p.binaryLevel([]string{"*", "//", "/", "%"}, p.parseUnary)
}

func (p *parser) parseUnary() (Node, error) {
	for _, op := range []string{"-", "+"} {
		if p.accept(TokOp, op) {
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return Unary{Op: op, X: x}, nil
		}
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	x, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.accept(TokOp, "**") {
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: "**", X: x, Y: y}, nil
	}
	return x, nil
}

func (p *parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept(TokOp, "("):
			call, err := p.parseCallArgs(x)
			if err != nil {
				return nil, err
			}
			x = call
		case p.accept(TokOp, "."):
			t := p.next()
			if t.Kind != TokName {
				return nil, p.errorf("expected attribute name after '.', found %s", p.describe(t))
			}
			x = Attribute{X: x, Name: t.Text}
		case p.accept(TokOp, "["):
			n, err := p.parseSubscript(x)
			if err != nil {
				return nil, err
			}
			x = n
		default:
			return x, nil
		}
	}
}

// parseCallArgs parses the argument list after "(" and folds single-argument
// calls of the catalog namespace into CatalogQuery nodes.
func (p *parser) parseCallArgs(fun Node) (Node, error) {
	call := Call{Fun: fun}
	for !p.at(TokOp, ")") {
		kw, ok, err := p.parseKwarg()
		if err != nil {
			return nil, err
		}
		if ok {
			call.Kwargs = append(call.Kwargs, kw)
		} else {
			if len(call.Kwargs) > 0 {
				return nil, p.errorf("positional argument follows keyword argument")
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		if !p.accept(TokOp, ",") {
			break
		}
	}
	if err := p.expect(TokOp, ")"); err != nil {
		return nil, err
	}

	if id, ok := fun.(Ident); ok {
		if kind, ok := catalogFuncs[id.Name]; ok && len(call.Args) == 1 && len(call.Kwargs) == 0 {
			return CatalogQuery{Kind: kind, Arg: call.Args[0]}, nil
		}
	}
	return call, nil
}

// parseKwarg parses name=value when the next two tokens are a name and "=".
func (p *parser) parseKwarg() (Kwarg, bool, error) {
	if p.peek().Kind != TokName || !(p.peekAt(1).Kind == TokOp && p.peekAt(1).Text == "=") {
		return Kwarg{}, false, nil
	}
	name := p.next().Text
	p.next()
	v, err := p.parseExpr()
	if err != nil {
		return Kwarg{}, false, err
	}
	return Kwarg{Name: name, Value: v}, true, nil
}

func (p *parser) parseSubscript(x Node) (Node, error) {
	var lo Node
	if !p.at(TokOp, ":") {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lo = n
		if p.accept(TokOp, "]") {
			return Index{X: x, Index: lo}, nil
		}
	}
	if err := p.expect(TokOp, ":"); err != nil {
		return nil, err
	}
	var hi Node
	if !p.at(TokOp, "]") {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		hi = n
	}
	if err := p.expect(TokOp, "]"); err != nil {
		return nil, err
	}
	return Slice{X: x, Lo: lo, Hi: hi}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.Kind {
	case TokNumber:
		return NumberLit{Value: t.Num}, nil
	case TokString:
		return StringLit{Value: t.Text}, nil
	case TokName:
		switch t.Text {
		case "True":
			return BoolLit{Value: true}, nil
		case "False":
			return BoolLit{Value: false}, nil
		case "None":
			return NoneLit{}, nil
		case "and", "or", "not", "in":
			return nil, p.errorf("unexpected %s", p.describe(t))
		}
		return Ident{Name: t.Text}, nil
	case TokOp:
		switch t.Text {
		case "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokOp, ")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			var list ListLit
			for !p.at(TokOp, "]") {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				list.Elems = append(list.Elems, e)
				if !p.accept(TokOp, ",") {
					break
				}
			}
			if err := p.expect(TokOp, "]"); err != nil {
				return nil, err
			}
			return list, nil
		}
	}
	if t.Kind == TokEOF {
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %s", p.describe(t))
}
