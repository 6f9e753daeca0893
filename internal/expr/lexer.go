package expr

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/playscript/internal/diag"
)

// Dialect selects how operator characters are read.
type Dialect int

const (
	// Native reads |, & and ^ as bitwise operators.
	Native Dialect = iota

	// Script reads !, |, & and ^ as not, or, and and power.
	Script
)

func (d Dialect) String() string {
	if d == Script {
		return "script"
	}
	return "native"
}

// TokenKind classifies a token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokNumber
	TokString
	TokName
	TokOp
)

// Token is one lexical unit. Pos is the byte offset in the source.
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
	Pos  int
}

// operators, longest first.
var operators = []string{
	"**", "//", "==", "!=", "<=", ">=",
	"+", "-", "*", "/", "%", "<", ">", "=",
	"(", ")", "[", "]", ",", ".", ":",
	"|", "&", "^",
}

// Lex splits src into tokens, ending with a TokEOF token.
func Lex(src string, dialect Dialect) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1]))):
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += n

		case r == '"' || r == '\'':
			tok, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += n

		case isNameStart(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if !isNameStart(r) && !isDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, Token{Kind: TokName, Text: src[start:i], Pos: start})

		default:
			tok, n, err := lexOperator(src, i, dialect)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += n
		}
	}
	toks = append(toks, Token{Kind: TokEOF, Pos: len(src)})
	return toks, nil
}

func lexOperator(src string, i int, dialect Dialect) (Token, int, error) {
	rest := src[i:]
	if dialect == Script {
		switch {
		case strings.HasPrefix(rest, "!="):
			return Token{Kind: TokOp, Text: "!=", Pos: i}, 2, nil
		case rest[0] == '!':
			return Token{Kind: TokName, Text: "not", Pos: i}, 1, nil
		case rest[0] == '|':
			return Token{Kind: TokName, Text: "or", Pos: i}, 1, nil
		case rest[0] == '&':
			return Token{Kind: TokName, Text: "and", Pos: i}, 1, nil
		case rest[0] == '^':
			return Token{Kind: TokOp, Text: "**", Pos: i}, 1, nil
		}
	}
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return Token{Kind: TokOp, Text: op, Pos: i}, len(op), nil
		}
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return Token{}, 0, diag.Errorf(diag.KindSyntax, "invalid character %q at position %d", r, i)
}

func lexNumber(src string, start int) (Token, int, error) {
	i := start
	for i < len(src) && isDigit(rune(src[i])) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(rune(src[i])) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(rune(src[j])) {
			for j < len(src) && isDigit(rune(src[j])) {
				j++
			}
			i = j
		}
	}
	text := src[start:i]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, 0, diag.Errorf(diag.KindSyntax, "invalid number %q", text)
	}
	return Token{Kind: TokNumber, Text: text, Num: n, Pos: start}, i - start, nil
}

func lexString(src string, start int) (Token, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return Token{Kind: TokString, Text: sb.String(), Pos: start}, i + 1 - start, nil
		case c == '\\' && i+1 < len(src):
			switch src[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '\'', '"':
				sb.WriteByte(src[i+1])
			default:
				sb.WriteByte('\\')
				sb.WriteByte(src[i+1])
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return Token{}, 0, diag.Errorf(diag.KindSyntax, "unterminated string starting at position %d", start)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
