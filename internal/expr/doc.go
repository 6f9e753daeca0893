// Package expr implements the expression language used by var, if, elseif
// and play lines: a lexer, a recursive-descent parser producing a tagged
// AST, and an evaluator over a variable environment and a catalog resolver.
//
// # Dialects
//
// Two lexer dialects exist. The Script dialect, used for conditions,
// rewrites the script operators:
//
//	!   not
//	|   or
//	&   and
//	^   ** (power)
//
// with "!=" kept as not-equal. The Native dialect, used for var and play
// expressions, leaves |, & and ^ as integer bitwise operators and rejects a
// bare "!".
//
// # Grammar
//
// Precedence, loosest first:
//
//	or
//	and
//	not
//	comparisons: == != < <= > >= in, not in (chainable)
//	|
//	^
//	&
//	+ -
//	* / // %
//	unary + -
//	**  (right associative)
//	postfix: call, attribute, index, slice
//
// Calls to playlist, album, artist and track with a single argument parse
// as CatalogQuery nodes and resolve through the catalog.
package expr
