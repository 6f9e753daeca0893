// Package queryir provides the filter predicate representation shared by
// every place that narrows a set of catalog items.
//
// The IR sits between the script syntax and the backends that execute it:
//
//	[.filter(year=span(2000, 2010), artist="X")] → [Predicate] → [in-memory match (catalog)]
//	                                                            → [SQL over the track cache (querysql)]
//
// PREDICATES:
//   - Equals: attribute equals a literal value
//   - Within: attribute, coerced to an integer, lies inside a Span
//   - And: every predicate holds (empty = always true)
//
// Keyword order at the call site is preserved in And.Predicates, so
// evaluation order (and therefore which error surfaces first) is stable.
//
// SEALED INTERFACES:
//
// Predicate is sealed using the marker method pattern, so backends can use
// exhaustive type switches:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Within:
//	case And:
//	}
package queryir
