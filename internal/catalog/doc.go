// Package catalog implements the query model scripts operate on: the
// catalog entities, attribute filtering and the cache-first resolver that
// turns script queries into entities.
//
// # Entities
//
// Entity is a sealed interface with four variants:
//
//	*Track       one playable item
//	*Album       metadata plus a lazily fetched Collection of tracks
//	*Artist      metadata plus a lazily fetched Collection of albums
//	*Collection  an ordered, indexable, sliceable, filterable sequence
//
// Entities are immutable once built. Filtering and slicing produce new
// Collections; an Album or Artist fetches its members at most once.
//
// # Filtering
//
// Filter applies a queryir.Predicate to every item of a Collection (or an
// Album's tracks) and keeps the items for which it holds, preserving order.
// A predicate naming an attribute the item does not have, or a range over a
// value that is not an integer, is an AttributeError.
//
// # Resolution
//
// Resolver consults the Cache (playlist aliases, tracks by id) before the
// Source (the online catalog), and adds every track it sees to the Cache so
// the run's discoveries can be persisted once it ends.
package catalog
