// Package ir provides the attribute value types shared by the catalog,
// the filter predicates and the persistence layer.
//
// ir imports nothing internal. Every other package that needs to talk about
// the metadata of a track, album or artist does so through IRValue.
//
// Key design constraints:
//   - NO float types - catalog attributes are integers or text
//   - IRValue is sealed; exhaustive type switches are safe
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only encoding
//     used for digests and golden traces
package ir
