// Package otp implements an operational-transformation core for collaborative
// JSON documents: a path-indexed JSON operation algebra, a patching engine,
// the pairwise transform function, and the rebase driver that folds a
// candidate operation through a sequence of committed operations.
//
// The package is pure and has no I/O. Every exported function takes values
// by reference or by copy and returns fresh values; nothing here mutates a
// caller's document in place.
package otp

import "strings"

// Path is a dotted path string addressing a location inside a JSON value.
// The root path is the empty string. Segments are opaque, non-empty strings
// that never contain ".".
type Path string

// RootPath addresses the entire document; only Set operations may target it.
const RootPath Path = ""

// RootObjID is used as the author of system-initiated writes.
const RootObjID ObjectId = ""

// ZeroRevID is the revision id assigned to the first patch ever applied to
// an object.
const ZeroRevID RevId = 0

// InitialRevID is the sentinel revision of the snapshot before any patch has
// ever been applied to an object. It is kept distinct from ZeroRevID so
// "no patches yet" and "one patch committed" are never confused.
const InitialRevID RevId = -1

// RevId is a monotonically increasing, dense per-object revision number.
type RevId int64

// ObjectId identifies a document within the engine.
type ObjectId string

// AuthorId identifies the author of a patch.
type AuthorId string

// ObjectType labels objects in metrics. The engine and the stores never
// branch on it; it exists purely as an external tag.
type ObjectType string

// Segments splits a Path into its dotted components. The root path yields
// no segments.
func (p Path) Segments() []string {
	if p == RootPath {
		return nil
	}
	return strings.Split(string(p), ".")
}

// IsRoot reports whether p addresses the entire document.
func (p Path) IsRoot() bool {
	return p == RootPath
}

// startsWith reports whether p and prefix are equal, or whether prefix is a
// strict, segment-aligned prefix of p (never a partial-segment match).
func (p Path) startsWith(prefix Path) bool {
	if prefix == RootPath {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+".")
}
