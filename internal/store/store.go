// Package store defines the storage collaborator contract the commit
// pipeline depends on, and provides an in-memory and a SQLite-backed
// implementation of it.
package store

import (
	"context"
	"errors"

	"github.com/cruxsync/otp/otp"
)

// ErrNotFound is returned when an object has no snapshot yet.
var ErrNotFound = errors.New("store: object not found")

// ErrConflict is returned when a caller's expected revision no longer
// matches the stored one.
var ErrConflict = errors.New("store: revision conflict")

// ObjectStore is the storage collaborator contract of the commit pipeline.
// Implementations must serialize writes per ObjectID: two concurrent
// CommitPatch calls against the same object must not interleave.
type ObjectStore interface {
	// LoadSnapshot returns the most recent snapshot for id, or ErrNotFound
	// if the object has never been written to.
	LoadSnapshot(ctx context.Context, id otp.ObjectId) (otp.Snapshot, error)

	// PatchesAfter returns committed patches for id with RevID > after, in
	// ascending revision order.
	PatchesAfter(ctx context.Context, id otp.ObjectId, after otp.RevId) ([]otp.Patch, error)

	// CommitPatch appends patch to id's log and advances its snapshot.
	// Implementations must reject patch.RevID values that are not exactly
	// one greater than the object's current revision with ErrConflict.
	CommitPatch(ctx context.Context, patch otp.Patch, resulting otp.Snapshot) error
}
