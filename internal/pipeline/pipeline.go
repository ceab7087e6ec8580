// Package pipeline implements the commit pipeline: the four-step sequence
// that turns a candidate operation from a client into a committed patch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/cruxsync/otp/internal/feed"
	"github.com/cruxsync/otp/internal/metrics"
	"github.com/cruxsync/otp/internal/store"
	"github.com/cruxsync/otp/otp"
)

// ErrObsolete is returned when rebase determines a candidate operation has
// nothing left to do against the current document.
var ErrObsolete = errors.New("pipeline: operation obsolete after rebase")

// Pipeline wires an ObjectStore and a change Feed together and serializes
// commits per object: load the snapshot and patch history, rebase the
// candidate operation through everything committed since the client's base
// revision, apply the rebased operation to the current snapshot, then
// persist the resulting patch and publish it to subscribers.
type Pipeline struct {
	store store.ObjectStore
	feed  feed.Feed
	log   logr.Logger
}

// New builds a Pipeline over store and feed. feed may be nil to disable
// change-feed publication.
func New(objStore store.ObjectStore, changeFeed feed.Feed, log logr.Logger) *Pipeline {
	return &Pipeline{store: objStore, feed: changeFeed, log: log.WithName("pipeline")}
}

// Submit runs op, authored by author against baseRev of an object of the
// given type, through the commit pipeline, returning the patch that was
// actually committed. It returns ErrObsolete if rebase dropped op entirely
// because everything it intended to do was already superseded.
func (p *Pipeline) Submit(ctx context.Context, objType otp.ObjectType, id otp.ObjectId, author otp.AuthorId, baseRev otp.RevId, op otp.Operation) (otp.Patch, error) {
	start := time.Now()
	defer func() {
		metrics.CommitDuration.WithLabelValues(string(objType)).Observe(time.Since(start).Seconds())
	}()

	latest, err := p.loadLatest(ctx, id)
	if err != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), "store").Inc()
		return otp.Patch{}, fmt.Errorf("load snapshot: %w", err)
	}
	if baseRev > latest.RevID {
		metrics.PatchesRejected.WithLabelValues(string(objType), otp.KindRebase.String()).Inc()
		return otp.Patch{}, fmt.Errorf("pipeline: base revision %d is ahead of stored revision %d", baseRev, latest.RevID)
	}

	history, err := p.store.PatchesAfter(ctx, id, otp.InitialRevID)
	if err != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), "store").Inc()
		return otp.Patch{}, fmt.Errorf("load patch history: %w", err)
	}

	baseline, sinceBase := splitAtRevision(history, baseRev)

	baseSnap, otErr := otp.ApplyPatches(otp.Snapshot{ObjectID: id, RevID: otp.InitialRevID, Content: map[string]any{}}, baseline)
	if otErr != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), otErr.Kind().String()).Inc()
		return otp.Patch{}, otErr
	}

	committedOps := make([]otp.Operation, len(sinceBase))
	for i, c := range sinceBase {
		committedOps[i] = c.Op.Operation
	}
	metrics.RebaseFoldLength.WithLabelValues(string(objType)).Observe(float64(len(committedOps)))

	rebased, otErr := otp.Rebase(baseSnap.Content, op, committedOps)
	if otErr != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), otErr.Kind().String()).Inc()
		return otp.Patch{}, otErr
	}
	if rebased == nil {
		metrics.PatchesDropped.WithLabelValues(string(objType)).Inc()
		return otp.Patch{}, ErrObsolete
	}

	newContent, otErr := otp.Apply(rebased, latest.Content)
	if otErr != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), otErr.Kind().String()).Inc()
		return otp.Patch{}, otErr
	}

	nextRev := latest.RevID + 1
	patch := otp.NewPatch(nextRev, id, author, rebased)
	resulting := otp.Snapshot{ObjectID: id, RevID: nextRev, Content: newContent}

	if err := p.store.CommitPatch(ctx, patch, resulting); err != nil {
		metrics.PatchesRejected.WithLabelValues(string(objType), "conflict").Inc()
		return otp.Patch{}, fmt.Errorf("commit patch: %w", err)
	}

	metrics.PatchesCommitted.WithLabelValues(string(objType)).Inc()

	if p.feed != nil {
		if err := p.feed.Publish(ctx, patch); err != nil {
			p.log.Error(err, "failed to publish committed patch", "objectId", id, "revId", nextRev)
		}
	}

	return patch, nil
}

func (p *Pipeline) loadLatest(ctx context.Context, id otp.ObjectId) (otp.Snapshot, error) {
	snap, err := p.store.LoadSnapshot(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return otp.Snapshot{ObjectID: id, RevID: otp.InitialRevID, Content: map[string]any{}}, nil
	}
	return snap, err
}

// splitAtRevision partitions history (ascending by RevID) into patches at
// or before baseRev and patches strictly after it.
func splitAtRevision(history []otp.Patch, baseRev otp.RevId) (before, after []otp.Patch) {
	for i, p := range history {
		if p.RevID > baseRev {
			return history[:i], history[i:]
		}
	}
	return history, nil
}
