package store

import (
	"context"
	"sync"

	"github.com/cruxsync/otp/otp"
)

type objectLog struct {
	mu       sync.Mutex
	snapshot otp.Snapshot
	patches  []otp.Patch
}

// MemoryStore is a process-local ObjectStore. Each object gets its own
// mutex, so commits to different objects never block each other.
type MemoryStore struct {
	objects sync.Map // otp.ObjectId -> *objectLog
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) logFor(id otp.ObjectId) *objectLog {
	actual, _ := s.objects.LoadOrStore(id, &objectLog{
		snapshot: otp.Snapshot{ObjectID: id, RevID: otp.InitialRevID, Content: nil},
	})
	return actual.(*objectLog)
}

// LoadSnapshot implements ObjectStore.
func (s *MemoryStore) LoadSnapshot(ctx context.Context, id otp.ObjectId) (otp.Snapshot, error) {
	log := s.logFor(id)
	log.mu.Lock()
	defer log.mu.Unlock()

	if log.snapshot.RevID == otp.InitialRevID {
		return otp.Snapshot{}, ErrNotFound
	}
	return log.snapshot, nil
}

// PatchesAfter implements ObjectStore.
func (s *MemoryStore) PatchesAfter(ctx context.Context, id otp.ObjectId, after otp.RevId) ([]otp.Patch, error) {
	log := s.logFor(id)
	log.mu.Lock()
	defer log.mu.Unlock()

	var out []otp.Patch
	for _, p := range log.patches {
		if p.RevID > after {
			out = append(out, p)
		}
	}
	return out, nil
}

// CommitPatch implements ObjectStore.
func (s *MemoryStore) CommitPatch(ctx context.Context, patch otp.Patch, resulting otp.Snapshot) error {
	log := s.logFor(patch.ObjectID)
	log.mu.Lock()
	defer log.mu.Unlock()

	if patch.RevID != log.snapshot.RevID+1 {
		return ErrConflict
	}

	log.patches = append(log.patches, patch)
	log.snapshot = resulting
	return nil
}
