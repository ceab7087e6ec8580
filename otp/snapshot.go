package otp

// Patch is one committed change to an object's document: the operation that
// produced it, tagged with the revision it created and who authored it.
type Patch struct {
	RevID    RevId           `json:"rev_id"`
	ObjectID ObjectId        `json:"object_id"`
	AuthorID AuthorId        `json:"author_id"`
	Op       operationHolder `json:"op"`
}

// NewPatch builds a Patch around op.
func NewPatch(revID RevId, objectID ObjectId, authorID AuthorId, op Operation) Patch {
	return Patch{RevID: revID, ObjectID: objectID, AuthorID: authorID, Op: operationHolder{op}}
}

// Snapshot is an object's document at a specific revision.
type Snapshot struct {
	ObjectID ObjectId `json:"object_id"`
	RevID    RevId    `json:"rev_id"`
	Content  any      `json:"content"`
}

// ApplyPatches folds patches onto snapshot in order, returning the resulting
// snapshot. Patches must be contiguous and strictly increasing from
// snapshot.RevID; a gap or repeat is a KindRebase error.
func ApplyPatches(snapshot Snapshot, patches []Patch) (Snapshot, *OtError) {
	content := snapshot.Content
	rev := snapshot.RevID

	for _, p := range patches {
		if p.RevID != rev+1 {
			return Snapshot{}, newErr(KindRebase, "expected revision %d, got %d", rev+1, p.RevID)
		}

		next, err := Apply(p.Op.Operation, content)
		if err != nil {
			return Snapshot{}, newErr(KindRebase, "patch %d failed to apply: %s", p.RevID, err)
		}

		content = next
		rev = p.RevID
	}

	return Snapshot{ObjectID: snapshot.ObjectID, RevID: rev, Content: content}, nil
}
