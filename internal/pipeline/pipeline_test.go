package pipeline_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxsync/otp/internal/pipeline"
	"github.com/cruxsync/otp/internal/store"
	"github.com/cruxsync/otp/otp"
)

type recordingFeed struct {
	published []otp.Patch
}

func (f *recordingFeed) Publish(ctx context.Context, patch otp.Patch) error {
	f.published = append(f.published, patch)
	return nil
}

func TestSubmitFirstPatchAgainstEmptyObject(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	feed := &recordingFeed{}
	pl := pipeline.New(s, feed, logr.Discard())

	patch, err := pl.Submit(ctx, "document", "doc-1", "alice", otp.InitialRevID, otp.NewSet("title", "hello"))
	require.NoError(t, err)
	assert.Equal(t, otp.ZeroRevID, patch.RevID)
	require.Len(t, feed.published, 1)

	snap, err := s.LoadSnapshot(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "hello"}, snap.Content)
}

func TestSubmitRebasesAgainstConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	pl := pipeline.New(s, nil, logr.Discard())

	_, err := pl.Submit(ctx, "document", "doc-1", "alice", otp.InitialRevID,
		otp.NewSet("", map[string]any{"items": []any{}}))
	require.NoError(t, err)

	_, err = pl.Submit(ctx, "document", "doc-1", "alice", otp.ZeroRevID,
		otp.NewSplice("items", 0, 0, []any{map[string]any{"id": "a"}}))
	require.NoError(t, err)

	patch, err := pl.Submit(ctx, "document", "doc-1", "bob", otp.ZeroRevID,
		otp.NewSplice("items", 0, 0, []any{map[string]any{"id": "b"}}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, patch.RevID)

	snap, err := s.LoadSnapshot(ctx, "doc-1")
	require.NoError(t, err)
	items := snap.Content.(map[string]any)["items"].([]any)
	assert.Len(t, items, 2)
}

func TestSubmitRejectsBaseRevAheadOfLatest(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	pl := pipeline.New(s, nil, logr.Discard())

	_, err := pl.Submit(ctx, "document", "doc-1", "alice", 5, otp.NewSet("title", "x"))
	assert.Error(t, err)
}

func TestSubmitReturnsObsoleteWhenRebaseDropsOperation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	pl := pipeline.New(s, nil, logr.Discard())

	_, err := pl.Submit(ctx, "document", "doc-1", "alice", otp.InitialRevID,
		otp.NewSet("", map[string]any{"title": "first"}))
	require.NoError(t, err)

	_, err = pl.Submit(ctx, "document", "doc-1", "alice", otp.ZeroRevID, otp.NewSet("title", "second"))
	require.NoError(t, err)

	_, err = pl.Submit(ctx, "document", "doc-1", "bob", otp.ZeroRevID, otp.NewSet("title", "conflicting"))
	assert.ErrorIs(t, err, pipeline.ErrObsolete)
}
