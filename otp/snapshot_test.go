package otp_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruxsync/otp/otp"
)

func TestApplyPatchesSequence(t *testing.T) {
	snap := otp.Snapshot{
		ObjectID: "doc-1",
		RevID:    otp.InitialRevID,
		Content:  decode(t, `{"title":"draft","tags":[]}`),
	}

	patches := []otp.Patch{
		otp.NewPatch(otp.ZeroRevID, "doc-1", "alice", otp.NewSet("title", "final")),
		otp.NewPatch(otp.ZeroRevID+1, "doc-1", "bob", otp.NewSplice("tags", 0, 0, []any{"go"})),
	}

	got, err := otp.ApplyPatches(snap, patches)
	if err != nil {
		t.Fatalf("ApplyPatches: %v", err)
	}

	want := decode(t, `{"title":"final","tags":["go"]}`)
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Errorf("Content mismatch (-want +got):\n%s", diff)
	}
	if got.RevID != otp.ZeroRevID+1 {
		t.Errorf("RevID = %v, want %v", got.RevID, otp.ZeroRevID+1)
	}
}

func TestApplyPatchesRejectsGap(t *testing.T) {
	snap := otp.Snapshot{ObjectID: "doc-1", RevID: otp.InitialRevID, Content: decode(t, `{}`)}
	patches := []otp.Patch{
		otp.NewPatch(otp.ZeroRevID+1, "doc-1", "alice", otp.NewSet("a", 1.0)),
	}

	if _, err := otp.ApplyPatches(snap, patches); err == nil {
		t.Fatal("ApplyPatches succeeded over a revision gap, want error")
	} else if err.Kind() != otp.KindRebase {
		t.Errorf("Kind() = %v, want KindRebase", err.Kind())
	}
}

func TestApplyPatchesRoundTripsThroughJSON(t *testing.T) {
	p := otp.NewPatch(otp.ZeroRevID, "doc-1", "alice", otp.NewSplice("xs", 0, 0, []any{1.0, 2.0}))

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back otp.Patch
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.RevID != p.RevID || back.ObjectID != p.ObjectID || back.AuthorID != p.AuthorID {
		t.Errorf("patch envelope mismatch: got %#v, want %#v", back, p)
	}
}
