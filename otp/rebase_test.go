package otp_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cruxsync/otp/otp"
)

func TestRebaseThroughUnrelatedCommits(t *testing.T) {
	content := decode(t, `{"a":1,"b":2,"c":3}`)
	committed := []otp.Operation{
		otp.NewSet("b", 20.0),
		otp.NewSet("c", 30.0),
	}
	op := otp.NewSet("a", 10.0)

	got, err := otp.Rebase(content, op, committed)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if diff := cmp.Diff(op, got); diff != "" {
		t.Errorf("Rebase() mismatch, want unchanged (-want +got):\n%s", diff)
	}
}

func TestRebaseDropsWhenAncestorReplaced(t *testing.T) {
	content := decode(t, `{"a":{"b":1}}`)
	committed := []otp.Operation{
		otp.NewSet("a", decode(t, `{"b":99}`)),
	}
	op := otp.NewSet("a.b", 2.0)

	got, err := otp.Rebase(content, op, committed)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if got != nil {
		t.Errorf("Rebase() = %#v, want nil (dropped)", got)
	}
}

func TestRebaseShiftsSpliceIndexThroughEarlierSplice(t *testing.T) {
	content := decode(t, `{"xs":[1,2,3,4,5]}`)
	committed := []otp.Operation{
		otp.NewSplice("xs", 0, 1, []any{9.0, 8.0}),
	}
	op := otp.NewSplice("xs", 3, 1, nil)

	got, err := otp.Rebase(content, op, committed)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	want := otp.NewSplice("xs", 4, 1, nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rebase() mismatch (-want +got):\n%s", diff)
	}
}

func TestRebaseDropsSetOnElementRemovedByEarlierSplice(t *testing.T) {
	content := decode(t, `{"items":[{"id":"a","n":1}]}`)
	committed := []otp.Operation{
		otp.NewSplice("items", 0, 1, nil),
	}
	op := otp.NewSet("items.a.n", 2.0)

	got, err := otp.Rebase(content, op, committed)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if got != nil {
		t.Errorf("Rebase() = %#v, want nil (item removed by committed splice)", got)
	}
}

func TestRebaseStopsFoldingOnceDropped(t *testing.T) {
	content := decode(t, `{"a":1,"xs":[1,2,3]}`)
	committed := []otp.Operation{
		otp.NewSet("a", decode(t, `{"nested":true}`)),
		otp.NewSplice("xs", 0, 1, nil),
	}
	op := otp.NewSet("a", 5.0)

	got, err := otp.Rebase(content, op, committed)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if got != nil {
		t.Errorf("Rebase() = %#v, want nil", got)
	}
}
