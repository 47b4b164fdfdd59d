package medium

import "testing"

func TestNewTrackerIsVacuum(t *testing.T) {
	tr := New()
	if !tr.Vacuum() || tr.Size() != 0 {
		t.Fatalf("expected empty tracker to be vacuum with size 0")
	}
}

func TestEnterMakesCurrentTheHighestPriority(t *testing.T) {
	tr := New()
	tr.Enter(Info{Priority: 1, Tag: 1})
	tr.Enter(Info{Priority: 5, Tag: 2})
	tr.Enter(Info{Priority: 3, Tag: 3})
	if got := tr.Current(); got != (Info{Priority: 5, Tag: 2}) {
		t.Fatalf("got %+v, want highest-priority entry", got)
	}
	if tr.Size() != 3 {
		t.Fatalf("got size %d, want 3", tr.Size())
	}
}

func TestTiesBrokenByTagAscending(t *testing.T) {
	tr := New()
	tr.Enter(Info{Priority: 2, Tag: 9})
	tr.Enter(Info{Priority: 2, Tag: 1})
	if got := tr.Current(); got != (Info{Priority: 2, Tag: 1}) {
		t.Fatalf("got %+v, want lowest tag to win the tie", got)
	}
}

func TestEnterExitRestoresSizeAndCurrent(t *testing.T) {
	tr := New()
	tr.Enter(Info{Priority: 4, Tag: 1})
	before := tr.Current()
	beforeSize := tr.Size()

	tr.Enter(Info{Priority: 2, Tag: 2})
	tr.Exit(Info{Priority: 2, Tag: 2})

	if tr.Size() != beforeSize {
		t.Fatalf("got size %d, want %d", tr.Size(), beforeSize)
	}
	if tr.Current() != before {
		t.Fatalf("got current %+v, want %+v", tr.Current(), before)
	}
}

func TestExistReflectsMembership(t *testing.T) {
	tr := New()
	info := Info{Priority: 1, Tag: 1}
	if tr.Exist(info) {
		t.Fatalf("expected no membership before Enter")
	}
	tr.Enter(info)
	if !tr.Exist(info) {
		t.Fatalf("expected membership after Enter")
	}
	tr.Exit(info)
	if tr.Exist(info) {
		t.Fatalf("expected no membership after Exit")
	}
}

func TestTrueHitMatchesCurrentTag(t *testing.T) {
	tr := New()
	tr.Enter(Info{Priority: 1, Tag: 7})
	if !tr.TrueHit(7) {
		t.Fatalf("expected true hit for current top tag")
	}
	if tr.TrueHit(8) {
		t.Fatalf("expected no true hit for a non-top tag")
	}
}

func TestTrueHitFalseWhenVacuum(t *testing.T) {
	tr := New()
	if tr.TrueHit(0) {
		t.Fatalf("expected no true hit on an empty tracker")
	}
}
