package diag

import (
	"testing"

	"ferrite/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	sp := source.Span{File: 1, Start: 0, End: 1}
	if !b.Add(NewError(TyCycle, sp, "one")) || !b.Add(NewError(TyCycle, sp, "two")) {
		t.Fatalf("first two diagnostics must fit")
	}
	if b.Add(NewError(TyCycle, sp, "three")) {
		t.Fatalf("third diagnostic must be dropped")
	}
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestBagSortStable(t *testing.T) {
	b := NewBag(8)
	b.Add(NewError(TyDuplicateField, source.Span{File: 2, Start: 5, End: 6}, "late"))
	b.Add(New(SevWarning, TyAliasParamBound, source.Span{File: 1, Start: 9, End: 10}, "warn"))
	b.Add(NewError(TyCycle, source.Span{File: 1, Start: 9, End: 10}, "err"))
	b.Sort()

	items := b.Items()
	if items[0].Severity != SevError || items[0].Primary.File != 1 {
		t.Fatalf("expected the file-1 error first, got %+v", items[0])
	}
	if items[1].Severity != SevWarning {
		t.Fatalf("expected the warning second, got %+v", items[1])
	}
	if items[2].Primary.File != 2 {
		t.Fatalf("expected the file-2 error last, got %+v", items[2])
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(8)
	sp := source.Span{File: 1, Start: 3, End: 4}
	b.Add(NewError(TyUnconstrainedParam, sp, "dup"))
	b.Add(NewError(TyUnconstrainedParam, sp, "dup"))
	b.Dedup()
	if b.Len() != 1 {
		t.Fatalf("dedup kept %d items, want 1", b.Len())
	}
}

func TestErrorCountGatesLaterPhases(t *testing.T) {
	b := NewBag(8)
	b.Add(New(SevWarning, TyUselessRelaxedBound, source.Span{}, "w"))
	if b.HasErrors() {
		t.Fatalf("warnings must not count as errors")
	}
	b.Add(NewError(TyDiscrOverflow, source.Span{}, "e"))
	if b.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", b.ErrorCount())
	}
}
