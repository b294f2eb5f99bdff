package model

import "testing"

func TestRank_OrdinalKeepsOutOfRangeDistinct(t *testing.T) {
	if got := RankedAt(17).Ordinal(200); got != 17 {
		t.Errorf("ranked ordinal %d, want 17", got)
	}
	if got := OutOfRange().Ordinal(200); got != 201 {
		t.Errorf("out-of-range ordinal %d, want 201", got)
	}
}

func TestRank_Thresholds(t *testing.T) {
	if !RankedAt(5).AtMost(10) || RankedAt(11).AtMost(10) {
		t.Error("AtMost must compare concrete positions against the bound")
	}
	if OutOfRange().AtMost(1000) {
		t.Error("out-of-range is never inside any top-N bound")
	}
	if !OutOfRange().AtLeast(100) {
		t.Error("out-of-range sits below every concrete position")
	}
	if RankedAt(50).AtLeast(100) {
		t.Error("rank 50 is better than 100, AtLeast must be false")
	}
}

func TestRank_CompareAndDisplay(t *testing.T) {
	if RankedAt(3).Compare(RankedAt(8)) >= 0 {
		t.Error("rank 3 must order before rank 8")
	}
	if RankedAt(150).Compare(OutOfRange()) >= 0 {
		t.Error("any concrete rank must order before out-of-range")
	}
	if OutOfRange().Compare(OutOfRange()) != 0 {
		t.Error("two out-of-range ranks must compare equal")
	}
	if got := RankedAt(17).Display(200); got != "17" {
		t.Errorf("display %q, want 17", got)
	}
	if got := OutOfRange().Display(200); got != "200+" {
		t.Errorf("display %q, want 200+", got)
	}
}
