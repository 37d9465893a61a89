package dictionary

import "testing"

func TestAutoPhraseDictInsertAccumulatesHits(t *testing.T) {
	d := NewAutoPhraseDict(10)
	if hits := d.Insert("k", ""); hits != 1 {
		t.Fatalf("first Insert hits = %d, want 1", hits)
	}
	if hits := d.Insert("k", ""); hits != 2 {
		t.Fatalf("second Insert hits = %d, want 2", hits)
	}
	if d.Hits("k") != 2 {
		t.Fatalf("Hits = %d, want 2", d.Hits("k"))
	}
}

func TestAutoPhraseDictInsertWithValueStopsAccumulating(t *testing.T) {
	d := NewAutoPhraseDict(10)
	d.Insert("k", "")
	d.Insert("k", "v")
	if hits := d.Insert("k", "anything"); hits != 1 {
		t.Fatalf("hits after value set = %d, want 1 (no longer accumulating)", hits)
	}
}

func TestAutoPhraseDictEvictsLeastRecentlyTouched(t *testing.T) {
	d := NewAutoPhraseDict(2)
	d.Insert("a", "")
	d.Insert("b", "")
	d.Insert("c", "") // evicts "a"
	if d.Hits("a") != 0 {
		t.Fatalf("expected a to be evicted")
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
}

func TestAutoPhraseDictMoveToFrontProtectsFromEviction(t *testing.T) {
	d := NewAutoPhraseDict(2)
	d.Insert("a", "")
	d.Insert("b", "")
	d.Insert("a", "") // touches a, moving it to front
	d.Insert("c", "") // should evict b, not a
	if d.Hits("a") == 0 {
		t.Fatalf("expected a to survive eviction after being re-touched")
	}
	if d.Hits("b") != 0 {
		t.Fatalf("expected b to be evicted")
	}
}

func TestAutoPhraseDictRemove(t *testing.T) {
	d := NewAutoPhraseDict(10)
	d.Insert("a", "")
	if !d.Remove("a") {
		t.Fatalf("Remove reported absent for a present key")
	}
	if d.Remove("a") {
		t.Fatalf("Remove reported present after removal")
	}
}
