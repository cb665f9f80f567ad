package rsssync

import (
	"fmt"
	"testing"
)

func TestGuidSetEvictsOldestInInsertionOrder(t *testing.T) {
	set := newGuidSet(3)
	set.Add("a")
	set.Add("b")
	set.Add("c")
	set.Add("d")

	if set.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	for _, guid := range []string{"b", "c", "d"} {
		if !set.Contains(guid) {
			t.Errorf("%q should still be tracked", guid)
		}
	}
	if set.Len() != 3 {
		t.Errorf("Len = %d, want 3", set.Len())
	}
}

func TestGuidSetReAddDoesNotRefreshPosition(t *testing.T) {
	set := newGuidSet(2)
	set.Add("a")
	set.Add("b")
	set.Add("a") // no-op, "a" stays oldest
	set.Add("c")

	if set.Contains("a") {
		t.Error("re-adding must not refresh insertion order")
	}
	if !set.Contains("b") || !set.Contains("c") {
		t.Error("b and c should remain")
	}
}

func TestGuidSetHoldsUpToCapacity(t *testing.T) {
	set := newGuidSet(1000)
	for i := 0; i < 1000; i++ {
		set.Add(fmt.Sprintf("guid-%d", i))
	}
	if set.Len() != 1000 {
		t.Fatalf("Len = %d, want 1000", set.Len())
	}
	if !set.Contains("guid-0") {
		t.Error("no eviction expected at exactly capacity")
	}
	set.Add("guid-1000")
	if set.Contains("guid-0") {
		t.Error("guid-0 should be evicted after overflow")
	}
}
