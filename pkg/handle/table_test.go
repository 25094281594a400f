package handle

import "testing"

func TestTableInsertLookupRemove(t *testing.T) {
	tbl := NewTable[string]()

	h := tbl.Insert("first")
	if got, ok := tbl.Lookup(h); !ok || got != "first" {
		t.Fatalf("Lookup = %q, %v", got, ok)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}

	got, ok := tbl.Remove(h)
	if !ok || got != "first" {
		t.Fatalf("Remove = %q, %v", got, ok)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}

	// Second remove fails: the handle is stale now.
	if _, ok := tbl.Remove(h); ok {
		t.Error("Remove should fail for a released handle")
	}
}

func TestTableRejectsStaleHandleAfterReuse(t *testing.T) {
	tbl := NewTable[string]()

	old := tbl.Insert("old")
	tbl.Remove(old)

	// The freed slot is reused with a new generation.
	fresh := tbl.Insert("fresh")
	if fresh == old {
		t.Fatal("reused slot must not reproduce the old handle")
	}
	oldIdx, _ := old.index()
	freshIdx, _ := fresh.index()
	if oldIdx != freshIdx {
		t.Fatalf("expected slot reuse, got indices %d and %d", oldIdx, freshIdx)
	}

	if _, ok := tbl.Lookup(old); ok {
		t.Error("stale handle must not resolve")
	}
	if got, ok := tbl.Lookup(fresh); !ok || got != "fresh" {
		t.Errorf("Lookup(fresh) = %q, %v", got, ok)
	}
}

func TestTableUnknownHandles(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Insert(1)

	for _, h := range []Handle{0, -1, 1 << 40, makeHandle(7, 1)} {
		if _, ok := tbl.Lookup(h); ok {
			t.Errorf("Lookup(%d) should fail", h)
		}
		if _, ok := tbl.Remove(h); ok {
			t.Errorf("Remove(%d) should fail", h)
		}
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestTableGenerationWraps(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Insert(1)
	tbl.slots[0].gen = maxGeneration
	if _, ok := tbl.Remove(makeHandle(0, maxGeneration)); !ok {
		t.Fatal("Remove failed")
	}

	if tbl.slots[0].gen != 1 {
		t.Errorf("generation = %d, want wrap to 1", tbl.slots[0].gen)
	}
	if h := tbl.Insert(2); h <= 0 {
		t.Errorf("handle after wrap = %d, want positive", h)
	}
}
