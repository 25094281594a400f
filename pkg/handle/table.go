package handle

// maxGeneration keeps encoded handles positive.
const maxGeneration = 1<<31 - 1

type slot[T any] struct {
	gen  uint32
	used bool
	val  T
}

// Table maps handles to values. Slots are reused through a free list and
// every reuse gets a new generation. Table is not safe for concurrent use;
// callers serialize access.
type Table[T any] struct {
	slots []slot[T]
	free  []uint32
	n     int
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{gen: 1})
	}
	s := &t.slots[idx]
	s.used = true
	s.val = v
	t.n++
	return makeHandle(idx, s.gen)
}

// Lookup returns the value for h if h is current.
func (t *Table[T]) Lookup(h Handle) (T, bool) {
	s := t.slot(h)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.val, true
}

// Remove deletes and returns the value for h. The slot's generation is
// advanced so h never resolves again.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	var zero T
	s := t.slot(h)
	if s == nil {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.used = false
	s.gen++
	if s.gen > maxGeneration {
		s.gen = 1
	}
	idx, _ := h.index()
	t.free = append(t.free, idx)
	t.n--
	return v, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	return t.n
}

func (t *Table[T]) slot(h Handle) *slot[T] {
	if h <= 0 {
		return nil
	}
	idx, ok := h.index()
	if !ok || int(idx) >= len(t.slots) {
		return nil
	}
	s := &t.slots[idx]
	if !s.used || s.gen != h.generation() {
		return nil
	}
	return s
}
