package engine

// pawnEntry caches the pawn structure terms of the classical
// evaluation, keyed by the incremental pawn hash.
type pawnEntry struct {
	key uint64
	mg  int16
	eg  int16
}

// PawnTable is a per-evaluator cache for pawn structure scores. Pawn
// configurations repeat heavily across a search tree, so even a small
// table hits most probes.
type PawnTable struct {
	entries []pawnEntry
	mask    uint64
}

// NewPawnTable allocates a table of at least n entries, rounded down to
// a power of two for mask indexing.
func NewPawnTable(n int) *PawnTable {
	size := 1
	for size*2 <= n {
		size *= 2
	}
	return &PawnTable{
		entries: make([]pawnEntry, size),
		mask:    uint64(size - 1),
	}
}

func (pt *PawnTable) Probe(key uint64) (mg, eg int, ok bool) {
	e := &pt.entries[key&pt.mask]
	if e.key != key {
		return 0, 0, false
	}
	return int(e.mg), int(e.eg), true
}

func (pt *PawnTable) Store(key uint64, mg, eg int) {
	e := &pt.entries[key&pt.mask]
	e.key = key
	e.mg = int16(mg)
	e.eg = int16(eg)
}

func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = pawnEntry{}
	}
}
