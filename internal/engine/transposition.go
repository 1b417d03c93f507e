package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/tkoivisto/peregrine/internal/board"
)

// Bound classifies a stored score.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // score inside the original window
	BoundLower       // fail high, score is a lower bound
	BoundUpper       // fail low, score is an upper bound
)

// TTEntry is the unpacked view of a table slot.
type TTEntry struct {
	Move  board.Move
	Score int
	Eval  int
	Depth int
	Bound Bound
	PV    bool
}

// ttSlot is two atomically accessed words. key holds hash^data, so a
// reader that sees a torn write (key from one store, data from another)
// fails the xor check and treats the slot as empty. That validation is
// what lets every search thread probe and store with plain atomic loads
// and stores, no lock anywhere on the path.
type ttSlot struct {
	key  atomic.Uint64
	data atomic.Uint64
}

// data word layout:
// bits 0-15  move
// bits 16-31 score (int16)
// bits 32-47 static eval (int16)
// bits 48-55 depth
// bits 56-57 bound
// bit  58    pv
// bits 59-63 generation
const (
	ttBoundShift = 56
	ttPVShift    = 58
	ttAgeShift   = 59
	ttAgeMask    = 31
)

func packEntry(m board.Move, score, eval int16, depth uint8, bound Bound, pv bool, age uint8) uint64 {
	data := uint64(uint16(m)) |
		uint64(uint16(score))<<16 |
		uint64(uint16(eval))<<32 |
		uint64(depth)<<48 |
		uint64(bound)<<ttBoundShift |
		uint64(age&ttAgeMask)<<ttAgeShift
	if pv {
		data |= 1 << ttPVShift
	}
	return data
}

func unpackEntry(data uint64) TTEntry {
	return TTEntry{
		Move:  board.Move(uint16(data)),
		Score: int(int16(data >> 16)),
		Eval:  int(int16(data >> 32)),
		Depth: int(uint8(data >> 48)),
		Bound: Bound(data>>ttBoundShift) & 3,
		PV:    data>>ttPVShift&1 != 0,
	}
}

func entryAge(data uint64) uint8 {
	return uint8(data>>ttAgeShift) & ttAgeMask
}

func entryBound(data uint64) Bound {
	return Bound(data>>ttBoundShift) & 3
}

// TranspositionTable is the search cache shared by all workers. All
// access is lock-free; see ttSlot.
type TranspositionTable struct {
	slots []ttSlot
	age   atomic.Uint32
}

// NewTranspositionTable allocates a table of roughly sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const slotSize = 16
	n := uint64(sizeMB) * 1024 * 1024 / slotSize
	if n < 1024 {
		n = 1024
	}
	return &TranspositionTable{slots: make([]ttSlot, n)}
}

// Resize replaces the backing array. Must not race with a running
// search.
func (tt *TranspositionTable) Resize(sizeMB int) {
	fresh := NewTranspositionTable(sizeMB)
	tt.slots = fresh.slots
	tt.age.Store(0)
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() int {
	return len(tt.slots)
}

// index maps a hash onto a slot with the multiply-high trick: the high
// word of hash*len is uniform over [0, len) without a modulo.
func (tt *TranspositionTable) index(hash uint64) uint64 {
	hi, _ := bits.Mul64(hash, uint64(len(tt.slots)))
	return hi
}

// Probe looks the position up and unpacks the slot when the validation
// key matches. Mate scores are translated to be relative to the probing
// node on the way out.
func (tt *TranspositionTable) Probe(hash uint64, ply int) (TTEntry, bool) {
	slot := &tt.slots[tt.index(hash)]
	key := slot.key.Load()
	data := slot.data.Load()
	if key^data != hash || entryBound(data) == BoundNone {
		return TTEntry{}, false
	}
	entry := unpackEntry(data)
	entry.Score = scoreFromTT(entry.Score, ply)
	return entry, true
}

// Store writes a search result. The slot is overwritten when it holds
// an entry from an earlier generation or when the incoming depth is at
// least the stored depth; a same-generation deeper entry survives. When
// the new result carries no best move the previous move is kept so a
// fail-low re-visit does not erase ordering information.
func (tt *TranspositionTable) Store(hash uint64, ply int, m board.Move, score, eval, depth int, bound Bound, pv bool) {
	slot := &tt.slots[tt.index(hash)]
	age := uint8(tt.age.Load())

	oldKey := slot.key.Load()
	oldData := slot.data.Load()
	sameHash := oldKey^oldData == hash && entryBound(oldData) != BoundNone

	if entryBound(oldData) != BoundNone && entryAge(oldData) == age &&
		depth < int(uint8(oldData>>48)) {
		return
	}
	if m == board.NoMove && sameHash {
		m = board.Move(uint16(oldData))
	}

	data := packEntry(m,
		int16(clamp(scoreToTT(score, ply), -Infinity, Infinity)),
		int16(clamp(eval, -Infinity, Infinity)),
		uint8(clamp(depth, 0, 255)), bound, pv, age)
	slot.key.Store(hash ^ data)
	slot.data.Store(data)
}

// NewSearch advances the generation counter so entries from earlier
// searches lose replacement priority.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear wipes every slot.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].key.Store(0)
		tt.slots[i].data.Store(0)
	}
	tt.age.Store(0)
}

// HashFull estimates utilisation in permille by sampling slots written
// during the current search.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if sample > len(tt.slots) {
		sample = len(tt.slots)
	}
	age := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sample; i++ {
		data := tt.slots[i].data.Load()
		if entryBound(data) != BoundNone && entryAge(data) == age {
			used++
		}
	}
	return used * 1000 / sample
}

// Mate scores are stored relative to the node that found them rather
// than the root, otherwise a mate reached through a transposition at a
// different ply would report the wrong distance.

func scoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}

func scoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}
