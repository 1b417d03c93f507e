package engine

import (
	"testing"

	"github.com/tkoivisto/peregrine/internal/board"
)

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

// findMove resolves a UCI move string against the legal moves of pos.
func findMove(t *testing.T, pos *board.Position, uci string) board.Move {
	t.Helper()
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	for i := 0; i < ml.Len(); i++ {
		if ml.Get(i).UCI(false) == uci {
			return ml.Get(i)
		}
	}
	t.Fatalf("move %s not legal in %s", uci, pos.ToFEN())
	return board.NoMove
}

func firstLegal(t *testing.T, pos *board.Position) board.Move {
	t.Helper()
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		t.Fatal("no legal moves")
	}
	return ml.Get(0)
}

func TestEntryPackRoundtrip(t *testing.T) {
	pos := board.StartPosition()
	m := firstLegal(t, pos)

	cases := []struct {
		score, eval int16
		depth       uint8
		bound       Bound
		pv          bool
		age         uint8
	}{
		{0, 0, 0, BoundExact, false, 0},
		{1234, -567, 42, BoundLower, true, 17},
		{-28000, 28000, 127, BoundUpper, false, 31},
	}
	for _, c := range cases {
		data := packEntry(m, c.score, c.eval, c.depth, c.bound, c.pv, c.age)
		e := unpackEntry(data)
		if e.Move != m || e.Score != int(c.score) || e.Eval != int(c.eval) ||
			e.Depth != int(c.depth) || e.Bound != c.bound || e.PV != c.pv {
			t.Errorf("roundtrip %+v gave %+v", c, e)
		}
		if entryAge(data) != c.age {
			t.Errorf("age %d roundtripped to %d", c.age, entryAge(data))
		}
	}
}

func TestStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.StartPosition()
	m := firstLegal(t, pos)

	tt.Store(pos.Hash, 0, m, 33, 25, 7, BoundExact, true)

	e, ok := tt.Probe(pos.Hash, 0)
	if !ok {
		t.Fatal("probe missed a stored entry")
	}
	if e.Move != m || e.Score != 33 || e.Eval != 25 || e.Depth != 7 || e.Bound != BoundExact || !e.PV {
		t.Errorf("probe returned %+v", e)
	}

	if _, ok := tt.Probe(pos.Hash^0xdeadbeef, 0); ok {
		t.Error("probe hit on a foreign key")
	}
}

func TestMateScorePlyAdjustment(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.StartPosition()
	m := firstLegal(t, pos)

	// Mate in 5 plies seen at ply 3: stored relative to the node, so a
	// probe at a different ply re-anchors the distance to the new root.
	score := MateScore - 8
	tt.Store(pos.Hash, 3, m, score, 0, 10, BoundExact, false)

	e, ok := tt.Probe(pos.Hash, 3)
	if !ok || e.Score != score {
		t.Fatalf("same-ply probe gave %d, want %d", e.Score, score)
	}

	e, ok = tt.Probe(pos.Hash, 5)
	if !ok || e.Score != score-2 {
		t.Errorf("deeper probe gave %d, want %d", e.Score, score-2)
	}
}

func TestReplacementPolicy(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.StartPosition()
	m1 := firstLegal(t, pos)
	m2 := findMove(t, pos, "e2e4")

	// Same generation: a shallower entry must not displace a deeper one.
	tt.Store(pos.Hash, 0, m1, 50, 0, 10, BoundExact, false)
	tt.Store(pos.Hash, 0, m2, -50, 0, 3, BoundExact, false)
	if e, _ := tt.Probe(pos.Hash, 0); e.Depth != 10 || e.Move != m1 {
		t.Errorf("shallow same-generation store displaced deeper entry: %+v", e)
	}

	// New generation: even a shallow entry takes the slot.
	tt.NewSearch()
	tt.Store(pos.Hash, 0, m2, -50, 0, 3, BoundExact, false)
	if e, _ := tt.Probe(pos.Hash, 0); e.Depth != 3 || e.Move != m2 {
		t.Errorf("old-generation entry survived: %+v", e)
	}
}

func TestStoreKeepsMoveOnNoMove(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.StartPosition()
	m := findMove(t, pos, "e2e4")

	tt.Store(pos.Hash, 0, m, 10, 0, 4, BoundExact, false)
	tt.Store(pos.Hash, 0, board.NoMove, 20, 0, 6, BoundUpper, false)

	e, ok := tt.Probe(pos.Hash, 0)
	if !ok {
		t.Fatal("probe missed")
	}
	if e.Move != m {
		t.Errorf("move lost on NoMove overwrite: got %v, want %v", e.Move, m)
	}
	if e.Depth != 6 || e.Bound != BoundUpper {
		t.Errorf("new data not stored: %+v", e)
	}
}

func TestClearAndResize(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.StartPosition()
	tt.Store(pos.Hash, 0, firstLegal(t, pos), 10, 0, 4, BoundExact, false)

	tt.Clear()
	if _, ok := tt.Probe(pos.Hash, 0); ok {
		t.Error("entry survived Clear")
	}

	tt.Store(pos.Hash, 0, firstLegal(t, pos), 10, 0, 4, BoundExact, false)
	tt.Resize(2)
	if _, ok := tt.Probe(pos.Hash, 0); ok {
		t.Error("entry survived Resize")
	}
}
