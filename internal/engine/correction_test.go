package engine

import (
	"testing"

	"github.com/tkoivisto/peregrine/internal/board"
)

func TestCorrectionMovesEvalTowardSearch(t *testing.T) {
	ch := NewCorrectionHistory()
	pos := board.StartPosition()

	if got := ch.Correct(pos, 40); got != 40 {
		t.Fatalf("fresh table changed eval: %d", got)
	}

	// The search keeps coming back higher than the static eval; the
	// correction should close part of the gap.
	for i := 0; i < 50; i++ {
		ch.Update(pos, 120, 40, 10)
	}
	got := ch.Correct(pos, 40)
	if got <= 40 || got > 120 {
		t.Errorf("Correct = %d, want in (40, 120]", got)
	}

	// And symmetrically downward.
	ch.Clear()
	for i := 0; i < 50; i++ {
		ch.Update(pos, -60, 40, 10)
	}
	got = ch.Correct(pos, 40)
	if got >= 40 || got < -60 {
		t.Errorf("Correct = %d, want in [-60, 40)", got)
	}
}

func TestCorrectionIsKeyedByStructure(t *testing.T) {
	ch := NewCorrectionHistory()
	pos := board.StartPosition()
	other := mustPos(t, "r1bqkbnr/pppppppp/2n5/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 2 2")

	for i := 0; i < 50; i++ {
		ch.Update(pos, 200, 0, 10)
	}

	// Same pawn structure, different minor configuration: the pawn term
	// carries over but the blend differs from the trained position.
	trained := ch.Correct(pos, 0)
	partial := ch.Correct(other, 0)
	if trained == 0 {
		t.Fatal("training had no effect")
	}
	if partial == 0 {
		t.Error("shared pawn key contributed nothing")
	}
	if partial >= trained {
		t.Errorf("partial match %d >= full match %d", partial, trained)
	}
}

func TestCorrectionNeverReachesMateRange(t *testing.T) {
	ch := NewCorrectionHistory()
	pos := board.StartPosition()

	for i := 0; i < 200; i++ {
		ch.Update(pos, 20000, 0, 16)
	}
	got := ch.Correct(pos, MateScore-MaxPly-1)
	if IsMateScore(got) {
		t.Errorf("corrected eval %d entered mate range", got)
	}
}
