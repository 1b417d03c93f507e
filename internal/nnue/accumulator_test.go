package nnue

import (
	"testing"

	"github.com/tkoivisto/peregrine/internal/board"
)

func testNetwork() *Network {
	net := &Network{}
	net.InitRandom(1)
	return net
}

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

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

func capturedBy(pos *board.Position, m board.Move) board.Piece {
	if m.IsCastling() {
		return board.NoPiece
	}
	if m.IsEnPassant() {
		return board.NewPiece(board.Pawn, pos.SideToMove.Other())
	}
	return pos.PieceAt(m.To())
}

// freshEval rebuilds an accumulator from scratch, the oracle the
// incremental path must agree with.
func freshEval(net *Network, pos *board.Position) int {
	acc := NewAccumulator(net)
	acc.Reset(pos)
	return acc.Evaluate(pos)
}

// walkLine pushes each move, checking the incremental evaluation
// against a full refresh at every step, then unwinds and checks again.
func walkLine(t *testing.T, net *Network, startFEN string, line []string) {
	t.Helper()
	pos := mustPos(t, startFEN)
	acc := NewAccumulator(net)
	acc.Reset(pos)

	type frame struct {
		m    board.Move
		undo board.UndoInfo
		eval int
	}
	var stack []frame

	for _, uci := range line {
		m := findMove(t, pos, uci)
		before := acc.Evaluate(pos)

		acc.Push(pos, m, capturedBy(pos, m))
		undo := pos.MakeMove(m)
		stack = append(stack, frame{m, undo, before})

		got := acc.Evaluate(pos)
		want := freshEval(net, pos)
		if got != want {
			t.Fatalf("after %s: incremental %d, refresh %d", uci, got, want)
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		acc.Pop()
		pos.UnmakeMove(f.m, f.undo)
		if got := acc.Evaluate(pos); got != f.eval {
			t.Fatalf("unwinding %s: eval %d, want %d", f.m.UCI(false), got, f.eval)
		}
	}
}

func TestIncrementalMatchesRefresh(t *testing.T) {
	net := testNetwork()

	lines := []struct {
		name string
		fen  string
		line []string
	}{
		{
			"development and captures",
			board.StartFEN,
			[]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5c6", "d7c6", "f3e5", "d8d4", "e5f3", "d4e4"},
		},
		{
			"castling both sides",
			board.StartFEN,
			[]string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1", "f8c5", "d2d3", "e8g8"},
		},
		{
			"en passant",
			board.StartFEN,
			[]string{"e2e4", "a7a6", "e4e5", "d7d5", "e5d6"},
		},
		{
			"capture promotion",
			"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
			[]string{"d7c8q", "d8c8"},
		},
		{
			"king walk across the mirror line",
			board.StartFEN,
			[]string{"e2e4", "e7e5", "e1e2", "e8e7", "e2d3", "e7f6", "d3c4", "f6g6"},
		},
		{
			"queenside castling",
			"r3kbnr/pppqpppp/2n5/3p1b2/3P1B2/2N5/PPPQPPPP/R3KBNR w KQkq - 6 5",
			[]string{"e1c1", "e8c8"},
		},
	}

	for _, tc := range lines {
		t.Run(tc.name, func(t *testing.T) {
			walkLine(t, net, tc.fen, tc.line)
		})
	}
}

// Mirrored positions with swapped colors must evaluate identically:
// the black perspective transform reuses the white weights.
func TestColorSymmetry(t *testing.T) {
	net := testNetwork()

	white := mustPos(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	black := mustPos(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")

	if w, b := freshEval(net, white), freshEval(net, black); w != b {
		t.Errorf("symmetric position evaluates %d for white, %d for black", w, b)
	}
}

func TestFeatureIndexBounds(t *testing.T) {
	pos := mustPos(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	for p := board.White; p <= board.Black; p++ {
		var buf [32]int
		for _, idx := range activeFeatures(pos, p, buf[:0]) {
			if idx < 0 || idx >= InputSize {
				t.Fatalf("feature index %d out of range", idx)
			}
		}
	}
}
