package board

import "testing"

// perft counts leaf nodes of the legal move tree, the standard movegen
// correctness oracle.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}

	var moves MoveList
	p.GenerateLegalMoves(&moves)
	if depth == 1 {
		return int64(moves.Len())
	}

	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

func runPerft(t *testing.T, fen string, want []int64) {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	for depth, expected := range want {
		got := perft(pos, depth+1)
		if got != expected {
			t.Errorf("perft(%d) = %d, want %d", depth+1, got, expected)
		}
	}
}

func TestPerftStartingPosition(t *testing.T) {
	runPerft(t, StartFEN, []int64{20, 400, 8902, 197281})
}

// Kiwipete exercises castling, en passant, promotions and pins at once.
func TestPerftKiwipete(t *testing.T) {
	runPerft(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		[]int64{48, 2039, 97862})
}

func TestPerftPosition3(t *testing.T) {
	runPerft(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
		[]int64{14, 191, 2812, 43238})
}

func TestPerftCastlingHeavy(t *testing.T) {
	runPerft(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		[]int64{26, 568, 13744})
}

// The starting position written with Shredder-FEN castling letters must
// behave identically to the classical KQkq form.
func TestPerftShredderStartpos(t *testing.T) {
	runPerft(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w HAha - 0 1",
		[]int64{20, 400, 8902, 197281})
}

// En passant d3xd4 would expose the a4 king to the h4 rook once both
// pawns leave the rank. The capture must not be generated.
func TestEnPassantHorizontalPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatal(err)
	}

	var moves MoveList
	pos.GenerateLegalMoves(&moves)
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).IsEnPassant() {
			t.Errorf("en passant %v should be illegal", moves.Get(i))
		}
	}

	runPerft(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []int64{6, 94})
}
