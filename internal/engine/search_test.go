package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkoivisto/peregrine/internal/board"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.HashMB == 0 {
		opts.HashMB = 8
	}
	opts.Logger = zerolog.Nop()
	eng, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func searchFEN(t *testing.T, eng *Engine, fen string, limits Limits) SearchResult {
	t.Helper()
	eng.SetPosition(mustPos(t, fen), nil)
	return eng.Go(limits)
}

func isLegal(pos *board.Position, m board.Move) bool {
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	return ml.Contains(m)
}

const mateInOneFEN = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"

func TestFindsMateInOne(t *testing.T) {
	eng := newTestEngine(t, Options{})
	result := searchFEN(t, eng, mateInOneFEN, Limits{Depth: 5})

	if got := result.BestMove.UCI(false); got != "a1a8" {
		t.Errorf("best move %s, want a1a8", got)
	}
	if !IsMateScore(result.Score) || MateIn(result.Score) != 1 {
		t.Errorf("score %d, want mate in 1", result.Score)
	}
}

func TestDepthOneReturnsLegalMove(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	eng := newTestEngine(t, Options{})
	for _, fen := range fens {
		result := searchFEN(t, eng, fen, Limits{Depth: 1})
		if result.BestMove == board.NoMove {
			t.Errorf("%s: no move returned", fen)
			continue
		}
		if !isLegal(mustPos(t, fen), result.BestMove) {
			t.Errorf("%s: illegal best move %v", fen, result.BestMove)
		}
	}
}

func TestStartposNearZeroAtDepthOne(t *testing.T) {
	eng := newTestEngine(t, Options{})
	result := searchFEN(t, eng, board.StartFEN, Limits{Depth: 1})
	if result.Score < -150 || result.Score > 150 {
		t.Errorf("startpos depth 1 score %d, want near zero", result.Score)
	}
}

func TestSingleThreadDeterminism(t *testing.T) {
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -"
	limits := Limits{Depth: 6}

	a := searchFEN(t, newTestEngine(t, Options{}), fen, limits)
	b := searchFEN(t, newTestEngine(t, Options{}), fen, limits)

	if a.BestMove != b.BestMove || a.Score != b.Score || a.Nodes != b.Nodes {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestTerminalPositions(t *testing.T) {
	eng := newTestEngine(t, Options{})

	// Stalemate: no legal moves, not in check.
	result := searchFEN(t, eng, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits{Depth: 3})
	if result.BestMove != board.NoMove {
		t.Errorf("stalemate returned move %v", result.BestMove)
	}

	// Checkmate: no legal moves either.
	result = searchFEN(t, eng, "R6k/6pp/8/8/8/8/8/7K b - - 0 1", Limits{Depth: 3})
	if result.BestMove != board.NoMove {
		t.Errorf("checkmate returned move %v", result.BestMove)
	}
}

func TestInsufficientMaterialScoresDraw(t *testing.T) {
	eng := newTestEngine(t, Options{})
	result := searchFEN(t, eng, "8/8/8/4k3/8/8/4K3/8 w - - 0 1", Limits{Depth: 4})
	if result.Score != DrawScore {
		t.Errorf("K vs K score %d, want %d", result.Score, DrawScore)
	}
}

// Every pruning heuristic may change the node count, never the move
// on a forced mate.
func TestPruningTogglesStaySound(t *testing.T) {
	toggles := []struct {
		name string
		off  func(*SearchOptions)
	}{
		{"rfp", func(o *SearchOptions) { o.UseRFP = false }},
		{"razoring", func(o *SearchOptions) { o.UseRazoring = false }},
		{"nullmove", func(o *SearchOptions) { o.UseNullMove = false }},
		{"probcut", func(o *SearchOptions) { o.UseProbcut = false }},
		{"lmp", func(o *SearchOptions) { o.UseLMP = false }},
		{"futility", func(o *SearchOptions) { o.UseFutility = false }},
		{"seepruning", func(o *SearchOptions) { o.UseSEEPruning = false }},
		{"historypruning", func(o *SearchOptions) { o.UseHistoryPruning = false }},
		{"lmr", func(o *SearchOptions) { o.UseLMR = false }},
		{"iid", func(o *SearchOptions) { o.UseIID = false }},
		{"singular", func(o *SearchOptions) { o.UseSingular = false }},
		{"checkext", func(o *SearchOptions) { o.UseCheckExtension = false }},
		{"aspiration", func(o *SearchOptions) { o.UseAspiration = false }},
	}

	for _, tc := range toggles {
		t.Run(tc.name, func(t *testing.T) {
			search := DefaultSearchOptions()
			tc.off(&search)
			eng := newTestEngine(t, Options{Search: search})
			result := searchFEN(t, eng, mateInOneFEN, Limits{Depth: 5})
			if got := result.BestMove.UCI(false); got != "a1a8" {
				t.Errorf("best move %s, want a1a8", got)
			}
		})
	}
}

func TestMultiThreadFindsMate(t *testing.T) {
	eng := newTestEngine(t, Options{Threads: 2})
	result := searchFEN(t, eng, mateInOneFEN, Limits{Depth: 5})
	if got := result.BestMove.UCI(false); got != "a1a8" {
		t.Errorf("best move %s, want a1a8", got)
	}
}

func TestNodeLimit(t *testing.T) {
	eng := newTestEngine(t, Options{})
	result := searchFEN(t, eng, board.StartFEN, Limits{Nodes: 5000})
	if result.BestMove == board.NoMove {
		t.Fatal("no move under node limit")
	}
	// The limit is polled on flush granularity, so allow slack.
	if result.Nodes > 5000+4*nodeFlushInterval {
		t.Errorf("searched %d nodes, limit 5000", result.Nodes)
	}
}

func TestStopAbortsInfiniteSearch(t *testing.T) {
	eng := newTestEngine(t, Options{})
	eng.SetPosition(board.StartPosition(), nil)

	done := make(chan SearchResult, 1)
	go func() { done <- eng.Go(Limits{Infinite: true}) }()

	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case result := <-done:
		if result.BestMove == board.NoMove {
			t.Error("stopped search returned no move")
		}
		if !isLegal(board.StartPosition(), result.BestMove) {
			t.Errorf("stopped search returned illegal move %v", result.BestMove)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
}

// The log-log reduction table must actually take plies off late moves,
// growing with both depth and move number.
func TestLMRTableReduces(t *testing.T) {
	if got := lmrReduction(3, 4); got < 1 {
		t.Errorf("lmrReduction(3, 4) = %d, want >= 1", got)
	}
	if got := lmrReduction(20, 20); got < 2 {
		t.Errorf("lmrReduction(20, 20) = %d, want >= 2", got)
	}
	if lmrReduction(30, 10) < lmrReduction(5, 10) || lmrReduction(10, 30) < lmrReduction(10, 5) {
		t.Error("reduction table is not monotonic in depth and move number")
	}
	if lmrReduction(200, 200) != lmrReduction(63, 63) {
		t.Error("indexes past the table do not clamp")
	}
}

// A stop raised before the search has started must not be lost: the
// caller may run Go on another goroutine and signal it immediately.
func TestStopBeforeSearchStartsAborts(t *testing.T) {
	eng := newTestEngine(t, Options{})
	eng.SetPosition(board.StartPosition(), nil)

	eng.Stop()

	done := make(chan SearchResult, 1)
	go func() { done <- eng.Go(Limits{Infinite: true}) }()

	select {
	case result := <-done:
		if result.BestMove == board.NoMove {
			t.Error("aborted search returned no move")
		}
		if !isLegal(board.StartPosition(), result.BestMove) {
			t.Errorf("aborted search returned illegal move %v", result.BestMove)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("search ignored a stop raised before it started")
	}
}

// The tripled position must be scored as a draw inside the search.
func TestRepetitionDetection(t *testing.T) {
	eng := newTestEngine(t, Options{})

	// Shuffle the knights out and back twice from the start position.
	pos := board.StartPosition()
	hashes := []uint64{pos.Hash}
	for _, uci := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1"} {
		m := findMove(t, pos, uci)
		pos.MakeMove(m)
		hashes = append(hashes, pos.Hash)
	}

	// Black to move; f6g8 completes the threefold. The score must
	// reflect an immediate draw being available in a balanced position.
	eng.SetPosition(pos, hashes[:len(hashes)-1])
	result := eng.Go(Limits{Depth: 6})
	if result.Score < -100 || result.Score > 100 {
		t.Errorf("score %d near repetition, want near draw bounds", result.Score)
	}
}
