package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/tkoivisto/peregrine/internal/board"
)

func TestTimeControlUnlimited(t *testing.T) {
	tc := NewTimeControl(Limits{Infinite: true}, board.White, 0)
	if tc.HardStop(1 << 40) {
		t.Error("infinite search hit a hard stop")
	}
	if tc.SoftStop(1 << 40) {
		t.Error("infinite search hit a soft stop")
	}

	tc = NewTimeControl(Limits{Depth: 12}, board.White, 0)
	if tc.HardStop(0) || tc.SoftStop(0) {
		t.Error("depth-limited search is time limited")
	}
}

func TestTimeControlNodeLimit(t *testing.T) {
	tc := NewTimeControl(Limits{Nodes: 1000}, board.White, 0)
	if tc.HardStop(999) {
		t.Error("stopped below the node limit")
	}
	if !tc.HardStop(1000) || !tc.SoftStop(1000) {
		t.Error("did not stop at the node limit")
	}
}

func TestTimeControlMoveTime(t *testing.T) {
	tc := NewTimeControl(Limits{MoveTime: 20 * time.Millisecond}, board.White, 0)
	if tc.HardStop(0) {
		t.Error("stopped immediately")
	}
	time.Sleep(30 * time.Millisecond)
	if !tc.HardStop(0) {
		t.Error("did not stop after movetime elapsed")
	}
}

func TestTimeControlClockAllocation(t *testing.T) {
	limits := Limits{}
	limits.Time[board.Black] = 60 * time.Second
	limits.Inc[board.Black] = time.Second

	tc := NewTimeControl(limits, board.Black, 10*time.Millisecond)
	if !tc.limited {
		t.Fatal("clock search not limited")
	}
	if tc.soft <= 0 || tc.hard < tc.soft {
		t.Errorf("soft %v hard %v", tc.soft, tc.hard)
	}
	if tc.hard > 30*time.Second {
		t.Errorf("hard limit %v exceeds half the clock", tc.hard)
	}
}

func TestTimeControlStability(t *testing.T) {
	limits := Limits{}
	limits.Time[board.White] = 60 * time.Second
	tc := NewTimeControl(limits, board.White, 0)
	base := tc.soft

	tc.UpdateStability(8)
	if tc.soft >= base {
		t.Errorf("stable best move did not shrink soft limit: %v >= %v", tc.soft, base)
	}
	tc.UpdateStability(0)
	if tc.soft <= base {
		t.Errorf("fresh best move did not extend soft limit: %v <= %v", tc.soft, base)
	}
	if tc.soft > tc.hard {
		t.Errorf("soft %v above hard %v", tc.soft, tc.hard)
	}
}

func TestNodeCounterFlush(t *testing.T) {
	var shared atomic.Uint64
	nc := NewNodeCounter(&shared)

	for i := 0; i < 3000; i++ {
		nc.Increment()
	}
	if nc.Total() != 3000 {
		t.Errorf("Total = %d, want 3000", nc.Total())
	}
	// Whole multiples of the flush interval are already visible.
	if got := shared.Load(); got != 2048 {
		t.Errorf("shared before flush = %d, want 2048", got)
	}
	nc.Flush()
	if got := shared.Load(); got != 3000 {
		t.Errorf("shared after flush = %d, want 3000", got)
	}
	// The per-worker count survives flushing.
	if got := nc.Count(); got != 3000 {
		t.Errorf("Count = %d, want 3000", got)
	}
}

// Equal-depth workers must be separated by how many nodes each one
// searched, not by score.
func TestBestWorkerTieBreak(t *testing.T) {
	pos := board.StartPosition()
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	m1, m2 := ml.Get(0), ml.Get(1)

	mk := func(m board.Move, depth, score int, nodes uint64) *Worker {
		return &Worker{
			bestMove:       m,
			bestScore:      score,
			completedDepth: depth,
			nodes:          NodeCounter{total: nodes},
		}
	}

	// Deeper wins regardless of nodes.
	if got := bestWorker([]*Worker{mk(m1, 10, 0, 9000), mk(m2, 11, -50, 100)}); got.bestMove != m2 {
		t.Errorf("deeper worker lost: got %v", got.bestMove)
	}
	// Same depth: more nodes wins even against a higher score.
	if got := bestWorker([]*Worker{mk(m1, 10, 80, 100), mk(m2, 10, 20, 9000)}); got.bestMove != m2 {
		t.Errorf("node tie-break ignored: got %v", got.bestMove)
	}
	// A worker without a move never wins.
	if got := bestWorker([]*Worker{mk(m1, 3, 0, 10), mk(board.NoMove, 20, 0, 9000)}); got.bestMove != m1 {
		t.Errorf("moveless worker won: got %v", got.bestMove)
	}
}
