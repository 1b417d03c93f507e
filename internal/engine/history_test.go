package engine

import (
	"testing"

	"github.com/tkoivisto/peregrine/internal/board"
)

func TestHistoryBonusClamp(t *testing.T) {
	cfg := DefaultHistoryConfig()
	if got := cfg.bonus(1); got <= 0 {
		t.Errorf("bonus(1) = %d, want positive", got)
	}
	if got := cfg.bonus(100); got != cfg.BonusMax {
		t.Errorf("bonus(100) = %d, want clamp at %d", got, cfg.BonusMax)
	}
}

// The gravity update must saturate below Max instead of overflowing.
func TestHistoryGravitySaturates(t *testing.T) {
	cfg := DefaultHistoryConfig()
	var entry int16
	for i := 0; i < 1000; i++ {
		cfg.gravity(&entry, cfg.BonusMax)
	}
	if int(entry) > cfg.Max {
		t.Errorf("entry %d exceeded max %d", entry, cfg.Max)
	}
	if int(entry) < cfg.Max/2 {
		t.Errorf("entry %d did not approach max %d", entry, cfg.Max)
	}

	for i := 0; i < 1000; i++ {
		cfg.gravity(&entry, -cfg.BonusMax)
	}
	if int(entry) < -cfg.Max {
		t.Errorf("entry %d exceeded negative max %d", entry, -cfg.Max)
	}
}

func TestUpdateQuietRewardsBestPunishesTried(t *testing.T) {
	hist := NewHistory(DefaultHistoryConfig())
	pos := board.StartPosition()

	best := findMove(t, pos, "e2e4")
	tried := []board.Move{findMove(t, pos, "d2d4"), findMove(t, pos, "g1f3")}

	hist.UpdateQuiet(pos, best, tried, 8, noMoveRef, noMoveRef)

	if s := hist.QuietScore(pos, best, noMoveRef, noMoveRef); s <= 0 {
		t.Errorf("best move score %d, want positive", s)
	}
	for _, m := range tried {
		if s := hist.QuietScore(pos, m, noMoveRef, noMoveRef); s >= 0 {
			t.Errorf("tried move %v score %d, want negative", m, s)
		}
	}
}

func TestContinuationHistoryFollowsPrecedingMove(t *testing.T) {
	hist := NewHistory(DefaultHistoryConfig())
	pos := board.StartPosition()

	best := findMove(t, pos, "e2e4")
	prev := moveRef{piece: board.NewPiece(board.Knight, board.Black), to: board.Square(42)}

	hist.UpdateQuiet(pos, best, nil, 8, prev, noMoveRef)

	with := hist.QuietScore(pos, best, prev, noMoveRef)
	without := hist.QuietScore(pos, best, noMoveRef, noMoveRef)
	if with <= without {
		t.Errorf("score with matching context %d, without %d; want larger with context", with, without)
	}
}

func TestCounterMove(t *testing.T) {
	hist := NewHistory(DefaultHistoryConfig())
	pos := board.StartPosition()

	best := findMove(t, pos, "e2e4")
	prev := moveRef{piece: board.NewPiece(board.Pawn, board.Black), to: board.Square(35)}

	if got := hist.Counter(prev); got != board.NoMove {
		t.Errorf("fresh table returned counter %v", got)
	}
	hist.SetCounter(prev, best)
	if got := hist.Counter(prev); got != best {
		t.Errorf("Counter = %v, want %v", got, best)
	}
	if got := hist.Counter(noMoveRef); got != board.NoMove {
		t.Errorf("noMoveRef counter = %v, want NoMove", got)
	}
}

func TestHistoryClearPreservesConfig(t *testing.T) {
	cfg := DefaultHistoryConfig()
	cfg.BonusMax = 999
	hist := NewHistory(cfg)
	pos := board.StartPosition()

	best := findMove(t, pos, "e2e4")
	hist.UpdateQuiet(pos, best, nil, 8, noMoveRef, noMoveRef)
	hist.Clear()

	if s := hist.QuietScore(pos, best, noMoveRef, noMoveRef); s != 0 {
		t.Errorf("score after Clear = %d, want 0", s)
	}
	if hist.cfg.BonusMax != 999 {
		t.Errorf("config lost on Clear: %+v", hist.cfg)
	}
}
