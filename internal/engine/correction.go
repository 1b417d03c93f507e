package engine

import (
	"github.com/tkoivisto/peregrine/internal/board"
)

const (
	correctionSize  = 16384
	correctionMask  = correctionSize - 1
	correctionGrain = 256
	correctionMax   = correctionGrain * 32
)

// CorrectionHistory nudges the static evaluation toward what the search
// actually returned for structurally similar positions. Each table is
// keyed by one of the incremental material keys, so a pawn structure
// the evaluator consistently misjudges gets corrected in every position
// that shares it, not only on an exact hash match.
type CorrectionHistory struct {
	pawn    [2][correctionSize]int16
	minor   [2][correctionSize]int16
	major   [2][correctionSize]int16
	nonPawn [2][2][correctionSize]int16
}

func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

// Clear resets all tables.
func (ch *CorrectionHistory) Clear() {
	*ch = CorrectionHistory{}
}

func corrIndex(key uint64) int {
	return int(key & correctionMask)
}

// Correct returns the adjusted evaluation, a weighted blend of the four
// correction terms added to eval. Never pushed into mate range.
func (ch *CorrectionHistory) Correct(pos *board.Position, eval int) int {
	stm := pos.SideToMove
	corr := 2*int(ch.pawn[stm][corrIndex(pos.PawnKey)]) +
		int(ch.minor[stm][corrIndex(pos.MinorKey)]) +
		int(ch.major[stm][corrIndex(pos.MajorKey)]) +
		int(ch.nonPawn[stm][board.White][corrIndex(pos.NonPawnKey[board.White])]) +
		int(ch.nonPawn[stm][board.Black][corrIndex(pos.NonPawnKey[board.Black])])
	return clamp(eval+corr/(6*correctionGrain), -MateScore+MaxPly+1, MateScore-MaxPly-1)
}

// Update records the error between the search result and the static
// evaluation, weighted by depth. Called at nodes whose result bounds
// the true score on the same side as the error.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	diff := (searchScore - staticEval) * correctionGrain
	weight := depth + 1
	if weight > 16 {
		weight = 16
	}

	stm := pos.SideToMove
	corrUpdate(&ch.pawn[stm][corrIndex(pos.PawnKey)], diff, weight)
	corrUpdate(&ch.minor[stm][corrIndex(pos.MinorKey)], diff, weight)
	corrUpdate(&ch.major[stm][corrIndex(pos.MajorKey)], diff, weight)
	corrUpdate(&ch.nonPawn[stm][board.White][corrIndex(pos.NonPawnKey[board.White])], diff, weight)
	corrUpdate(&ch.nonPawn[stm][board.Black][corrIndex(pos.NonPawnKey[board.Black])], diff, weight)
}

// corrUpdate is an exponential moving average with a depth dependent
// weight out of 256, clamped so one wild result cannot dominate.
func corrUpdate(entry *int16, diff, weight int) {
	v := (int(*entry)*(256-weight) + diff*weight) / 256
	*entry = int16(clamp(v, -correctionMax, correctionMax))
}
