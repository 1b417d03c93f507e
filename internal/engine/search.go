// Package engine implements the search: iterative deepening negamax
// with a shared lockless transposition table, history and correction
// heuristics, and a lazy-SMP thread pool on top.
package engine

import (
	"math"

	"github.com/tkoivisto/peregrine/internal/board"
)

// Score constants. Mate scores are encoded relative to the root so a
// faster mate always outranks a slower one: mate in N plies scores
// MateScore-N.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
	DrawScore = 0
)

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn converts a mate score to signed full moves until mate.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// SearchOptions holds every pruning toggle and tuning constant of the
// search. Each heuristic switches off independently, which is how the
// pruning tests isolate one technique at a time; disabling any subset
// only changes speed, never the correctness of returned bounds.
type SearchOptions struct {
	UseRFP            bool
	UseRazoring       bool
	UseNullMove       bool
	UseProbcut        bool
	UseLMP            bool
	UseFutility       bool
	UseSEEPruning     bool
	UseHistoryPruning bool
	UseLMR            bool
	UseIID            bool
	UseSingular       bool
	UseCheckExtension bool
	UseAspiration     bool

	RFPMaxDepth       int
	RFPMargin         int
	RFPImprovingBonus int

	RazorMaxDepth int
	RazorBase     int
	RazorScale    int

	NullMoveMinDepth int
	NullMoveBaseR    int
	NullMoveDepthDiv int

	ProbcutMinDepth  int
	ProbcutMargin    int
	ProbcutReduction int

	FutilityMaxDepth int
	FutilityMargins  [4]int

	LMPMaxDepth   int
	LMPThresholds [8]int

	HistoryPruningMaxDepth  int
	HistoryPruningThreshold int

	LMRMinDepth   int
	LMRMinMoves   int
	LMRHistoryDiv int

	IIDMinDepth  int
	IIDReduction int

	SingularMinDepth     int
	SingularDepthMargin  int
	SingularScoreMargin  int
	SingularDoubleMargin int

	AspirationMinDepth int
	AspirationWindow   int

	QSEvalMargin  int
	QSDeltaMargin int
	QSMaxPly      int
}

// DefaultSearchOptions returns the tuned configuration.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		UseRFP:            true,
		UseRazoring:       true,
		UseNullMove:       true,
		UseProbcut:        true,
		UseLMP:            true,
		UseFutility:       true,
		UseSEEPruning:     true,
		UseHistoryPruning: true,
		UseLMR:            true,
		UseIID:            true,
		UseSingular:       true,
		UseCheckExtension: true,
		UseAspiration:     true,

		RFPMaxDepth:       6,
		RFPMargin:         80,
		RFPImprovingBonus: 20,

		RazorMaxDepth: 2,
		RazorBase:     300,
		RazorScale:    100,

		NullMoveMinDepth: 3,
		NullMoveBaseR:    2,
		NullMoveDepthDiv: 4,

		ProbcutMinDepth:  5,
		ProbcutMargin:    200,
		ProbcutReduction: 4,

		FutilityMaxDepth: 3,
		FutilityMargins:  [4]int{0, 200, 300, 500},

		LMPMaxDepth:   7,
		LMPThresholds: [8]int{0, 3, 5, 9, 15, 23, 33, 45},

		HistoryPruningMaxDepth:  3,
		HistoryPruningThreshold: -4000,

		LMRMinDepth:   3,
		LMRMinMoves:   4,
		LMRHistoryDiv: 8192,

		IIDMinDepth:  4,
		IIDReduction: 2,

		SingularMinDepth:     8,
		SingularDepthMargin:  3,
		SingularScoreMargin:  2,
		SingularDoubleMargin: 20,

		AspirationMinDepth: 5,
		AspirationWindow:   50,

		QSEvalMargin:  150,
		QSDeltaMargin: 200,
		QSMaxPly:      32,
	}
}

// lmrReductions precomputes the logarithmic late move reduction table
// indexed by depth and move number.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

func lmrReduction(depth, moveNumber int) int {
	return lmrReductions[min(depth, 63)][min(moveNumber, 63)]
}

// PVTable holds the triangular principal variation.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *PVTable) reset(ply int) {
	pv.length[ply] = ply
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

// Line returns the PV from the root.
func (pv *PVTable) Line() []board.Move {
	line := make([]board.Move, pv.length[0])
	copy(line, pv.moves[0][:pv.length[0]])
	return line
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
