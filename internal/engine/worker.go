package engine

import (
	"sync/atomic"

	"github.com/tkoivisto/peregrine/internal/board"
)

// Worker runs one search thread. Every worker owns its position copy,
// evaluator state, killer table and stacks; the transposition table,
// history tables and stop flag are shared. Workers past the first exist
// only to fill the shared tables from slightly different trees, the
// lazy SMP scheme needs no other coordination.
type Worker struct {
	id   int
	pos  *board.Position
	eval Evaluator
	opts SearchOptions

	tt   *TranspositionTable
	hist *History
	corr *CorrectionHistory

	nodes   NodeCounter
	tc      *TimeControl
	stop    *atomic.Bool
	aborted bool

	killers   [MaxPly + 2][2]board.Move
	pv        PVTable
	evalStack [MaxPly + 2]int
	moveStack [MaxPly + 2]moveRef
	excluded  [MaxPly + 2]board.Move

	// hashes holds the game history up to the root plus the hashes of
	// the current search path, for repetition detection.
	hashes []uint64

	maxDepth  int
	mateLimit int // stop once a mate in this many moves is proven
	seldepth  int

	completedDepth int
	bestMove       board.Move
	bestScore      int

	// onIteration reports a finished depth. Only set on worker 0.
	onIteration func(depth, seldepth, score int, pv []board.Move)
}

func (w *Worker) shouldStop() bool {
	if w.aborted {
		return true
	}
	if w.nodes.local&1023 == 0 {
		if w.stop.Load() || w.tc.HardStop(w.nodes.Total()) {
			w.stop.Store(true)
			w.aborted = true
		}
	}
	return w.aborted
}

// iterate runs the iterative deepening loop until the depth limit, a
// soft time stop, or the shared stop flag.
func (w *Worker) iterate() {
	stable := 0
	score := -Infinity

	for depth := 1; depth <= w.maxDepth; depth++ {
		w.seldepth = 0
		prevBest := w.bestMove

		score = w.aspirate(depth, score)
		w.nodes.Flush()
		if w.aborted {
			break
		}

		w.completedDepth = depth
		w.bestScore = score
		if line := w.pv.Line(); len(line) > 0 {
			w.bestMove = line[0]
		}

		if w.mateLimit > 0 && IsMateScore(score) && abs(MateIn(score)) <= w.mateLimit {
			w.stop.Store(true)
			break
		}

		if w.id == 0 {
			if w.bestMove == prevBest {
				stable++
			} else {
				stable = 0
			}
			w.tc.UpdateStability(stable)
			if w.onIteration != nil {
				w.onIteration(depth, w.seldepth, score, w.pv.Line())
			}
			if w.tc.SoftStop(w.nodes.Total()) {
				w.stop.Store(true)
				break
			}
		}
		if w.stop.Load() {
			break
		}
	}
}

// aspirate searches one depth, first in a narrow window around the
// previous score, widening exponentially on failure. Shallow depths
// search the full window, their scores are too volatile for a window
// to pay off.
func (w *Worker) aspirate(depth, prior int) int {
	alpha, beta := -Infinity, Infinity
	delta := w.opts.AspirationWindow

	if w.opts.UseAspiration && depth >= w.opts.AspirationMinDepth {
		alpha = max(prior-delta, -Infinity)
		beta = min(prior+delta, Infinity)
	}

	for {
		score := w.negamax(depth, 0, alpha, beta, true)
		if w.aborted {
			return score
		}
		switch {
		case score <= alpha:
			beta = (alpha + beta) / 2
			alpha = max(score-delta, -Infinity)
		case score >= beta:
			beta = min(score+delta, Infinity)
		default:
			return score
		}
		delta += delta / 2
	}
}

// isRepetition scans the path and game history for an earlier
// occurrence of the current hash. A single prior occurrence is treated
// as a draw; searching toward a position either side can repeat is
// already worthless.
func (w *Worker) isRepetition() bool {
	n := len(w.hashes)
	limit := n - 1 - w.pos.HalfMoveClock
	if limit < 0 {
		limit = 0
	}
	for i := n - 3; i >= limit; i -= 2 {
		if w.hashes[i] == w.pos.Hash {
			return true
		}
	}
	return false
}

func capturedPiece(pos *board.Position, m board.Move) board.Piece {
	if m.IsEnPassant() {
		return board.NewPiece(board.Pawn, pos.SideToMove.Other())
	}
	if m.IsCastling() {
		return board.NoPiece
	}
	return pos.PieceAt(m.To())
}

func (w *Worker) makeMove(m board.Move, ply int) board.UndoInfo {
	w.moveStack[ply] = moveRef{piece: w.pos.PieceAt(m.From()), to: m.To()}
	w.eval.Push(w.pos, m, capturedPiece(w.pos, m))
	undo := w.pos.MakeMove(m)
	w.hashes = append(w.hashes, w.pos.Hash)
	w.nodes.Increment()
	return undo
}

func (w *Worker) unmakeMove(m board.Move, undo board.UndoInfo) {
	w.hashes = w.hashes[:len(w.hashes)-1]
	w.pos.UnmakeMove(m, undo)
	w.eval.Pop()
}

func (w *Worker) prevRefs(ply int) (prev, prev2 moveRef) {
	prev, prev2 = noMoveRef, noMoveRef
	if ply >= 1 {
		prev = w.moveStack[ply-1]
	}
	if ply >= 2 {
		prev2 = w.moveStack[ply-2]
	}
	return prev, prev2
}

// staticEval evaluates the position and applies the correction history.
// Never called in check.
func (w *Worker) staticEval() int {
	return w.corr.Correct(w.pos, w.eval.Evaluate(w.pos))
}

func (w *Worker) negamax(depth, ply, alpha, beta int, pvNode bool) int {
	opts := &w.opts
	w.pv.reset(ply)

	if w.shouldStop() {
		return 0
	}
	if ply > w.seldepth {
		w.seldepth = ply
	}

	if depth <= 0 {
		return w.quiescence(ply, 0, alpha, beta, pvNode)
	}

	pos := w.pos
	inCheck := pos.Checkers != 0
	rootNode := ply == 0
	excluded := w.excluded[ply]

	if !rootNode {
		if w.isRepetition() || pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() {
			return DrawScore
		}
		if ply >= MaxPly {
			if inCheck {
				return DrawScore
			}
			return w.staticEval()
		}

		// Mate distance pruning: even an immediate mate here cannot
		// improve on a shorter mate already found above us.
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	ttEntry, ttHit := TTEntry{}, false
	ttMove := board.NoMove
	if excluded == board.NoMove {
		ttEntry, ttHit = w.tt.Probe(pos.Hash, ply)
		if ttHit {
			ttMove = ttEntry.Move
		}
	}
	ttPV := pvNode || (ttHit && ttEntry.PV)

	if ttHit && !pvNode && ttEntry.Depth >= depth {
		switch ttEntry.Bound {
		case BoundExact:
			return ttEntry.Score
		case BoundLower:
			if ttEntry.Score >= beta {
				return ttEntry.Score
			}
		case BoundUpper:
			if ttEntry.Score <= alpha {
				return ttEntry.Score
			}
		}
	}

	var rawEval, eval int
	if inCheck {
		rawEval = -Infinity
		eval = -Infinity
		w.evalStack[ply] = -Infinity
	} else {
		rawEval = w.staticEval()
		eval = rawEval
		if ttHit {
			// The stored score is a tighter estimate when its bound
			// points the right way.
			switch ttEntry.Bound {
			case BoundExact:
				eval = ttEntry.Score
			case BoundLower:
				eval = max(eval, ttEntry.Score)
			case BoundUpper:
				eval = min(eval, ttEntry.Score)
			}
		}
		w.evalStack[ply] = rawEval
	}

	improving := !inCheck && ply >= 2 && w.evalStack[ply-2] != -Infinity &&
		w.evalStack[ply] > w.evalStack[ply-2]

	if !pvNode && !inCheck && excluded == board.NoMove {
		// Reverse futility: the position sits so far above beta that a
		// shallow search will not bring it back down.
		if opts.UseRFP && depth <= opts.RFPMaxDepth && !IsMateScore(beta) {
			margin := opts.RFPMargin * depth
			if improving {
				margin -= opts.RFPImprovingBonus * depth
			}
			if eval-margin >= beta {
				return eval
			}
		}

		// Razoring: hopeless positions drop straight into quiescence.
		if opts.UseRazoring && depth <= opts.RazorMaxDepth &&
			eval+opts.RazorBase+opts.RazorScale*depth <= alpha {
			score := w.quiescence(ply, 0, alpha, beta, false)
			if w.aborted {
				return 0
			}
			if score <= alpha {
				return score
			}
		}

		// Null move: hand the opponent a free move and prove beta
		// anyway. Needs real material, pawn endings are riddled with
		// zugzwang. Skipped right after another null move.
		if opts.UseNullMove && depth >= opts.NullMoveMinDepth &&
			eval >= beta && pos.HasNonPawnMaterial() &&
			(ply == 0 || w.moveStack[ply-1].piece != board.NoPiece) {
			r := opts.NullMoveBaseR + depth/opts.NullMoveDepthDiv
			r = min(r, depth)

			w.moveStack[ply] = noMoveRef
			undo := pos.MakeNullMove()
			w.hashes = append(w.hashes, pos.Hash)
			score := -w.negamax(depth-r-1, ply+1, -beta, -beta+1, false)
			w.hashes = w.hashes[:len(w.hashes)-1]
			pos.UnmakeNullMove(undo)
			if w.aborted {
				return 0
			}
			if score >= beta {
				if IsMateScore(score) {
					score = beta
				}
				return score
			}
		}

		// Probcut: a capture that wins a reduced-depth search by a
		// margin above beta will very likely win the full search too.
		if opts.UseProbcut && depth >= opts.ProbcutMinDepth && !IsMateScore(beta) {
			rBeta := beta + opts.ProbcutMargin
			if !(ttHit && ttEntry.Depth >= depth-opts.ProbcutReduction && ttEntry.Score < rBeta) {
				score := w.probcut(depth, ply, rBeta)
				if w.aborted {
					return 0
				}
				if score >= rBeta {
					return score
				}
			}
		}
	}

	// With no hash move a reduced-depth pass fills the table and makes
	// the full-depth search cheaper than going in blind.
	if opts.UseIID && ttMove == board.NoMove && depth >= opts.IIDMinDepth &&
		excluded == board.NoMove && (pvNode || eval+100 >= beta) {
		w.negamax(depth-opts.IIDReduction, ply, alpha, beta, pvNode)
		if w.aborted {
			return 0
		}
		if entry, ok := w.tt.Probe(pos.Hash, ply); ok {
			ttEntry, ttHit = entry, true
			ttMove = entry.Move
		}
		w.pv.reset(ply)
	}

	prev, prev2 := w.prevRefs(ply)
	picker := NewMovePicker(pos, w.hist, ttMove, w.killers[ply], prev, prev2)

	bestScore := -Infinity
	bestMove := board.NoMove
	bound := BoundUpper
	moveCount := 0
	var quietBuf, noisyBuf [64]board.Move
	triedQuiets := quietBuf[:0]
	triedNoisy := noisyBuf[:0]

	for m := picker.Next(); m != board.NoMove; m = picker.Next() {
		if m == excluded || !pos.IsLegalFast(m, pos.Pinned) {
			continue
		}
		moveCount++
		isQuiet := m.IsQuiet(pos)
		histScore := 0
		if isQuiet {
			histScore = w.hist.QuietScore(pos, m, prev, prev2)
		}

		// Quiet move pruning cascade. Never prunes before a move has
		// been searched or when mate is on the table.
		if !rootNode && !inCheck && isQuiet && bestScore > -MateScore+MaxPly {
			if opts.UseLMP && depth <= opts.LMPMaxDepth &&
				moveCount > opts.LMPThresholds[min(depth, len(opts.LMPThresholds)-1)] {
				picker.SkipQuiets()
				continue
			}
			if opts.UseFutility && depth <= opts.FutilityMaxDepth && moveCount > 1 &&
				eval+opts.FutilityMargins[min(depth, len(opts.FutilityMargins)-1)] <= alpha {
				picker.SkipQuiets()
				continue
			}
			if opts.UseHistoryPruning && depth <= opts.HistoryPruningMaxDepth &&
				moveCount > 1 && histScore < opts.HistoryPruningThreshold*depth {
				continue
			}
			if opts.UseSEEPruning && depth <= 8 && moveCount > 1 &&
				!SEEGE(pos, m, -50*depth) {
				continue
			}
		}
		if !rootNode && !isQuiet && moveCount > 1 && bestScore > -MateScore+MaxPly &&
			opts.UseSEEPruning && depth <= 8 && !SEEGE(pos, m, -90*depth) {
			continue
		}

		extension := 0
		if m == ttMove && w.singularOK(depth, ply, ttEntry, ttHit) {
			ext, cut := w.singular(depth, ply, ttEntry, beta)
			if w.aborted {
				return 0
			}
			if cut {
				return ttEntry.Score - opts.SingularScoreMargin*depth
			}
			extension = ext
		}

		undo := w.makeMove(m, ply)
		givesCheck := pos.Checkers != 0
		if opts.UseCheckExtension && givesCheck && extension == 0 {
			extension = 1
		}

		newDepth := depth - 1 + extension
		var score int
		if moveCount == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, pvNode)
		} else {
			r := 0
			if opts.UseLMR && depth >= opts.LMRMinDepth &&
				moveCount >= opts.LMRMinMoves && isQuiet && !givesCheck {
				r = lmrReduction(depth, moveCount)
				if !pvNode {
					r++
				}
				if !improving {
					r++
				}
				if ttPV {
					r--
				}
				if m == w.killers[ply][0] || m == w.killers[ply][1] {
					r--
				}
				r -= histScore / opts.LMRHistoryDiv
				r = clamp(r, 0, newDepth-1)
			}
			score = -w.negamax(newDepth-r, ply+1, -alpha-1, -alpha, false)
			if score > alpha && r > 0 {
				score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, false)
			}
			if score > alpha && pvNode {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, true)
			}
		}

		w.unmakeMove(m, undo)
		if w.aborted {
			return 0
		}

		if isQuiet && len(triedQuiets) < cap(triedQuiets) {
			triedQuiets = append(triedQuiets, m)
		} else if !isQuiet && len(triedNoisy) < cap(triedNoisy) {
			triedNoisy = append(triedNoisy, m)
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				alpha = score
				bound = BoundExact
				if pvNode {
					w.pv.update(ply, m)
				}
				if alpha >= beta {
					bound = BoundLower
					break
				}
			}
		}
	}

	if moveCount == 0 {
		if excluded != board.NoMove {
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return DrawScore
	}

	if bound == BoundLower {
		if bestMove.IsQuiet(pos) {
			if w.killers[ply][0] != bestMove {
				w.killers[ply][1] = w.killers[ply][0]
				w.killers[ply][0] = bestMove
			}
			w.hist.SetCounter(prev, bestMove)
			w.hist.UpdateQuiet(pos, bestMove, triedQuiets, depth, prev, prev2)
		}
		w.hist.UpdateCapture(pos, bestMove, triedNoisy, depth)
	}

	if excluded == board.NoMove {
		// Feed the correction history only with results the static
		// eval could plausibly have predicted.
		if !inCheck && !IsMateScore(bestScore) &&
			(bestMove == board.NoMove || bestMove.IsQuiet(pos)) &&
			!(bound == BoundLower && bestScore <= rawEval) &&
			!(bound == BoundUpper && bestScore >= rawEval) {
			w.corr.Update(pos, bestScore, rawEval, depth)
		}
		w.tt.Store(pos.Hash, ply, bestMove, bestScore, rawEval, depth, bound, ttPV)
	}

	return bestScore
}

func (w *Worker) singularOK(depth, ply int, ttEntry TTEntry, ttHit bool) bool {
	return w.opts.UseSingular && ttHit && ply > 0 &&
		depth >= w.opts.SingularMinDepth &&
		w.excluded[ply] == board.NoMove &&
		ttEntry.Bound != BoundUpper &&
		ttEntry.Depth >= depth-w.opts.SingularDepthMargin &&
		!IsMateScore(ttEntry.Score)
}

// singular verifies whether the hash move is the only good move by
// searching everything else against a bound just below its score.
// Returns the extension to apply and whether to cut the node outright:
// when the remaining moves also clear a bound at or above beta, several
// moves refute this position and searching it further is pointless.
func (w *Worker) singular(depth, ply int, ttEntry TTEntry, beta int) (int, bool) {
	rBeta := ttEntry.Score - w.opts.SingularScoreMargin*depth
	singularDepth := (depth - 1) / 2

	w.excluded[ply] = ttEntry.Move
	score := w.negamax(singularDepth, ply, rBeta-1, rBeta, false)
	w.excluded[ply] = board.NoMove
	if w.aborted {
		return 0, false
	}

	switch {
	case score < rBeta-w.opts.SingularDoubleMargin:
		return 2, false
	case score < rBeta:
		return 1, false
	case rBeta >= beta:
		return 0, true
	case ttEntry.Score >= beta:
		return -1, false
	}
	return 0, false
}

// probcut tries winning captures at reduced depth against an inflated
// bound, each verified first by quiescence to skip the obviously
// losing ones.
func (w *Worker) probcut(depth, ply, rBeta int) int {
	pos := w.pos
	picker := NewNoisyPicker(pos, w.hist, board.NoMove)
	best := -Infinity

	for m := picker.Next(); m != board.NoMove; m = picker.Next() {
		if !pos.IsLegalFast(m, pos.Pinned) {
			continue
		}
		undo := w.makeMove(m, ply)
		score := -w.quiescence(ply+1, 0, -rBeta, -rBeta+1, false)
		if !w.aborted && score >= rBeta {
			score = -w.negamax(depth-w.opts.ProbcutReduction, ply+1, -rBeta, -rBeta+1, false)
		}
		w.unmakeMove(m, undo)
		if w.aborted {
			return 0
		}
		if score > best {
			best = score
			if score >= rBeta {
				w.tt.Store(pos.Hash, ply, m, score, w.evalStack[ply],
					depth-w.opts.ProbcutReduction+1, BoundLower, false)
				return score
			}
		}
	}
	return best
}

// quiescence resolves captures until the position is quiet enough for
// the static eval to be trusted. At the first quiescence ply it also
// tries quiet checks, so mating sequences right at the horizon are
// still seen.
func (w *Worker) quiescence(ply, qPly, alpha, beta int, pvNode bool) int {
	opts := &w.opts
	w.pv.reset(ply)

	if w.shouldStop() {
		return 0
	}
	if ply > w.seldepth {
		w.seldepth = ply
	}

	pos := w.pos
	inCheck := pos.Checkers != 0

	if w.isRepetition() || pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() {
		return DrawScore
	}
	if ply >= MaxPly || qPly >= opts.QSMaxPly {
		if inCheck {
			return DrawScore
		}
		return w.staticEval()
	}

	ttEntry, ttHit := w.tt.Probe(pos.Hash, ply)
	if ttHit && !pvNode {
		switch ttEntry.Bound {
		case BoundExact:
			return ttEntry.Score
		case BoundLower:
			if ttEntry.Score >= beta {
				return ttEntry.Score
			}
		case BoundUpper:
			if ttEntry.Score <= alpha {
				return ttEntry.Score
			}
		}
	}
	ttMove := board.NoMove
	if ttHit {
		ttMove = ttEntry.Move
	}

	bestScore := -Infinity
	rawEval := -Infinity
	if !inCheck {
		rawEval = w.staticEval()
		bestScore = rawEval
		if bestScore >= beta {
			return bestScore
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}

	picker := NewNoisyPicker(pos, w.hist, ttMove)
	bestMove := board.NoMove
	bound := BoundUpper
	moveCount := 0

	searchMove := func(m board.Move) bool {
		moveCount++
		undo := w.makeMove(m, ply)
		score := -w.quiescence(ply+1, qPly+1, -beta, -alpha, pvNode)
		w.unmakeMove(m, undo)
		if w.aborted {
			return false
		}
		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				alpha = score
				bound = BoundExact
				if pvNode {
					w.pv.update(ply, m)
				}
				if alpha >= beta {
					bound = BoundLower
					return false
				}
			}
		}
		return true
	}

	for m := picker.Next(); m != board.NoMove; m = picker.Next() {
		if !pos.IsLegalFast(m, pos.Pinned) {
			continue
		}
		if !inCheck {
			// Delta pruning: even winning this capture cleanly cannot
			// lift the score back to alpha.
			if !m.IsPromotion() &&
				rawEval+board.SeeValue[victimType(pos, m)]+opts.QSDeltaMargin <= alpha {
				continue
			}
			if !SEEGE(pos, m, 0) {
				continue
			}
		}
		if !searchMove(m) {
			break
		}
	}
	if w.aborted {
		return 0
	}

	// Quiet checks once, at the quiescence boundary, and only while the
	// stand-pat score is close enough to the window to matter.
	if !inCheck && qPly == 0 && bound != BoundLower && bestScore+opts.QSEvalMargin >= alpha {
		var checks board.MoveList
		pos.GenerateChecks(&checks)
		for i := 0; i < checks.Len(); i++ {
			m := checks.Get(i)
			if !pos.IsLegalFast(m, pos.Pinned) || !SEEGE(pos, m, 0) {
				continue
			}
			if !searchMove(m) {
				break
			}
		}
		if w.aborted {
			return 0
		}
	}

	if inCheck && moveCount == 0 {
		return -MateScore + ply
	}

	w.tt.Store(pos.Hash, ply, bestMove, bestScore, rawEval, 0, bound, pvNode)
	return bestScore
}
