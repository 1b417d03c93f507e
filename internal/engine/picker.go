package engine

import (
	"github.com/tkoivisto/peregrine/internal/board"
)

type pickStage uint8

const (
	stageTTMove pickStage = iota
	stageGenNoisy
	stageGoodNoisy
	stageKiller1
	stageKiller2
	stageCounter
	stageGenQuiet
	stageQuiet
	stageBadNoisy
	stageDone
)

// MovePicker yields pseudo-legal moves in the order the search wants to
// try them: hash move, winning captures, killers, counter move, quiets
// by history, then losing captures. Generation is staged so a node that
// cuts off on the hash move never pays for move generation at all.
type MovePicker struct {
	pos  *board.Position
	hist *History

	ttMove  board.Move
	killers [2]board.Move
	counter board.Move
	prev    moveRef
	prev2   moveRef

	stage     pickStage
	noisyOnly bool
	skipQuiet bool

	noisy    board.MoveList
	noisyIdx int
	bad      board.MoveList
	badIdx   int
	quiet    board.MoveList
	quietIdx int

	scores [256]int
}

// NewMovePicker prepares a picker for a main search node.
func NewMovePicker(pos *board.Position, hist *History, ttMove board.Move, killers [2]board.Move, prev, prev2 moveRef) MovePicker {
	return MovePicker{
		pos:     pos,
		hist:    hist,
		ttMove:  ttMove,
		killers: killers,
		counter: hist.Counter(prev),
		prev:    prev,
		prev2:   prev2,
	}
}

// NewNoisyPicker prepares a picker that yields only captures and
// promotions, for quiescence. When in check it falls back to the full
// move set so evasions are not missed.
func NewNoisyPicker(pos *board.Position, hist *History, ttMove board.Move) MovePicker {
	mp := MovePicker{
		pos:       pos,
		hist:      hist,
		ttMove:    ttMove,
		noisyOnly: pos.Checkers == 0,
	}
	return mp
}

// SkipQuiets tells the picker to stop yielding quiet moves. Losing
// captures are still returned.
func (mp *MovePicker) SkipQuiets() {
	mp.skipQuiet = true
}

// Next returns the next move, or NoMove when exhausted.
func (mp *MovePicker) Next() board.Move {
	switch mp.stage {
	case stageTTMove:
		mp.stage = stageGenNoisy
		if mp.ttMove != board.NoMove && mp.pos.IsPseudoLegal(mp.ttMove) {
			return mp.ttMove
		}
		fallthrough

	case stageGenNoisy:
		mp.pos.GenerateNoisy(&mp.noisy)
		for i := 0; i < mp.noisy.Len(); i++ {
			mp.scores[i] = mp.noisyScore(mp.noisy.Get(i))
		}
		mp.stage = stageGoodNoisy
		fallthrough

	case stageGoodNoisy:
		for mp.noisyIdx < mp.noisy.Len() {
			m := mp.pickBest(&mp.noisy, &mp.noisyIdx)
			if m == mp.ttMove {
				continue
			}
			if !SEEGE(mp.pos, m, 0) {
				mp.bad.Add(m)
				continue
			}
			return m
		}
		if mp.noisyOnly {
			mp.stage = stageDone
			return board.NoMove
		}
		mp.stage = stageKiller1
		fallthrough

	case stageKiller1:
		mp.stage = stageKiller2
		if m := mp.killers[0]; mp.yieldQuietSpecial(m) {
			return m
		}
		fallthrough

	case stageKiller2:
		mp.stage = stageCounter
		if m := mp.killers[1]; m != mp.killers[0] && mp.yieldQuietSpecial(m) {
			return m
		}
		fallthrough

	case stageCounter:
		mp.stage = stageGenQuiet
		if m := mp.counter; m != mp.killers[0] && m != mp.killers[1] && mp.yieldQuietSpecial(m) {
			return m
		}
		fallthrough

	case stageGenQuiet:
		if !mp.skipQuiet {
			mp.pos.GenerateQuiets(&mp.quiet)
			for i := 0; i < mp.quiet.Len(); i++ {
				mp.scores[i] = mp.hist.QuietScore(mp.pos, mp.quiet.Get(i), mp.prev, mp.prev2)
			}
		}
		mp.stage = stageQuiet
		fallthrough

	case stageQuiet:
		if !mp.skipQuiet {
			for mp.quietIdx < mp.quiet.Len() {
				m := mp.pickBest(&mp.quiet, &mp.quietIdx)
				if m == mp.ttMove || m == mp.killers[0] || m == mp.killers[1] || m == mp.counter {
					continue
				}
				return m
			}
		}
		mp.stage = stageBadNoisy
		fallthrough

	case stageBadNoisy:
		for mp.badIdx < mp.bad.Len() {
			m := mp.bad.Get(mp.badIdx)
			mp.badIdx++
			if m == mp.ttMove {
				continue
			}
			return m
		}
		mp.stage = stageDone
	}
	return board.NoMove
}

// yieldQuietSpecial checks that a killer or counter move is playable
// here: not the hash move, quiet, and pseudo-legal in this position.
func (mp *MovePicker) yieldQuietSpecial(m board.Move) bool {
	if mp.skipQuiet || m == board.NoMove || m == mp.ttMove {
		return false
	}
	return m.IsQuiet(mp.pos) && mp.pos.IsPseudoLegal(m)
}

// pickBest selection sorts one move to the front of the unsearched
// region. Cheaper than a full sort at nodes that cut off early.
func (mp *MovePicker) pickBest(ml *board.MoveList, idx *int) board.Move {
	best := *idx
	for i := *idx + 1; i < ml.Len(); i++ {
		if mp.scores[i] > mp.scores[best] {
			best = i
		}
	}
	ml.Swap(best, *idx)
	mp.scores[best], mp.scores[*idx] = mp.scores[*idx], mp.scores[best]
	m := ml.Get(*idx)
	*idx++
	return m
}

// noisyScore orders captures most valuable victim first, breaking ties
// with capture history. Promotions count the promoted piece as the
// victim.
func (mp *MovePicker) noisyScore(m board.Move) int {
	score := board.SeeValue[victimType(mp.pos, m)] * 32
	if m.IsPromotion() {
		score += board.SeeValue[m.Promotion()] * 32
	}
	return score + mp.hist.CaptureScore(mp.pos, m)
}
