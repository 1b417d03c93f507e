package nnue

import "github.com/tkoivisto/peregrine/internal/board"

// stackSize bounds the accumulator stack; it must cover the deepest
// search line plus quiescence.
const stackSize = 160

type accEntry struct {
	values [2][HiddenSize]int16
	dirty  [2]bool
}

// Accumulator maintains the hidden layer sums for both perspectives
// across a search line. Push copies the top entry and applies the
// feature deltas of one move; Pop discards it. A perspective whose king
// moved is marked dirty and rebuilt lazily on the next Evaluate, since
// the king move may flip that perspective's horizontal mirror and
// invalidate every feature index.
type Accumulator struct {
	net   *Network
	stack [stackSize]accEntry
	top   int
}

// NewAccumulator creates an evaluator bound to a shared network.
func NewAccumulator(net *Network) *Accumulator {
	return &Accumulator{net: net}
}

func (a *Accumulator) add(e *accEntry, p board.Color, idx int) {
	w := a.net.FeatureWeights[idx*HiddenSize : idx*HiddenSize+HiddenSize]
	v := &e.values[p]
	for i := range v {
		v[i] += w[i]
	}
}

func (a *Accumulator) sub(e *accEntry, p board.Color, idx int) {
	w := a.net.FeatureWeights[idx*HiddenSize : idx*HiddenSize+HiddenSize]
	v := &e.values[p]
	for i := range v {
		v[i] -= w[i]
	}
}

// refresh rebuilds one perspective of the top entry from the position.
func (a *Accumulator) refresh(pos *board.Position, p board.Color) {
	e := &a.stack[a.top]
	copy(e.values[p][:], a.net.FeatureBias[:])
	var buf [32]int
	for _, idx := range activeFeatures(pos, p, buf[:0]) {
		a.add(e, p, idx)
	}
	e.dirty[p] = false
}

// Reset rebuilds both perspectives for a new root position.
func (a *Accumulator) Reset(pos *board.Position) {
	a.top = 0
	a.refresh(pos, board.White)
	a.refresh(pos, board.Black)
}

// Push applies a move's feature changes on a fresh stack entry. Called
// with the position still in its pre-move state.
func (a *Accumulator) Push(pos *board.Position, m board.Move, captured board.Piece) {
	prev := &a.stack[a.top]
	a.top++
	cur := &a.stack[a.top]
	*cur = *prev

	moved := pos.PieceAt(m.From())
	us := moved.Color()

	for p := board.White; p <= board.Black; p++ {
		if cur.dirty[p] {
			continue
		}
		if refreshRequired(p, moved) {
			cur.dirty[p] = true
			continue
		}
		kingSq := pos.KingSquare[p]

		if m.IsCastling() {
			rook := board.NewPiece(board.Rook, us)
			a.sub(cur, p, featureIndex(p, kingSq, moved, m.From()))
			a.sub(cur, p, featureIndex(p, kingSq, rook, m.To()))
			a.add(cur, p, featureIndex(p, kingSq, moved, m.KingTo()))
			a.add(cur, p, featureIndex(p, kingSq, rook, m.RookTo()))
			continue
		}

		a.sub(cur, p, featureIndex(p, kingSq, moved, m.From()))
		placed := moved
		if m.IsPromotion() {
			placed = board.NewPiece(m.Promotion(), us)
		}
		a.add(cur, p, featureIndex(p, kingSq, placed, m.To()))

		if captured != board.NoPiece {
			capSq := m.To()
			if m.IsEnPassant() {
				if us == board.White {
					capSq = m.To() - 8
				} else {
					capSq = m.To() + 8
				}
			}
			a.sub(cur, p, featureIndex(p, kingSq, captured, capSq))
		}
	}
}

// Pop discards the top entry.
func (a *Accumulator) Pop() {
	a.top--
}

func crelu(v int16) int32 {
	if v < 0 {
		return 0
	}
	if v > qLevelA {
		return qLevelA
	}
	return int32(v)
}

// Evaluate runs the output layer over the top entry, side to move
// first, and rescales to centipawns.
func (a *Accumulator) Evaluate(pos *board.Position) int {
	e := &a.stack[a.top]
	for p := board.White; p <= board.Black; p++ {
		if e.dirty[p] {
			a.refresh(pos, p)
		}
	}

	stm := pos.SideToMove
	var sum int32
	for i := 0; i < HiddenSize; i++ {
		sum += crelu(e.values[stm][i]) * int32(a.net.OutputWeights[i])
	}
	for i := 0; i < HiddenSize; i++ {
		sum += crelu(e.values[stm.Other()][i]) * int32(a.net.OutputWeights[HiddenSize+i])
	}
	sum += a.net.OutputBias

	return int(int64(sum) * evalScale / (qLevelA * qLevelB))
}
