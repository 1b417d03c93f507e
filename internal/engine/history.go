package engine

import (
	"github.com/tkoivisto/peregrine/internal/board"
)

// HistoryConfig holds the decay constants and bonus bounds of the
// history tables.
type HistoryConfig struct {
	BonusScale int // per-depth bonus slope
	BonusBias  int // subtracted from the slope term
	BonusMax   int // bonus saturation
	Max        int // table entry saturation, also the decay divisor
}

func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		BonusScale: 128,
		BonusBias:  64,
		BonusMax:   2048,
		Max:        16384,
	}
}

// bonus grows with depth and saturates so deep searches cannot swamp
// the tables.
func (cfg HistoryConfig) bonus(depth int) int {
	b := cfg.BonusScale*depth - cfg.BonusBias
	if b > cfg.BonusMax {
		b = cfg.BonusMax
	}
	return b
}

// gravity blends a bonus or malus into a running score. The subtraction
// term pulls values toward zero in proportion to their magnitude, so
// entries saturate at cfg.Max and stale ones fade as new evidence
// arrives.
func (cfg HistoryConfig) gravity(entry *int16, amount int) {
	v := int(*entry)
	*entry = int16(v + amount - v*abs(amount)/cfg.Max)
}

func threatIdx(threats board.Bitboard, sq board.Square) int {
	if threats.IsSet(sq) {
		return 1
	}
	return 0
}

// History holds the heuristic move ordering tables. One instance is
// shared by all search workers; updates race benignly on int16 cells,
// the tables are advisory.
type History struct {
	cfg HistoryConfig

	// quiet history, bucketed by whether the from and to squares are
	// attacked by the opponent. A knight retreating out of a threat is
	// a different kind of move than the same knight hop on a quiet
	// board and deserves its own statistics.
	quiet [2][64][2][64][2]int16

	// capture history indexed by moving piece, target square and victim
	// type.
	capture [12][64][6]int16

	// continuation history keyed by the previous move's piece/to and
	// the current move's piece/to. Consulted for the last two plies.
	continuation [12][64][12][64]int16

	// counter move replies keyed by the previous move's piece and
	// destination.
	counter [12][64]board.Move
}

func NewHistory(cfg HistoryConfig) *History {
	return &History{cfg: cfg}
}

// Clear resets every table. Called on ucinewgame.
func (h *History) Clear() {
	*h = History{cfg: h.cfg}
}

func (h *History) quietEntry(pos *board.Position, m board.Move) *int16 {
	from, to := m.From(), m.To()
	return &h.quiet[pos.SideToMove][from][threatIdx(pos.Threats, from)][to][threatIdx(pos.Threats, to)]
}

// QuietScore returns the ordering score of a quiet move, the sum of the
// main butterfly table and the one and two ply continuation tables.
func (h *History) QuietScore(pos *board.Position, m board.Move, prev, prev2 moveRef) int {
	score := int(*h.quietEntry(pos, m))
	piece := pos.PieceAt(m.From())
	if prev.piece != board.NoPiece {
		score += int(h.continuation[prev.piece][prev.to][piece][m.To()])
	}
	if prev2.piece != board.NoPiece {
		score += int(h.continuation[prev2.piece][prev2.to][piece][m.To()])
	}
	return score
}

// CaptureScore returns the capture history component for a noisy move.
func (h *History) CaptureScore(pos *board.Position, m board.Move) int {
	piece := pos.PieceAt(m.From())
	victim := victimType(pos, m)
	return int(h.capture[piece][m.To()][victim])
}

// UpdateQuiet rewards the move that produced a beta cutoff and
// penalises the quiet moves tried before it.
func (h *History) UpdateQuiet(pos *board.Position, best board.Move, tried []board.Move, depth int, prev, prev2 moveRef) {
	bonus := h.cfg.bonus(depth)
	h.cfg.gravity(h.quietEntry(pos, best), bonus)
	h.updateContinuation(pos, best, bonus, prev, prev2)
	for _, m := range tried {
		if m == best {
			continue
		}
		h.cfg.gravity(h.quietEntry(pos, m), -bonus)
		h.updateContinuation(pos, m, -bonus, prev, prev2)
	}
}

func (h *History) updateContinuation(pos *board.Position, m board.Move, amount int, prev, prev2 moveRef) {
	piece := pos.PieceAt(m.From())
	if prev.piece != board.NoPiece {
		h.cfg.gravity(&h.continuation[prev.piece][prev.to][piece][m.To()], amount)
	}
	if prev2.piece != board.NoPiece {
		h.cfg.gravity(&h.continuation[prev2.piece][prev2.to][piece][m.To()], amount)
	}
}

// UpdateCapture rewards a cutoff capture and penalises the captures
// tried before it.
func (h *History) UpdateCapture(pos *board.Position, best board.Move, tried []board.Move, depth int) {
	bonus := h.cfg.bonus(depth)
	if best.IsCapture(pos) || best.IsPromotion() {
		h.cfg.gravity(&h.capture[pos.PieceAt(best.From())][best.To()][victimType(pos, best)], bonus)
	}
	for _, m := range tried {
		if m == best {
			continue
		}
		h.cfg.gravity(&h.capture[pos.PieceAt(m.From())][m.To()][victimType(pos, m)], -bonus)
	}
}

// SetCounter records best as the reply to the previous move.
func (h *History) SetCounter(prev moveRef, best board.Move) {
	if prev.piece != board.NoPiece {
		h.counter[prev.piece][prev.to] = best
	}
}

// Counter returns the stored reply to the previous move.
func (h *History) Counter(prev moveRef) board.Move {
	if prev.piece == board.NoPiece {
		return board.NoMove
	}
	return h.counter[prev.piece][prev.to]
}

// victimType is the captured piece type, or pawn for en passant. A
// non-capture promotion is scored as if it won a pawn.
func victimType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	captured := pos.PieceAt(m.To())
	if captured == board.NoPiece {
		return board.Pawn
	}
	return captured.Type()
}

// moveRef identifies a move already made on the board, used to key the
// continuation and counter tables.
type moveRef struct {
	piece board.Piece
	to    board.Square
}

var noMoveRef = moveRef{piece: board.NoPiece}
