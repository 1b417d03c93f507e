package engine

import (
	"github.com/tkoivisto/peregrine/internal/board"
)

// SEE runs the static exchange swap algorithm on a move's destination
// square and returns the expected material balance, from the mover's
// point of view, assuming both sides capture with their least valuable
// attacker and stop when recapturing loses material. Absolutely pinned
// pieces whose pin line misses the target square never recapture.
// Castling always scores zero.
func SEE(pos *board.Position, m board.Move) int {
	if m.IsCastling() {
		return 0
	}
	from, to := m.From(), m.To()

	gain := 0
	if m.IsEnPassant() {
		gain = board.SeeValue[board.Pawn]
	} else if victim := pos.PieceAt(to); victim != board.NoPiece {
		gain = board.SeeValue[victim.Type()]
	}

	attackerType := pos.PieceAt(from).Type()
	if m.IsPromotion() {
		gain += board.SeeValue[m.Promotion()] - board.SeeValue[board.Pawn]
		attackerType = m.Promotion()
	}

	return seeSwap(pos, to, from, attackerType, gain)
}

// SEEGE reports whether the exchange on m's destination is at least
// threshold. Cheaper in spirit than SEE for pruning decisions, though
// this implementation shares the full swap.
func SEEGE(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}

func seeSwap(pos *board.Position, target, from board.Square, attackerType board.PieceType, initialGain int) int {
	var gain [32]int
	d := 0
	gain[0] = initialGain

	occupied := pos.AllOccupied.Clear(from)
	attackerValue := board.SeeValue[attackerType]
	side := pos.SideToMove.Other()
	pinned := pinnedOffLine(pos, target)

	for {
		d++
		gain[d] = attackerValue - gain[d-1]
		// Neither side benefits from continuing.
		if -gain[d-1] < 0 && gain[d] < 0 {
			break
		}

		sq, pt := leastValuableAttacker(pos, target, side, occupied, pinned)
		if sq == board.NoSquare {
			break
		}
		// Removing the attacker exposes x-ray pieces behind it to the
		// slider lookups on the next iteration.
		occupied = occupied.Clear(sq)
		attackerValue = board.SeeValue[pt]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = min(gain[d-1], -gain[d])
	}
	return gain[0]
}

// pinnedOffLine collects, for both colors, the pinned pieces whose pin
// line does not pass through target. They stay in occupancy so sliders
// still see them, but they may not join the exchange.
func pinnedOffLine(pos *board.Position, target board.Square) board.Bitboard {
	off := board.Bitboard(0)
	for side := board.White; side <= board.Black; side++ {
		ksq := pos.KingSquare[side]
		pinned := pos.PinnedPieces(side)
		for pinned != 0 {
			sq := pinned.PopLSB()
			if !board.Aligned(sq, target, ksq) {
				off |= board.SquareBB(sq)
			}
		}
	}
	return off
}

// leastValuableAttacker scans side's attackers of target in ascending
// value order, considering only pieces still in occupied and skipping
// pinned pieces that cannot legally reach the target.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied, pinned board.Bitboard) (board.Square, board.PieceType) {
	if bb := pos.Pieces[side][board.Pawn] & board.PawnAttacks(target, side.Other()) & occupied &^ pinned; bb != 0 {
		return bb.LSB(), board.Pawn
	}
	if bb := pos.Pieces[side][board.Knight] & board.KnightAttacks(target) & occupied &^ pinned; bb != 0 {
		return bb.LSB(), board.Knight
	}
	diag := board.BishopAttacks(target, occupied)
	if bb := pos.Pieces[side][board.Bishop] & diag & occupied &^ pinned; bb != 0 {
		return bb.LSB(), board.Bishop
	}
	ortho := board.RookAttacks(target, occupied)
	if bb := pos.Pieces[side][board.Rook] & ortho & occupied &^ pinned; bb != 0 {
		return bb.LSB(), board.Rook
	}
	if bb := pos.Pieces[side][board.Queen] & (diag | ortho) & occupied &^ pinned; bb != 0 {
		return bb.LSB(), board.Queen
	}
	if bb := pos.Pieces[side][board.King] & board.KingAttacks(target) & occupied; bb != 0 {
		return bb.LSB(), board.King
	}
	return board.NoSquare, board.NoPieceType
}
