package board

// Move generation is pseudo-legal plus a cheap legality filter. Moves
// by unpinned pieces that are neither king moves nor en passant cannot
// expose the king and skip validation entirely.

// GenerateLegalMoves fills ml with every legal move.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	ml.Clear()
	var pseudo MoveList
	p.generateAllMoves(&pseudo)
	p.filterLegal(&pseudo, ml)
}

// GenerateNoisy fills ml with pseudo-legal captures and promotions.
func (p *Position) GenerateNoisy(ml *MoveList) {
	ml.Clear()
	p.generateNoisy(ml)
}

// GenerateQuiets fills ml with pseudo-legal non-captures, castling
// included, promotions excluded.
func (p *Position) GenerateQuiets(ml *MoveList) {
	ml.Clear()
	p.generateQuiets(ml)
}

func (p *Position) generateAllMoves(ml *MoveList) {
	p.generateNoisy(ml)
	p.generateQuiets(ml)
}

func (p *Position) generateNoisy(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemies := p.Occupied[them]
	occupied := p.AllOccupied

	p.generatePawnNoisy(ml, us, enemies, occupied)

	for knights := p.Pieces[us][Knight]; knights != 0; {
		from := knights.PopLSB()
		for attacks := KnightAttacks(from) & enemies; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for bishops := p.Pieces[us][Bishop]; bishops != 0; {
		from := bishops.PopLSB()
		for attacks := BishopAttacks(from, occupied) & enemies; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for rooks := p.Pieces[us][Rook]; rooks != 0; {
		from := rooks.PopLSB()
		for attacks := RookAttacks(from, occupied) & enemies; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for queens := p.Pieces[us][Queen]; queens != 0; {
		from := queens.PopLSB()
		for attacks := QueenAttacks(from, occupied) & enemies; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	if kingBB := p.Pieces[us][King]; kingBB != 0 {
		from := kingBB.LSB()
		for attacks := KingAttacks(from) & enemies; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
}

func (p *Position) generateQuiets(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	empty := ^occupied

	p.generatePawnQuiets(ml, us, empty)

	for knights := p.Pieces[us][Knight]; knights != 0; {
		from := knights.PopLSB()
		for attacks := KnightAttacks(from) & empty; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for bishops := p.Pieces[us][Bishop]; bishops != 0; {
		from := bishops.PopLSB()
		for attacks := BishopAttacks(from, occupied) & empty; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for rooks := p.Pieces[us][Rook]; rooks != 0; {
		from := rooks.PopLSB()
		for attacks := RookAttacks(from, occupied) & empty; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	for queens := p.Pieces[us][Queen]; queens != 0; {
		from := queens.PopLSB()
		for attacks := QueenAttacks(from, occupied) & empty; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	if kingBB := p.Pieces[us][King]; kingBB != 0 {
		from := kingBB.LSB()
		for attacks := KingAttacks(from) & empty; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	p.generateCastling(ml, us)
}

func (p *Position) generatePawnNoisy(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var attackL, attackR, push1 Bitboard
	var promotionRank Bitboard
	var pushDir int
	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		push1 = pawns.North() & empty
		promotionRank = Rank8
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		push1 = pawns.South() & empty
		promotionRank = Rank1
		pushDir = -8
	}

	for bb := attackL &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	for bb := attackR &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	for bb := attackL & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	for bb := attackR & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}
	for bb := push1 & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}
}

func (p *Position) generatePawnQuiets(ml *MoveList, us Color, empty Bitboard) {
	pawns := p.Pieces[us][Pawn]

	var push1, push2 Bitboard
	var promotionRank Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promotionRank = Rank1
		pushDir = -8
	}

	for bb := push1 &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastling emits fully validated castling moves. The same path
// rules cover standard chess and Chess960: every square between the
// king and its destination and between the rook and its destination
// must be empty apart from the two castlers themselves, and no square
// the king crosses may be attacked.
func (p *Position) generateCastling(ml *MoveList, us Color) {
	them := us.Other()
	kingBB := p.Pieces[us][King]
	if kingBB == 0 {
		return
	}
	ksq := kingBB.LSB()

	for side := KingSide; side <= QueenSide; side++ {
		rsq := p.Castling.RookSquare(us, side)
		if rsq == NoSquare {
			continue
		}

		m := NewCastling(ksq, rsq)
		kingTo := m.KingTo()
		rookTo := m.RookTo()

		clearance := (Between(ksq, kingTo) | SquareBB(kingTo) |
			Between(rsq, rookTo) | SquareBB(rookTo)) &^
			(SquareBB(ksq) | SquareBB(rsq))
		if p.AllOccupied&^(SquareBB(ksq)|SquareBB(rsq))&clearance != 0 {
			continue
		}

		// The king's own square is part of the walk, so castling out of
		// check is rejected here as well.
		occ := p.AllOccupied &^ SquareBB(ksq)
		kingPath := Between(ksq, kingTo) | SquareBB(ksq) | SquareBB(kingTo)
		attacked := false
		for path := kingPath; path != 0; {
			if p.AttackersByColor(path.PopLSB(), them, occ) != 0 {
				attacked = true
				break
			}
		}
		if attacked {
			continue
		}

		ml.Add(m)
	}
}

func (p *Position) filterLegal(pseudo, out *MoveList) {
	pinned := p.Pinned
	for i := 0; i < pseudo.Len(); i++ {
		if m := pseudo.Get(i); p.IsLegalFast(m, pinned) {
			out.Add(m)
		}
	}
}

// IsLegalFast decides pseudo-legal move legality without make/unmake
// for every case except en passant, whose double pawn removal can open
// a rank attack no pin test sees.
func (p *Position) IsLegalFast(m Move, pinned Bitboard) bool {
	from := m.From()
	to := m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	if m.IsCastling() {
		// Validated during generation, including the in-check case.
		return true
	}

	if from == ksq {
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false
		}
		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			capturedSq := to - 8
			if us == Black {
				capturedSq = to + 8
			}
			if capturedSq == checker || validTargets.IsSet(to) {
				return p.isLegalEnPassant(m)
			}
			return false
		}

		if !validTargets.IsSet(to) {
			return false
		}
		return pinned&SquareBB(from) == 0 || Aligned(from, to, ksq)
	}

	if m.IsEnPassant() {
		return p.isLegalEnPassant(m)
	}

	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

// isLegalEnPassant applies the capture and looks whether the king is
// attacked afterwards.
func (p *Position) isLegalEnPassant(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)
	return !attacked
}

// GenerateChecks fills ml with legal quiet moves that give check, the
// forcing moves quiescence examines beyond captures.
func (p *Position) GenerateChecks(ml *MoveList) {
	ml.Clear()
	var pseudo MoveList
	p.generateQuietChecks(&pseudo)
	p.filterLegal(&pseudo, ml)
}

func (p *Position) generateQuietChecks(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemyKing := p.KingSquare[them]
	occupied := p.AllOccupied
	empty := ^occupied

	knightTargets := KnightAttacks(enemyKing) & empty
	for knights := p.Pieces[us][Knight]; knights != 0; {
		from := knights.PopLSB()
		for attacks := KnightAttacks(from) & knightTargets; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	bishopTargets := BishopAttacks(enemyKing, occupied) & empty
	for bishops := p.Pieces[us][Bishop]; bishops != 0; {
		from := bishops.PopLSB()
		for attacks := BishopAttacks(from, occupied) & bishopTargets; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	rookTargets := RookAttacks(enemyKing, occupied) & empty
	for rooks := p.Pieces[us][Rook]; rooks != 0; {
		from := rooks.PopLSB()
		for attacks := RookAttacks(from, occupied) & rookTargets; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	queenTargets := bishopTargets | rookTargets
	for queens := p.Pieces[us][Queen]; queens != 0; {
		from := queens.PopLSB()
		for attacks := QueenAttacks(from, occupied) & queenTargets; attacks != 0; {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
}

// IsPseudoLegal reports whether m could have been produced by the move
// generator in this position. Hash table and killer moves come from
// other positions and must be vetted before being made.
func (p *Position) IsPseudoLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	from := m.From()
	to := m.To()
	us := p.SideToMove
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return false
	}
	pt := piece.Type()

	if m.IsCastling() {
		if pt != King || p.Castling.RookSquare(us, m.CastlingSide()) != to {
			return false
		}
		var ml MoveList
		p.generateCastling(&ml, us)
		return ml.Contains(m)
	}

	target := p.PieceAt(to)
	if target != NoPiece && target.Color() == us {
		return false
	}

	if pt == Pawn {
		return p.isPseudoLegalPawn(m, us, target)
	}
	if m.IsPromotion() || m.IsEnPassant() {
		return false
	}

	var attacks Bitboard
	switch pt {
	case Knight:
		attacks = KnightAttacks(from)
	case Bishop:
		attacks = BishopAttacks(from, p.AllOccupied)
	case Rook:
		attacks = RookAttacks(from, p.AllOccupied)
	case Queen:
		attacks = QueenAttacks(from, p.AllOccupied)
	case King:
		attacks = KingAttacks(from)
	}
	return attacks.IsSet(to)
}

func (p *Position) isPseudoLegalPawn(m Move, us Color, target Piece) bool {
	from := m.From()
	to := m.To()

	promoRank := 7
	if us == Black {
		promoRank = 0
	}
	if m.IsPromotion() != (to.Rank() == promoRank) {
		return false
	}

	if m.IsEnPassant() {
		return to == p.EnPassant && PawnAttacks(from, us).IsSet(to)
	}
	if PawnAttacks(from, us).IsSet(to) {
		return target != NoPiece
	}
	if target != NoPiece {
		return false
	}

	dir := 8
	if us == Black {
		dir = -8
	}
	if int(to) == int(from)+dir {
		return true
	}
	startRank := 1
	if us == Black {
		startRank = 6
	}
	return from.Rank() == startRank && int(to) == int(from)+2*dir &&
		!p.AllOccupied.IsSet(Square(int(from) + dir))
}
