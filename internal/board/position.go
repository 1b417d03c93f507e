package board

import (
	"fmt"
	"strings"
)

// Position is a complete chess position. The piece bitboards are the
// source of truth; occupancy, king squares, checkers, threats and the
// incremental hash keys are caches maintained by MakeMove/UnmakeMove.
type Position struct {
	Pieces [2][6]Bitboard

	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	Castling       CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int

	// Hash covers the full position. The remaining keys cover subsets
	// of the material and feed the correction histories: PawnKey hashes
	// pawns, MinorKey knights, bishops and kings, MajorKey rooks,
	// queens and kings, NonPawnKey everything but pawns split by piece
	// color.
	Hash       uint64
	PawnKey    uint64
	MinorKey   uint64
	MajorKey   uint64
	NonPawnKey [2]uint64

	KingSquare [2]Square

	// Checkers holds the pieces giving check to the side to move,
	// Threats every square the opponent attacks, Pinned the pieces of
	// the side to move pinned to their king.
	Checkers Bitboard
	Threats  Bitboard
	Pinned   Bitboard
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy returns a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece on sq, NoPiece when empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty reports whether sq is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// putPiece places a piece and updates the bitboard caches. Hash keys
// are the caller's responsibility.
func (p *Position) putPiece(pt PieceType, c Color, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	if pt == King {
		p.KingSquare[c] = sq
	}
}

// clearPiece removes a piece, the bitboard-level inverse of putPiece.
func (p *Position) clearPiece(pt PieceType, c Color, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
}

// hashPiece toggles the Zobrist keys of a piece on sq across every
// incremental key that tracks its piece class. Kings contribute to both
// the minor and major keys so king placement always participates in the
// correction hashes.
func (p *Position) hashPiece(c Color, pt PieceType, sq Square) {
	k := zobristPiece[c][pt][sq]
	p.Hash ^= k
	switch pt {
	case Pawn:
		p.PawnKey ^= k
	case Knight, Bishop:
		p.MinorKey ^= k
		p.NonPawnKey[c] ^= k
	case Rook, Queen:
		p.MajorKey ^= k
		p.NonPawnKey[c] ^= k
	case King:
		p.MinorKey ^= k
		p.MajorKey ^= k
		p.NonPawnKey[c] ^= k
	}
}

// MakeMove applies a legal move and returns the undo record for
// UnmakeMove. The move must come from the generator; no legality
// checking happens here.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.Castling,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		MinorKey:       p.MinorKey,
		MajorKey:       p.MajorKey,
		NonPawnKey:     p.NonPawnKey,
		Checkers:       p.Checkers,
		Threats:        p.Threats,
		Pinned:         p.Pinned,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	pt := p.PieceAt(from).Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.Castling.Mask()]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	switch {
	case m.IsCastling():
		kingTo := m.KingTo()
		rookTo := m.RookTo()
		// Lift both pieces before placing either: in Chess960 the king
		// may land on the rook's square or vice versa.
		p.clearPiece(King, us, from)
		p.clearPiece(Rook, us, to)
		p.putPiece(King, us, kingTo)
		p.putPiece(Rook, us, rookTo)
		p.hashPiece(us, King, from)
		p.hashPiece(us, King, kingTo)
		p.hashPiece(us, Rook, to)
		p.hashPiece(us, Rook, rookTo)
		p.Castling.ClearColor(us)

	case m.IsEnPassant():
		capturedSq := to - 8
		if us == Black {
			capturedSq = to + 8
		}
		undo.CapturedPiece = NewPiece(Pawn, them)
		p.clearPiece(Pawn, them, capturedSq)
		p.hashPiece(them, Pawn, capturedSq)
		p.clearPiece(Pawn, us, from)
		p.putPiece(Pawn, us, to)
		p.hashPiece(us, Pawn, from)
		p.hashPiece(us, Pawn, to)

	default:
		if captured := p.PieceAt(to); captured != NoPiece {
			undo.CapturedPiece = captured
			p.clearPiece(captured.Type(), them, to)
			p.hashPiece(them, captured.Type(), to)
			p.Castling.ClearSquare(to)
		}

		p.clearPiece(pt, us, from)
		p.hashPiece(us, pt, from)
		if m.IsPromotion() {
			promo := m.Promotion()
			p.putPiece(promo, us, to)
			p.hashPiece(us, promo, to)
		} else {
			p.putPiece(pt, us, to)
			p.hashPiece(us, pt, to)
		}

		if pt == King {
			p.Castling.ClearColor(us)
		} else {
			p.Castling.ClearSquare(from)
		}

		// Double pawn push opens en passant.
		if pt == Pawn && abs(int(to)-int(from)) == 16 {
			ep := Square((int(from) + int(to)) / 2)
			p.EnPassant = ep
			p.Hash ^= zobristEnPassant[ep.File()]
		}
	}

	p.Hash ^= zobristCastling[p.Castling.Mask()]

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.updateState()

	return undo
}

// UnmakeMove reverses a move made with MakeMove.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	us := p.SideToMove.Other()
	them := p.SideToMove
	from := m.From()
	to := m.To()

	switch {
	case m.IsCastling():
		p.clearPiece(King, us, m.KingTo())
		p.clearPiece(Rook, us, m.RookTo())
		p.putPiece(King, us, from)
		p.putPiece(Rook, us, to)

	case m.IsEnPassant():
		capturedSq := to - 8
		if us == Black {
			capturedSq = to + 8
		}
		p.clearPiece(Pawn, us, to)
		p.putPiece(Pawn, us, from)
		p.putPiece(Pawn, them, capturedSq)

	case m.IsPromotion():
		p.clearPiece(m.Promotion(), us, to)
		p.putPiece(Pawn, us, from)
		if undo.CapturedPiece != NoPiece {
			p.putPiece(undo.CapturedPiece.Type(), them, to)
		}

	default:
		pt := p.PieceAt(to).Type()
		p.clearPiece(pt, us, to)
		p.putPiece(pt, us, from)
		if undo.CapturedPiece != NoPiece {
			p.putPiece(undo.CapturedPiece.Type(), them, to)
		}
	}

	p.Castling = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.MinorKey = undo.MinorKey
	p.MajorKey = undo.MajorKey
	p.NonPawnKey = undo.NonPawnKey
	p.Checkers = undo.Checkers
	p.Threats = undo.Threats
	p.Pinned = undo.Pinned
	p.SideToMove = us
	if us == Black {
		p.FullMoveNumber--
	}
}

// updateState refreshes the check, threat and pin caches for the side
// to move. Called after every make and at position setup.
func (p *Position) updateState() {
	us := p.SideToMove
	them := us.Other()
	kingBB := p.Pieces[us][King]
	if kingBB == 0 {
		p.Checkers = 0
		p.Threats = 0
		p.Pinned = 0
		return
	}
	ksq := kingBB.LSB()
	p.Checkers = p.AttackersByColor(ksq, them, p.AllOccupied)
	p.Threats = p.AttackedSquares(them, p.AllOccupied)
	p.Pinned = p.computePinned()
}

func (p *Position) computePinned() Bitboard {
	return p.PinnedPieces(p.SideToMove)
}

// PinnedPieces finds side's pieces pinned to their king by x-raying
// sliders through a single blocker. The side to move's set is cached in
// Pinned; this form exists for callers that need the opponent's pins,
// such as exchange evaluation.
func (p *Position) PinnedPieces(us Color) Bitboard {
	them := us.Other()
	ksq := p.KingSquare[us]
	pinned := Empty

	snipers := rayRookAttacks(ksq, 0)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) |
		rayBishopAttacks(ksq, 0)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen])
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & p.AllOccupied
		if blockers.PopCount() == 1 && blockers&p.Occupied[us] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// NullMoveUndo carries the state restored by UnmakeNullMove.
type NullMoveUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
	Threats   Bitboard
	Pinned    Bitboard
}

// MakeNullMove passes the turn without moving, used by null move
// pruning. The caller must not be in check.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant: p.EnPassant,
		Hash:      p.Hash,
		Checkers:  p.Checkers,
		Threats:   p.Threats,
		Pinned:    p.Pinned,
	}

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.updateState()

	return undo
}

// UnmakeNullMove reverses MakeNullMove.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.Threats = undo.Threats
	p.Pinned = undo.Pinned
	p.SideToMove = p.SideToMove.Other()
}

// HasNonPawnMaterial reports whether the side to move has any piece
// besides pawns and the king. Null move pruning is unsound without it
// because pawn endgames are riddled with zugzwang.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.generateAllMoves(&ml)
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegalFast(ml.Get(i), p.Pinned) {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw reports whether the position is drawn by stalemate, the
// fifty-move rule or insufficient material. Repetition is tracked by
// the search, which owns the move history.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= 100 {
		return true
	}
	if p.IsInsufficientMaterial() {
		return true
	}
	return p.IsStalemate()
}

// IsInsufficientMaterial reports whether neither side can mate: bare
// kings or king and a single minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wMinors := (p.Pieces[White][Knight] | p.Pieces[White][Bishop]).PopCount()
	bMinors := (p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]).PopCount()

	if wMinors+bMinors == 0 {
		return true
	}
	if wMinors <= 1 && bMinors == 0 {
		return true
	}
	if bMinors <= 1 && wMinors == 0 {
		return true
	}
	return false
}

func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.Castling)
	fmt.Fprintf(&sb, "En passant: %s\n", p.EnPassant)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	*p = Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		Castling:       NoCastlingRights(),
	}
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare
}

// Validate checks basic structural invariants of the position.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("black must have exactly one king")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawns cannot stand on the first or last rank")
	}
	if p.IsSquareAttacked(p.KingSquare[p.SideToMove.Other()], p.SideToMove) {
		return fmt.Errorf("side not to move is in check")
	}
	return nil
}
