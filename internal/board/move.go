package board

import "fmt"

// Move encodes a move in 16 bits:
// bits 0-5:   from square
// bits 6-11:  to square
// bits 12-13: promotion piece (0=Knight, 1=Bishop, 2=Rook, 3=Queen)
// bits 14-15: flags (0=normal, 1=promotion, 2=en passant, 3=castling)
//
// Castling is encoded as the king capturing its own rook: From is the
// king square and To is the rook square. The one encoding covers both
// standard chess and Chess960, where the king and rook start anywhere
// on the back rank.
type Move uint16

// Move flags.
const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove is the zero move, used as a sentinel.
const NoMove Move = 0

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move from the king square to the rook
// square of the castling rook.
func NewCastling(king, rook Square) Move {
	return Move(king) | Move(rook)<<6 | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square. For castling this is the rook
// square, not the square the king lands on.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag bits.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type. Only meaningful when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) IsPromotion() bool {
	return m.Flag() == FlagPromotion
}

func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// CastlingSide returns the wing of a castling move.
func (m Move) CastlingSide() CastlingSide {
	if m.To() > m.From() {
		return KingSide
	}
	return QueenSide
}

// KingTo returns the square the king lands on for a castling move.
func (m Move) KingTo() Square {
	rank := m.From().Rank()
	if m.CastlingSide() == KingSide {
		return NewSquare(6, rank)
	}
	return NewSquare(2, rank)
}

// RookTo returns the square the rook lands on for a castling move.
func (m Move) RookTo() Square {
	rank := m.From().Rank()
	if m.CastlingSide() == KingSide {
		return NewSquare(5, rank)
	}
	return NewSquare(3, rank)
}

// IsCapture reports whether the move captures a piece. Castling never
// captures even though its destination holds the friendly rook.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	if m.IsCastling() {
		return false
	}
	return !pos.IsEmpty(m.To())
}

// IsQuiet reports whether the move is neither a capture nor a promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// UCI renders the move in UCI notation. In standard mode castling is
// written as the two-square king move (e1g1); in Chess960 mode it is
// written king-takes-rook (e1h1) as the protocol requires.
func (m Move) UCI(chess960 bool) string {
	if m == NoMove {
		return "0000"
	}
	if m.IsCastling() && !chess960 {
		return m.From().String() + m.KingTo().String()
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// String renders the move in standard UCI notation.
func (m Move) String() string {
	return m.UCI(false)
}

// ParseMove parses a UCI move against a position. Both castling
// notations are accepted: the standard two-square king move and the
// Chess960 king-takes-rook form.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move: %q", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	if piece.Type() == King {
		us := piece.Color()
		// King-takes-rook form.
		if pos.PieceAt(to) == NewPiece(Rook, us) {
			return NewCastling(from, to), nil
		}
		// Two-square king move.
		if from.Rank() == to.Rank() && abs(to.File()-from.File()) == 2 {
			side := QueenSide
			if to > from {
				side = KingSide
			}
			rook := pos.Castling.RookSquare(us, side)
			if rook == NoSquare {
				return NoMove, fmt.Errorf("no castling rights for %s", s)
			}
			return NewCastling(from, rook), nil
		}
	}

	if piece.Type() == Pawn && to == pos.EnPassant {
		return NewEnPassant(from, to), nil
	}

	return NewMove(from, to), nil
}

// MoveList is a fixed-capacity move buffer that avoids allocations in
// the move generator.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set overwrites the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap exchanges two moves.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the filled portion of the buffer.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo snapshots the irreversible parts of Position state so a move
// can be taken back exactly.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	MinorKey       uint64
	MajorKey       uint64
	NonPawnKey     [2]uint64
	Checkers       Bitboard
	Threats        Bitboard
	Pinned         Bitboard
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
