package board

// CastlingSide distinguishes the two castling wings. KingSide is the
// wing with the rook on the higher file relative to the king.
type CastlingSide uint8

const (
	KingSide CastlingSide = iota
	QueenSide
)

// CastlingRights tracks the castling rook of each color and wing by its
// starting square, NoSquare when the right is gone. Storing the rook
// square instead of a KQkq mask is what lets the same code handle
// Chess960, where rooks start on arbitrary back-rank files.
type CastlingRights struct {
	rooks [2][2]Square
}

// NoCastlingRights returns rights with every wing cleared.
func NoCastlingRights() CastlingRights {
	return CastlingRights{rooks: [2][2]Square{
		{NoSquare, NoSquare},
		{NoSquare, NoSquare},
	}}
}

// Set grants the right for c on the given wing with the rook at sq.
func (cr *CastlingRights) Set(c Color, side CastlingSide, sq Square) {
	cr.rooks[c][side] = sq
}

// RookSquare returns the castling rook's starting square, or NoSquare
// when the right is unavailable.
func (cr CastlingRights) RookSquare(c Color, side CastlingSide) Square {
	return cr.rooks[c][side]
}

// Has reports whether c can still castle on the given wing.
func (cr CastlingRights) Has(c Color, side CastlingSide) bool {
	return cr.rooks[c][side] != NoSquare
}

// Any reports whether any right remains for either color.
func (cr CastlingRights) Any() bool {
	return cr.rooks[White][KingSide] != NoSquare ||
		cr.rooks[White][QueenSide] != NoSquare ||
		cr.rooks[Black][KingSide] != NoSquare ||
		cr.rooks[Black][QueenSide] != NoSquare
}

// ClearColor removes both rights of c. Called when the king moves.
func (cr *CastlingRights) ClearColor(c Color) {
	cr.rooks[c][KingSide] = NoSquare
	cr.rooks[c][QueenSide] = NoSquare
}

// ClearSquare removes any right whose rook sits on sq. Called for both
// endpoints of every move so a captured or moved rook drops its right.
func (cr *CastlingRights) ClearSquare(sq Square) {
	for c := White; c <= Black; c++ {
		for side := KingSide; side <= QueenSide; side++ {
			if cr.rooks[c][side] == sq {
				cr.rooks[c][side] = NoSquare
			}
		}
	}
}

// Mask packs the four rights into a 4-bit presence mask used for
// Zobrist hashing: bit 0 white kingside, bit 1 white queenside,
// bit 2 black kingside, bit 3 black queenside.
func (cr CastlingRights) Mask() uint8 {
	var m uint8
	if cr.rooks[White][KingSide] != NoSquare {
		m |= 1
	}
	if cr.rooks[White][QueenSide] != NoSquare {
		m |= 2
	}
	if cr.rooks[Black][KingSide] != NoSquare {
		m |= 4
	}
	if cr.rooks[Black][QueenSide] != NoSquare {
		m |= 8
	}
	return m
}

// IsStandard reports whether every remaining right uses the classical
// rook squares. Used to decide between KQkq and Shredder-FEN output.
func (cr CastlingRights) IsStandard() bool {
	check := func(c Color, side CastlingSide, want Square) bool {
		sq := cr.rooks[c][side]
		return sq == NoSquare || sq == want
	}
	return check(White, KingSide, H1) && check(White, QueenSide, A1) &&
		check(Black, KingSide, H8) && check(Black, QueenSide, A8)
}

func (cr CastlingRights) String() string {
	if !cr.Any() {
		return "-"
	}
	var s []byte
	if cr.IsStandard() {
		if cr.Has(White, KingSide) {
			s = append(s, 'K')
		}
		if cr.Has(White, QueenSide) {
			s = append(s, 'Q')
		}
		if cr.Has(Black, KingSide) {
			s = append(s, 'k')
		}
		if cr.Has(Black, QueenSide) {
			s = append(s, 'q')
		}
	} else {
		// Shredder-FEN file letters.
		if sq := cr.rooks[White][KingSide]; sq != NoSquare {
			s = append(s, byte('A'+sq.File()))
		}
		if sq := cr.rooks[White][QueenSide]; sq != NoSquare {
			s = append(s, byte('A'+sq.File()))
		}
		if sq := cr.rooks[Black][KingSide]; sq != NoSquare {
			s = append(s, byte('a'+sq.File()))
		}
		if sq := cr.rooks[Black][QueenSide]; sq != NoSquare {
			s = append(s, byte('a'+sq.File()))
		}
	}
	return string(s)
}
