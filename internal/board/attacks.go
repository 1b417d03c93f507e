package board

// SliderStrategy computes sliding piece attacks for a given occupancy.
// Two interchangeable backends exist: magic bitboard lookup tables and
// hyperbola quintessence. Both must return identical attack sets; the
// magic tables are the default because the lookups are branch-free, the
// hyperbola backend needs no large tables and serves as a
// cross-checking oracle in tests.
type SliderStrategy interface {
	BishopAttacks(sq Square, occupied Bitboard) Bitboard
	RookAttacks(sq Square, occupied Bitboard) Bitboard
	Name() string
}

var sliders SliderStrategy = MagicSliders{}

// SetSliderStrategy switches the slider backend. Not safe to call while
// a search is running.
func SetSliderStrategy(s SliderStrategy) {
	sliders = s
}

// Precomputed attack and geometry tables for non-sliding pieces.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// betweenBB[a][b] holds the squares strictly between a and b when
	// they share a rank, file or diagonal; lineBB the full line through
	// them including the endpoints.
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard
)

func init() {
	initLeaperAttacks()
	initLines()
	initMagics()
	initHyperbola()
}

func initLeaperAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = bb.North().NorthEast() | bb.North().NorthWest() |
			bb.South().SouthEast() | bb.South().SouthWest() |
			bb.East().NorthEast() | bb.East().SouthEast() |
			bb.West().NorthWest() | bb.West().SouthWest()

		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initLines() {
	for sq1 := A1; sq1 <= H8; sq1++ {
		for sq2 := A1; sq2 <= H8; sq2++ {
			f1, r1 := sq1.File(), sq1.Rank()
			f2, r2 := sq2.File(), sq2.Rank()
			df, dr := sign(f2-f1), sign(r2-r1)

			if sq1 == sq2 {
				continue
			}
			if df != 0 && dr != 0 && abs(f2-f1) != abs(r2-r1) {
				continue
			}

			var between Bitboard
			for f, r := f1+df, r1+dr; f != f2 || r != r2; f, r = f+df, r+dr {
				between |= SquareBB(NewSquare(f, r))
			}
			betweenBB[sq1][sq2] = between

			var line Bitboard
			for f, r := f1, r1; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f-df, r-dr {
				line |= SquareBB(NewSquare(f, r))
			}
			for f, r := f1+df, r1+dr; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+df, r+dr {
				line |= SquareBB(NewSquare(f, r))
			}
			lineBB[sq1][sq2] = line
		}
	}
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// KnightAttacks returns the knight attack set from sq.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack set from sq.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the capture squares of a c pawn on sq.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack set from sq under occupied.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return sliders.BishopAttacks(sq, occupied)
}

// RookAttacks returns the rook attack set from sq under occupied.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return sliders.RookAttacks(sq, occupied)
}

// QueenAttacks returns the queen attack set from sq under occupied.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return sliders.BishopAttacks(sq, occupied) | sliders.RookAttacks(sq, occupied)
}

// Between returns the squares strictly between two aligned squares,
// empty when they do not share a line.
func Between(sq1, sq2 Square) Bitboard {
	return betweenBB[sq1][sq2]
}

// Line returns the full line through two aligned squares.
func Line(sq1, sq2 Square) Bitboard {
	return lineBB[sq1][sq2]
}

// Aligned reports whether sq3 lies on the line through sq1 and sq2.
func Aligned(sq1, sq2, sq3 Square) bool {
	return lineBB[sq1][sq2]&SquareBB(sq3) != 0
}

// AttackersTo returns every piece of either color attacking sq under
// the given occupancy.
func (p *Position) AttackersTo(sq Square, occupied Bitboard) Bitboard {
	return (pawnAttacks[Black][sq] & p.Pieces[White][Pawn]) |
		(pawnAttacks[White][sq] & p.Pieces[Black][Pawn]) |
		(knightAttacks[sq] & (p.Pieces[White][Knight] | p.Pieces[Black][Knight])) |
		(kingAttacks[sq] & (p.Pieces[White][King] | p.Pieces[Black][King])) |
		(BishopAttacks(sq, occupied) & (p.Pieces[White][Bishop] | p.Pieces[Black][Bishop] | p.Pieces[White][Queen] | p.Pieces[Black][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[White][Rook] | p.Pieces[Black][Rook] | p.Pieces[White][Queen] | p.Pieces[Black][Queen]))
}

// AttackersByColor returns the pieces of color c attacking sq under the
// given occupancy.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	return (pawnAttacks[c.Other()][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}

// IsSquareAttacked reports whether byColor attacks sq.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.AttackersByColor(sq, byColor, p.AllOccupied) != 0
}

// AttackedSquares returns every square attacked by c under the given
// occupancy. Used to build the threat bitboard consulted by move
// ordering and history bucketing.
func (p *Position) AttackedSquares(c Color, occupied Bitboard) Bitboard {
	var attacks Bitboard

	pawns := p.Pieces[c][Pawn]
	if c == White {
		attacks |= pawns.NorthEast() | pawns.NorthWest()
	} else {
		attacks |= pawns.SouthEast() | pawns.SouthWest()
	}

	for bb := p.Pieces[c][Knight]; bb != 0; {
		attacks |= knightAttacks[bb.PopLSB()]
	}
	for bb := p.Pieces[c][Bishop] | p.Pieces[c][Queen]; bb != 0; {
		attacks |= BishopAttacks(bb.PopLSB(), occupied)
	}
	for bb := p.Pieces[c][Rook] | p.Pieces[c][Queen]; bb != 0; {
		attacks |= RookAttacks(bb.PopLSB(), occupied)
	}
	if kingBB := p.Pieces[c][King]; kingBB != 0 {
		attacks |= kingAttacks[kingBB.LSB()]
	}
	return attacks
}
