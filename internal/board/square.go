// Package board implements a bitboard chess position with legal move
// generation for standard chess and Fischer Random (Chess960).
package board

import "fmt"

// Square indexes the board using Little-Endian Rank-File mapping:
// A1=0, H1=7, A8=56, H8=63.
type Square uint8

const (
	A1 Square = iota
	B1
	C1
	D1
	E1
	F1
	G1
	H1
	A2
	B2
	C2
	D2
	E2
	F2
	G2
	H2
	A3
	B3
	C3
	D3
	E3
	F3
	G3
	H3
	A4
	B4
	C4
	D4
	E4
	F4
	G4
	H4
	A5
	B5
	C5
	D5
	E5
	F5
	G5
	H5
	A6
	B6
	C6
	D6
	E6
	F6
	G6
	H6
	A7
	B7
	C7
	D7
	E7
	F7
	G7
	H7
	A8
	B8
	C8
	D8
	E8
	F8
	G8
	H8
	NoSquare Square = 64
)

// File returns the file of the square (0=a .. 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the rank of the square (0 .. 7).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// NewSquare builds a square from zero-indexed file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// ParseSquare parses coordinate notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	return NewSquare(file, rank), nil
}

// IsValid reports whether the square is on the board.
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// FlipVertical mirrors the square across the horizontal center line,
// mapping A1 to A8. Used to orient squares from black's perspective.
func (sq Square) FlipVertical() Square {
	return sq ^ 56
}

// FlipHorizontal mirrors the square across the vertical center line,
// mapping A1 to H1.
func (sq Square) FlipHorizontal() Square {
	return sq ^ 7
}

// RelativeRank returns the rank from c's point of view: for White rank 0
// is the first rank, for Black it is the eighth.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// RelativeSquare flips the square vertically for Black and leaves it
// unchanged for White.
func (sq Square) RelativeSquare(c Color) Square {
	if c == White {
		return sq
	}
	return sq.FlipVertical()
}
