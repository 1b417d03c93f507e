package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// StartPosition returns the standard starting position.
func StartPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// ParseFEN parses a FEN string. Castling accepts the classical KQkq
// letters, X-FEN and Shredder-FEN file letters, so Chess960 start
// positions parse with the same entry point.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN %q: need at least 4 fields, got %d", fen, len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		Castling:       NoCastlingRights(),
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %q", parts[1])
	}

	if err := parseCastling(pos, parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %q", parts[3])
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %q", parts[4])
		}
		pos.HalfMoveClock = hmc
	}
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %q", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	pos.recomputeKeys()
	pos.updateState()

	return pos, nil
}

func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return fmt.Errorf("invalid piece character: %c", c)
			}
			pos.putPiece(piece.Type(), piece.Color(), NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d has %d squares", rank+1, file)
		}
	}
	return nil
}

func parseCastling(pos *Position, castling string) error {
	if castling == "-" {
		return nil
	}

	// outermostRook finds the rook the classical K/Q/k/q letters refer
	// to: the rook farthest from the king on the given wing.
	outermostRook := func(c Color, side CastlingSide) Square {
		ksq := pos.KingSquare[c]
		if ksq == NoSquare {
			return NoSquare
		}
		rooks := pos.Pieces[c][Rook] & RankMask[ksq.Rank()]
		if side == KingSide {
			if sq := rooks.MSB(); sq != NoSquare && sq > ksq {
				return sq
			}
			return NoSquare
		}
		if sq := rooks.LSB(); sq != NoSquare && sq < ksq {
			return sq
		}
		return NoSquare
	}

	for _, ch := range castling {
		var c Color
		var sq Square
		switch {
		case ch == 'K':
			c, sq = White, outermostRook(White, KingSide)
		case ch == 'Q':
			c, sq = White, outermostRook(White, QueenSide)
		case ch == 'k':
			c, sq = Black, outermostRook(Black, KingSide)
		case ch == 'q':
			c, sq = Black, outermostRook(Black, QueenSide)
		case ch >= 'A' && ch <= 'H':
			c = White
			sq = NewSquare(int(ch-'A'), pos.KingSquare[White].Rank())
		case ch >= 'a' && ch <= 'h':
			c = Black
			sq = NewSquare(int(ch-'a'), pos.KingSquare[Black].Rank())
		default:
			return fmt.Errorf("invalid castling character: %c", ch)
		}
		if sq == NoSquare {
			return fmt.Errorf("castling right %c has no matching rook", ch)
		}
		side := QueenSide
		if sq > pos.KingSquare[c] {
			side = KingSide
		}
		pos.Castling.Set(c, side, sq)
	}
	return nil
}

// ToFEN renders the position. Non-standard castling rook placement
// switches the castling field to Shredder-FEN file letters.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.Castling.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// recomputeKeys rebuilds every incremental hash key from scratch. Used
// at position setup; MakeMove maintains the keys incrementally after.
func (p *Position) recomputeKeys() {
	p.Hash = 0
	p.PawnKey = 0
	p.MinorKey = 0
	p.MajorKey = 0
	p.NonPawnKey[White] = 0
	p.NonPawnKey[Black] = 0

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := p.Pieces[c][pt]; bb != 0; {
				p.hashPiece(c, pt, bb.PopLSB())
			}
		}
	}

	if p.SideToMove == Black {
		p.Hash ^= zobristSideToMove
	}
	p.Hash ^= zobristCastling[p.Castling.Mask()]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
}
