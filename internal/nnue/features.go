package nnue

import "github.com/tkoivisto/peregrine/internal/board"

// Feature encoding. Each perspective sees the board from its own side:
// the black perspective flips the board vertically and swaps piece
// colors, so the same weights serve both sides. On top of that the
// board is mirrored horizontally whenever the perspective's king lives
// on files e-h, which halves the king placements the network has to
// learn. A feature is then piece(12) x square(64) = 768 inputs.

// orient maps a square into a perspective's frame given that
// perspective's king square.
func orient(perspective board.Color, kingSq, sq board.Square) board.Square {
	if perspective == board.Black {
		sq = sq.FlipVertical()
		kingSq = kingSq.FlipVertical()
	}
	if kingSq.File() >= 4 {
		sq = sq.FlipHorizontal()
	}
	return sq
}

// featureIndex returns the input index of a piece from one perspective.
func featureIndex(perspective board.Color, kingSq board.Square, piece board.Piece, sq board.Square) int {
	pt := int(piece.Type())
	pc := piece.Color()
	if perspective == board.Black {
		pc = pc.Other()
	}
	pieceIdx := pt
	if pc == board.Black {
		pieceIdx += 6
	}
	return pieceIdx*64 + int(orient(perspective, kingSq, sq))
}

// activeFeatures appends the indices of every set feature for one
// perspective to buf and returns it.
func activeFeatures(pos *board.Position, perspective board.Color, buf []int) []int {
	kingSq := pos.KingSquare[perspective]
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := pos.Pieces[c][pt]; bb != 0; {
				sq := bb.PopLSB()
				buf = append(buf, featureIndex(perspective, kingSq, board.NewPiece(pt, c), sq))
			}
		}
	}
	return buf
}

// refreshRequired reports whether a king move invalidates the given
// perspective's accumulator: the mover's own perspective always changes
// frame when its king moves (the king is itself a feature and the
// mirror state may flip).
func refreshRequired(perspective board.Color, moved board.Piece) bool {
	return moved.Type() == board.King && moved.Color() == perspective
}
