package board

// Hyperbola quintessence slider backend. Attacks along a masked line
// are o^(o-2s) run in both directions, with the reverse direction
// obtained by byte-swapping the board. Byte swap only reverses vertical
// order, so it covers files and both diagonals; rank attacks use a
// small first-rank lookup instead.

// HyperbolaSliders computes slider attacks without large tables. It is
// the fallback backend and the oracle the magic tables are verified
// against in tests.
type HyperbolaSliders struct{}

func (HyperbolaSliders) Name() string { return "hyperbola" }

func (HyperbolaSliders) BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return lineSliderAttacks(sq, occupied, diagMaskEx[sq]) |
		lineSliderAttacks(sq, occupied, antiDiagMaskEx[sq])
}

func (HyperbolaSliders) RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return lineSliderAttacks(sq, occupied, fileMaskEx[sq]) |
		rankSliderAttacks(sq, occupied)
}

var (
	diagMaskEx     [64]Bitboard // diagonal through sq, sq excluded
	antiDiagMaskEx [64]Bitboard
	fileMaskEx     [64]Bitboard

	// firstRankAttacks[file][occ] holds the attack byte for a slider on
	// file with the six inner occupancy bits occ.
	firstRankAttacks [8][64]uint8
)

func initHyperbola() {
	for sq := A1; sq <= H8; sq++ {
		f, r := sq.File(), sq.Rank()
		d := r - f
		a := r + f
		for s := A1; s <= H8; s++ {
			if s == sq {
				continue
			}
			sf, sr := s.File(), s.Rank()
			if sr-sf == d {
				diagMaskEx[sq] |= SquareBB(s)
			}
			if sr+sf == a {
				antiDiagMaskEx[sq] |= SquareBB(s)
			}
			if sf == f {
				fileMaskEx[sq] |= SquareBB(s)
			}
		}
	}

	for file := 0; file < 8; file++ {
		for occ := 0; occ < 64; occ++ {
			occupied := uint8(occ << 1)
			var attacks uint8
			for f := file + 1; f < 8; f++ {
				attacks |= 1 << f
				if occupied&(1<<f) != 0 {
					break
				}
			}
			for f := file - 1; f >= 0; f-- {
				attacks |= 1 << f
				if occupied&(1<<f) != 0 {
					break
				}
			}
			firstRankAttacks[file][occ] = attacks
		}
	}
}

func lineSliderAttacks(sq Square, occupied, mask Bitboard) Bitboard {
	o := occupied & mask
	s := SquareBB(sq)
	forward := o - 2*s
	reverse := (o.ByteSwap() - 2*s.ByteSwap()).ByteSwap()
	return (forward ^ reverse) & mask
}

func rankSliderAttacks(sq Square, occupied Bitboard) Bitboard {
	shift := sq.Rank() * 8
	occ6 := int(occupied>>(shift+1)) & 63
	return Bitboard(firstRankAttacks[sq.File()][occ6]) << shift
}
