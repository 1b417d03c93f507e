package board

import "testing"

// The two slider backends must agree square for square on arbitrary
// occupancies, and both must match the ray-walking oracle used to fill
// the magic tables.
func TestSliderStrategiesAgree(t *testing.T) {
	var magic MagicSliders
	var hyper HyperbolaSliders

	rng := prng{state: 0xC0FFEE1234567890}
	for i := 0; i < 2000; i++ {
		// Sparse-ish occupancies exercise long rays.
		occ := Bitboard(rng.next() & rng.next())
		for sq := A1; sq <= H8; sq++ {
			ray := rayBishopAttacks(sq, occ)
			if got := magic.BishopAttacks(sq, occ); got != ray {
				t.Fatalf("magic bishop %v occ=%x: got %x, want %x", sq, uint64(occ), uint64(got), uint64(ray))
			}
			if got := hyper.BishopAttacks(sq, occ); got != ray {
				t.Fatalf("hyperbola bishop %v occ=%x: got %x, want %x", sq, uint64(occ), uint64(got), uint64(ray))
			}

			ray = rayRookAttacks(sq, occ)
			if got := magic.RookAttacks(sq, occ); got != ray {
				t.Fatalf("magic rook %v occ=%x: got %x, want %x", sq, uint64(occ), uint64(got), uint64(ray))
			}
			if got := hyper.RookAttacks(sq, occ); got != ray {
				t.Fatalf("hyperbola rook %v occ=%x: got %x, want %x", sq, uint64(occ), uint64(got), uint64(ray))
			}
		}
	}
}

// Perft with the hyperbola backend must match perft with the magic
// tables; any divergence means one backend computes a different game.
func TestPerftBackendEquivalence(t *testing.T) {
	defer SetSliderStrategy(MagicSliders{})

	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -",
	}
	for _, fen := range fens {
		pos := mustParseFEN(t, fen)

		SetSliderStrategy(MagicSliders{})
		withMagic := perft(pos, 3)

		SetSliderStrategy(HyperbolaSliders{})
		withHyperbola := perft(pos, 3)

		if withMagic != withHyperbola {
			t.Errorf("%s: magic perft %d, hyperbola perft %d", fen, withMagic, withHyperbola)
		}
	}
}

func TestBetweenAndAligned(t *testing.T) {
	if got := Between(A1, H8); got != SquareBB(B2)|SquareBB(C3)|SquareBB(D4)|SquareBB(E5)|SquareBB(F6)|SquareBB(G7) {
		t.Errorf("Between(a1,h8) = %x", uint64(got))
	}
	if Between(A1, B3) != 0 {
		t.Error("unaligned squares must have an empty between set")
	}
	if !Aligned(A1, D4, H8) {
		t.Error("a1 d4 h8 share the long diagonal")
	}
	if Aligned(A1, D4, H7) {
		t.Error("h7 is off the long diagonal")
	}
}

func TestAttackedSquaresMatchesPerSquareProbe(t *testing.T) {
	pos := mustParseFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")

	for c := White; c <= Black; c++ {
		bulk := pos.AttackedSquares(c, pos.AllOccupied)
		for sq := A1; sq <= H8; sq++ {
			want := pos.IsSquareAttacked(sq, c)
			if got := bulk.IsSet(sq); got != want {
				t.Errorf("color %v square %v: bulk=%v probe=%v", c, sq, got, want)
			}
		}
	}
}
