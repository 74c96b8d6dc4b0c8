package chess

import (
	"errors"
	"testing"
	"time"
)

func pc(c Color, k PieceKind) Piece { return Piece{Color: c, Kind: k} }

func TestInitialBoardLayout(t *testing.T) {
	b := InitialBoard()
	if len(b) != 32 {
		t.Fatalf("expected 32 pieces, got %d", len(b))
	}
	checks := map[string]Piece{
		"a1": pc(White, Rook), "e1": pc(White, King), "d1": pc(White, Queen),
		"e2": pc(White, Pawn), "h1": pc(White, Rook),
		"a8": pc(Black, Rook), "e8": pc(Black, King), "d8": pc(Black, Queen),
		"e7": pc(Black, Pawn), "g8": pc(Black, Knight),
	}
	for name, want := range checks {
		got, ok := b.PieceAt(MustSq(name))
		if !ok || got != want {
			t.Fatalf("%s = %v (ok=%v), want %v", name, got, ok, want)
		}
	}
	if _, ok := b.PieceAt(MustSq("e4")); ok {
		t.Fatalf("e4 should start empty")
	}
}

func TestApplyPawnPushAndCapture(t *testing.T) {
	b := InitialBoard()
	b = Apply(b, Move{From: MustSq("e2"), To: MustSq("e4"), Piece: pc(White, Pawn), Tag: TagDoublePawnPush})
	if _, ok := b.PieceAt(MustSq("e2")); ok {
		t.Fatalf("e2 should be vacated")
	}
	if got, _ := b.PieceAt(MustSq("e4")); got != pc(White, Pawn) {
		t.Fatalf("e4 = %v, want white pawn", got)
	}

	b = Apply(b, Move{From: MustSq("d7"), To: MustSq("d5"), Piece: pc(Black, Pawn), Tag: TagDoublePawnPush})
	before := len(b)
	b = Apply(b, Move{From: MustSq("e4"), To: MustSq("d5"), Piece: pc(White, Pawn), Tag: TagCapture})
	if len(b) != before-1 {
		t.Fatalf("capture should remove a piece: %d -> %d", before, len(b))
	}
	if got, _ := b.PieceAt(MustSq("d5")); got != pc(White, Pawn) {
		t.Fatalf("d5 = %v, want white pawn", got)
	}
}

func TestApplyEnPassantRemovesPassedPawn(t *testing.T) {
	b := Board{
		MustSq("e5"): pc(White, Pawn),
		MustSq("d5"): pc(Black, Pawn),
		MustSq("e1"): pc(White, King),
		MustSq("e8"): pc(Black, King),
	}
	nb := Apply(b, Move{From: MustSq("e5"), To: MustSq("d6"), Piece: pc(White, Pawn), Tag: TagEnPassant})
	if _, ok := nb.PieceAt(MustSq("d5")); ok {
		t.Fatalf("captured pawn on d5 should be gone")
	}
	if got, _ := nb.PieceAt(MustSq("d6")); got != pc(White, Pawn) {
		t.Fatalf("d6 = %v, want white pawn", got)
	}
	// Input board untouched.
	if _, ok := b.PieceAt(MustSq("d5")); !ok {
		t.Fatalf("Apply mutated its input")
	}
}

func TestApplyCastleMovesRook(t *testing.T) {
	b := Board{
		MustSq("e1"): pc(White, King),
		MustSq("a1"): pc(White, Rook),
		MustSq("h1"): pc(White, Rook),
		MustSq("e8"): pc(Black, King),
	}
	ks := Apply(b, Move{From: MustSq("e1"), To: MustSq("g1"), Piece: pc(White, King), Tag: TagCastleKingside})
	if got, _ := ks.PieceAt(MustSq("f1")); got != pc(White, Rook) {
		t.Fatalf("kingside castle: f1 = %v, want rook", got)
	}
	if _, ok := ks.PieceAt(MustSq("h1")); ok {
		t.Fatalf("kingside castle: h1 should be vacated")
	}

	qs := Apply(b, Move{From: MustSq("e1"), To: MustSq("c1"), Piece: pc(White, King), Tag: TagCastleQueenside})
	if got, _ := qs.PieceAt(MustSq("d1")); got != pc(White, Rook) {
		t.Fatalf("queenside castle: d1 = %v, want rook", got)
	}
	if _, ok := qs.PieceAt(MustSq("a1")); ok {
		t.Fatalf("queenside castle: a1 should be vacated")
	}
}

func TestApplyPromotionSwapsKind(t *testing.T) {
	b := Board{
		MustSq("a7"): pc(White, Pawn),
		MustSq("e1"): pc(White, King),
		MustSq("e8"): pc(Black, King),
	}
	nb := Apply(b, Move{From: MustSq("a7"), To: MustSq("a8"), Piece: pc(White, Pawn), Tag: TagPromotion, Promotion: Queen})
	if got, _ := nb.PieceAt(MustSq("a8")); got != pc(White, Queen) {
		t.Fatalf("a8 = %v, want white queen", got)
	}
}

func TestReplayMatchesSequentialApply(t *testing.T) {
	moves := []Move{
		{From: MustSq("e2"), To: MustSq("e4"), Piece: pc(White, Pawn), Tag: TagDoublePawnPush, At: time.Now()},
		{From: MustSq("e7"), To: MustSq("e5"), Piece: pc(Black, Pawn), Tag: TagDoublePawnPush, At: time.Now()},
		{From: MustSq("g1"), To: MustSq("f3"), Piece: pc(White, Knight), Tag: TagNormal, At: time.Now()},
	}
	want := InitialBoard()
	for _, mv := range moves {
		want = Apply(want, mv)
	}
	got := Replay(moves)
	if len(got) != len(want) {
		t.Fatalf("replay size %d, want %d", len(got), len(want))
	}
	for sq, p := range want {
		if got[sq] != p {
			t.Fatalf("replay mismatch at %s: %v vs %v", sq, got[sq], p)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := InitialBoard()
	c := b.Clone()
	delete(c, MustSq("e2"))
	if _, ok := b.PieceAt(MustSq("e2")); !ok {
		t.Fatalf("mutating the clone reached the original")
	}
}

func TestLocateKingMissing(t *testing.T) {
	b := Board{MustSq("e1"): pc(White, King)}
	if _, err := LocateKing(b, Black); !errors.Is(err, ErrKingMissing) {
		t.Fatalf("expected ErrKingMissing, got %v", err)
	}
	sq, err := LocateKing(b, White)
	if err != nil || sq != MustSq("e1") {
		t.Fatalf("LocateKing(white) = %v, %v", sq, err)
	}
}
