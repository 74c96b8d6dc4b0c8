package chess

import (
	"errors"
	"fmt"
)

// ErrKingMissing reports a board with no king for a color. Boards reached
// through legal play can never produce it; treat it as an internal fault,
// not a game outcome.
var ErrKingMissing = errors.New("chess: king missing from board")

// Board maps occupied squares to pieces. Empty squares are absent.
type Board map[Square]Piece

// InitialBoard returns the standard starting position.
func InitialBoard() Board {
	back := [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	b := make(Board, 32)
	for file := 0; file < 8; file++ {
		b[Square{File: file, Rank: 0}] = Piece{Color: White, Kind: back[file]}
		b[Square{File: file, Rank: 1}] = Piece{Color: White, Kind: Pawn}
		b[Square{File: file, Rank: 6}] = Piece{Color: Black, Kind: Pawn}
		b[Square{File: file, Rank: 7}] = Piece{Color: Black, Kind: back[file]}
	}
	return b
}

// PieceAt returns the piece on sq, if any.
func (b Board) PieceAt(sq Square) (Piece, bool) {
	p, ok := b[sq]
	return p, ok
}

// Clone returns an independent copy of the board.
func (b Board) Clone() Board {
	nb := make(Board, len(b))
	for sq, p := range b {
		nb[sq] = p
	}
	return nb
}

// Apply returns a new board with mv executed; the input board is never
// mutated. Castling relocates the rook, en passant removes the captured
// pawn from its off-target square, and promotion swaps the pawn for the
// chosen kind.
func Apply(b Board, mv Move) Board {
	nb := b.Clone()
	piece, ok := nb[mv.From]
	if !ok {
		return nb
	}
	delete(nb, mv.From)
	switch mv.Tag {
	case TagEnPassant:
		delete(nb, Square{File: mv.To.File, Rank: mv.From.Rank})
	case TagCastleKingside:
		relocate(nb, Square{File: 7, Rank: mv.From.Rank}, Square{File: 5, Rank: mv.From.Rank})
	case TagCastleQueenside:
		relocate(nb, Square{File: 0, Rank: mv.From.Rank}, Square{File: 3, Rank: mv.From.Rank})
	case TagPromotion:
		piece.Kind = mv.Promotion
	}
	nb[mv.To] = piece
	return nb
}

func relocate(b Board, from, to Square) {
	if p, ok := b[from]; ok {
		b[to] = p
		delete(b, from)
	}
}

// Replay folds moves over the initial position.
func Replay(moves []Move) Board {
	b := InitialBoard()
	for _, mv := range moves {
		b = Apply(b, mv)
	}
	return b
}

// LocateKing finds color's king. A board without it was not produced by
// legal play and is reported as ErrKingMissing.
func LocateKing(b Board, color Color) (Square, error) {
	for sq, p := range b {
		if p.Kind == King && p.Color == color {
			return sq, nil
		}
	}
	return Square{}, fmt.Errorf("%w: %s", ErrKingMissing, color)
}
