package chess

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Color identifies a side. The string values are wire-stable.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// PieceKind enumerates the piece types.
type PieceKind string

const (
	Pawn   PieceKind = "pawn"
	Knight PieceKind = "knight"
	Bishop PieceKind = "bishop"
	Rook   PieceKind = "rook"
	Queen  PieceKind = "queen"
	King   PieceKind = "king"
)

// Piece is a colored piece occupying a square.
type Piece struct {
	Color Color     `json:"color"`
	Kind  PieceKind `json:"kind"`
}

// String renders the wire form, e.g. "white_pawn".
func (p Piece) String() string {
	return string(p.Color) + "_" + string(p.Kind)
}

// Square addresses one of the 64 board coordinates.
// File 0-7 maps to 'a'-'h' and rank 0-7 to '1'-'8', so
// Square{File: 4, Rank: 1} is "e2".
type Square struct {
	File int
	Rank int
}

// Sq parses algebraic coordinates such as "e2".
func Sq(name string) (Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 {
		return Square{}, fmt.Errorf("bad square %q", name)
	}
	file := int(name[0] - 'a')
	rank := int(name[1] - '1')
	sq := Square{File: file, Rank: rank}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("bad square %q", name)
	}
	return sq, nil
}

// MustSq is Sq for trusted literals; it panics on malformed input.
func MustSq(name string) Square {
	sq, err := Sq(name)
	if err != nil {
		panic(err)
	}
	return sq
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

// String renders algebraic coordinates such as "e2".
func (s Square) String() string {
	return string(rune('a'+s.File)) + string(rune('1'+s.Rank))
}

// MarshalText lets squares serve as JSON strings and map keys.
func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("square off board: file=%d rank=%d", s.File, s.Rank)
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (s *Square) UnmarshalText(b []byte) error {
	sq, err := Sq(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// MoveTag classifies an accepted move.
type MoveTag string

const (
	TagNormal          MoveTag = "normal"
	TagCapture         MoveTag = "capture"
	TagDoublePawnPush  MoveTag = "double_pawn_push"
	TagEnPassant       MoveTag = "en_passant"
	TagCastleKingside  MoveTag = "castle_kingside"
	TagCastleQueenside MoveTag = "castle_queenside"
	TagPromotion       MoveTag = "promotion"
)

// Move is one recorded ply. Once appended to a session log a move is
// immutable; the board at any point is a fold of the log prefix.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Piece     Piece     `json:"piece"`
	Player    string    `json:"player"`
	At        time.Time `json:"at"`
	Tag       MoveTag   `json:"tag"`
	Promotion PieceKind `json:"promotion,omitempty"`
}

// MoveRequest is a candidate move before validation. Promotion must name
// the replacement kind when a pawn reaches the last rank.
type MoveRequest struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// MoveOutcome describes how an accepted request classifies and the
// en-passant target it leaves behind, set only by a double pawn push.
type MoveOutcome struct {
	Tag       MoveTag
	Promotion PieceKind
	EnPassant *Square
}

// CastlingRights caches whether the kings and the four original rooks have
// left their home squares. The flags are maintained incrementally per move
// and are always recomputable from the move log alone.
type CastlingRights struct {
	WhiteKingMoved   bool `json:"white_king_moved"`
	BlackKingMoved   bool `json:"black_king_moved"`
	WhiteRookA1Moved bool `json:"white_rook_a1_moved"`
	WhiteRookH1Moved bool `json:"white_rook_h1_moved"`
	BlackRookA8Moved bool `json:"black_rook_a8_moved"`
	BlackRookH8Moved bool `json:"black_rook_h8_moved"`
}

var (
	sqA1 = Square{File: 0, Rank: 0}
	sqE1 = Square{File: 4, Rank: 0}
	sqH1 = Square{File: 7, Rank: 0}
	sqA8 = Square{File: 0, Rank: 7}
	sqE8 = Square{File: 4, Rank: 7}
	sqH8 = Square{File: 7, Rank: 7}
)

// MarkMove flips the flags a move between from and to invalidates. Arrival
// on a rook home square counts the same as departure: either way the
// original rook is no longer there.
func (r *CastlingRights) MarkMove(piece Piece, from, to Square) {
	if piece.Kind == King {
		if piece.Color == White {
			r.WhiteKingMoved = true
		} else {
			r.BlackKingMoved = true
		}
	}
	for _, sq := range [2]Square{from, to} {
		switch sq {
		case sqA1:
			r.WhiteRookA1Moved = true
		case sqH1:
			r.WhiteRookH1Moved = true
		case sqA8:
			r.BlackRookA8Moved = true
		case sqH8:
			r.BlackRookH8Moved = true
		}
	}
}

// IllegalMoveReason is the machine-readable rejection code relayed to
// players.
type IllegalMoveReason string

const (
	ReasonWrongPiece       IllegalMoveReason = "wrong_piece"
	ReasonNullMove         IllegalMoveReason = "null_move"
	ReasonFriendlyCapture  IllegalMoveReason = "friendly_capture"
	ReasonPathBlocked      IllegalMoveReason = "path_blocked"
	ReasonBadPawnMove      IllegalMoveReason = "bad_pawn_move"
	ReasonBadKnightMove    IllegalMoveReason = "bad_knight_move"
	ReasonBadBishopMove    IllegalMoveReason = "bad_bishop_move"
	ReasonBadRookMove      IllegalMoveReason = "bad_rook_move"
	ReasonBadQueenMove     IllegalMoveReason = "bad_queen_move"
	ReasonBadKingMove      IllegalMoveReason = "bad_king_move"
	ReasonCastleNotAllowed IllegalMoveReason = "castle_not_allowed"
	ReasonMissingPromotion IllegalMoveReason = "missing_promotion_choice"
	ReasonExposesKing      IllegalMoveReason = "exposes_king_to_check"
	ReasonBadSquare        IllegalMoveReason = "bad_square"
)

// IllegalMoveError rejects a move request with a reason code. It is a
// normal, recoverable outcome of validation, not a fault; anything else
// returned from this package signals a broken board invariant.
type IllegalMoveError struct {
	Reason IllegalMoveReason
}

func (e *IllegalMoveError) Error() string {
	return "illegal move: " + string(e.Reason)
}

func illegal(reason IllegalMoveReason) error {
	return &IllegalMoveError{Reason: reason}
}

// ReasonOf extracts the rejection code from err, or "" when err is not a
// move rejection.
func ReasonOf(err error) IllegalMoveReason {
	var ime *IllegalMoveError
	if errors.As(err, &ime) {
		return ime.Reason
	}
	return ""
}
