package chess

// IsAttacked reports whether any piece of color by could capture onto
// target, considering geometry and path blocking only. Turn order and king
// safety are deliberately out of scope here, which keeps the oracle free of
// recursion; Validate layers king safety on top.
func IsAttacked(b Board, target Square, by Color) bool {
	for from, p := range b {
		if p.Color == by && attacks(b, from, p, target) {
			return true
		}
	}
	return false
}

// attacks mirrors the movement geometry of Validate without capture or
// occupancy concerns at the target. Pawns attack diagonally forward only:
// their straight pushes never threaten a square, and the diagonal threat
// exists whether or not the target is occupied.
func attacks(b Board, from Square, p Piece, target Square) bool {
	if from == target {
		return false
	}
	df := target.File - from.File
	dr := target.Rank - from.Rank
	switch p.Kind {
	case Pawn:
		dir := 1
		if p.Color == Black {
			dir = -1
		}
		return abs(df) == 1 && dr == dir
	case Knight:
		return abs(df) == 1 && abs(dr) == 2 || abs(df) == 2 && abs(dr) == 1
	case Bishop:
		return df != 0 && abs(df) == abs(dr) && pathClear(b, from, target)
	case Rook:
		return (df == 0) != (dr == 0) && pathClear(b, from, target)
	case Queen:
		line := (df == 0) != (dr == 0)
		diag := df != 0 && abs(df) == abs(dr)
		return (line || diag) && pathClear(b, from, target)
	case King:
		return max(abs(df), abs(dr)) == 1
	}
	return false
}

// InCheck reports whether color's king is attacked. A missing king is an
// internal invariant failure, never a game outcome.
func InCheck(b Board, color Color) (bool, error) {
	king, err := LocateKing(b, color)
	if err != nil {
		return false, err
	}
	return IsAttacked(b, king, color.Opposite()), nil
}

// HasLegalMove reports whether color has at least one move Validate would
// accept. Pawn moves onto the last rank are probed with a queen promotion;
// if no queen promotion escapes, no other promotion kind does either.
func HasLegalMove(b Board, color Color, rights CastlingRights, ep *Square) (bool, error) {
	for from, p := range b {
		if p.Color != color {
			continue
		}
		for file := 0; file < 8; file++ {
			for rank := 0; rank < 8; rank++ {
				to := Square{File: file, Rank: rank}
				if to == from {
					continue
				}
				req := MoveRequest{From: from, To: to}
				if p.Kind == Pawn && (to.Rank == 0 || to.Rank == 7) {
					req.Promotion = Queen
				}
				_, err := Validate(b, req, color, rights, ep)
				if err == nil {
					return true, nil
				}
				if ReasonOf(err) == "" {
					return false, err
				}
			}
		}
	}
	return false, nil
}

// Terminal classifies a position with no legal moves for the side to move.
type Terminal string

const (
	TerminalNone      Terminal = ""
	TerminalCheckmate Terminal = "checkmate"
	TerminalStalemate Terminal = "stalemate"
)

// ClassifyTerminal reports whether toMove is checkmated, stalemated, or
// still has play left.
func ClassifyTerminal(b Board, toMove Color, rights CastlingRights, ep *Square) (Terminal, error) {
	any, err := HasLegalMove(b, toMove, rights, ep)
	if err != nil {
		return TerminalNone, err
	}
	if any {
		return TerminalNone, nil
	}
	check, err := InCheck(b, toMove)
	if err != nil {
		return TerminalNone, err
	}
	if check {
		return TerminalCheckmate, nil
	}
	return TerminalStalemate, nil
}
