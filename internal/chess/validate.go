package chess

// Validate decides whether req is legal for mover on b, given the cached
// castling rights and the current en-passant target. On success the outcome
// carries the move classification and, after a double pawn push, the next
// en-passant target. Rejections are IllegalMoveError values; any other
// error is an internal invariant failure.
//
// Checks run in order and stop at the first failure: piece ownership, null
// move, friendly capture, piece geometry and path, and finally king safety
// on the resulting board.
func Validate(b Board, req MoveRequest, mover Color, rights CastlingRights, ep *Square) (MoveOutcome, error) {
	piece, ok := b.PieceAt(req.From)
	if !ok || piece.Color != mover {
		return MoveOutcome{}, illegal(ReasonWrongPiece)
	}
	if req.From == req.To {
		return MoveOutcome{}, illegal(ReasonNullMove)
	}
	if !req.To.Valid() {
		return MoveOutcome{}, illegal(geometryReason(piece.Kind))
	}
	if dst, occupied := b.PieceAt(req.To); occupied && dst.Color == mover {
		return MoveOutcome{}, illegal(ReasonFriendlyCapture)
	}

	var (
		outcome MoveOutcome
		err     error
	)
	switch piece.Kind {
	case Pawn:
		outcome, err = validatePawn(b, req, mover, ep)
	case Knight:
		outcome, err = validateKnight(b, req)
	case King:
		outcome, err = validateKing(b, req, mover, rights)
	default:
		outcome, err = validateSlider(b, req, piece.Kind)
	}
	if err != nil {
		return MoveOutcome{}, err
	}

	// The mover's own king must be safe on the resulting board. This also
	// forces a checked player to resolve the check.
	mv := Move{From: req.From, To: req.To, Piece: piece, Tag: outcome.Tag, Promotion: outcome.Promotion}
	check, err := InCheck(Apply(b, mv), mover)
	if err != nil {
		return MoveOutcome{}, err
	}
	if check {
		return MoveOutcome{}, illegal(ReasonExposesKing)
	}
	return outcome, nil
}

func geometryReason(kind PieceKind) IllegalMoveReason {
	switch kind {
	case Pawn:
		return ReasonBadPawnMove
	case Knight:
		return ReasonBadKnightMove
	case Bishop:
		return ReasonBadBishopMove
	case Rook:
		return ReasonBadRookMove
	case Queen:
		return ReasonBadQueenMove
	default:
		return ReasonBadKingMove
	}
}

func validatePawn(b Board, req MoveRequest, color Color, ep *Square) (MoveOutcome, error) {
	dir, startRank, lastRank := 1, 1, 7
	if color == Black {
		dir, startRank, lastRank = -1, 6, 0
	}
	df := req.To.File - req.From.File
	dr := req.To.Rank - req.From.Rank
	_, occupied := b.PieceAt(req.To)

	outcome := MoveOutcome{Tag: TagNormal}
	switch {
	case df == 0 && dr == dir:
		if occupied {
			return MoveOutcome{}, illegal(ReasonPathBlocked)
		}
	case df == 0 && dr == 2*dir && req.From.Rank == startRank:
		mid := Square{File: req.From.File, Rank: req.From.Rank + dir}
		if _, blocked := b.PieceAt(mid); blocked || occupied {
			return MoveOutcome{}, illegal(ReasonPathBlocked)
		}
		outcome.Tag = TagDoublePawnPush
		outcome.EnPassant = &mid
	case abs(df) == 1 && dr == dir:
		switch {
		case occupied:
			outcome.Tag = TagCapture
		case ep != nil && req.To == *ep:
			outcome.Tag = TagEnPassant
		default:
			return MoveOutcome{}, illegal(ReasonBadPawnMove)
		}
	default:
		return MoveOutcome{}, illegal(ReasonBadPawnMove)
	}

	if req.To.Rank == lastRank {
		switch req.Promotion {
		case Knight, Bishop, Rook, Queen:
			outcome.Tag = TagPromotion
			outcome.Promotion = req.Promotion
		default:
			return MoveOutcome{}, illegal(ReasonMissingPromotion)
		}
	}
	return outcome, nil
}

func validateKnight(b Board, req MoveRequest) (MoveOutcome, error) {
	df := abs(req.To.File - req.From.File)
	dr := abs(req.To.Rank - req.From.Rank)
	if !(df == 1 && dr == 2 || df == 2 && dr == 1) {
		return MoveOutcome{}, illegal(ReasonBadKnightMove)
	}
	return MoveOutcome{Tag: landingTag(b, req.To)}, nil
}

func validateSlider(b Board, req MoveRequest, kind PieceKind) (MoveOutcome, error) {
	df := req.To.File - req.From.File
	dr := req.To.Rank - req.From.Rank
	line := (df == 0) != (dr == 0)
	diag := df != 0 && abs(df) == abs(dr)

	ok := false
	switch kind {
	case Rook:
		ok = line
	case Bishop:
		ok = diag
	case Queen:
		ok = line || diag
	}
	if !ok {
		return MoveOutcome{}, illegal(geometryReason(kind))
	}
	if !pathClear(b, req.From, req.To) {
		return MoveOutcome{}, illegal(ReasonPathBlocked)
	}
	return MoveOutcome{Tag: landingTag(b, req.To)}, nil
}

func validateKing(b Board, req MoveRequest, color Color, rights CastlingRights) (MoveOutcome, error) {
	df := req.To.File - req.From.File
	dr := req.To.Rank - req.From.Rank
	if max(abs(df), abs(dr)) == 1 {
		return MoveOutcome{Tag: landingTag(b, req.To)}, nil
	}
	if abs(df) == 2 && dr == 0 {
		return validateCastle(b, req, color, rights)
	}
	return MoveOutcome{}, illegal(ReasonBadKingMove)
}

// validateCastle enforces all four castling preconditions: neither the king
// nor the chosen rook has moved, every square between them is empty, and
// the king's start, passing, and landing squares are free of enemy attack.
func validateCastle(b Board, req MoveRequest, color Color, rights CastlingRights) (MoveOutcome, error) {
	home, kingMoved := sqE1, rights.WhiteKingMoved
	if color == Black {
		home, kingMoved = sqE8, rights.BlackKingMoved
	}
	if req.From != home || kingMoved {
		return MoveOutcome{}, illegal(ReasonCastleNotAllowed)
	}

	kingside := req.To.File > req.From.File
	rank := req.From.Rank
	rookSq := Square{File: 0, Rank: rank}
	if kingside {
		rookSq = Square{File: 7, Rank: rank}
	}
	var rookMoved bool
	switch {
	case color == White && kingside:
		rookMoved = rights.WhiteRookH1Moved
	case color == White:
		rookMoved = rights.WhiteRookA1Moved
	case kingside:
		rookMoved = rights.BlackRookH8Moved
	default:
		rookMoved = rights.BlackRookA8Moved
	}
	rook, ok := b.PieceAt(rookSq)
	if rookMoved || !ok || rook.Kind != Rook || rook.Color != color {
		return MoveOutcome{}, illegal(ReasonCastleNotAllowed)
	}
	if !pathClear(b, home, rookSq) {
		return MoveOutcome{}, illegal(ReasonCastleNotAllowed)
	}

	// No castling out of check or across an attacked square.
	enemy := color.Opposite()
	step := sign(req.To.File - home.File)
	for _, sq := range [3]Square{home, {File: home.File + step, Rank: rank}, req.To} {
		if IsAttacked(b, sq, enemy) {
			return MoveOutcome{}, illegal(ReasonCastleNotAllowed)
		}
	}

	if kingside {
		return MoveOutcome{Tag: TagCastleKingside}, nil
	}
	return MoveOutcome{Tag: TagCastleQueenside}, nil
}

func landingTag(b Board, to Square) MoveTag {
	if _, ok := b.PieceAt(to); ok {
		return TagCapture
	}
	return TagNormal
}

// pathClear reports whether every square strictly between from and to is
// empty. The two squares must share a rank, file, or diagonal.
func pathClear(b Board, from, to Square) bool {
	fs := sign(to.File - from.File)
	rs := sign(to.Rank - from.Rank)
	for cur := (Square{File: from.File + fs, Rank: from.Rank + rs}); cur != to; cur.File, cur.Rank = cur.File+fs, cur.Rank+rs {
		if _, ok := b.PieceAt(cur); ok {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
