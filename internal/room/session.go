package room

import (
	"slices"
	"time"

	"github.com/Mkharboutley/chess2/internal/chess"
)

// GameSession is the authoritative state of one room. The move log is the
// source of truth: the board is always derived by folding the log, and the
// turn, castling rights, and en-passant fields are caches recomputable from
// the log alone.
//
// Methods are pure state transitions with no I/O and no locking. Callers
// serialize mutations per room; see Store.Mutate.
type GameSession struct {
	ID              string               `json:"room_id"`
	White           *Player              `json:"white,omitempty"`
	Black           *Player              `json:"black,omitempty"`
	Moves           []chess.Move         `json:"moves"`
	Turn            chess.Color          `json:"current_turn"`
	Status          Status               `json:"game_status"`
	Winner          string               `json:"winner,omitempty"`
	ResignedBy      string               `json:"resigned_by,omitempty"`
	Rights          chess.CastlingRights `json:"castling_rights"`
	EnPassant       *chess.Square        `json:"en_passant_target,omitempty"`
	UndoRequests    []string             `json:"undo_requests"`
	RematchRequests []string             `json:"rematch_requests"`
	GameNo          int                  `json:"game_no"`
	GameStartedAt   time.Time            `json:"game_started_at"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`

	// Memoized fold of Moves, keyed by log length. Never serialized;
	// rebuilt lazily after a load or an undo.
	cachedBoard chess.Board
	cachedPlies int
}

// New creates a waiting room with an empty move log.
func New(id string) *GameSession {
	now := time.Now().UTC()
	return &GameSession{
		ID:              id,
		Moves:           []chess.Move{},
		Turn:            chess.White,
		Status:          StatusWaiting,
		UndoRequests:    []string{},
		RematchRequests: []string{},
		GameNo:          1,
		GameStartedAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Board derives the current position from the move log, memoizing the last
// fold. The returned map is shared with the session; treat it as read-only.
func (s *GameSession) Board() chess.Board {
	if s.cachedBoard != nil && s.cachedPlies == len(s.Moves) {
		return s.cachedBoard
	}
	s.cachedBoard = chess.Replay(s.Moves)
	s.cachedPlies = len(s.Moves)
	return s.cachedBoard
}

// PlayerByID returns the seat held by id, if any.
func (s *GameSession) PlayerByID(id string) *Player {
	if s.White != nil && s.White.ID == id {
		return s.White
	}
	if s.Black != nil && s.Black.ID == id {
		return s.Black
	}
	return nil
}

// Opponent returns the seat opposite to id, if occupied.
func (s *GameSession) Opponent(id string) *Player {
	switch {
	case s.White != nil && s.White.ID == id:
		return s.Black
	case s.Black != nil && s.Black.ID == id:
		return s.White
	default:
		return nil
	}
}

// Join seats a player. The first joiner plays white, the second black, and
// the game turns active once both seats are filled. Joining again with a
// seated id returns the existing seat unchanged.
func (s *GameSession) Join(playerID, name string) (*Player, error) {
	if p := s.PlayerByID(playerID); p != nil {
		return p, nil
	}
	switch {
	case s.White == nil:
		if name == "" {
			name = "Player 1"
		}
		s.White = &Player{ID: playerID, Name: name, Color: chess.White}
	case s.Black == nil:
		if name == "" {
			name = "Player 2"
		}
		s.Black = &Player{ID: playerID, Name: name, Color: chess.Black}
		s.Status = StatusActive
	default:
		return nil, ErrRoomFull
	}
	s.touch()
	return s.PlayerByID(playerID), nil
}

// MoveResult reports an accepted move and any game end it caused.
type MoveResult struct {
	Move   chess.Move
	Status Status
	Winner string
	Check  bool
	Ended  chess.Terminal
}

// SubmitMove validates and applies one move for playerID. The mover's color
// comes from the seat, never from the request. Turn and phase violations
// return ErrNotYourTurn; rule violations surface the engine's
// IllegalMoveError. Either way a rejected move leaves the session untouched.
func (s *GameSession) SubmitMove(playerID string, req chess.MoveRequest) (MoveResult, error) {
	p := s.PlayerByID(playerID)
	if s.Status != StatusActive || p == nil || p.Color != s.Turn {
		return MoveResult{}, ErrNotYourTurn
	}

	board := s.Board()
	outcome, err := chess.Validate(board, req, p.Color, s.Rights, s.EnPassant)
	if err != nil {
		return MoveResult{}, err
	}

	piece, _ := board.PieceAt(req.From)
	mv := chess.Move{
		From:      req.From,
		To:        req.To,
		Piece:     piece,
		Player:    playerID,
		At:        time.Now().UTC(),
		Tag:       outcome.Tag,
		Promotion: outcome.Promotion,
	}
	next := chess.Apply(board, mv)

	s.Moves = append(s.Moves, mv)
	s.cachedBoard = next
	s.cachedPlies = len(s.Moves)
	s.Rights.MarkMove(piece, mv.From, mv.To)
	s.EnPassant = outcome.EnPassant
	s.Turn = s.Turn.Opposite()
	s.UndoRequests = []string{}

	opp := s.Turn
	term, err := chess.ClassifyTerminal(next, opp, s.Rights, s.EnPassant)
	if err != nil {
		return MoveResult{}, err
	}
	check, err := chess.InCheck(next, opp)
	if err != nil {
		return MoveResult{}, err
	}

	switch term {
	case chess.TerminalCheckmate:
		s.Status = StatusFinished
		s.Winner = playerID
	case chess.TerminalStalemate:
		s.Status = StatusFinished
	}
	s.touch()

	return MoveResult{
		Move:   mv,
		Status: s.Status,
		Winner: s.Winner,
		Check:  check,
		Ended:  term,
	}, nil
}

// Resign ends the game in favor of the opponent. Resigning an already
// finished game is a no-op; resigning before both seats are filled is
// rejected.
func (s *GameSession) Resign(playerID string) (string, error) {
	p := s.PlayerByID(playerID)
	if p == nil {
		return "", ErrNotInRoom
	}
	if s.Status.Terminal() {
		return s.Winner, nil
	}
	if s.Status != StatusActive {
		return "", ErrGameNotActive
	}
	s.Status = StatusResigned
	s.ResignedBy = playerID
	if opp := s.Opponent(playerID); opp != nil {
		s.Winner = opp.ID
	}
	s.touch()
	return s.Winner, nil
}

// UndoResult reports the consent set and, once both players agree, the
// removed ply.
type UndoResult struct {
	Applied  bool
	Requests []string
	Undone   *chess.Move
}

// RequestUndo records playerID's consent to take back the last ply. A
// repeated request is a no-op. Once both players consent, exactly one move
// leaves the log and the derived fields are rebuilt by replay; nothing is
// patched backwards.
func (s *GameSession) RequestUndo(playerID string) (UndoResult, error) {
	if s.PlayerByID(playerID) == nil {
		return UndoResult{}, ErrNotInRoom
	}
	if s.Status != StatusActive {
		return UndoResult{}, ErrGameNotActive
	}
	if len(s.Moves) == 0 {
		return UndoResult{}, ErrNothingToUndo
	}
	if !slices.Contains(s.UndoRequests, playerID) {
		s.UndoRequests = append(s.UndoRequests, playerID)
		s.touch()
	}
	if len(s.UndoRequests) < 2 {
		return UndoResult{Requests: slices.Clone(s.UndoRequests)}, nil
	}

	last := s.Moves[len(s.Moves)-1]
	s.Moves = s.Moves[:len(s.Moves)-1]
	s.UndoRequests = []string{}
	s.recompute()
	s.touch()
	return UndoResult{Applied: true, Undone: &last}, nil
}

// RematchResult reports the consent set and whether a fresh game started.
type RematchResult struct {
	Started  bool
	Requests []string
}

// RequestRematch records consent for a new game once the current one is
// over. When both players consent the session resets to a fresh active game
// with the same seats and colors.
func (s *GameSession) RequestRematch(playerID string) (RematchResult, error) {
	if s.PlayerByID(playerID) == nil {
		return RematchResult{}, ErrNotInRoom
	}
	if !s.Status.Terminal() {
		return RematchResult{}, ErrGameNotOver
	}
	if !slices.Contains(s.RematchRequests, playerID) {
		s.RematchRequests = append(s.RematchRequests, playerID)
		s.touch()
	}
	if len(s.RematchRequests) < 2 {
		return RematchResult{Requests: slices.Clone(s.RematchRequests)}, nil
	}
	s.reset()
	return RematchResult{Started: true}, nil
}

// Result reports "white", "black", or "draw" for a terminal session and ""
// otherwise.
func (s *GameSession) Result() string {
	if !s.Status.Terminal() {
		return ""
	}
	switch {
	case s.Winner == "":
		return "draw"
	case s.White != nil && s.Winner == s.White.ID:
		return "white"
	case s.Black != nil && s.Winner == s.Black.ID:
		return "black"
	}
	return ""
}

// recompute rebuilds turn, castling rights, and the en-passant target from
// the move log alone. Only the final ply can leave an en-passant target.
func (s *GameSession) recompute() {
	s.cachedBoard = nil
	s.cachedPlies = 0
	s.Rights = chess.CastlingRights{}
	s.EnPassant = nil
	for i, mv := range s.Moves {
		s.Rights.MarkMove(mv.Piece, mv.From, mv.To)
		if i == len(s.Moves)-1 && mv.Tag == chess.TagDoublePawnPush {
			mid := chess.Square{File: mv.From.File, Rank: (mv.From.Rank + mv.To.Rank) / 2}
			s.EnPassant = &mid
		}
	}
	if len(s.Moves)%2 == 0 {
		s.Turn = chess.White
	} else {
		s.Turn = chess.Black
	}
}

// reset starts the next game in the same room, keeping seats and identity.
func (s *GameSession) reset() {
	s.Moves = []chess.Move{}
	s.Turn = chess.White
	s.Status = StatusActive
	s.Winner = ""
	s.ResignedBy = ""
	s.Rights = chess.CastlingRights{}
	s.EnPassant = nil
	s.UndoRequests = []string{}
	s.RematchRequests = []string{}
	s.GameNo++
	s.GameStartedAt = time.Now().UTC()
	s.cachedBoard = nil
	s.cachedPlies = 0
	s.touch()
}

func (s *GameSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}
