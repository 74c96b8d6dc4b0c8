package room

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mkharboutley/chess2/internal/chess"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

// Manager drives the room state machine against a Store and an Archive and
// shapes the results for the transport layer. Every mutation goes through
// Store.Mutate, so the manager itself holds no locks and no room state.
type Manager struct {
	store   Store
	archive Archive
	log     *zap.Logger
}

// NewManager wires the manager. The archive may be nil to disable history.
func NewManager(store Store, archive Archive, logger *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("room: store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, archive: archive, log: logger}, nil
}

// MoveEffect carries everything the transport must deliver after an
// accepted move.
type MoveEffect struct {
	Move        gamedto.MoveRecord
	CurrentTurn string
	GameStatus  string
	Winner      string
	InCheck     string
	GameOver    *gamedto.GameOverMessage
}

// ActionEffect carries the direct response and the room broadcasts caused
// by a resign, undo, or rematch action. State is non-nil when the board
// changed and a fresh snapshot should follow the events.
type ActionEffect struct {
	Response gamedto.ActionResponse
	Events   []any
	State    *gamedto.BoardState
}

// CreateRoom provisions an empty waiting room under a short random id.
func (m *Manager) CreateRoom(ctx context.Context) (*gamedto.CreateRoomResponse, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		roomID := uuid.NewString()[:8]
		if err := m.store.Create(ctx, New(roomID)); err != nil {
			lastErr = err
			continue
		}
		m.log.Info("room_create", zap.String("room_id", roomID))
		return &gamedto.CreateRoomResponse{RoomID: roomID, Status: "created"}, nil
	}
	return nil, lastErr
}

// Room returns the full room document.
func (m *Manager) Room(ctx context.Context, roomID string) (*gamedto.RoomState, error) {
	sess, err := m.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return roomState(sess), nil
}

// BoardState returns the current snapshot for a room.
func (m *Manager) BoardState(ctx context.Context, roomID string) (*gamedto.BoardState, error) {
	sess, err := m.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess)
}

// Join seats a player and returns the seat plus a fresh snapshot for the
// room broadcast.
func (m *Manager) Join(ctx context.Context, roomID, playerID, name string) (*gamedto.JoinResult, *gamedto.BoardState, error) {
	sess, err := m.store.Mutate(ctx, roomID, func(s *GameSession) error {
		_, jerr := s.Join(playerID, name)
		return jerr
	})
	if err != nil {
		return nil, nil, err
	}
	seat := sess.PlayerByID(playerID)
	state, err := snapshot(sess)
	if err != nil {
		return nil, nil, err
	}
	m.log.Info("room_join",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.String("color", string(seat.Color)),
		zap.String("game_status", string(sess.Status)))
	return &gamedto.JoinResult{PlayerID: seat.ID, Color: string(seat.Color), RoomID: roomID}, state, nil
}

// SubmitMove validates and applies one move on behalf of playerID.
func (m *Manager) SubmitMove(ctx context.Context, roomID, playerID string, sub gamedto.MoveSubmission) (*MoveEffect, error) {
	req, err := parseSubmission(sub)
	if err != nil {
		return nil, err
	}
	var res MoveResult
	sess, err := m.store.Mutate(ctx, roomID, func(s *GameSession) error {
		r, merr := s.SubmitMove(playerID, req)
		if merr != nil {
			return merr
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	eff := &MoveEffect{
		Move:        moveRecord(res.Move),
		CurrentTurn: string(sess.Turn),
		GameStatus:  string(sess.Status),
		Winner:      sess.Winner,
	}
	if res.Check {
		eff.InCheck = string(sess.Turn)
	}
	if res.Ended != chess.TerminalNone {
		g := gameOver(sess, string(res.Ended))
		eff.GameOver = &g
		m.finishGame(ctx, sess, string(res.Ended))
	}
	m.log.Info("move_apply",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.String("move", sub.FromSquare+sub.ToSquare),
		zap.String("tag", string(res.Move.Tag)))
	return eff, nil
}

// Resign ends the game for playerID. Repeating a resign on a finished game
// returns the stored result without broadcasting anything new.
func (m *Manager) Resign(ctx context.Context, roomID, playerID string) (*ActionEffect, error) {
	var already bool
	sess, err := m.store.Mutate(ctx, roomID, func(s *GameSession) error {
		already = s.Status.Terminal()
		_, rerr := s.Resign(playerID)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	eff := &ActionEffect{Response: gamedto.ActionResponse{Status: "resigned", Winner: sess.Winner}}
	if already {
		return eff, nil
	}
	eff.Events = append(eff.Events,
		gamedto.GameResignedMessage{Type: gamedto.TypeGameResigned, ResignedBy: playerID, Winner: sess.Winner},
		gameOver(sess, "resign"),
	)
	m.log.Info("room_resign",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.String("winner", sess.Winner))
	m.finishGame(ctx, sess, "resign")
	return eff, nil
}

// RequestUndo records consent to take back the last ply and applies the
// undo once both players agree.
func (m *Manager) RequestUndo(ctx context.Context, roomID, playerID string) (*ActionEffect, error) {
	var res UndoResult
	sess, err := m.store.Mutate(ctx, roomID, func(s *GameSession) error {
		r, uerr := s.RequestUndo(playerID)
		if uerr != nil {
			return uerr
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Applied {
		m.log.Info("undo_request", zap.String("room_id", roomID), zap.String("player_id", playerID))
		return &ActionEffect{
			Response: gamedto.ActionResponse{Status: "undo_requested", Requests: res.Requests},
			Events: []any{gamedto.UndoRequestedMessage{
				Type:        gamedto.TypeUndoRequested,
				RequestedBy: playerID,
				Requests:    res.Requests,
			}},
		}, nil
	}

	state, err := snapshot(sess)
	if err != nil {
		return nil, err
	}
	m.log.Info("undo_apply",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("plies", len(sess.Moves)))
	return &ActionEffect{
		Response: gamedto.ActionResponse{Status: "undo_applied"},
		Events: []any{gamedto.UndoAppliedMessage{
			Type:   gamedto.TypeUndoApplied,
			Undone: moveRecord(*res.Undone),
		}},
		State: state,
	}, nil
}

// RequestRematch records consent for a new game and restarts the session
// once both players agree.
func (m *Manager) RequestRematch(ctx context.Context, roomID, playerID string) (*ActionEffect, error) {
	var res RematchResult
	sess, err := m.store.Mutate(ctx, roomID, func(s *GameSession) error {
		r, rerr := s.RequestRematch(playerID)
		if rerr != nil {
			return rerr
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Started {
		m.log.Info("rematch_request", zap.String("room_id", roomID), zap.String("player_id", playerID))
		return &ActionEffect{
			Response: gamedto.ActionResponse{Status: "rematch_requested", Requests: res.Requests},
			Events: []any{gamedto.RematchMessage{
				Type:        gamedto.TypeRematchRequested,
				RequestedBy: playerID,
				Requests:    res.Requests,
			}},
		}, nil
	}

	state, err := snapshot(sess)
	if err != nil {
		return nil, err
	}
	m.log.Info("rematch_start",
		zap.String("room_id", roomID),
		zap.Int("game_no", sess.GameNo))
	return &ActionEffect{
		Response: gamedto.ActionResponse{Status: "rematch_started"},
		Events: []any{gamedto.RematchMessage{
			Type:        gamedto.TypeRematchStarted,
			RequestedBy: playerID,
		}},
		State: state,
	}, nil
}

// RecentGames lists archived games for a player, newest first.
func (m *Manager) RecentGames(ctx context.Context, playerID string, limit int) ([]gamedto.GameSummary, error) {
	if m.archive == nil {
		return []gamedto.GameSummary{}, nil
	}
	games, err := m.archive.RecentGames(ctx, playerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]gamedto.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, gamedto.GameSummary{
			RoomID:     g.RoomID,
			GameNo:     g.GameNo,
			WhiteID:    g.WhiteID,
			WhiteName:  g.WhiteName,
			BlackID:    g.BlackID,
			BlackName:  g.BlackName,
			Result:     g.Result,
			Method:     g.Method,
			MoveCount:  len(g.Moves),
			EndedAt:    g.EndedAt,
			DurationMS: g.DurationMS,
		})
	}
	return out, nil
}

// DeleteRoom destroys a room immediately instead of waiting for the store
// TTL to expire it.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	if err := m.store.Delete(ctx, roomID); err != nil {
		return err
	}
	m.log.Info("room_delete", zap.String("room_id", roomID))
	return nil
}

func (m *Manager) finishGame(ctx context.Context, s *GameSession, method string) {
	m.log.Info("game_over",
		zap.String("room_id", s.ID),
		zap.String("method", method),
		zap.String("result", s.Result()),
		zap.String("winner", s.Winner))
	if m.archive == nil {
		return
	}
	if err := m.archive.SaveGame(ctx, s, method); err != nil {
		m.log.Error("archive_save_failed", zap.String("room_id", s.ID), zap.Error(err))
	}
}

func parseSubmission(sub gamedto.MoveSubmission) (chess.MoveRequest, error) {
	from, err := chess.Sq(sub.FromSquare)
	if err != nil {
		return chess.MoveRequest{}, &chess.IllegalMoveError{Reason: chess.ReasonBadSquare}
	}
	to, err := chess.Sq(sub.ToSquare)
	if err != nil {
		return chess.MoveRequest{}, &chess.IllegalMoveError{Reason: chess.ReasonBadSquare}
	}
	return chess.MoveRequest{From: from, To: to, Promotion: parsePromotion(sub.Promotion)}, nil
}

// parsePromotion accepts both the full kind name and the UCI letter.
// Unrecognized input is passed through for Validate to reject.
func parsePromotion(raw string) chess.PieceKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "q", "queen":
		return chess.Queen
	case "r", "rook":
		return chess.Rook
	case "b", "bishop":
		return chess.Bishop
	case "n", "knight":
		return chess.Knight
	default:
		return chess.PieceKind(raw)
	}
}
