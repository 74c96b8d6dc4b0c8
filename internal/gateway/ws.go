package gateway

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Mkharboutley/chess2/internal/room"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

// handleWS upgrades the connection and runs the per-player room loop: an
// initial snapshot push, then a read-dispatch cycle until the socket dies.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	playerID := r.PathValue("player_id")
	if strings.TrimSpace(roomID) == "" || strings.TrimSpace(playerID) == "" {
		writeJSON(w, http.StatusBadRequest, gamedto.ErrorResponse{Detail: "room_id and player_id are required"})
		return
	}
	// The room must exist before a socket may join it; after the upgrade
	// there is no clean way to answer with a 404.
	if _, err := s.manager.Room(r.Context(), roomID); err != nil {
		s.writeError(w, err)
		return
	}

	wsc, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("ws_accept_failed",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.Error(err))
		return
	}
	defer wsc.Close(websocket.StatusInternalError, "server error")

	conn := s.registry.Register(roomID, playerID, func(ctx context.Context, msg any) error {
		return wsjson.Write(ctx, wsc, msg)
	})
	defer func() {
		s.registry.Unregister(roomID, conn)
		// The request context is gone once the handler unwinds; the leave
		// notice still has to reach the rest of the room.
		s.registry.Broadcast(context.Background(), roomID, gamedto.PlayerDisconnectedMessage{
			Type:     gamedto.TypePlayerDisconnected,
			PlayerID: playerID,
		}, playerID)
	}()

	if state, err := s.manager.BoardState(r.Context(), roomID); err == nil {
		_ = wsjson.Write(r.Context(), wsc, gamedto.BoardStateMessage{Type: gamedto.TypeBoardState, BoardState: *state})
	}

	for {
		var msg gamedto.ClientMessage
		if err := wsjson.Read(r.Context(), wsc, &msg); err != nil {
			wsc.Close(websocket.StatusNormalClosure, "")
			return
		}
		s.dispatch(r.Context(), roomID, playerID, wsc, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, roomID, playerID string, wsc *websocket.Conn, msg gamedto.ClientMessage) {
	switch msg.Type {
	case gamedto.ClientTypeMove:
		eff, err := s.manager.SubmitMove(ctx, roomID, playerID, gamedto.MoveSubmission{
			FromSquare: msg.FromSquare,
			ToSquare:   msg.ToSquare,
			Promotion:  msg.Promotion,
		})
		if err != nil {
			s.sendReject(ctx, wsc, err)
			return
		}
		s.registry.Broadcast(ctx, roomID, gamedto.MoveMessage{
			Type:        gamedto.TypeMove,
			MoveRecord:  eff.Move,
			CurrentTurn: eff.CurrentTurn,
			GameStatus:  eff.GameStatus,
			InCheck:     eff.InCheck,
		}, "")
		if eff.GameOver != nil {
			s.registry.Broadcast(ctx, roomID, s.withGameOverText(*eff.GameOver), "")
		}

	case gamedto.ClientTypeSignal:
		if len(msg.Signal) == 0 {
			return
		}
		s.registry.Broadcast(ctx, roomID, gamedto.SignalMessage{
			Type:       gamedto.TypeSignal,
			Signal:     msg.Signal,
			FromPlayer: playerID,
		}, playerID)

	case gamedto.ClientTypeGameAction:
		s.dispatchAction(ctx, roomID, playerID, wsc, msg.Action)

	default:
		s.log.Debug("ws_unknown_type",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("type", msg.Type))
	}
}

func (s *Server) dispatchAction(ctx context.Context, roomID, playerID string, wsc *websocket.Conn, action string) {
	var (
		eff *room.ActionEffect
		err error
	)
	switch action {
	case gamedto.ActionResign:
		eff, err = s.manager.Resign(ctx, roomID, playerID)
	case gamedto.ActionUndoRequest:
		eff, err = s.manager.RequestUndo(ctx, roomID, playerID)
	case gamedto.ActionRematchRequest:
		eff, err = s.manager.RequestRematch(ctx, roomID, playerID)
	default:
		s.log.Debug("ws_unknown_action",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("action", action))
		return
	}
	if err != nil {
		s.sendReject(ctx, wsc, err)
		return
	}
	for _, ev := range eff.Events {
		if g, ok := ev.(gamedto.GameOverMessage); ok {
			ev = s.withGameOverText(g)
		}
		s.registry.Broadcast(ctx, roomID, ev, "")
	}
	if eff.State != nil {
		s.registry.Broadcast(ctx, roomID, gamedto.BoardStateMessage{Type: gamedto.TypeBoardState, BoardState: *eff.State}, "")
	}
}

// sendReject answers the offending sender only. Rejections are part of the
// protocol; internal faults are logged and masked.
func (s *Server) sendReject(ctx context.Context, wsc *websocket.Conn, err error) {
	code := rejectReason(err)
	if code == "" {
		s.log.Error("ws_internal_error", zap.Error(err))
		code = "internal_error"
	}
	_ = wsjson.Write(ctx, wsc, gamedto.InvalidMoveMessage{
		Type:    gamedto.TypeInvalidMove,
		Reason:  code,
		Message: s.catalog.RenderOr("move.invalid."+code, nil, ""),
	})
}
