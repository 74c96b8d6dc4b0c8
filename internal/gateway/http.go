package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Mkharboutley/chess2/internal/chess"
	"github.com/Mkharboutley/chess2/internal/room"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms/{room_id}", s.handleGetRoom)
	mux.HandleFunc("DELETE /api/rooms/{room_id}", s.handleDeleteRoom)
	mux.HandleFunc("POST /api/rooms/{room_id}/join", s.handleJoin)
	mux.HandleFunc("GET /api/rooms/{room_id}/board", s.handleBoard)
	mux.HandleFunc("POST /api/rooms/{room_id}/resign/{player_id}", s.handleResign)
	mux.HandleFunc("POST /api/rooms/{room_id}/undo/{player_id}", s.handleUndo)
	mux.HandleFunc("POST /api/rooms/{room_id}/rematch/{player_id}", s.handleRematch)
	mux.HandleFunc("GET /api/players/{player_id}/games", s.handleRecentGames)
	mux.HandleFunc("GET /api/ws/{room_id}/{player_id}", s.handleWS)
	return s.withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gamedto.HealthResponse{
		Status:  "healthy",
		Message: s.catalog.RenderOr("health.message", nil, "Chess game server running"),
	})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := s.manager.CreateRoom(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.Room(r.Context(), r.PathValue("room_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	if _, err := s.manager.Room(r.Context(), roomID); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.manager.DeleteRoom(r.Context(), roomID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gamedto.ActionResponse{Status: "deleted"})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req gamedto.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, gamedto.ErrorResponse{Detail: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeJSON(w, http.StatusBadRequest, gamedto.ErrorResponse{Detail: "player_id is required"})
		return
	}
	roomID := r.PathValue("room_id")
	seat, state, err := s.manager.Join(r.Context(), roomID, strings.TrimSpace(req.PlayerID), strings.TrimSpace(req.Name))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.registry.Broadcast(r.Context(), roomID, gamedto.BoardStateMessage{Type: gamedto.TypeBoardState, BoardState: *state}, "")
	writeJSON(w, http.StatusOK, seat)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.BoardState(r.Context(), r.PathValue("room_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	eff, err := s.manager.Resign(r.Context(), roomID, r.PathValue("player_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.deliver(r, roomID, eff)
	writeJSON(w, http.StatusOK, eff.Response)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	eff, err := s.manager.RequestUndo(r.Context(), roomID, r.PathValue("player_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.deliver(r, roomID, eff)
	writeJSON(w, http.StatusOK, eff.Response)
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	eff, err := s.manager.RequestRematch(r.Context(), roomID, r.PathValue("player_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.deliver(r, roomID, eff)
	writeJSON(w, http.StatusOK, eff.Response)
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	games, err := s.manager.RecentGames(r.Context(), r.PathValue("player_id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// deliver pushes an action's broadcasts to the room over the registry.
func (s *Server) deliver(r *http.Request, roomID string, eff *room.ActionEffect) {
	ctx := r.Context()
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

func (s *Server) withGameOverText(msg gamedto.GameOverMessage) gamedto.GameOverMessage {
	msg.Message = s.catalog.RenderOr("game.over."+msg.Result,
		map[string]string{"WinnerName": msg.WinnerName}, "")
	return msg
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin(r))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsOrigin(r *http.Request) string {
	if slices.Contains(s.origins, "*") {
		return "*"
	}
	origin := r.Header.Get("Origin")
	if slices.Contains(s.origins, origin) {
		return origin
	}
	return s.origins[0]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type restError struct {
	status   int
	key      string
	fallback string
}

var restErrors = map[string]restError{
	"room_not_found":  {http.StatusNotFound, "room.not_found", "Room not found"},
	"room_full":       {http.StatusBadRequest, "room.full", "Room is full"},
	"not_in_room":     {http.StatusBadRequest, "room.not_in_room", "Player not in this game"},
	"not_your_turn":   {http.StatusBadRequest, "room.not_your_turn", "It is not your turn"},
	"game_not_active": {http.StatusBadRequest, "room.game_not_active", "The game is not active"},
	"game_not_over":   {http.StatusBadRequest, "room.game_not_over", "The game is not over yet"},
	"nothing_to_undo": {http.StatusBadRequest, "room.nothing_to_undo", "There is no move to undo"},
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := rejectReason(err)
	if code == "" {
		s.log.Error("http_internal_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, gamedto.ErrorResponse{Detail: "Internal server error"})
		return
	}
	if e, ok := restErrors[code]; ok {
		writeJSON(w, e.status, gamedto.ErrorResponse{
			Detail: s.catalog.RenderOr(e.key, nil, e.fallback),
			Reason: code,
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, gamedto.ErrorResponse{
		Detail: s.catalog.RenderOr("move.invalid."+code, nil, "Illegal move"),
		Reason: code,
	})
}

// rejectReason maps player-provoked rejections to wire codes. Internal
// faults return "" so callers can split the two classes.
func rejectReason(err error) string {
	if r := chess.ReasonOf(err); r != "" {
		return string(r)
	}
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, room.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, room.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, room.ErrGameNotActive):
		return "game_not_active"
	case errors.Is(err, room.ErrGameNotOver):
		return "game_not_over"
	case errors.Is(err, room.ErrNothingToUndo):
		return "nothing_to_undo"
	}
	return ""
}
