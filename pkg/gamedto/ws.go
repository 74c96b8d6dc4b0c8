package gamedto

import "encoding/json"

// Client → server message types.
const (
	ClientTypeMove       = "move"
	ClientTypeSignal     = "webrtc_signal"
	ClientTypeGameAction = "game_action"
)

// Game actions carried by ClientTypeGameAction.
const (
	ActionResign         = "resign"
	ActionUndoRequest    = "undo_request"
	ActionRematchRequest = "rematch_request"
)

// Server → client message types.
const (
	TypeBoardState         = "board_state"
	TypeMove               = "move"
	TypeInvalidMove        = "invalid_move"
	TypeGameOver           = "game_over"
	TypeSignal             = "webrtc_signal"
	TypeGameResigned       = "game_resigned"
	TypeUndoRequested      = "undo_requested"
	TypeUndoApplied        = "undo_applied"
	TypeRematchRequested   = "rematch_requested"
	TypeRematchStarted     = "rematch_started"
	TypePlayerDisconnected = "player_disconnected"
)

// ClientMessage is any frame a player sends over the room socket. Type
// selects which of the remaining fields apply. The sender's identity and
// color always come from the connection, not from the payload.
type ClientMessage struct {
	Type       string          `json:"type"`
	FromSquare string          `json:"from_square,omitempty"`
	ToSquare   string          `json:"to_square,omitempty"`
	Promotion  string          `json:"promotion,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
	Action     string          `json:"action,omitempty"`
}

// BoardStateMessage pushes a full snapshot.
type BoardStateMessage struct {
	Type string `json:"type"`
	BoardState
}

// MoveMessage broadcasts an accepted move.
type MoveMessage struct {
	Type string `json:"type"`
	MoveRecord
	CurrentTurn string `json:"current_turn"`
	GameStatus  string `json:"game_status"`
	InCheck     string `json:"in_check,omitempty"`
}

// InvalidMoveMessage answers the sender of a rejected move.
type InvalidMoveMessage struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// GameOverMessage broadcasts the end of a game.
type GameOverMessage struct {
	Type       string `json:"type"`
	Result     string `json:"result"`
	Winner     string `json:"winner,omitempty"`
	WinnerName string `json:"winner_name,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SignalMessage relays WebRTC signaling to the other players in the room.
type SignalMessage struct {
	Type       string          `json:"type"`
	Signal     json.RawMessage `json:"signal"`
	FromPlayer string          `json:"from_player"`
}

// GameResignedMessage broadcasts a resignation.
type GameResignedMessage struct {
	Type       string `json:"type"`
	ResignedBy string `json:"resigned_by"`
	Winner     string `json:"winner,omitempty"`
}

// UndoRequestedMessage broadcasts a pending undo request.
type UndoRequestedMessage struct {
	Type        string   `json:"type"`
	RequestedBy string   `json:"requested_by"`
	Requests    []string `json:"requests"`
}

// UndoAppliedMessage broadcasts that the last ply was taken back. A fresh
// BoardStateMessage follows it.
type UndoAppliedMessage struct {
	Type   string     `json:"type"`
	Undone MoveRecord `json:"undone"`
}

// RematchMessage covers both the pending request and the restart broadcast.
type RematchMessage struct {
	Type        string   `json:"type"`
	RequestedBy string   `json:"requested_by"`
	Requests    []string `json:"requests,omitempty"`
}

// PlayerDisconnectedMessage tells the room a socket went away.
type PlayerDisconnectedMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}
