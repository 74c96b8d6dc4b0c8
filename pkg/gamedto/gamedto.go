// Package gamedto defines the JSON shapes shared by the chess2 server, its
// websocket protocol, and API clients. The package stays free of internal
// imports so external tooling can reuse it.
package gamedto

import "time"

// HealthResponse answers GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateRoomResponse answers POST /api/rooms.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}

// JoinRequest is the body of POST /api/rooms/{room_id}/join.
type JoinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// JoinResult reports the seat a player received.
type JoinResult struct {
	PlayerID string `json:"player_id"`
	Color    string `json:"color"`
	RoomID   string `json:"room_id"`
}

// MoveRecord is one logged ply on the wire. Piece uses the combined
// "color_kind" form, e.g. "white_pawn".
type MoveRecord struct {
	FromSquare string    `json:"from_square"`
	ToSquare   string    `json:"to_square"`
	Piece      string    `json:"piece"`
	Player     string    `json:"player"`
	Timestamp  time.Time `json:"timestamp"`
	MoveType   string    `json:"move_type"`
	Promotion  string    `json:"promotion,omitempty"`
}

// RoomState mirrors the full room document served by GET /api/rooms/{room_id}.
type RoomState struct {
	RoomID          string       `json:"room_id"`
	Player1ID       string       `json:"player1_id,omitempty"`
	Player2ID       string       `json:"player2_id,omitempty"`
	Player1Name     string       `json:"player1_name,omitempty"`
	Player2Name     string       `json:"player2_name,omitempty"`
	CurrentTurn     string       `json:"current_turn"`
	GameStatus      string       `json:"game_status"`
	Winner          string       `json:"winner,omitempty"`
	ResignedBy      string       `json:"resigned_by,omitempty"`
	GameNo          int          `json:"game_no"`
	Moves           []MoveRecord `json:"moves"`
	UndoRequests    []string     `json:"undo_requests"`
	RematchRequests []string     `json:"rematch_requests"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BoardState is the snapshot pushed to clients. Board maps square names to
// "color_kind" piece strings; empty squares are omitted.
type BoardState struct {
	RoomID          string            `json:"room_id"`
	Board           map[string]string `json:"board"`
	CurrentTurn     string            `json:"current_turn"`
	GameStatus      string            `json:"game_status"`
	Player1Name     string            `json:"player1_name,omitempty"`
	Player2Name     string            `json:"player2_name,omitempty"`
	Winner          string            `json:"winner,omitempty"`
	InCheck         string            `json:"in_check,omitempty"`
	LastMove        *MoveRecord       `json:"last_move,omitempty"`
	MoveCount       int               `json:"move_count"`
	UndoRequests    []string          `json:"undo_requests"`
	RematchRequests []string          `json:"rematch_requests"`
}

// MoveSubmission is a move as submitted by a client, over either transport.
type MoveSubmission struct {
	FromSquare string `json:"from_square"`
	ToSquare   string `json:"to_square"`
	Promotion  string `json:"promotion,omitempty"`
}

// ActionResponse answers the resign, undo, and rematch endpoints.
type ActionResponse struct {
	Status   string   `json:"status"`
	Winner   string   `json:"winner,omitempty"`
	Requests []string `json:"requests,omitempty"`
}

// GameSummary is one archived game in GET /api/players/{player_id}/games.
type GameSummary struct {
	RoomID     string    `json:"room_id"`
	GameNo     int       `json:"game_no"`
	WhiteID    string    `json:"white_id"`
	WhiteName  string    `json:"white_name"`
	BlackID    string    `json:"black_id"`
	BlackName  string    `json:"black_name"`
	Result     string    `json:"result"`
	Method     string    `json:"method"`
	MoveCount  int       `json:"move_count"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

// ErrorResponse is the uniform REST error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Reason string `json:"reason,omitempty"`
}
