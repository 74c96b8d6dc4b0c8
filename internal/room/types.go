package room

import (
	"errors"

	"github.com/Mkharboutley/chess2/internal/chess"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusResigned Status = "resigned"
)

// Terminal reports whether no further moves are possible.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusResigned
}

// Player is one seat in a room.
type Player struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Color chess.Color `json:"color"`
}

// Rejections shared by the session state machine and its stores. These are
// expected outcomes a client can provoke; everything else coming out of this
// package is an internal fault.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotInRoom     = errors.New("player not in this room")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrGameNotActive = errors.New("game is not active")
	ErrGameNotOver   = errors.New("game is not over")
	ErrNothingToUndo = errors.New("no move to undo")
)
