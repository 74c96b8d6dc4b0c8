package room

import "context"

// Store owns session persistence and, through Mutate, the per-room
// serialization the session model requires: at most one mutation is applied
// to a room at a time, and concurrent attempts retry or queue rather than
// interleave.
type Store interface {
	// Create persists a brand-new session and fails if the id is taken.
	Create(ctx context.Context, s *GameSession) error
	// Load returns a private copy of the session or ErrRoomNotFound.
	Load(ctx context.Context, roomID string) (*GameSession, error)
	// Mutate loads the session, applies fn, and persists the result as one
	// atomic step. An error from fn aborts the write and is returned as-is.
	Mutate(ctx context.Context, roomID string, fn func(*GameSession) error) (*GameSession, error)
	// Delete removes the session if present.
	Delete(ctx context.Context, roomID string) error
}
