package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WriteFunc delivers one message to a single connection.
type WriteFunc func(ctx context.Context, msg any) error

// Conn is a registered room subscriber.
type Conn struct {
	playerID string
	write    WriteFunc
}

const broadcastWriteTimeout = 5 * time.Second

// Registry tracks the live connections of each room. A room entry appears
// with its first connection and disappears with its last one, so an idle
// registry holds nothing. The registry is passed by handle; it is never a
// package global.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	log   *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{rooms: make(map[string]map[*Conn]struct{}), log: logger}
}

// Register subscribes a player connection to a room and returns the handle
// to pass to Unregister.
func (r *Registry) Register(roomID, playerID string, write WriteFunc) *Conn {
	c := &Conn{playerID: playerID, write: write}
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.rooms[roomID] = set
	}
	set[c] = struct{}{}
	size := len(set)
	r.mu.Unlock()
	r.log.Debug("ws_register",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("room_conns", size))
	return c
}

// Unregister drops a connection and collapses the room entry when it was
// the last one.
func (r *Registry) Unregister(roomID string, c *Conn) {
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.rooms, roomID)
		}
	}
	r.mu.Unlock()
	if ok {
		r.log.Debug("ws_unregister",
			zap.String("room_id", roomID),
			zap.String("player_id", c.playerID))
	}
}

// Broadcast writes msg to every subscriber of the room, skipping the player
// named by exclude when non-empty. Write failures are logged and skipped;
// the failed connection's own read loop handles teardown.
func (r *Registry) Broadcast(ctx context.Context, roomID string, msg any, exclude string) {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		if exclude != "" && c.playerID == exclude {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, broadcastWriteTimeout)
		if err := c.write(wctx, msg); err != nil {
			r.log.Warn("ws_broadcast_failed",
				zap.String("room_id", roomID),
				zap.String("player_id", c.playerID),
				zap.Error(err))
		}
		cancel()
	}
}

// RoomSize reports the live connection count for a room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
