package room

import (
	"context"
	"fmt"
	"sync"
)

// MemStore keeps sessions in process memory. It backs development runs
// without Redis and the test suite. All methods hand out deep copies, so a
// caller can never reach another caller's session state.
type MemStore struct {
	mu    sync.RWMutex
	rooms map[string]*GameSession
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{rooms: make(map[string]*GameSession)}
}

func (m *MemStore) Create(ctx context.Context, s *GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[s.ID]; exists {
		return fmt.Errorf("room %s already exists", s.ID)
	}
	m.rooms[s.ID] = cloneSession(s)
	return nil
}

func (m *MemStore) Load(ctx context.Context, roomID string) (*GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return cloneSession(s), nil
}

func (m *MemStore) Mutate(ctx context.Context, roomID string, fn func(*GameSession) error) (*GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	work := cloneSession(cur)
	if err := fn(work); err != nil {
		return nil, err
	}
	m.rooms[roomID] = work
	return cloneSession(work), nil
}

func (m *MemStore) Delete(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func cloneSession(s *GameSession) *GameSession {
	c := *s
	c.Moves = slicesCopy(s.Moves)
	c.UndoRequests = slicesCopy(s.UndoRequests)
	c.RematchRequests = slicesCopy(s.RematchRequests)
	if s.White != nil {
		w := *s.White
		c.White = &w
	}
	if s.Black != nil {
		b := *s.Black
		c.Black = &b
	}
	if s.EnPassant != nil {
		e := *s.EnPassant
		c.EnPassant = &e
	}
	c.cachedBoard = nil
	c.cachedPlies = 0
	return &c
}

// slicesCopy copies while preserving empty-but-non-nil slices, which keeps
// JSON output as [] instead of null.
func slicesCopy[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
