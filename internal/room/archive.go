package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Mkharboutley/chess2/internal/chess"
)

// ArchivedGame is one finished game as kept in history.
type ArchivedGame struct {
	ID         int64        `json:"id"`
	RoomID     string       `json:"room_id"`
	GameNo     int          `json:"game_no"`
	WhiteID    string       `json:"white_id"`
	WhiteName  string       `json:"white_name"`
	BlackID    string       `json:"black_id"`
	BlackName  string       `json:"black_name"`
	Result     string       `json:"result"`
	Method     string       `json:"method"`
	Moves      []chess.Move `json:"moves"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	DurationMS int64        `json:"duration_ms"`
}

// Archive records finished games for later lookup. Saving the same
// (room, game number) twice overwrites the earlier record, which makes the
// save safe to repeat. Implementations must be safe for concurrent use.
type Archive interface {
	SaveGame(ctx context.Context, s *GameSession, method string) error
	RecentGames(ctx context.Context, playerID string, limit int) ([]ArchivedGame, error)
}

func archivedFrom(s *GameSession, method string) ArchivedGame {
	g := ArchivedGame{
		RoomID:    s.ID,
		GameNo:    s.GameNo,
		Result:    s.Result(),
		Method:    method,
		Moves:     slicesCopy(s.Moves),
		StartedAt: s.GameStartedAt,
		EndedAt:   s.UpdatedAt,
	}
	if s.White != nil {
		g.WhiteID, g.WhiteName = s.White.ID, s.White.Name
	}
	if s.Black != nil {
		g.BlackID, g.BlackName = s.Black.ID, s.Black.Name
	}
	if d := g.EndedAt.Sub(g.StartedAt); d > 0 {
		g.DurationMS = d.Milliseconds()
	}
	return g
}

// MemArchive is the in-memory Archive used when no database is configured.
type MemArchive struct {
	mu     sync.RWMutex
	games  []ArchivedGame
	nextID int64
}

// NewMemArchive returns an empty in-memory archive.
func NewMemArchive() *MemArchive {
	return &MemArchive{nextID: 1}
}

func (a *MemArchive) SaveGame(ctx context.Context, s *GameSession, method string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	g := archivedFrom(s, method)
	for i := range a.games {
		if a.games[i].RoomID == g.RoomID && a.games[i].GameNo == g.GameNo {
			g.ID = a.games[i].ID
			a.games[i] = g
			return nil
		}
	}
	g.ID = a.nextID
	a.nextID++
	a.games = append(a.games, g)
	return nil
}

func (a *MemArchive) RecentGames(ctx context.Context, playerID string, limit int) ([]ArchivedGame, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	out := make([]ArchivedGame, 0, limit)
	for _, g := range a.games {
		if g.WhiteID == playerID || g.BlackID == playerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Moves = slicesCopy(out[i].Moves)
	}
	return out, nil
}
