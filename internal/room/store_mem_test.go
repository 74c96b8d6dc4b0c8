package room

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemStoreClonesOnEveryHandoff(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	orig := New("room1")
	if _, err := orig.Join("u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := store.Create(ctx, orig); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating the caller's copy after Create must not reach the store.
	orig.White.Name = "Mallory"
	first, err := store.Load(ctx, "room1")
	if err != nil || first.White.Name != "Alice" {
		t.Fatalf("loaded = %+v, %v", first.White, err)
	}

	// Two loads never share state.
	first.White.Name = "Mallory"
	second, err := store.Load(ctx, "room1")
	if err != nil || second.White.Name != "Alice" {
		t.Fatalf("second load = %+v, %v", second.White, err)
	}
}

func TestMemStoreMutateCommitsOnlyOnSuccess(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	if err := store.Create(ctx, New("room1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	_, err := store.Mutate(ctx, "room1", func(s *GameSession) error {
		if _, jerr := s.Join("u1", "Alice"); jerr != nil {
			return jerr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	got, err := store.Load(ctx, "room1")
	if err != nil || got.White != nil {
		t.Fatalf("failed mutate leaked state: %+v, %v", got.White, err)
	}
}

func terminalSession(t *testing.T, roomID string, gameNo int, endedAt time.Time) *GameSession {
	t.Helper()
	s := New(roomID)
	if _, err := s.Join("u1", "Alice"); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if _, err := s.Join("u2", "Bob"); err != nil {
		t.Fatalf("join u2: %v", err)
	}
	s.GameNo = gameNo
	s.Status = StatusResigned
	s.Winner = "u1"
	s.GameStartedAt = endedAt.Add(-time.Minute)
	s.UpdatedAt = endedAt
	return s
}

func TestMemArchiveUpsertsByRoomAndGameNo(t *testing.T) {
	archive := NewMemArchive()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := terminalSession(t, "room1", 1, base)
	if err := archive.SaveGame(ctx, s, "resign"); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	// Saving the same game again replaces the row instead of duplicating it.
	s.Winner = "u2"
	if err := archive.SaveGame(ctx, s, "resign"); err != nil {
		t.Fatalf("SaveGame again: %v", err)
	}

	games, err := archive.RecentGames(ctx, "u1", 10)
	if err != nil || len(games) != 1 {
		t.Fatalf("RecentGames = %d, %v", len(games), err)
	}
	if games[0].Result != "black" || games[0].ID != 1 {
		t.Fatalf("upserted game = %+v", games[0])
	}
	if games[0].DurationMS != time.Minute.Milliseconds() {
		t.Fatalf("duration = %d", games[0].DurationMS)
	}
}

func TestMemArchiveRecentGamesOrderAndLimit(t *testing.T) {
	archive := NewMemArchive()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		s := terminalSession(t, "room1", i, base.Add(time.Duration(i)*time.Hour))
		if err := archive.SaveGame(ctx, s, "resign"); err != nil {
			t.Fatalf("SaveGame %d: %v", i, err)
		}
	}
	if err := archive.SaveGame(ctx, terminalSession(t, "other", 1, base), "resign"); err != nil {
		t.Fatalf("SaveGame other: %v", err)
	}

	games, err := archive.RecentGames(ctx, "u2", 2)
	if err != nil || len(games) != 2 {
		t.Fatalf("RecentGames = %d, %v", len(games), err)
	}
	if games[0].GameNo != 3 || games[1].GameNo != 2 {
		t.Fatalf("order = %d, %d", games[0].GameNo, games[1].GameNo)
	}

	// Unknown players see an empty history, not an error.
	games, err = archive.RecentGames(ctx, "ghost", 5)
	if err != nil || len(games) != 0 {
		t.Fatalf("ghost games = %d, %v", len(games), err)
	}
}
