package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

func writeBody(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientRoundtrips(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, http.StatusOK, gamedto.HealthResponse{Status: "healthy", Message: "ok"})
	})
	mux.HandleFunc("POST /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, http.StatusOK, gamedto.CreateRoomResponse{RoomID: "abc12345", Status: "created"})
	})
	mux.HandleFunc("POST /api/rooms/abc12345/join", func(w http.ResponseWriter, r *http.Request) {
		var req gamedto.JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID != "u1" || req.Name != "Alice" {
			t.Errorf("join body = %+v, %v", req, err)
		}
		writeBody(t, w, http.StatusOK, gamedto.JoinResult{PlayerID: "u1", Color: "white", RoomID: "abc12345"})
	})
	mux.HandleFunc("GET /api/rooms/abc12345/board", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, http.StatusOK, gamedto.BoardState{
			RoomID:      "abc12345",
			Board:       map[string]string{"e1": "white_king", "e8": "black_king"},
			CurrentTurn: "white",
			GameStatus:  "active",
		})
	})
	mux.HandleFunc("GET /api/players/u1/games", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		writeBody(t, w, http.StatusOK, []gamedto.GameSummary{{RoomID: "abc12345", Result: "white"}})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, WithTimeout(5*time.Second))
	ctx := context.Background()

	health, err := c.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("Health = %+v, %v", health, err)
	}
	created, err := c.CreateRoom(ctx)
	if err != nil || created.RoomID != "abc12345" {
		t.Fatalf("CreateRoom = %+v, %v", created, err)
	}
	seat, err := c.Join(ctx, "abc12345", "u1", "Alice")
	if err != nil || seat.Color != "white" {
		t.Fatalf("Join = %+v, %v", seat, err)
	}
	board, err := c.Board(ctx, "abc12345")
	if err != nil || board.Board["e1"] != "white_king" {
		t.Fatalf("Board = %+v, %v", board, err)
	}
	games, err := c.RecentGames(ctx, "u1", 5)
	if err != nil || len(games) != 1 || games[0].Result != "white" {
		t.Fatalf("RecentGames = %+v, %v", games, err)
	}
}

func TestClientDecodesAPIErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, http.StatusBadRequest, gamedto.ErrorResponse{Detail: "It is not your turn", Reason: "not_your_turn"})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL)
	_, err := c.Resign(context.Background(), "abc12345", "u1")
	if err == nil {
		t.Fatalf("error expected")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Reason != "not_your_turn" || apiErr.Detail == "" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestClientRetriesIdempotentReads(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			writeBody(t, w, http.StatusServiceUnavailable, gamedto.ErrorResponse{Detail: "warming up"})
			return
		}
		writeBody(t, w, http.StatusOK, gamedto.HealthResponse{Status: "healthy", Message: "ok"})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, WithRetry(3))
	health, err := c.Health(context.Background())
	if err != nil || health.Status != "healthy" {
		t.Fatalf("Health = %+v, %v", health, err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestClientDoesNotRetryWrites(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeBody(t, w, http.StatusServiceUnavailable, gamedto.ErrorResponse{Detail: "down"})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, WithRetry(3))
	if _, err := c.CreateRoom(context.Background()); err == nil {
		t.Fatalf("error expected")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestClientHeaderProvider(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}
		if _, ok := r.Header["X-Empty"]; ok {
			t.Errorf("empty header was sent")
		}
		writeBody(t, w, http.StatusOK, gamedto.HealthResponse{Status: "healthy", Message: "ok"})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Api-Key": "secret", "X-Empty": ""}
	}))
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
