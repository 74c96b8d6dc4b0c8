package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Mkharboutley/chess2/internal/chess"
)

const createGamesTableSQL = `
	CREATE TABLE IF NOT EXISTS chess_games (
		id           BIGSERIAL PRIMARY KEY,
		room_id      TEXT        NOT NULL,
		game_no      INT         NOT NULL,
		white_id     TEXT        NOT NULL,
		white_name   TEXT        NOT NULL DEFAULT '',
		black_id     TEXT        NOT NULL,
		black_name   TEXT        NOT NULL DEFAULT '',
		result       TEXT        NOT NULL,
		method       TEXT        NOT NULL,
		moves        JSONB       NOT NULL DEFAULT '[]'::jsonb,
		started_at   TIMESTAMPTZ NOT NULL,
		ended_at     TIMESTAMPTZ NOT NULL,
		duration_ms  BIGINT      NOT NULL DEFAULT 0,
		UNIQUE (room_id, game_no)
	)`

const insertGameSQL = `
	INSERT INTO chess_games (
		room_id, game_no, white_id, white_name, black_id, black_name,
		result, method, moves, started_at, ended_at, duration_ms
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
	ON CONFLICT (room_id, game_no) DO UPDATE SET
		result = EXCLUDED.result,
		method = EXCLUDED.method,
		moves = EXCLUDED.moves,
		ended_at = EXCLUDED.ended_at,
		duration_ms = EXCLUDED.duration_ms`

const recentGamesSQL = `
	SELECT id, room_id, game_no, white_id, white_name, black_id, black_name,
	       result, method, moves, started_at, ended_at, duration_ms
	FROM chess_games
	WHERE white_id = $1 OR black_id = $1
	ORDER BY ended_at DESC
	LIMIT $2`

// OpenDB opens a pooled Postgres connection and verifies it with a ping.
func OpenDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PGArchive stores finished games in Postgres.
type PGArchive struct {
	db *sql.DB
}

// NewPGArchive wraps an open database handle.
func NewPGArchive(db *sql.DB) *PGArchive {
	return &PGArchive{db: db}
}

// Migrate creates the games table when it does not exist yet.
func (a *PGArchive) Migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, createGamesTableSQL)
	return err
}

func (a *PGArchive) SaveGame(ctx context.Context, s *GameSession, method string) error {
	g := archivedFrom(s, method)
	movesJSON, err := json.Marshal(g.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	_, err = a.db.ExecContext(ctx, insertGameSQL,
		g.RoomID, g.GameNo, g.WhiteID, g.WhiteName, g.BlackID, g.BlackName,
		g.Result, g.Method, movesJSON, g.StartedAt, g.EndedAt, g.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (a *PGArchive) RecentGames(ctx context.Context, playerID string, limit int) ([]ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.db.QueryContext(ctx, recentGamesSQL, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []ArchivedGame
	for rows.Next() {
		var (
			g         ArchivedGame
			movesJSON []byte
		)
		if err := rows.Scan(
			&g.ID, &g.RoomID, &g.GameNo, &g.WhiteID, &g.WhiteName, &g.BlackID, &g.BlackName,
			&g.Result, &g.Method, &movesJSON, &g.StartedAt, &g.EndedAt, &g.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if len(movesJSON) > 0 {
			if err := json.Unmarshal(movesJSON, &g.Moves); err != nil {
				return nil, fmt.Errorf("decode moves: %w", err)
			}
		}
		if g.Moves == nil {
			g.Moves = []chess.Move{}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
