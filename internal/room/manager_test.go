package room

import (
	"context"
	"errors"
	"testing"

	"github.com/Mkharboutley/chess2/internal/chess"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(NewMemStore(), NewMemArchive(), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// createActiveRoom provisions a room with u1 as white and u2 as black.
func createActiveRoom(t *testing.T, m *Manager) string {
	t.Helper()
	ctx := context.Background()
	created, err := m.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, _, err := m.Join(ctx, created.RoomID, "u1", "Alice"); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if _, _, err := m.Join(ctx, created.RoomID, "u2", "Bob"); err != nil {
		t.Fatalf("join u2: %v", err)
	}
	return created.RoomID
}

func play(t *testing.T, m *Manager, roomID, playerID, from, to string) *MoveEffect {
	t.Helper()
	eff, err := m.SubmitMove(context.Background(), roomID, playerID, gamedto.MoveSubmission{FromSquare: from, ToSquare: to})
	if err != nil {
		t.Fatalf("move %s%s by %s: %v", from, to, playerID, err)
	}
	return eff
}

func TestManagerCreateJoinSnapshot(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(created.RoomID) != 8 || created.Status != "created" {
		t.Fatalf("created = %+v", created)
	}

	seat, state, err := m.Join(ctx, created.RoomID, "u1", "Alice")
	if err != nil || seat.Color != "white" {
		t.Fatalf("join = %+v, %v", seat, err)
	}
	if state.GameStatus != "waiting" {
		t.Fatalf("snapshot after one join: %q", state.GameStatus)
	}

	seat, state, err = m.Join(ctx, created.RoomID, "u2", "Bob")
	if err != nil || seat.Color != "black" {
		t.Fatalf("join = %+v, %v", seat, err)
	}
	if state.GameStatus != "active" || state.CurrentTurn != "white" {
		t.Fatalf("snapshot = %+v", state)
	}
	if len(state.Board) != 32 || state.Board["e2"] != "white_pawn" || state.Board["e8"] != "black_king" {
		t.Fatalf("board render = %d pieces, e2=%q", len(state.Board), state.Board["e2"])
	}

	doc, err := m.Room(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("Room: %v", err)
	}
	if doc.Player1Name != "Alice" || doc.Player2Name != "Bob" || doc.GameNo != 1 {
		t.Fatalf("room doc = %+v", doc)
	}

	if _, err := m.BoardState(ctx, "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("missing room err = %v", err)
	}
}

func TestManagerMoveFlow(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	eff := play(t, m, roomID, "u1", "e2", "e4")
	if eff.Move.FromSquare != "e2" || eff.Move.ToSquare != "e4" || eff.Move.Piece != "white_pawn" {
		t.Fatalf("move record = %+v", eff.Move)
	}
	if eff.CurrentTurn != "black" || eff.GameStatus != "active" || eff.GameOver != nil {
		t.Fatalf("effect = %+v", eff)
	}

	// Malformed squares are rejected before touching the room.
	_, err := m.SubmitMove(ctx, roomID, "u2", gamedto.MoveSubmission{FromSquare: "z9", ToSquare: "e5"})
	if chess.ReasonOf(err) != chess.ReasonBadSquare {
		t.Fatalf("bad square err = %v", err)
	}
	state, err := m.BoardState(ctx, roomID)
	if err != nil || state.MoveCount != 1 {
		t.Fatalf("state = %+v, %v", state, err)
	}

	if _, err := m.SubmitMove(ctx, "missing", "u1", gamedto.MoveSubmission{FromSquare: "e2", ToSquare: "e4"}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("missing room err = %v", err)
	}
}

func TestManagerCheckSignal(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)

	play(t, m, roomID, "u1", "e2", "e4")
	play(t, m, roomID, "u2", "e7", "e5")
	play(t, m, roomID, "u1", "d1", "h5")
	play(t, m, roomID, "u2", "b8", "c6")
	eff := play(t, m, roomID, "u1", "h5", "f7")
	if eff.InCheck != "black" || eff.GameOver != nil {
		t.Fatalf("checking move effect = %+v", eff)
	}
	// The king takes the undefended queen.
	eff = play(t, m, roomID, "u2", "e8", "f7")
	if eff.InCheck != "" || eff.Move.MoveType != "capture" {
		t.Fatalf("recapture effect = %+v", eff)
	}
}

func TestManagerMateArchivesGame(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	play(t, m, roomID, "u1", "f2", "f3")
	play(t, m, roomID, "u2", "e7", "e5")
	play(t, m, roomID, "u1", "g2", "g4")
	eff := play(t, m, roomID, "u2", "d8", "h4")

	if eff.GameOver == nil {
		t.Fatalf("mating move carried no game over")
	}
	if eff.GameOver.Result != "checkmate" || eff.GameOver.Winner != "u2" || eff.GameOver.WinnerName != "Bob" {
		t.Fatalf("game over = %+v", eff.GameOver)
	}
	if eff.GameStatus != "finished" {
		t.Fatalf("status = %q", eff.GameStatus)
	}

	for _, player := range []string{"u1", "u2"} {
		games, err := m.RecentGames(ctx, player, 10)
		if err != nil || len(games) != 1 {
			t.Fatalf("RecentGames(%s) = %d, %v", player, len(games), err)
		}
		g := games[0]
		if g.Result != "black" || g.Method != "checkmate" || g.MoveCount != 4 {
			t.Fatalf("archived game = %+v", g)
		}
		if g.WhiteID != "u1" || g.BlackID != "u2" {
			t.Fatalf("archived seats = %+v", g)
		}
	}
}

func TestManagerResign(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	play(t, m, roomID, "u1", "e2", "e4")
	eff, err := m.Resign(ctx, roomID, "u2")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if eff.Response.Status != "resigned" || eff.Response.Winner != "u1" {
		t.Fatalf("response = %+v", eff.Response)
	}
	if len(eff.Events) != 2 {
		t.Fatalf("expected resignation and game over events, got %d", len(eff.Events))
	}
	if _, ok := eff.Events[0].(gamedto.GameResignedMessage); !ok {
		t.Fatalf("first event = %T", eff.Events[0])
	}
	if over, ok := eff.Events[1].(gamedto.GameOverMessage); !ok || over.Result != "resign" {
		t.Fatalf("second event = %#v", eff.Events[1])
	}

	// Resigning again reports the result without a second broadcast or a
	// second archive row.
	eff, err = m.Resign(ctx, roomID, "u1")
	if err != nil || len(eff.Events) != 0 || eff.Response.Winner != "u1" {
		t.Fatalf("repeat resign = %+v, %v", eff, err)
	}
	games, err := m.RecentGames(ctx, "u1", 10)
	if err != nil || len(games) != 1 {
		t.Fatalf("RecentGames = %d, %v", len(games), err)
	}
	if games[0].Result != "white" || games[0].Method != "resign" {
		t.Fatalf("archived game = %+v", games[0])
	}
}

func TestManagerUndoAndRematch(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	play(t, m, roomID, "u1", "e2", "e4")

	eff, err := m.RequestUndo(ctx, roomID, "u1")
	if err != nil || eff.Response.Status != "undo_requested" || eff.State != nil {
		t.Fatalf("first undo consent = %+v, %v", eff, err)
	}
	eff, err = m.RequestUndo(ctx, roomID, "u2")
	if err != nil || eff.Response.Status != "undo_applied" {
		t.Fatalf("second undo consent = %+v, %v", eff, err)
	}
	if eff.State == nil || eff.State.MoveCount != 0 || eff.State.CurrentTurn != "white" {
		t.Fatalf("post-undo snapshot = %+v", eff.State)
	}
	if len(eff.Events) != 1 {
		t.Fatalf("events = %d", len(eff.Events))
	}
	if applied, ok := eff.Events[0].(gamedto.UndoAppliedMessage); !ok || applied.Undone.FromSquare != "e2" {
		t.Fatalf("undo event = %#v", eff.Events[0])
	}

	if _, err := m.Resign(ctx, roomID, "u1"); err != nil {
		t.Fatalf("resign: %v", err)
	}
	eff, err = m.RequestRematch(ctx, roomID, "u1")
	if err != nil || eff.Response.Status != "rematch_requested" {
		t.Fatalf("first rematch consent = %+v, %v", eff, err)
	}
	eff, err = m.RequestRematch(ctx, roomID, "u2")
	if err != nil || eff.Response.Status != "rematch_started" {
		t.Fatalf("second rematch consent = %+v, %v", eff, err)
	}
	if eff.State == nil || eff.State.MoveCount != 0 || eff.State.GameStatus != "active" {
		t.Fatalf("post-rematch snapshot = %+v", eff.State)
	}

	doc, err := m.Room(ctx, roomID)
	if err != nil || doc.GameNo != 2 {
		t.Fatalf("room doc = %+v, %v", doc, err)
	}
}

func TestManagerActionErrors(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	if _, err := m.RequestUndo(ctx, roomID, "u1"); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("undo err = %v", err)
	}
	if _, err := m.RequestRematch(ctx, roomID, "u1"); !errors.Is(err, ErrGameNotOver) {
		t.Fatalf("rematch err = %v", err)
	}
	if _, err := m.Resign(ctx, roomID, "ghost"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("outsider resign err = %v", err)
	}
}

func TestManagerRecentGamesWithoutArchive(t *testing.T) {
	m, err := NewManager(NewMemStore(), nil, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	games, err := m.RecentGames(context.Background(), "u1", 10)
	if err != nil || games == nil || len(games) != 0 {
		t.Fatalf("RecentGames = %v, %v", games, err)
	}
}

func TestManagerDeleteRoom(t *testing.T) {
	m := newTestManager(t)
	roomID := createActiveRoom(t, m)
	ctx := context.Background()

	if err := m.DeleteRoom(ctx, roomID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if _, err := m.Room(ctx, roomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("deleted room err = %v", err)
	}
	if err := m.DeleteRoom(ctx, roomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
}
