package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Mkharboutley/chess2/internal/apiclient"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

// chess2-probe exercises a running server end to end: REST health and room
// lifecycle, then a websocket leg that plays the first move of a game.
func main() {
	baseURL := os.Getenv("CHESS2_BASE_URL")
	wsURL := os.Getenv("CHESS2_WS_URL")

	if baseURL == "" {
		log.Fatal("CHESS2_BASE_URL is required")
	}

	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/api/health error: %v", err)
	}
	log.Printf("/api/health ok: status=%s message=%q", health.Status, health.Message)

	created, err := client.CreateRoom(ctx)
	if err != nil {
		log.Fatalf("create room error: %v", err)
	}
	roomID := created.RoomID
	log.Printf("room created: %s", roomID)

	white, err := client.Join(ctx, roomID, uuid.NewString(), "Probe White")
	if err != nil {
		log.Fatalf("join (white) error: %v", err)
	}
	black, err := client.Join(ctx, roomID, uuid.NewString(), "Probe Black")
	if err != nil {
		log.Fatalf("join (black) error: %v", err)
	}
	log.Printf("joined: %s=%s %s=%s", white.PlayerID, white.Color, black.PlayerID, black.Color)

	board, err := client.Board(ctx, roomID)
	if err != nil {
		log.Fatalf("board error: %v", err)
	}
	log.Printf("board: status=%s turn=%s pieces=%d", board.GameStatus, board.CurrentTurn, len(board.Board))

	if wsURL == "" {
		log.Println("CHESS2_WS_URL not set; skipping WS check")
		cleanup(client, roomID)
		return
	}

	sock := apiclient.NewRoomSocket(wsURL, roomID, white.PlayerID)
	sock.OnStateChange(func(state apiclient.SocketState) {
		log.Printf("WS state: %s", state)
	})
	sock.OnEvent(func(ev *apiclient.ServerEvent) {
		switch ev.Type {
		case gamedto.TypeBoardState:
			var bs gamedto.BoardStateMessage
			if err := ev.Decode(&bs); err == nil {
				fmt.Printf("WS board_state turn=%s status=%s moves=%d\n", bs.CurrentTurn, bs.GameStatus, bs.MoveCount)
			}
		case gamedto.TypeMove:
			var mv gamedto.MoveMessage
			if err := ev.Decode(&mv); err == nil {
				fmt.Printf("WS move %s%s by=%s next=%s\n", mv.FromSquare, mv.ToSquare, mv.Player, mv.CurrentTurn)
			}
		case gamedto.TypeInvalidMove:
			var iv gamedto.InvalidMoveMessage
			if err := ev.Decode(&iv); err == nil {
				fmt.Printf("WS invalid_move reason=%s message=%q\n", iv.Reason, iv.Message)
			}
		default:
			fmt.Printf("WS event type=%s\n", ev.Type)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := sock.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		cleanup(client, roomID)
		return
	}

	// Give the initial board_state push a moment before moving.
	time.Sleep(500 * time.Millisecond)
	if err := sock.SendMove(context.Background(), "e2", "e4", ""); err != nil {
		log.Printf("WS move error: %v", err)
	}

	t := time.NewTimer(5 * time.Second)
	<-t.C

	_ = sock.Close(context.Background())
	cleanup(client, roomID)
}

func cleanup(client *apiclient.Client, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.DeleteRoom(ctx, roomID); err != nil {
		log.Printf("delete room error: %v", err)
	} else {
		log.Printf("room deleted: %s", roomID)
	}
}
