package room

import (
	"github.com/Mkharboutley/chess2/internal/chess"
	"github.com/Mkharboutley/chess2/pkg/gamedto"
)

func moveRecord(mv chess.Move) gamedto.MoveRecord {
	return gamedto.MoveRecord{
		FromSquare: mv.From.String(),
		ToSquare:   mv.To.String(),
		Piece:      mv.Piece.String(),
		Player:     mv.Player,
		Timestamp:  mv.At,
		MoveType:   string(mv.Tag),
		Promotion:  string(mv.Promotion),
	}
}

func roomState(s *GameSession) *gamedto.RoomState {
	st := &gamedto.RoomState{
		RoomID:          s.ID,
		CurrentTurn:     string(s.Turn),
		GameStatus:      string(s.Status),
		Winner:          s.Winner,
		ResignedBy:      s.ResignedBy,
		GameNo:          s.GameNo,
		Moves:           make([]gamedto.MoveRecord, 0, len(s.Moves)),
		UndoRequests:    append([]string{}, s.UndoRequests...),
		RematchRequests: append([]string{}, s.RematchRequests...),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for _, mv := range s.Moves {
		st.Moves = append(st.Moves, moveRecord(mv))
	}
	if s.White != nil {
		st.Player1ID, st.Player1Name = s.White.ID, s.White.Name
	}
	if s.Black != nil {
		st.Player2ID, st.Player2Name = s.Black.ID, s.Black.Name
	}
	return st
}

// snapshot renders the session into the board payload pushed to clients.
// The in-check flag is derived fresh; it is display state, not game state.
func snapshot(s *GameSession) (*gamedto.BoardState, error) {
	board := s.Board()
	bs := &gamedto.BoardState{
		RoomID:          s.ID,
		Board:           make(map[string]string, len(board)),
		CurrentTurn:     string(s.Turn),
		GameStatus:      string(s.Status),
		Winner:          s.Winner,
		MoveCount:       len(s.Moves),
		UndoRequests:    append([]string{}, s.UndoRequests...),
		RematchRequests: append([]string{}, s.RematchRequests...),
	}
	for sq, p := range board {
		bs.Board[sq.String()] = p.String()
	}
	if s.White != nil {
		bs.Player1Name = s.White.Name
	}
	if s.Black != nil {
		bs.Player2Name = s.Black.Name
	}
	if n := len(s.Moves); n > 0 {
		rec := moveRecord(s.Moves[n-1])
		bs.LastMove = &rec
	}
	if s.Status == StatusActive {
		check, err := chess.InCheck(board, s.Turn)
		if err != nil {
			return nil, err
		}
		if check {
			bs.InCheck = string(s.Turn)
		}
	}
	return bs, nil
}

func gameOver(s *GameSession, method string) gamedto.GameOverMessage {
	msg := gamedto.GameOverMessage{
		Type:   gamedto.TypeGameOver,
		Result: method,
		Winner: s.Winner,
	}
	if p := s.PlayerByID(s.Winner); p != nil {
		msg.WinnerName = p.Name
	}
	return msg
}
