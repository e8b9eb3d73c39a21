package engine

import "fmt"

// MaxBoardSize bounds boards accepted from the wire. The search cost grows
// with the cell count, so remote callers are capped.
const MaxBoardSize = 25

// MoveRequest is the JSON body accepted by the HTTP and Nakama bot-move
// endpoints. Board cells use 0 empty, 1 bot, 2 player.
type MoveRequest struct {
	Board      [][]int   `json:"board"`
	LastMove   *Position `json:"last_move,omitempty"`
	Difficulty string    `json:"difficulty"`
}

type MoveResponse struct {
	Move  *Position   `json:"move"`
	Score int         `json:"score"`
	Depth int         `json:"depth"`
	Stats SearchStats `json:"stats"`
}

func (m MoveRequest) Request() (Request, error) {
	if len(m.Board) > MaxBoardSize {
		return Request{}, fmt.Errorf("%w: board size %d exceeds %d", ErrInvalidBoard, len(m.Board), MaxBoardSize)
	}
	board, err := BoardFromInts(m.Board)
	if err != nil {
		return Request{}, err
	}
	difficulty, err := ParseDifficulty(m.Difficulty)
	if err != nil {
		return Request{}, err
	}
	req := Request{Board: board, Difficulty: difficulty}
	if m.LastMove != nil {
		if !m.LastMove.IsValid(board.Size()) {
			return Request{}, fmt.Errorf("%w: last move %s", ErrPositionOutOfRange, m.LastMove)
		}
		last := *m.LastMove
		req.LastMove = &last
	}
	return req, nil
}

// NewMoveResponse leaves Move nil when the board had no empty cell.
func NewMoveResponse(result Result) MoveResponse {
	resp := MoveResponse{
		Score: result.Score,
		Depth: result.Depth,
		Stats: result.Stats,
	}
	if result.Found {
		pos := result.Position
		resp.Move = &pos
	}
	return resp
}
