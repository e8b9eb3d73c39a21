package engine

import "fmt"

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func NewPosition(row, col int) Position {
	return Position{Row: row, Col: col}
}

func (p Position) IsValid(boardSize int) bool {
	return p.Row >= 0 && p.Col >= 0 && p.Row < boardSize && p.Col < boardSize
}

func (p Position) Equals(other Position) bool {
	return p.Row == other.Row && p.Col == other.Col
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func center(boardSize int) Position {
	return Position{Row: boardSize / 2, Col: boardSize / 2}
}
