package engine

import "fmt"

type Mark int

const (
	MarkEmpty Mark = iota
	MarkBot
	MarkPlayer
)

func (m Mark) String() string {
	switch m {
	case MarkBot:
		return "bot"
	case MarkPlayer:
		return "player"
	default:
		return "empty"
	}
}

// Opponent returns the other side. MarkEmpty has no opponent and is returned unchanged.
func (m Mark) Opponent() Mark {
	switch m {
	case MarkBot:
		return MarkPlayer
	case MarkPlayer:
		return MarkBot
	default:
		return MarkEmpty
	}
}

// Board is a fixed N×N grid stored row-major.
type Board struct {
	size  int
	cells []Mark
}

func NewBoard(size int) Board {
	b := Board{}
	b.Reset(size)
	return b
}

// BoardFromRows copies rows into a new board. Rows must form a non-empty square.
func BoardFromRows(rows [][]Mark) (Board, error) {
	size := len(rows)
	if size == 0 {
		return Board{}, fmt.Errorf("%w: no rows", ErrInvalidBoard)
	}
	b := NewBoard(size)
	for row, values := range rows {
		if len(values) != size {
			return Board{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidBoard, row, len(values), size)
		}
		for col, mark := range values {
			if mark < MarkEmpty || mark > MarkPlayer {
				return Board{}, fmt.Errorf("%w: unknown mark %d at (%d,%d)", ErrInvalidBoard, mark, row, col)
			}
			b.Set(row, col, mark)
		}
	}
	return b, nil
}

// BoardFromInts decodes the wire encoding: 0 empty, 1 bot, 2 player.
func BoardFromInts(rows [][]int) (Board, error) {
	marks := make([][]Mark, len(rows))
	for i, values := range rows {
		marks[i] = make([]Mark, len(values))
		for j, v := range values {
			marks[i][j] = Mark(v)
		}
	}
	return BoardFromRows(marks)
}

func (b *Board) Reset(size int) {
	b.size = size
	b.cells = make([]Mark, size*size)
}

func (b Board) At(row, col int) Mark {
	return b.cells[b.index(row, col)]
}

func (b *Board) Set(row, col int, mark Mark) {
	b.cells[b.index(row, col)] = mark
}

func (b *Board) Clear(row, col int) {
	b.cells[b.index(row, col)] = MarkEmpty
}

func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < b.size && col < b.size
}

func (b Board) IsEmpty(row, col int) bool {
	return b.InBounds(row, col) && b.At(row, col) == MarkEmpty
}

func (b Board) CountEmpty() int {
	count := 0
	for _, cell := range b.cells {
		if cell == MarkEmpty {
			count++
		}
	}
	return count
}

func (b Board) StoneCount() int {
	return len(b.cells) - b.CountEmpty()
}

func (b Board) IsFull() bool {
	return b.CountEmpty() == 0
}

func (b Board) Size() int {
	return b.size
}

func (b Board) Clone() Board {
	clone := Board{size: b.size}
	clone.cells = make([]Mark, len(b.cells))
	copy(clone.cells, b.cells)
	return clone
}

func (b Board) Rows() [][]Mark {
	rows := make([][]Mark, b.size)
	for row := 0; row < b.size; row++ {
		rows[row] = append([]Mark(nil), b.cells[row*b.size:(row+1)*b.size]...)
	}
	return rows
}

// Ints is the inverse of BoardFromInts.
func (b Board) Ints() [][]int {
	rows := make([][]int, b.size)
	for row := 0; row < b.size; row++ {
		rows[row] = make([]int, b.size)
		for col := 0; col < b.size; col++ {
			rows[row][col] = int(b.At(row, col))
		}
	}
	return rows
}

func (b Board) index(row, col int) int {
	return row*b.size + col
}
