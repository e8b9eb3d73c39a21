package engine

// CandidatePositions returns every empty cell within Chebyshev distance
// radius of an occupied cell, in row-major order. An empty board yields nil.
//
// Cells far from all stones are never considered, so tactics on an
// untouched region of the board are invisible to the search.
func CandidatePositions(board Board, radius int) []Position {
	size := board.Size()
	if size == 0 || radius < 0 {
		return nil
	}
	return candidatesInto(board, radius, make([]bool, size*size), nil)
}

func candidatesInto(board Board, radius int, near []bool, out []Position) []Position {
	size := board.size
	for i := range near {
		near[i] = false
	}
	stones := 0
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			if board.cells[row*size+col] == MarkEmpty {
				continue
			}
			stones++
			r0, r1 := clampRange(row-radius, row+radius, size)
			c0, c1 := clampRange(col-radius, col+radius, size)
			for r := r0; r <= r1; r++ {
				for c := c0; c <= c1; c++ {
					near[r*size+c] = true
				}
			}
		}
	}
	if stones == 0 {
		return out
	}
	for idx, ok := range near {
		if ok && board.cells[idx] == MarkEmpty {
			out = append(out, Position{Row: idx / size, Col: idx % size})
		}
	}
	return out
}

// EmptyPositions lists all empty cells in row-major order.
func EmptyPositions(board Board) []Position {
	size := board.Size()
	moves := make([]Position, 0, board.CountEmpty())
	for idx, cell := range board.cells {
		if cell == MarkEmpty {
			moves = append(moves, Position{Row: idx / size, Col: idx % size})
		}
	}
	return moves
}

func clampRange(lo, hi, size int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi >= size {
		hi = size - 1
	}
	return lo, hi
}
