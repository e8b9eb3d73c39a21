package engine

import "sort"

// WinningLine returns the run of at least winLength same-mark stones that
// passes through pos, or nil when the stone at pos does not win.
func WinningLine(board Board, pos Position, winLength int) []Position {
	if !pos.IsValid(board.Size()) {
		return nil
	}
	mark := board.At(pos.Row, pos.Col)
	if mark == MarkEmpty {
		return nil
	}
	for _, dir := range windowDirections {
		line := []Position{pos}
		for _, sign := range [2]int{-1, 1} {
			r := pos.Row + sign*dir[0]
			c := pos.Col + sign*dir[1]
			for board.InBounds(r, c) && board.At(r, c) == mark {
				line = append(line, Position{Row: r, Col: c})
				r += sign * dir[0]
				c += sign * dir[1]
			}
		}
		if len(line) >= winLength {
			return sortLine(line)
		}
	}
	return nil
}

func IsWin(board Board, pos Position, winLength int) bool {
	return WinningLine(board, pos, winLength) != nil
}

func sortLine(line []Position) []Position {
	sort.Slice(line, func(i, j int) bool {
		if line[i].Row != line[j].Row {
			return line[i].Row < line[j].Row
		}
		return line[i].Col < line[j].Col
	})
	return line
}
