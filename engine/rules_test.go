package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWinningLineFindsRunThroughMove(t *testing.T) {
	b := NewBoard(9)
	for i := 0; i < 5; i++ {
		b.Set(6-i, 1+i, MarkPlayer)
	}
	line := WinningLine(b, Position{Row: 4, Col: 3}, 5)
	require.Equal(t, []Position{{2, 5}, {3, 4}, {4, 3}, {5, 2}, {6, 1}}, line)
	require.True(t, IsWin(b, Position{Row: 6, Col: 1}, 5))
}

func TestWinningLineShortOrEmpty(t *testing.T) {
	b := boardWith(t, 9, row(0, 0, 1, 2, 3), nil)
	require.Nil(t, WinningLine(b, Position{Row: 0, Col: 0}, 5))
	require.NotNil(t, WinningLine(b, Position{Row: 0, Col: 0}, 4))
	require.Nil(t, WinningLine(b, Position{Row: 5, Col: 5}, 5))
	require.Nil(t, WinningLine(b, Position{Row: -1, Col: 0}, 5))
}
