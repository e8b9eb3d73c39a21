package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// bruteForce is minimax without pruning over the same candidate set and
// base cases as the searcher.
func bruteForce(board *Board, cfg Config, depth int, maximizing bool, nodes *int64) int {
	*nodes++
	score := Evaluate(*board, cfg)
	if isWinSentinel(score, cfg.WinScore) {
		return adjustForDepth(score, depth)
	}
	if depth <= 0 {
		return score
	}
	moves := CandidatePositions(*board, cfg.CandidateRadius)
	if len(moves) == 0 {
		return score
	}
	mark := MarkPlayer
	best := scorePosInf
	if maximizing {
		mark = MarkBot
		best = scoreNegInf
	}
	for _, pos := range moves {
		board.Set(pos.Row, pos.Col, mark)
		value := bruteForce(board, cfg, depth-1, !maximizing, nodes)
		board.Clear(pos.Row, pos.Col)
		if maximizing && value > best {
			best = value
		}
		if !maximizing && value < best {
			best = value
		}
	}
	return best
}

func bruteForceRoot(board Board, cfg Config, depth int) (Position, int, int64) {
	work := board.Clone()
	var nodes int64
	bestMove := Position{}
	bestScore := scoreNegInf
	found := false
	for _, pos := range CandidatePositions(work, cfg.CandidateRadius) {
		work.Set(pos.Row, pos.Col, MarkBot)
		score := bruteForce(&work, cfg, depth-1, false, &nodes)
		work.Clear(pos.Row, pos.Col)
		if !found || score > bestScore {
			bestMove, bestScore, found = pos, score, true
		}
	}
	return bestMove, bestScore, nodes
}

type searchCase struct {
	name    string
	size    int
	win     int
	bots    []Position
	players []Position
}

var equivalenceCases = []searchCase{
	{name: "quiet opening", size: 7, win: 5, bots: []Position{{3, 3}}, players: []Position{{3, 4}}},
	{name: "player three", size: 7, win: 5, bots: []Position{{2, 2}, {4, 4}}, players: []Position{{3, 1}, {3, 2}, {3, 3}}},
	{name: "bot three", size: 7, win: 5, bots: []Position{{1, 1}, {2, 2}, {3, 3}}, players: []Position{{1, 2}, {5, 5}}},
	{name: "short lines", size: 6, win: 4, bots: []Position{{2, 2}, {2, 3}}, players: []Position{{3, 2}, {3, 3}}},
	{name: "forced loss", size: 6, win: 4, bots: []Position{{0, 0}}, players: []Position{{2, 1}, {2, 2}, {2, 3}}},
}

func TestAlphaBetaMatchesBruteForce(t *testing.T) {
	for _, tc := range equivalenceCases {
		for _, depth := range []int{1, 2, 3} {
			for _, cacheSize := range []int{0, 1 << 12} {
				cfg := DefaultConfig()
				cfg.WinLength = tc.win
				cfg.EvalCacheSize = cacheSize
				cfg.QuickWinExit = false
				board := boardWith(t, tc.size, tc.bots, tc.players)

				wantMove, wantScore, bruteNodes := bruteForceRoot(board, cfg, depth)

				stats := SearchStats{Start: time.Now()}
				work := board.Clone()
				s := newSearcher(context.Background(), &work, cfg, &stats)
				gotMove, gotScore, ok := s.searchRoot(CandidatePositions(work, cfg.CandidateRadius), depth)

				require.True(t, ok, "%s depth=%d", tc.name, depth)
				require.Equal(t, wantMove, gotMove, "%s depth=%d cache=%d", tc.name, depth, cacheSize)
				require.Equal(t, wantScore, gotScore, "%s depth=%d cache=%d", tc.name, depth, cacheSize)
				require.LessOrEqual(t, stats.Nodes, bruteNodes, "%s depth=%d: pruning visited more nodes", tc.name, depth)
				require.Equal(t, board.Ints(), work.Ints(), "%s depth=%d: board not restored", tc.name, depth)
			}
		}
	}
}

func TestAlphaBetaPrunesAtDepthThree(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuickWinExit = false
	tc := equivalenceCases[1]
	board := boardWith(t, tc.size, tc.bots, tc.players)
	stats := SearchStats{Start: time.Now()}
	s := newSearcher(context.Background(), &board, cfg, &stats)
	_, _, ok := s.searchRoot(CandidatePositions(board, cfg.CandidateRadius), 3)
	require.True(t, ok)
	require.Positive(t, stats.Cutoffs)
}

func TestSearchRestoresBoardAfterAbort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuickWinExit = false
	cfg.MaxNodes = 1
	board := boardWith(t, 9, []Position{{4, 4}, {3, 3}}, []Position{{4, 5}, {5, 5}})
	before := board.Ints()

	stats := SearchStats{Start: time.Now()}
	s := newSearcher(context.Background(), &board, cfg, &stats)
	s.searchRoot(CandidatePositions(board, cfg.CandidateRadius), 5)

	require.True(t, s.aborted)
	require.Equal(t, before, board.Ints())
	require.Equal(t, GetZobrist(9).Hash(board), s.hash)
}

func TestAdjustForDepthPrefersFasterResults(t *testing.T) {
	require.Greater(t, adjustForDepth(10000, 2), adjustForDepth(10000, 0))
	require.Less(t, adjustForDepth(-10000, 2), adjustForDepth(-10000, 0))
}

func TestZobristIncrementalMatchesFullHash(t *testing.T) {
	board := boardWith(t, 7, []Position{{1, 1}}, []Position{{2, 2}})
	z := GetZobrist(7)
	hash := z.Hash(board)
	board.Set(3, 3, MarkBot)
	hash ^= z.stone(3, 3, MarkBot)
	require.Equal(t, z.Hash(board), hash)
	board.Clear(3, 3)
	hash ^= z.stone(3, 3, MarkBot)
	require.Equal(t, z.Hash(board), hash)
	require.NotEqual(t, z.stone(3, 3, MarkBot), z.stone(3, 3, MarkPlayer))
}

func TestEvalCacheOverwritesOnCollision(t *testing.T) {
	ec := NewEvalCache(4)
	ec.Put(1, 10)
	score, ok := ec.Get(1)
	require.True(t, ok)
	require.Equal(t, 10, score)

	ec.Put(5, 20)
	_, ok = ec.Get(1)
	require.False(t, ok)
	score, ok = ec.Get(5)
	require.True(t, ok)
	require.Equal(t, 20, score)

	var disabled *EvalCache
	disabled.Put(1, 1)
	_, ok = disabled.Get(1)
	require.False(t, ok)
}

func TestCheckIntervalShrinksOnLargeBoards(t *testing.T) {
	require.Equal(t, int64(stopCheckInterval), checkInterval(9))
	require.Equal(t, int64(stopCheckInterval), checkInterval(15))
	require.Less(t, checkInterval(25), int64(stopCheckInterval))
	require.Equal(t, int64(368), checkInterval(25))
	require.Equal(t, int64(1), checkInterval(500))
}
