package engine

import (
	"context"
	"math"
	"time"
)

const (
	scoreNegInf = math.MinInt
	scorePosInf = math.MaxInt

	// budgets are polled every stopCheckInterval nodes on boards up to
	// checkIntervalCells cells; larger boards poll proportionally more often
	stopCheckInterval  = 1024
	checkIntervalCells = 15 * 15
)

// searcher owns one mutable board for the duration of a search. Every
// speculative placement goes through withMove, which reverts on all exits.
type searcher struct {
	board       *Board
	config      Config
	zobrist     *ZobristTable
	hash        uint64
	cache       *EvalCache
	stats       *SearchStats
	ctx         context.Context
	deadline    time.Time
	hasDeadline bool
	aborted     bool
	checkEvery  int64
	near        []bool
	scratch     [][]Position
}

func newSearcher(ctx context.Context, board *Board, config Config, stats *SearchStats) *searcher {
	z := GetZobrist(board.Size())
	s := &searcher{
		board:   board,
		config:  config,
		zobrist: z,
		hash:    z.Hash(*board),
		cache:   NewEvalCache(config.EvalCacheSize),
		stats:   stats,
		ctx:     ctx,
		near:    make([]bool, board.Size()*board.Size()),

		checkEvery: checkInterval(board.Size()),
	}
	if config.SearchTimeBudgetMs > 0 {
		s.deadline = stats.Start.Add(time.Duration(config.SearchTimeBudgetMs) * time.Millisecond)
		s.hasDeadline = true
	}
	if d, ok := ctx.Deadline(); ok && (!s.hasDeadline || d.Before(s.deadline)) {
		s.deadline = d
		s.hasDeadline = true
	}
	return s
}

func (s *searcher) place(pos Position, mark Mark) {
	s.board.Set(pos.Row, pos.Col, mark)
	s.hash ^= s.zobrist.stone(pos.Row, pos.Col, mark)
}

func (s *searcher) undo(pos Position, mark Mark) {
	s.board.Clear(pos.Row, pos.Col)
	s.hash ^= s.zobrist.stone(pos.Row, pos.Col, mark)
}

func (s *searcher) withMove(pos Position, mark Mark, fn func() int) int {
	s.place(pos, mark)
	defer s.undo(pos, mark)
	return fn()
}

func (s *searcher) evaluate() int {
	s.stats.Evaluations++
	if s.cache != nil {
		s.stats.EvalCacheProbes++
		if score, ok := s.cache.Get(s.hash); ok {
			s.stats.EvalCacheHits++
			return score
		}
	}
	score := evaluateWindows(*s.board, s.config.WinLength, s.config.WinScore, s.config.Tiers)
	s.cache.Put(s.hash, score)
	return score
}

// candidates reuses one buffer per remaining depth; the slice is only
// valid until the next call at the same depth.
func (s *searcher) candidates(depth int) []Position {
	for len(s.scratch) <= depth {
		s.scratch = append(s.scratch, make([]Position, 0, 32))
	}
	out := candidatesInto(*s.board, s.config.CandidateRadius, s.near, s.scratch[depth][:0])
	s.scratch[depth] = out
	return out
}

func (s *searcher) shouldStop() bool {
	if s.aborted {
		return true
	}
	if s.stats.Nodes%s.checkEvery != 0 {
		return false
	}
	return s.checkBudget()
}

func checkInterval(size int) int64 {
	cells := size * size
	if cells <= checkIntervalCells {
		return stopCheckInterval
	}
	return max(1, int64(stopCheckInterval*checkIntervalCells/cells))
}

func (s *searcher) checkBudget() bool {
	if s.config.MaxNodes > 0 && s.stats.Nodes >= s.config.MaxNodes {
		s.aborted = true
	} else if s.ctx.Err() != nil {
		s.aborted = true
	} else if s.hasDeadline && time.Now().After(s.deadline) {
		s.aborted = true
	}
	return s.aborted
}

// minimax returns the bot-perspective score of the current board with
// depth plies left. Forced results are shifted by the remaining depth so a
// faster win (or slower loss) ranks higher.
func (s *searcher) minimax(depth, alpha, beta int, maximizing bool) int {
	s.stats.Nodes++
	score := s.evaluate()
	if isWinSentinel(score, s.config.WinScore) {
		return adjustForDepth(score, depth)
	}
	if depth <= 0 || s.shouldStop() {
		return score
	}
	moves := s.candidates(depth)
	if len(moves) == 0 {
		return score
	}
	if maximizing {
		best := scoreNegInf
		for _, pos := range moves {
			value := s.withMove(pos, MarkBot, func() int {
				return s.minimax(depth-1, alpha, beta, false)
			})
			if value > best {
				best = value
			}
			if best > alpha {
				alpha = best
			}
			if beta <= alpha {
				s.stats.Cutoffs++
				break
			}
			if s.aborted {
				break
			}
		}
		return best
	}
	best := scorePosInf
	for _, pos := range moves {
		value := s.withMove(pos, MarkPlayer, func() int {
			return s.minimax(depth-1, alpha, beta, true)
		})
		if value < best {
			best = value
		}
		if best < beta {
			beta = best
		}
		if beta <= alpha {
			s.stats.Cutoffs++
			break
		}
		if s.aborted {
			break
		}
	}
	return best
}

// searchRoot plays each candidate for the bot and searches the reply one
// ply down. The first candidate with the highest score wins ties.
func (s *searcher) searchRoot(moves []Position, depth int) (Position, int, bool) {
	bestMove := Position{}
	bestScore := scoreNegInf
	found := false
	alpha := scoreNegInf
	s.stats.RootCandidates = len(moves)
	for _, pos := range moves {
		if s.checkBudget() {
			break
		}
		score := s.withMove(pos, MarkBot, func() int {
			return s.minimax(depth-1, alpha, scorePosInf, false)
		})
		if s.aborted {
			// partial subtree, not comparable
			break
		}
		s.stats.RootCompleted++
		if !found || score > bestScore {
			bestMove = pos
			bestScore = score
			found = true
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}
	return bestMove, bestScore, found
}

// findQuickWin returns the first candidate that completes a bot line.
func (s *searcher) findQuickWin(moves []Position) (Position, bool) {
	for _, pos := range moves {
		score := s.withMove(pos, MarkBot, s.evaluate)
		if score >= s.config.WinScore {
			return pos, true
		}
	}
	return Position{}, false
}

func adjustForDepth(score, depth int) int {
	if score > 0 {
		return score + depth
	}
	return score - depth
}
