package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(e *Engine)

// WithConfig pins the engine to config instead of the process-wide store.
func WithConfig(config Config) Option {
	return func(e *Engine) {
		c := config
		e.config = &c
	}
}

func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine picks bot moves. It holds no board state; every call works on its
// own copy, so one Engine may serve concurrent callers.
type Engine struct {
	config *Config
	rngMu  sync.Mutex
	rng    *rand.Rand
	logger zerolog.Logger
}

type Request struct {
	Board      Board
	LastMove   *Position
	Difficulty Difficulty
}

// Result is the selector's answer. Found is false only when the board has
// no empty cell left, which the caller treats as a draw.
type Result struct {
	Position Position    `json:"position"`
	Found    bool        `json:"found"`
	Score    int         `json:"score"`
	Depth    int         `json:"depth"`
	Stats    SearchStats `json:"stats"`
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rng:    rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config {
	if e.config != nil {
		return *e.config
	}
	return GetConfig()
}

func (e *Engine) ChooseMove(ctx context.Context, req Request) (Result, error) {
	config := e.Config()
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	size := req.Board.Size()

	if req.Board.StoneCount() == 0 {
		return Result{Position: center(size), Found: true}, nil
	}
	if req.Board.IsFull() {
		return Result{}, nil
	}
	if req.Difficulty == DifficultyEasy {
		return Result{Position: e.randomEmpty(req.Board), Found: true}, nil
	}

	depth := req.Difficulty.SearchDepth(config)
	stats := SearchStats{Start: time.Now(), Depth: depth}
	work := req.Board.Clone()
	s := newSearcher(ctx, &work, config, &stats)
	moves := CandidatePositions(work, config.CandidateRadius)
	if len(moves) == 0 {
		moves = EmptyPositions(work)
	}

	result := Result{Depth: depth}
	if config.QuickWinExit {
		if pos, ok := s.findQuickWin(moves); ok {
			stats.QuickWin = true
			result.Position = pos
			result.Found = true
			result.Score = adjustForDepth(config.WinScore, depth-1)
		}
	}
	if !result.Found {
		pos, score, ok := s.searchRoot(moves, depth)
		if !ok {
			// Budget ran out before the first candidate finished.
			pos, score = moves[0], 0
		}
		result.Position = pos
		result.Score = score
		result.Found = true
	}
	stats.Truncated = s.aborted
	stats.Elapsed = time.Since(stats.Start)
	result.Stats = stats

	if stats.Truncated {
		e.logger.Warn().
			Str("difficulty", req.Difficulty.String()).
			Int("completed", stats.RootCompleted).
			Int("candidates", stats.RootCandidates).
			Msg("search budget exhausted, returning best completed candidate")
	}
	if config.LogSearchStats {
		logSearchStats(e.logger, "choose", stats, result)
	}
	return result, nil
}

func (e *Engine) randomEmpty(board Board) Position {
	empty := EmptyPositions(board)
	e.rngMu.Lock()
	idx := e.rng.Intn(len(empty))
	e.rngMu.Unlock()
	return empty[idx]
}

func validateRequest(req Request) error {
	size := req.Board.Size()
	if size <= 0 || len(req.Board.cells) != size*size {
		return fmt.Errorf("%w: board must be a non-empty square", ErrInvalidBoard)
	}
	if !req.Difficulty.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDifficulty, int(req.Difficulty))
	}
	if req.LastMove != nil && !req.LastMove.IsValid(size) {
		return fmt.Errorf("%w: last move %s on %dx%d board", ErrPositionOutOfRange, req.LastMove, size, size)
	}
	return nil
}

var defaultEngine = NewEngine()

// SelectMove runs the default engine without a deadline. ok is false when
// the board is full.
func SelectMove(board Board, lastMove *Position, difficulty Difficulty) (Position, bool, error) {
	result, err := defaultEngine.ChooseMove(context.Background(), Request{
		Board:      board,
		LastMove:   lastMove,
		Difficulty: difficulty,
	})
	if err != nil {
		return Position{}, false, err
	}
	return result.Position, result.Found, nil
}
