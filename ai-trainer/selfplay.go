package main

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"gomokubot/engine"
)

const (
	sideDraw = iota
	sideBlack
	sideWhite
)

type gameOutcome struct {
	Winner int
	Moves  int
}

// Black is stored as MarkBot and white as MarkPlayer. Each side's engine
// sees the board from its own perspective, so white gets a swapped copy.
func (t *trainer) playConfiguredGame(ctx context.Context, black, white engine.ScoreTiers, opening []engine.Position) (gameOutcome, error) {
	players := [2]*engine.Engine{t.engineFor(black), t.engineFor(white)}
	marks := [2]engine.Mark{engine.MarkBot, engine.MarkPlayer}
	winLength := t.baseConfig.WinLength

	board := engine.NewBoard(t.boardSize)
	side := 0
	moves := 0
	var last *engine.Position
	for _, pos := range opening {
		if !board.IsEmpty(pos.Row, pos.Col) {
			continue
		}
		board.Set(pos.Row, pos.Col, marks[side])
		moves++
		p := pos
		last = &p
		side ^= 1
	}

	for !board.IsFull() {
		if err := ctx.Err(); err != nil {
			return gameOutcome{}, err
		}
		view := board
		if side == 1 {
			view = swapPerspective(board)
		}
		result, err := players[side].ChooseMove(ctx, engine.Request{
			Board:      view,
			LastMove:   last,
			Difficulty: engine.DifficultyMedium,
		})
		if err != nil {
			return gameOutcome{}, err
		}
		if !result.Found {
			break
		}
		pos := result.Position
		board.Set(pos.Row, pos.Col, marks[side])
		moves++
		if engine.IsWin(board, pos, winLength) {
			return gameOutcome{Winner: sideBlack + side, Moves: moves}, nil
		}
		last = &pos
		side ^= 1
	}
	return gameOutcome{Winner: sideDraw, Moves: moves}, nil
}

func (t *trainer) engineFor(tiers engine.ScoreTiers) *engine.Engine {
	config := t.baseConfig
	config.Tiers = tiers
	return engine.NewEngine(
		engine.WithConfig(config),
		engine.WithSeed(t.rng.Uint64()),
		engine.WithLogger(zerolog.Nop()),
	)
}

func swapPerspective(board engine.Board) engine.Board {
	out := board.Clone()
	size := board.Size()
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			out.Set(r, c, board.At(r, c).Opponent())
		}
	}
	return out
}

// buildOpeningSuite returns count openings of distinct cells near the
// center. The suite depends only on board size, ply count and salt so every
// generation replays the same positions.
func (t *trainer) buildOpeningSuite(count int, salt uint64) [][]engine.Position {
	rng := rand.New(rand.NewSource(uint64(t.boardSize*97+t.openingPlies*13) + salt))
	center := t.boardSize / 2
	offsets := []engine.Position{
		{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 0, Col: 1}, {Row: -1, Col: 0}, {Row: 0, Col: -1},
		{Row: 1, Col: 1}, {Row: -1, Col: -1}, {Row: 1, Col: -1}, {Row: -1, Col: 1}, {Row: 2, Col: 0}, {Row: 0, Col: 2},
	}
	plies := t.openingPlies
	if plies > len(offsets) {
		plies = len(offsets)
	}
	suite := make([][]engine.Position, 0, count)
	for i := 0; i < count; i++ {
		used := map[engine.Position]bool{}
		opening := make([]engine.Position, 0, plies)
		for attempts := 0; len(opening) < plies && attempts < 1000; attempts++ {
			off := offsets[rng.Intn(len(offsets))]
			pos := engine.Position{Row: center + off.Row, Col: center + off.Col}
			if pos.Row < 0 || pos.Col < 0 || pos.Row >= t.boardSize || pos.Col >= t.boardSize {
				continue
			}
			if used[pos] {
				continue
			}
			used[pos] = true
			opening = append(opening, pos)
		}
		suite = append(suite, opening)
	}
	return suite
}
