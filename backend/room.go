package main

import (
	"time"

	"gomokubot/engine"
)

type RoomStatus string

const (
	RoomRunning   RoomStatus = "running"
	RoomBotWon    RoomStatus = "bot_won"
	RoomPlayerWon RoomStatus = "player_won"
	RoomDraw      RoomStatus = "draw"
)

type HistoryEntry struct {
	Position  engine.Position
	Mark      engine.Mark
	ElapsedMs float64
}

// Room is one game between a human seat and the bot. The store hands out
// copies; only CommitMove mutates the stored value.
type Room struct {
	ID            string
	Board         engine.Board
	Difficulty    engine.Difficulty
	WinLength     int
	ToMove        engine.Mark
	Status        RoomStatus
	WinningLine   []engine.Position
	History       []HistoryEntry
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TurnStartedAt time.Time
}

func newRoom(id string, size int, difficulty engine.Difficulty, winLength int, first engine.Mark, now time.Time) Room {
	return Room{
		ID:            id,
		Board:         engine.NewBoard(size),
		Difficulty:    difficulty,
		WinLength:     winLength,
		ToMove:        first,
		Status:        RoomRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
		TurnStartedAt: now,
	}
}

func (r Room) Clone() Room {
	out := r
	out.Board = r.Board.Clone()
	out.WinningLine = append([]engine.Position(nil), r.WinningLine...)
	out.History = append([]HistoryEntry(nil), r.History...)
	return out
}

func (r Room) LastMove() *engine.Position {
	if len(r.History) == 0 {
		return nil
	}
	pos := r.History[len(r.History)-1].Position
	return &pos
}

func (r Room) Finished() bool {
	return r.Status != RoomRunning
}

// RoomUpdate is pushed to subscribers after every change. It always carries
// the full room so a subscriber that missed updates can resync.
type RoomUpdate struct {
	Type string
	Room Room
}

const (
	updateMove    = "move"
	updateDeleted = "deleted"
)
