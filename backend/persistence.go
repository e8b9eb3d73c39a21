package main

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"gomokubot/engine"
)

var dockerSnapshotDir = "/cache_logs"

type roomSnapshot struct {
	SavedAt time.Time
	Rooms   []roomRecord
}

type roomRecord struct {
	ID            string
	Cells         [][]int
	Difficulty    int
	WinLength     int
	ToMove        int
	Status        string
	WinningLine   []engine.Position
	History       []HistoryEntry
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TurnStartedAt time.Time
}

func recordFromRoom(room Room) roomRecord {
	return roomRecord{
		ID:            room.ID,
		Cells:         room.Board.Ints(),
		Difficulty:    int(room.Difficulty),
		WinLength:     room.WinLength,
		ToMove:        int(room.ToMove),
		Status:        string(room.Status),
		WinningLine:   room.WinningLine,
		History:       room.History,
		Version:       room.Version,
		CreatedAt:     room.CreatedAt,
		UpdatedAt:     room.UpdatedAt,
		TurnStartedAt: room.TurnStartedAt,
	}
}

func (r roomRecord) room() (Room, error) {
	board, err := engine.BoardFromInts(r.Cells)
	if err != nil {
		return Room{}, fmt.Errorf("room %s: %w", r.ID, err)
	}
	return Room{
		ID:            r.ID,
		Board:         board,
		Difficulty:    engine.Difficulty(r.Difficulty),
		WinLength:     r.WinLength,
		ToMove:        engine.Mark(r.ToMove),
		Status:        RoomStatus(r.Status),
		WinningLine:   r.WinningLine,
		History:       r.History,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		TurnStartedAt: r.TurnStartedAt,
	}, nil
}

// persistRooms writes every room to path. An empty path disables it.
func persistRooms(ctx context.Context, store RoomStore, path string, logger zerolog.Logger) error {
	if path == "" {
		logger.Info().Msg("stored room snapshot: 0 rooms (no path)")
		return nil
	}
	rooms, err := store.List(ctx)
	if err != nil {
		return err
	}
	path = resolveSnapshotPath(path)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create snapshot directory %s: %w", dir, err)
		}
	}
	snapshot := roomSnapshot{SavedAt: time.Now(), Rooms: make([]roomRecord, 0, len(rooms))}
	for _, room := range rooms {
		snapshot.Rooms = append(snapshot.Rooms, recordFromRoom(room))
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create room snapshot %s: %w", path, err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(&snapshot); err != nil {
		return fmt.Errorf("failed to encode room snapshot %s: %w", path, err)
	}
	logger.Info().Str("path", path).Int("rooms", len(snapshot.Rooms)).Msg("stored room snapshot")
	return nil
}

// loadPersistedRooms restores rooms saved by persistRooms. A missing file
// is not an error.
func loadPersistedRooms(ctx context.Context, store RoomStore, path string, logger zerolog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	path = resolveSnapshotPath(path)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info().Str("path", path).Msg("restored room snapshot: 0 rooms (file not found)")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open room snapshot %s: %w", path, err)
	}
	defer file.Close()

	var snapshot roomSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return 0, fmt.Errorf("failed to decode room snapshot %s: %w", path, err)
	}
	restored := 0
	for _, record := range snapshot.Rooms {
		room, err := record.room()
		if err != nil {
			logger.Warn().Err(err).Msg("skipping corrupt room")
			continue
		}
		if err := store.Create(ctx, room); err != nil {
			logger.Warn().Err(err).Str("room", room.ID).Msg("skipping room")
			continue
		}
		restored++
	}
	logger.Info().Str("path", path).Int("rooms", restored).Time("saved_at", snapshot.SavedAt).Msg("restored room snapshot")
	return restored, nil
}

func resolveSnapshotPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if stat, err := os.Stat(dockerSnapshotDir); err == nil && stat.IsDir() {
		return filepath.Join(dockerSnapshotDir, path)
	}
	return path
}
