package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gomokubot/engine"
)

// RoomStore holds live rooms and notifies subscribers of committed moves.
type RoomStore interface {
	Create(ctx context.Context, room Room) error
	Get(ctx context.Context, roomID string) (Room, error)
	List(ctx context.Context) ([]Room, error)
	Delete(ctx context.Context, roomID string) error
	CommitMove(ctx context.Context, roomID string, position engine.Position, mark engine.Mark) error
	// SubscribeToRoomChanges streams updates until ctx is done or the room
	// is deleted, then closes the channel.
	SubscribeToRoomChanges(ctx context.Context, roomID string) (<-chan RoomUpdate, error)
}

const subscriberBuffer = 16

type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	hubs  map[string]*Hub
	now   func() time.Time
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms: make(map[string]*Room),
		hubs:  make(map[string]*Hub),
		now:   time.Now,
	}
}

func (s *MemoryRoomStore) Create(ctx context.Context, room Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
	}
	stored := room.Clone()
	s.rooms[room.ID] = &stored
	s.hubs[room.ID] = NewHub()
	return nil
}

func (s *MemoryRoomStore) Get(ctx context.Context, roomID string) (Room, error) {
	if err := ctx.Err(); err != nil {
		return Room{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return Room{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return room.Clone(), nil
}

// List returns rooms oldest first.
func (s *MemoryRoomStore) List(ctx context.Context) ([]Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryRoomStore) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	hub := s.hubs[roomID]
	delete(s.rooms, roomID)
	delete(s.hubs, roomID)
	last := room.Clone()
	s.mu.Unlock()

	hub.Publish(RoomUpdate{Type: updateDeleted, Room: last})
	hub.Close()
	return nil
}

// CommitMove places mark at position if it is that mark's turn, then
// settles win or draw and notifies subscribers.
func (s *MemoryRoomStore) CommitMove(ctx context.Context, roomID string, position engine.Position, mark engine.Mark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if err := validateCommit(room, position, mark); err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.now()
	room.Board.Set(position.Row, position.Col, mark)
	room.History = append(room.History, HistoryEntry{
		Position:  position,
		Mark:      mark,
		ElapsedMs: float64(now.Sub(room.TurnStartedAt).Microseconds()) / 1000.0,
	})
	if line := engine.WinningLine(room.Board, position, room.WinLength); line != nil {
		room.WinningLine = line
		room.Status = RoomPlayerWon
		if mark == engine.MarkBot {
			room.Status = RoomBotWon
		}
	} else if room.Board.IsFull() {
		room.Status = RoomDraw
	} else {
		room.ToMove = mark.Opponent()
	}
	room.Version++
	room.UpdatedAt = now
	room.TurnStartedAt = now
	update := RoomUpdate{Type: updateMove, Room: room.Clone()}
	hub := s.hubs[roomID]
	s.mu.Unlock()

	hub.Publish(update)
	return nil
}

func validateCommit(room *Room, position engine.Position, mark engine.Mark) error {
	if room.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrRoomFinished, room.ID, room.Status)
	}
	if mark != room.ToMove {
		return fmt.Errorf("%w: %s to move", ErrNotYourTurn, room.ToMove)
	}
	if !position.IsValid(room.Board.Size()) {
		return fmt.Errorf("%w: %s on %dx%d board", engine.ErrPositionOutOfRange, position, room.Board.Size(), room.Board.Size())
	}
	if !room.Board.IsEmpty(position.Row, position.Col) {
		return fmt.Errorf("%w: %s", ErrCellOccupied, position)
	}
	return nil
}

func (s *MemoryRoomStore) SubscribeToRoomChanges(ctx context.Context, roomID string) (<-chan RoomUpdate, error) {
	s.mu.RLock()
	hub, ok := s.hubs[roomID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	client := newClient(subscriberBuffer)
	if !hub.Register(client) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	go func() {
		select {
		case <-ctx.Done():
			hub.Unregister(client)
		case <-hub.Done():
		}
	}()
	return client.send, nil
}
