package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gomokubot/engine"
)

const maxRoomBoardSize = engine.MaxBoardSize

type CreateRoomParams struct {
	BoardSize  int
	Difficulty engine.Difficulty
	BotFirst   bool
}

// RoomService plays the bot side of every room. Player moves arrive via
// SubmitMove; bot replies are searched on a per-room Thinker and committed
// from Tick.
type RoomService struct {
	store  RoomStore
	engine *engine.Engine
	tokens *SeatTokens
	logger zerolog.Logger

	mu       sync.Mutex
	thinkers map[string]*engine.Thinker
}

func NewRoomService(store RoomStore, eng *engine.Engine, tokens *SeatTokens, logger zerolog.Logger) *RoomService {
	return &RoomService{
		store:    store,
		engine:   eng,
		tokens:   tokens,
		logger:   logger,
		thinkers: make(map[string]*engine.Thinker),
	}
}

// CreateRoom opens a room and returns it with the player's seat token. When
// the bot moves first its opening stone is already on the board.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, string, error) {
	if params.BoardSize < 1 || params.BoardSize > maxRoomBoardSize {
		return Room{}, "", fmt.Errorf("%w: board size must be within 1..%d, got %d", ErrInvalidRoom, maxRoomBoardSize, params.BoardSize)
	}
	if !params.Difficulty.Valid() {
		return Room{}, "", fmt.Errorf("%w: %d", engine.ErrUnknownDifficulty, int(params.Difficulty))
	}
	first := engine.MarkPlayer
	if params.BotFirst {
		first = engine.MarkBot
	}
	config := s.engine.Config()
	room := newRoom(uuid.NewString(), params.BoardSize, params.Difficulty, config.WinLength, first, time.Now())
	if err := s.store.Create(ctx, room); err != nil {
		return Room{}, "", err
	}
	token, err := s.tokens.Issue(room.ID, engine.MarkPlayer)
	if err != nil {
		s.discardRoom(ctx, room.ID)
		return Room{}, "", err
	}
	if params.BotFirst {
		result, err := s.engine.ChooseMove(ctx, engine.Request{Board: room.Board, Difficulty: room.Difficulty})
		if err != nil {
			s.discardRoom(ctx, room.ID)
			return Room{}, "", err
		}
		if err := s.store.CommitMove(ctx, room.ID, result.Position, engine.MarkBot); err != nil {
			s.discardRoom(ctx, room.ID)
			return Room{}, "", err
		}
	}
	s.logger.Info().
		Str("room", room.ID).
		Int("size", params.BoardSize).
		Str("difficulty", params.Difficulty.String()).
		Bool("bot_first", params.BotFirst).
		Msg("room created")
	created, err := s.store.Get(ctx, room.ID)
	return created, token, err
}

func (s *RoomService) SubmitMove(ctx context.Context, roomID, token string, position engine.Position) (Room, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Room{}, err
	}
	if claims.RoomID != roomID || claims.Mark != engine.MarkPlayer {
		return Room{}, fmt.Errorf("%w: token is not for this seat", ErrInvalidToken)
	}
	if err := s.store.CommitMove(ctx, roomID, position, engine.MarkPlayer); err != nil {
		return Room{}, err
	}
	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	s.logMove(room, false)
	return room, nil
}

func (s *RoomService) Room(ctx context.Context, roomID string) (Room, error) {
	return s.store.Get(ctx, roomID)
}

func (s *RoomService) Rooms(ctx context.Context) ([]Room, error) {
	return s.store.List(ctx)
}

// DeleteRoom removes the room and its thinker under s.mu, so a concurrent
// Tick cannot start a new search for it.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	err := s.store.Delete(ctx, roomID)
	thinker, ok := s.thinkers[roomID]
	delete(s.thinkers, roomID)
	s.mu.Unlock()
	if ok {
		thinker.Stop()
	}
	return err
}

// discardRoom drops a room whose creation failed half way. It runs even when
// ctx is already cancelled.
func (s *RoomService) discardRoom(ctx context.Context, roomID string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), roomID); err != nil && !errors.Is(err, ErrRoomNotFound) {
		s.logger.Error().Err(err).Str("room", roomID).Msg("failed to discard room")
	}
}

// Tick advances every room waiting on the bot: it collects finished
// searches and starts new ones. It reports whether any move was committed.
func (s *RoomService) Tick(ctx context.Context) bool {
	rooms, err := s.store.List(ctx)
	if err != nil {
		return false
	}
	applied := false
	for _, room := range rooms {
		if room.Finished() {
			s.dropThinker(room.ID)
			continue
		}
		if room.ToMove != engine.MarkBot {
			continue
		}
		thinker, ok := s.thinkerFor(ctx, room.ID)
		if !ok {
			continue
		}
		if thinker.HasMoveReady() {
			if s.commitBotMove(ctx, room, thinker) {
				applied = true
			}
			continue
		}
		if !thinker.IsThinking() {
			thinker.StartThinking(ctx, engine.Request{
				Board:      room.Board,
				LastMove:   room.LastMove(),
				Difficulty: room.Difficulty,
			})
		}
	}
	return applied
}

func (s *RoomService) commitBotMove(ctx context.Context, room Room, thinker *engine.Thinker) bool {
	result, err := thinker.TakeMove()
	if err != nil {
		s.logger.Error().Err(err).Str("room", room.ID).Msg("bot search failed")
		return false
	}
	if !result.Found {
		return false
	}
	if err := s.store.CommitMove(ctx, room.ID, result.Position, engine.MarkBot); err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			s.logger.Error().Err(err).Str("room", room.ID).Stringer("move", result.Position).Msg("bot move rejected")
		}
		return false
	}
	updated, err := s.store.Get(ctx, room.ID)
	if err == nil {
		s.logMove(updated, true)
	}
	return true
}

// thinkerFor returns the room's thinker, creating it on first use. ok is
// false once the room is gone.
func (s *RoomService) thinkerFor(ctx context.Context, roomID string) (*engine.Thinker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if thinker, ok := s.thinkers[roomID]; ok {
		return thinker, true
	}
	if _, err := s.store.Get(ctx, roomID); err != nil {
		return nil, false
	}
	thinker := engine.NewThinker(s.engine)
	s.thinkers[roomID] = thinker
	return thinker, true
}

func (s *RoomService) dropThinker(roomID string) {
	s.mu.Lock()
	thinker, ok := s.thinkers[roomID]
	delete(s.thinkers, roomID)
	s.mu.Unlock()
	if ok {
		thinker.Stop()
	}
}

// Close stops all running searches.
func (s *RoomService) Close() {
	s.mu.Lock()
	thinkers := s.thinkers
	s.thinkers = make(map[string]*engine.Thinker)
	s.mu.Unlock()
	for _, thinker := range thinkers {
		thinker.Stop()
	}
}

func (s *RoomService) logMove(room Room, isBot bool) {
	if len(room.History) == 0 {
		return
	}
	last := room.History[len(room.History)-1]
	event := s.logger.Info().
		Str("room", room.ID).
		Int("move", len(room.History)).
		Stringer("mark", last.Mark).
		Stringer("pos", last.Position).
		Float64("elapsed_ms", last.ElapsedMs).
		Bool("bot", isBot)
	if room.Finished() {
		event = event.Str("status", string(room.Status))
	}
	event.Msg("move played")
}
