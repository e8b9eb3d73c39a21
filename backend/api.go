package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gomokubot/engine"
)

const defaultRoomBoardSize = 15

type roomDTO struct {
	ID              string            `json:"id"`
	Board           [][]int           `json:"board"`
	BoardSize       int               `json:"board_size"`
	Difficulty      engine.Difficulty `json:"difficulty"`
	NextPlayer      string            `json:"next_player"`
	Status          RoomStatus        `json:"status"`
	WinningLine     []engine.Position `json:"winning_line"`
	History         []historyEntryDTO `json:"history"`
	LastMove        *engine.Position  `json:"last_move"`
	Version         int64             `json:"version"`
	TurnStartedAtMs int64             `json:"turn_started_at_ms"`
}

type historyEntryDTO struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Mark      string  `json:"mark"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

type createRoomRequest struct {
	BoardSize  int    `json:"board_size"`
	Difficulty string `json:"difficulty"`
	BotFirst   bool   `json:"bot_first"`
}

type createRoomResponse struct {
	Room  roomDTO `json:"room"`
	Token string  `json:"token"`
}

type api struct {
	rooms  *RoomService
	store  RoomStore
	engine *engine.Engine
	logger zerolog.Logger
}

func newRouter(a *api) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.GetConfig())
	})
	r.Post("/api/config", a.updateConfig)
	r.Post("/api/bot/move", a.botMove)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", a.createRoom)
		r.Get("/", a.listRooms)
		r.Get("/{id}", a.getRoom)
		r.Delete("/{id}", a.deleteRoom)
		r.Post("/{id}/moves", a.submitMove)
	})

	r.Get("/ws/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		serveRoomWS(a.store, chi.URLParam(r, "id"), w, r)
	})
	return r
}

// updateConfig applies a partial config: omitted fields keep their
// current values.
func (a *api) updateConfig(w http.ResponseWriter, r *http.Request) {
	config := engine.GetConfig()
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := engine.UpdateConfig(config); err != nil {
		writeError(w, err)
		return
	}
	a.logger.Info().Interface("config", config).Msg("engine config updated")
	writeJSON(w, http.StatusOK, config)
}

func (a *api) botMove(w http.ResponseWriter, r *http.Request) {
	var payload engine.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	req, err := payload.Request()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := a.engine.ChooseMove(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.NewMoveResponse(result))
}

func (a *api) createRoom(w http.ResponseWriter, r *http.Request) {
	var payload createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if payload.BoardSize == 0 {
		payload.BoardSize = defaultRoomBoardSize
	}
	difficulty, err := engine.ParseDifficulty(payload.Difficulty)
	if err != nil {
		writeError(w, err)
		return
	}
	room, token, err := a.rooms.CreateRoom(r.Context(), CreateRoomParams{
		BoardSize:  payload.BoardSize,
		Difficulty: difficulty,
		BotFirst:   payload.BotFirst,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{Room: roomToDTO(room), Token: token})
}

func (a *api) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.rooms.Rooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomToDTO(room))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := a.rooms.Room(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomToDTO(room))
}

func (a *api) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := a.rooms.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *api) submitMove(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, ErrInvalidToken)
		return
	}
	var pos engine.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	room, err := a.rooms.SubmitMove(r.Context(), chi.URLParam(r, "id"), token, pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomToDTO(room))
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func roomToDTO(room Room) roomDTO {
	history := make([]historyEntryDTO, 0, len(room.History))
	for _, entry := range room.History {
		history = append(history, historyEntryDTO{
			Row:       entry.Position.Row,
			Col:       entry.Position.Col,
			Mark:      entry.Mark.String(),
			ElapsedMs: entry.ElapsedMs,
		})
	}
	next := ""
	if !room.Finished() {
		next = room.ToMove.String()
	}
	return roomDTO{
		ID:              room.ID,
		Board:           room.Board.Ints(),
		BoardSize:       room.Board.Size(),
		Difficulty:      room.Difficulty,
		NextPlayer:      next,
		Status:          room.Status,
		WinningLine:     append([]engine.Position{}, room.WinningLine...),
		History:         history,
		LastMove:        room.LastMove(),
		Version:         room.Version,
		TurnStartedAtMs: room.TurnStartedAt.UnixMilli(),
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrRoomFinished), errors.Is(err, ErrCellOccupied), errors.Is(err, ErrRoomExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidBoard), errors.Is(err, engine.ErrPositionOutOfRange),
		errors.Is(err, engine.ErrUnknownDifficulty), errors.Is(err, engine.ErrInvalidConfig),
		errors.Is(err, ErrInvalidRoom):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
