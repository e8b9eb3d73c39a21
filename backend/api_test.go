package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gomokubot/engine"
)

func newTestServer(t *testing.T) (*httptest.Server, *RoomService) {
	t.Helper()
	svc, store := newTestService(t)
	srv := httptest.NewServer(newRouter(&api{
		rooms:  svc,
		store:  store,
		engine: svc.engine,
		logger: zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]bool
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/ping", "", nil, &body))
	require.True(t, body["ok"])
}

func TestBotMoveEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	empty := engine.NewBoard(9)
	var resp engine.MoveResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      empty.Ints(),
		Difficulty: "hard",
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Move)
	require.Equal(t, engine.Position{Row: 4, Col: 4}, *resp.Move)

	board := engine.NewBoard(9)
	for col := 5; col <= 8; col++ {
		board.Set(4, col, engine.MarkPlayer)
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      board.Ints(),
		LastMove:   &engine.Position{Row: 4, Col: 8},
		Difficulty: "medium",
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, engine.Position{Row: 4, Col: 4}, *resp.Move)
}

func TestBotMoveEndpointFullBoard(t *testing.T) {
	srv, _ := newTestServer(t)
	board := [][]int{{1, 2}, {2, 1}}
	var resp engine.MoveResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{Board: board, Difficulty: "easy"}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Move)
}

func TestBotMoveEndpointRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string

	status := doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      [][]int{{0, 0}, {0}},
		Difficulty: "easy",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      engine.NewBoard(3).Ints(),
		Difficulty: "impossible",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "difficulty")

	status = doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      engine.NewBoard(3).Ints(),
		LastMove:   &engine.Position{Row: 3, Col: 0},
		Difficulty: "easy",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestBotMoveEndpointRejectsOversizedBoard(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/api/bot/move", "", engine.MoveRequest{
		Board:      engine.NewBoard(engine.MaxBoardSize + 1).Ints(),
		Difficulty: "medium",
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "exceeds")
}

func TestConfigEndpointRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)
	before := engine.GetConfig()
	var body map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/api/config", "", map[string]int{"candidate_radius": 0}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, before, engine.GetConfig())

	var cfg engine.Config
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/config", "", nil, &cfg))
	require.Equal(t, before, cfg)
}

func TestRoomLifecycle(t *testing.T) {
	srv, svc := newTestServer(t)

	var created createRoomResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/rooms", "", createRoomRequest{BoardSize: 9, Difficulty: "easy"}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.Token)
	require.Equal(t, "player", created.Room.NextPlayer)
	roomURL := srv.URL + "/api/rooms/" + created.Room.ID

	var errBody map[string]string
	status = doJSON(t, http.MethodPost, roomURL+"/moves", "", engine.Position{Row: 2, Col: 2}, &errBody)
	require.Equal(t, http.StatusUnauthorized, status)

	var room roomDTO
	status = doJSON(t, http.MethodPost, roomURL+"/moves", created.Token, engine.Position{Row: 2, Col: 2}, &room)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "bot", room.NextPlayer)
	require.Equal(t, 2, room.Board[2][2])

	status = doJSON(t, http.MethodPost, roomURL+"/moves", created.Token, engine.Position{Row: 3, Col: 3}, &errBody)
	require.Equal(t, http.StatusConflict, status)

	tickUntilMove(t, svc)
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, roomURL, "", nil, &room))
	require.Len(t, room.History, 2)
	require.Equal(t, "player", room.NextPlayer)

	var rooms []roomDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/rooms", "", nil, &rooms))
	require.Len(t, rooms, 1)

	var deleted map[string]bool
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, roomURL, "", nil, &deleted))
	require.True(t, deleted["deleted"])
	require.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, roomURL, "", nil, &errBody))
}

func TestRoomWebsocketStreamsMoves(t *testing.T) {
	srv, svc := newTestServer(t)
	var created createRoomResponse
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/api/rooms", "", createRoomRequest{BoardSize: 9, Difficulty: "easy"}, &created))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/" + created.Room.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() (wsMessage, roomDTO) {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		var room roomDTO
		require.NoError(t, json.Unmarshal(msg.Payload, &room))
		return msg, room
	}

	msg, room := readMessage()
	require.Equal(t, "status", msg.Type)
	require.Equal(t, created.Room.ID, room.ID)

	_, err = svc.SubmitMove(context.Background(), created.Room.ID, created.Token, engine.Position{Row: 1, Col: 1})
	require.NoError(t, err)
	msg, room = readMessage()
	require.Equal(t, updateMove, msg.Type)
	require.Equal(t, 2, room.Board[1][1])

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "request_status"}))
	msg, _ = readMessage()
	require.Contains(t, []string{"status", updateMove}, msg.Type)
}

func TestRoomWebsocketUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
