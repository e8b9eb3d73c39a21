package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// serveRoomWS streams a room snapshot followed by every update. Clients may
// send {"type":"request_status"} to get a fresh snapshot.
func serveRoomWS(store RoomStore, roomID string, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	room, err := store.Get(ctx, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	updates, err := store.SubscribeToRoomChanges(ctx, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	send := make(chan []byte, subscriberBuffer)
	refresh := make(chan struct{}, 1)
	enqueue(send, wsMessage{Type: "status", Payload: mustMarshal(roomToDTO(room))})

	go func() {
		defer close(send)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				enqueue(send, wsMessage{Type: update.Type, Payload: mustMarshal(roomToDTO(update.Room))})
			case <-refresh:
				current, err := store.Get(ctx, roomID)
				if err != nil {
					return
				}
				enqueue(send, wsMessage{Type: "status", Payload: mustMarshal(roomToDTO(current))})
			}
		}
	}()

	go func() {
		defer conn.Close()
		_ = writeWSWithHeartbeat(conn, send)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "request_status" {
			select {
			case refresh <- struct{}{}:
			default:
			}
		}
	}
}

func enqueue(send chan<- []byte, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case send <- data:
	default:
	}
}

// writeWSWithHeartbeat drains send into conn and pings after
// wsIdlePingInterval without traffic. It returns when send is closed.
func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	write := func(data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
		lastWrite = time.Now()
		return nil
	}

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return nil
			}
			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := write(pingPayload); err != nil {
				return err
			}
		}
	}
}
