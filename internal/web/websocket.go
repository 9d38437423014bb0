package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const pingPeriod = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Subscribe before the first snapshot so no change is missed in between
	updates := s.model.Subscribe()
	defer s.model.Unsubscribe(updates)

	// Drain client frames so close and pong messages are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send initial state
	if err := s.writeState(conn, s.stateResponse(s.model.Snapshot())); err != nil {
		s.logger.Error("Failed to write WebSocket message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeState(conn, s.stateResponse(st)); err != nil {
				s.logger.Error("Failed to write WebSocket message: %v", err)
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return

		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func (s *Server) writeState(conn *websocket.Conn, resp *StateResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal state: %v", err)
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
