package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/contrib/websocket"
)

// Hub fans committed ledger events out to every connected websocket client.
type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			logger.Logger.Debug().Int("clients", h.ClientCount()).Msg("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Publish encodes v and queues it for broadcast without blocking the caller.
// A nil hub discards the event.
func (h *Hub) Publish(v any) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(v)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("ws: encode event")
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Logger.Warn().Msg("ws: broadcast queue full, event dropped")
	}
}

// Serve registers conn and blocks reading from it until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	if !h.register(conn) {
		return
	}
	defer h.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// register hands conn to Run, or reports false once Run has stopped.
func (h *Hub) register(conn *websocket.Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}
