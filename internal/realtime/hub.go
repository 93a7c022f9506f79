package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is the router's and hub's view of one client connection. *Client is
// the production implementation; tests substitute fakes.
type Conn interface {
	// ID is the connection identifier, unique per socket (not per user).
	ID() string
	// Identity returns the authenticated user behind the connection.
	Identity() Identity
	// Room returns the room code the connection is currently in, or "".
	Room() string
	// SetRoom records the connection's current room.
	SetRoom(code string)
	// Send queues an event for delivery. It must not block; a connection
	// with a full outbound buffer drops the frame.
	Send(event string, payload any)
}

// Sender is the fan-out surface the command router broadcasts through.
type Sender interface {
	Join(roomCode string, c Conn)
	Leave(roomCode, connID string)
	Broadcast(roomCode, event string, payload any)
	BroadcastExcept(roomCode, exceptConnID, event string, payload any)
	DropRoom(roomCode string)
}

// Hub tracks which connections are in which room and fans events out to them.
// It holds no room semantics of its own; the session registry is authoritative
// for membership, the hub only mirrors it for delivery.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Conn
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]Conn),
		logger: logger,
	}
}

// Join adds a connection to a room's delivery set.
func (h *Hub) Join(roomCode string, c Conn) {
	h.mu.Lock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]Conn)
	}
	h.rooms[roomCode][c.ID()] = c
	h.mu.Unlock()
	h.logger.Debug("connection joined room",
		zap.String("conn_id", c.ID()),
		zap.String("room_code", roomCode),
	)
}

// Leave removes a connection from a room's delivery set.
func (h *Hub) Leave(roomCode, connID string) {
	h.mu.Lock()
	if m, ok := h.rooms[roomCode]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("connection left room",
		zap.String("conn_id", connID),
		zap.String("room_code", roomCode),
	)
}

// DropRoom removes a room's entire delivery set (forced destruction).
func (h *Hub) DropRoom(roomCode string) {
	h.mu.Lock()
	delete(h.rooms, roomCode)
	h.mu.Unlock()
}

// Broadcast sends an event to every connection in the room.
func (h *Hub) Broadcast(roomCode, event string, payload any) {
	h.BroadcastExcept(roomCode, "", event, payload)
}

// BroadcastExcept sends an event to every connection in the room except the
// one with exceptConnID (pass "" to exclude no one).
func (h *Hub) BroadcastExcept(roomCode, exceptConnID, event string, payload any) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.rooms[roomCode]))
	for id, c := range h.rooms[roomCode] {
		if id == exceptConnID {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Send(event, payload)
	}
}

// RoomSize returns the number of connections registered in a room.
func (h *Hub) RoomSize(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
