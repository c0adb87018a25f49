package ws

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub tracks the live connections of every room owned by this process and fans messages out to them.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Connection]struct{} // room_id -> connections
	logger zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Connection]struct{}),
		logger: logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a connection to a room.
func (h *Hub) Register(roomID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		conns = make(map[*Connection]struct{})
		h.rooms[roomID] = conns
	}
	conns[conn] = struct{}{}
	connectionsGauge.WithLabelValues(string(conn.Role())).Inc()

	h.logger.Debug().
		Str("room_id", roomID).
		Str("conn_id", conn.ID()).
		Str("role", string(conn.Role())).
		Int("room_connections", len(conns)).
		Msg("connection registered")
}

// Unregister removes and closes a connection. It is safe to call any number of times and
// reports whether this call removed it.
func (h *Hub) Unregister(roomID string, conn *Connection) bool {
	h.mu.Lock()
	removed := false
	if conns, ok := h.rooms[roomID]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			removed = true
			connectionsGauge.WithLabelValues(string(conn.Role())).Dec()
		}
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	conn.Close()
	if removed {
		h.logger.Debug().Str("room_id", roomID).Str("conn_id", conn.ID()).Msg("connection unregistered")
	}
	return removed
}

// Broadcast delivers e to every connection in the room except exclude. A connection that cannot
// accept the message is unregistered; the rest still receive it. Returns the delivered count.
func (h *Hub) Broadcast(roomID string, e Event, exclude *Connection) int {
	frame, err := Encode(e)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("broadcast encode failed")
		return 0
	}

	targets := h.Connections(roomID)

	delivered := 0
	for _, conn := range targets {
		if conn == exclude {
			continue
		}
		if err := conn.SendFrame(frame); err != nil {
			h.logger.Warn().
				Err(err).
				Str("room_id", roomID).
				Str("conn_id", conn.ID()).
				Str("event", e.EventType()).
				Msg("broadcast send failed, dropping connection")
			h.Unregister(roomID, conn)
			continue
		}
		delivered++
	}
	broadcastsTotal.WithLabelValues(e.EventType()).Inc()
	return delivered
}

// SendTo delivers e to a single connection, unregistering it when the send fails.
func (h *Hub) SendTo(roomID string, conn *Connection, e Event) error {
	if err := conn.Send(e); err != nil {
		h.Unregister(roomID, conn)
		return err
	}
	return nil
}

// Connections returns a snapshot of the room's connections.
func (h *Hub) Connections(roomID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.rooms[roomID]
	out := make([]*Connection, 0, len(conns))
	for conn := range conns {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of live connections in a room.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// HasHost reports whether a host connection is registered for the room.
func (h *Hub) HasHost(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomID] {
		if conn.Role() == RoleHost {
			return true
		}
	}
	return false
}

// HasPlayer reports whether any connection in the room belongs to playerID.
func (h *Hub) HasPlayer(roomID, playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomID] {
		if id, _ := conn.Player(); id == playerID {
			return true
		}
	}
	return false
}

// Rooms returns the ids of rooms with at least one connection.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	return out
}
