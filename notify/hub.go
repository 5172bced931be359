package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/warmline/warmline/types"
)

// Conn is one delivery channel to a connected client. Implementations
// must be safe for concurrent writes.
type Conn interface {
	WriteEvent(ctx context.Context, event types.Event) error
	Close() error
}

// Hub fans transfer events out to connected operators. Delivery is
// best-effort: a failed write drops the connection and is logged, never
// escalated to the caller. Implements transfer.Notifier.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[Conn]struct{}   // recipientID -> connections
	rooms  map[string]map[string]struct{} // roomName -> recipientIDs
	logger *zap.Logger
}

// NewHub creates an empty notification hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[string]map[Conn]struct{}),
		rooms:  make(map[string]map[string]struct{}),
		logger: logger.With(zap.String("component", "notify_hub")),
	}
}

// Register attaches a connection for a recipient. One recipient may hold
// several connections (multiple tabs, reconnects).
func (h *Hub) Register(recipientID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[recipientID] == nil {
		h.conns[recipientID] = make(map[Conn]struct{})
	}
	h.conns[recipientID][c] = struct{}{}
	h.logger.Debug("connection registered", zap.String("recipient", recipientID))
}

// Unregister detaches a connection. The last connection going away also
// removes the recipient from all rooms.
func (h *Hub) Unregister(recipientID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[recipientID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, recipientID)
			for room, members := range h.rooms {
				delete(members, recipientID)
				if len(members) == 0 {
					delete(h.rooms, room)
				}
			}
		}
	}
}

// JoinRoom subscribes a recipient to a room's broadcasts.
func (h *Hub) JoinRoom(recipientID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomName] == nil {
		h.rooms[roomName] = make(map[string]struct{})
	}
	h.rooms[roomName][recipientID] = struct{}{}
}

// LeaveRoom unsubscribes a recipient from a room's broadcasts.
func (h *Hub) LeaveRoom(recipientID, roomName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomName]; ok {
		delete(members, recipientID)
		if len(members) == 0 {
			delete(h.rooms, roomName)
		}
	}
}

// Send delivers an event to every connection of one recipient.
func (h *Hub) Send(ctx context.Context, recipientID string, event types.Event) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns[recipientID]))
	for c := range h.conns[recipientID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.write(ctx, recipientID, c, event)
	}
}

// BroadcastToRoom delivers an event to every member of a room, minus the
// excluded recipients.
func (h *Hub) BroadcastToRoom(ctx context.Context, roomName string, event types.Event, excluding ...string) {
	skip := make(map[string]struct{}, len(excluding))
	for _, id := range excluding {
		skip[id] = struct{}{}
	}

	h.mu.RLock()
	recipients := make([]string, 0, len(h.rooms[roomName]))
	for id := range h.rooms[roomName] {
		if _, excluded := skip[id]; !excluded {
			recipients = append(recipients, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range recipients {
		h.Send(ctx, id, event)
	}
}

// ConnectedRecipients reports how many recipients currently hold at
// least one connection.
func (h *Hub) ConnectedRecipients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll drops every connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]Conn, 0)
	for _, set := range h.conns {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.conns = make(map[string]map[Conn]struct{})
	h.rooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// write performs one best-effort delivery; a failing connection is
// dropped so it cannot wedge future sends.
func (h *Hub) write(ctx context.Context, recipientID string, c Conn, event types.Event) {
	if err := c.WriteEvent(ctx, event); err != nil {
		h.logger.Warn("event delivery failed, dropping connection",
			zap.String("recipient", recipientID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		h.Unregister(recipientID, c)
		_ = c.Close()
	}
}
