// Package realtime pushes booking events to websocket subscribers, grouped by
// mentor.
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

const clientBufferSize = 32

// Hub tracks slot stream subscribers per mentor.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	total    int
	onChange func(total int)
	logger   *zap.Logger
}

// NewHub creates a hub. onChange, when set, is called with the subscriber
// total after every change.
func NewHub(logger *zap.Logger, onChange func(total int)) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[*Client]struct{}), onChange: onChange, logger: logger}
}

// Client is one subscriber connection.
type Client struct {
	mentorID string
	send     chan []byte
}

// Send returns the outbound message channel. It is closed when the hub drops
// the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// MentorID is the mentor whose events the client receives.
func (c *Client) MentorID() string {
	return c.mentorID
}

// Subscribe registers a client for mentorID's events.
func (h *Hub) Subscribe(mentorID string) *Client {
	client := &Client{mentorID: mentorID, send: make(chan []byte, clientBufferSize)}

	h.mu.Lock()
	room, ok := h.rooms[mentorID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[mentorID] = room
	}
	room[client] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	h.logger.Debug("slot stream subscribed", zap.String("mentor_id", mentorID), zap.Int("total", total))
	h.notify(total)
	return client
}

// Unsubscribe removes the client and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := h.total
	h.mu.Unlock()

	if removed {
		h.logger.Debug("slot stream unsubscribed", zap.String("mentor_id", client.mentorID), zap.Int("total", total))
		h.notify(total)
	}
}

// Broadcast queues payload for every subscriber of mentorID and returns how
// many accepted it. Subscribers whose buffer is full are dropped.
func (h *Hub) Broadcast(mentorID string, payload []byte) int {
	h.mu.Lock()
	delivered, dropped := 0, 0
	for client := range h.rooms[mentorID] {
		select {
		case client.send <- payload:
			delivered++
		default:
			h.removeLocked(client)
			dropped++
		}
	}
	total := h.total
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.Warn("dropped slow slot stream subscribers", zap.String("mentor_id", mentorID), zap.Int("dropped", dropped))
		h.notify(total)
	}
	return delivered
}

// SubscriberCount returns the subscribers of one mentor.
func (h *Hub) SubscriberCount(mentorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[mentorID])
}

// Total returns all subscribers.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Close drops every subscriber, which ends their connections.
func (h *Hub) Close() {
	h.mu.Lock()
	for _, room := range h.rooms {
		for client := range room {
			h.removeLocked(client)
		}
	}
	h.mu.Unlock()
	h.notify(0)
}

func (h *Hub) removeLocked(client *Client) bool {
	room, ok := h.rooms[client.mentorID]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.mentorID)
	}
	close(client.send)
	h.total--
	return true
}

func (h *Hub) notify(total int) {
	if h.onChange != nil {
		h.onChange(total)
	}
}
