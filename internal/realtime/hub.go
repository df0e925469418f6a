package realtime

import (
	"sync"

	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

// Subscriber receives room events. Deliver must not block; it reports false
// when the event was dropped.
type Subscriber interface {
	ID() string
	Deliver(Event) bool
}

// Hub tracks which subscribers are joined to which project room.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint]map[string]Subscriber
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[uint]map[string]Subscriber),
		metrics: m,
	}
}

func (h *Hub) Join(room uint, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]Subscriber)
		h.rooms[room] = members
	}
	if _, exists := members[sub.ID()]; !exists {
		h.metrics.Connections.Inc()
	}
	members[sub.ID()] = sub
	h.metrics.Rooms.Set(float64(len(h.rooms)))
}

func (h *Hub) Leave(room uint, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, exists := members[id]; !exists {
		return
	}
	delete(members, id)
	h.metrics.Connections.Dec()
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	h.metrics.Rooms.Set(float64(len(h.rooms)))
}

// Broadcast delivers ev to every subscriber of room except exceptID and
// returns how many accepted it. An empty exceptID includes everyone.
func (h *Hub) Broadcast(room uint, ev Event, exceptID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, sub := range h.rooms[room] {
		if id == exceptID {
			continue
		}
		if sub.Deliver(ev) {
			delivered++
		} else {
			h.metrics.BroadcastDrops.Inc()
		}
	}
	return delivered
}

func (h *Hub) RoomSize(room uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// IsJoined reports whether id is subscribed to room.
func (h *Hub) IsJoined(room uint, id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][id]
	return ok
}

// Rooms returns the number of rooms with at least one subscriber.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
