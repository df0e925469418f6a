package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

type recorder struct {
	id     string
	mu     sync.Mutex
	events []Event
	full   bool
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) Deliver(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) received() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestHub_BroadcastExcludesSender(t *testing.T) {
	hub := NewHub(metrics.New())
	alice := &recorder{id: "alice"}
	bob := &recorder{id: "bob"}
	other := &recorder{id: "carol"}

	hub.Join(1, alice)
	hub.Join(1, bob)
	hub.Join(2, other)

	n := hub.Broadcast(1, Event{Type: FrameProjectMessage}, "alice")

	assert.Equal(t, 1, n)
	assert.Empty(t, alice.received())
	assert.Len(t, bob.received(), 1)
	assert.Empty(t, other.received())
}

func TestHub_BroadcastInclusive(t *testing.T) {
	hub := NewHub(metrics.New())
	alice := &recorder{id: "alice"}
	bob := &recorder{id: "bob"}
	hub.Join(1, alice)
	hub.Join(1, bob)

	assert.Equal(t, 2, hub.Broadcast(1, Event{Type: FrameProjectMessage}, ""))
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(metrics.New())
	bob := &recorder{id: "bob"}
	hub.Join(1, bob)
	hub.Leave(1, "bob")

	hub.Broadcast(1, Event{Type: FrameProjectMessage}, "")

	assert.Empty(t, bob.received())
	assert.Equal(t, 0, hub.RoomSize(1))
	assert.Equal(t, 0, hub.Rooms())
	assert.False(t, hub.IsJoined(1, "bob"))
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(metrics.New())
	slow := &recorder{id: "slow", full: true}
	fast := &recorder{id: "fast"}
	hub.Join(1, slow)
	hub.Join(1, fast)

	assert.Equal(t, 1, hub.Broadcast(1, Event{Type: FrameProjectMessage}, ""))
	assert.Len(t, fast.received(), 1)
}

func TestHub_ConcurrentJoinLeave(t *testing.T) {
	hub := NewHub(metrics.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := &recorder{id: fmt.Sprintf("s%d", i)}
			hub.Join(1, sub)
			hub.Broadcast(1, Event{Type: FrameProjectMessage}, "")
			if i%2 == 0 {
				hub.Leave(1, sub.ID())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, hub.RoomSize(1))
}
