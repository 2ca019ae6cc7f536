package hub

import (
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"nova/internal/model"
)

const subscriberBuffer = 256

// Hub fans store changes out to live feed subscribers. A subscriber that
// falls behind loses envelopes instead of blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan model.Envelope
	nextID  int
	dropped atomic.Int64
	now     func() time.Time
}

func New() *Hub {
	return &Hub{
		subs: make(map[int]chan model.Envelope),
		now:  time.Now,
	}
}

// Subscribe returns a channel of envelopes and a function that detaches it.
func (h *Hub) Subscribe() (<-chan model.Envelope, func()) {
	ch := make(chan model.Envelope, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish stamps env and delivers it to every subscriber.
func (h *Hub) Publish(env model.Envelope) {
	if env.At == "" {
		env.At = model.Timestamp(h.now())
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- env:
		default:
			n := h.dropped.Add(1)
			log.Warn("Dropped feed envelope for slow subscriber", "kind", env.Kind, "dropped", n)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of envelopes lost to slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
