package settlement

import (
	"sync"
	"sync/atomic"

	"github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/storage"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 64

// Hub fans recorded settlements out to live subscribers. A subscriber that
// falls a full buffer behind misses events instead of stalling the indexer.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan storage.Settlement
	nextID uint64
	buffer int
	closed bool

	dropped atomic.Uint64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[uint64]chan storage.Settlement),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan storage.Settlement, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan storage.Settlement, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers st to every subscriber without blocking.
func (h *Hub) Publish(st storage.Settlement) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- st:
		default:
			h.dropped.Add(1)
			log.Warn().Uint64("subscriber", id).Str("group", st.GroupID).Msg("subscriber buffer full, settlement dropped")
		}
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every subscriber. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}
