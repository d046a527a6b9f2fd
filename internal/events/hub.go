// Package events provides a generic publish/subscribe hub used to fan
// out lifecycle notifications. Components compose a Hub instead of
// inheriting from an emitter base type; subscribers receive their own
// buffered channel and an unsubscribe handle.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 16

// Subscription identifies one subscriber on a hub.
type Subscription string

// Hub fans out values of type T to all subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the value and the
// drop is counted.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[Subscription]chan T
	closed bool

	bufferSize int
	dropped    atomic.Uint64
}

// NewHub creates a hub with the default per-subscriber buffer.
func NewHub[T any]() *Hub[T] {
	return NewHubWithBuffer[T](DefaultBufferSize)
}

// NewHubWithBuffer creates a hub with the given per-subscriber buffer
// capacity. Sizes below 1 are raised to 1.
func NewHubWithBuffer[T any](bufferSize int) *Hub[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub[T]{
		subs:       make(map[Subscription]chan T),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new subscriber and returns its handle and
// receive channel. The channel is closed on Unsubscribe or Close.
func (h *Hub[T]) Subscribe() (Subscription, <-chan T) {
	id := Subscription(uuid.NewString())
	ch := make(chan T, h.bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return id, ch
	}

	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown
// handles are ignored.
func (h *Hub[T]) Unsubscribe(id Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many values were lost to full subscriber buffers.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes all subscriber channels and rejects further publishes.
// Idempotent.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
