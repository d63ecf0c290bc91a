package progress

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// Hub fans events out to subscribers. A subscriber with a full channel has
// its oldest pending event dropped rather than blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	runID string // empty subscribes to every run
	ch    chan Event
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Emit delivers evt to every subscriber watching its run.
func (h *Hub) Emit(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.runID != "" && sub.runID != evt.RunID {
			continue
		}
		push(sub.ch, evt)
	}
}

// Subscribe returns a channel of events for runID (every run when empty).
// The subscription ends and the channel closes when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, runID string) <-chan Event {
	sub := &subscriber{runID: runID, ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch
}

// push delivers without blocking, dropping the oldest pending event when
// the buffer is full.
func push(ch chan Event, evt Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
