// Package hub fans accepted records out to live subscribers. Each subscriber
// owns a bounded queue; a slow consumer loses its oldest records and is
// eventually disconnected, but never blocks producers or other subscribers.
package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Subscriber is a live subscription handle. Receive from Records until it is
// closed; call Close (idempotent) when done.
type Subscriber struct {
	id  string
	hub *Hub
	ch  chan intel.Record

	dropped atomic.Uint64
	// overflow counts consecutive publishes that found the queue full.
	// Guarded by hub.mu.
	overflow int
	closed   bool // guarded by hub.mu
}

// Records returns the subscriber's delivery channel. Records arrive in the
// exact order they were accepted upstream; the channel is closed on
// disconnect or Close.
func (s *Subscriber) Records() <-chan intel.Record { return s.ch }

// Dropped returns how many records were dropped for this subscriber.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// ID returns the subscriber's unique id.
func (s *Subscriber) ID() string { return s.id }

// Close unsubscribes. Safe to call more than once.
func (s *Subscriber) Close() { s.hub.unsubscribe(s.id) }

// Hub is the broadcast hub.
type Hub struct {
	queueSize     int
	overflowLimit int

	mu   sync.Mutex
	subs map[string]*Subscriber
}

// New creates a hub. queueSize bounds each subscriber's queue;
// overflowLimit is the number of consecutive overflowing publishes after
// which a persistently slow subscriber is disconnected.
func New(queueSize, overflowLimit int) *Hub {
	return &Hub{
		queueSize:     queueSize,
		overflowLimit: overflowLimit,
		subs:          make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber receiving every record published from
// now on.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:  uuid.New().String(),
		hub: h,
		ch:  make(chan intel.Record, h.queueSize),
	}
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
	slog.Debug("Subscriber attached", "subscriber_id", s.id)
	return s
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

// removeLocked detaches and closes a subscriber. Caller holds h.mu.
// Idempotent: removing an already-removed subscriber is a no-op.
func (h *Hub) removeLocked(id string) {
	s, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	slog.Debug("Subscriber detached", "subscriber_id", id, "dropped", s.Dropped())
}

// Publish delivers a record to every subscriber without ever blocking. When
// a subscriber's queue is full the oldest unconsumed record is dropped
// (counted); a subscriber overflowing on more than overflowLimit consecutive
// publishes is disconnected.
func (h *Hub) Publish(rec intel.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.subs {
		select {
		case s.ch <- rec:
			s.overflow = 0
			continue
		default:
		}

		// Queue full: drop the oldest and retry. The hub is the only
		// sender, so the second send cannot block after a successful
		// receive unless the consumer raced us, in which case dropping the new
		// record instead is equally valid.
		s.dropped.Add(1)
		s.overflow++
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- rec:
		default:
			s.dropped.Add(1)
		}

		if s.overflow > h.overflowLimit {
			slog.Warn("Disconnecting persistently slow subscriber",
				"subscriber_id", id,
				"consecutive_overflows", s.overflow,
				"dropped", s.Dropped(),
			)
			h.removeLocked(id)
		}
	}
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
