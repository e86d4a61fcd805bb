package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
)

const (
	subscriberBuffer = 256
	// deliveryTimeout bounds how long a slow client may hold up a best update
	// or finished event before it is skipped for that client.
	deliveryTimeout = time.Second
)

// Hub is the single consumer of the event bus. It fans each event out to every
// connected stream client.
type Hub struct {
	bus *events.Bus
	log zerolog.Logger

	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	ch      chan events.Event
	allowed map[events.EventType]bool // nil = everything
}

// NewHub creates a hub for bus.
func NewHub(bus *events.Bus, log zerolog.Logger) *Hub {
	return &Hub{
		bus:  bus,
		log:  log.With().Str("component", "event_hub").Logger(),
		subs: make(map[int]*subscriber),
	}
}

// Run forwards bus events to subscribers until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		ev, err := h.bus.Receive(ctx)
		if err != nil {
			return
		}
		h.broadcast(ev)
	}
}

// Subscribe returns a channel of events restricted to types (all when empty)
// and a function that ends the subscription.
func (h *Hub) Subscribe(types []events.EventType) (<-chan events.Event, func()) {
	sub := &subscriber{ch: make(chan events.Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.allowed = make(map[events.EventType]bool, len(types))
		for _, t := range types {
			sub.allowed[t] = true
		}
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) broadcast(ev events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.allowed != nil && !sub.allowed[ev.Type] {
			continue
		}
		if ev.Type.Droppable() {
			select {
			case sub.ch <- ev:
			default:
				h.log.Debug().Str("event_type", string(ev.Type)).Msg("Subscriber channel full, dropping event")
			}
			continue
		}

		timer := time.NewTimer(deliveryTimeout)
		select {
		case sub.ch <- ev:
		case <-timer.C:
			h.log.Warn().Str("event_type", string(ev.Type)).Msg("Subscriber too slow, skipping event")
		}
		timer.Stop()
	}
}
