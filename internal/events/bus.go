package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultCapacity bounds the number of queued droppable events.
const DefaultCapacity = 1024

// Bus is a bounded, non-blocking event queue with a single consumer.
// Publish never blocks. When the queue holds capacity events, droppable
// events are discarded; best updates and finished events are always queued.
type Bus struct {
	mu       sync.Mutex
	queue    []Event
	capacity int
	notify   chan struct{}
	dropped  atomic.Uint64
}

// NewBus creates a bus holding up to capacity droppable events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Publish enqueues ev. Returns false if the event was dropped.
func (b *Bus) Publish(ev Event) bool {
	b.mu.Lock()
	if ev.Type.Droppable() && len(b.queue) >= b.capacity {
		b.mu.Unlock()
		b.dropped.Add(1)
		return false
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// TryReceive pops the oldest event without waiting.
func (b *Bus) TryReceive() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return Event{}, false
	}
	ev := b.queue[0]
	b.queue[0] = Event{}
	b.queue = b.queue[1:]
	if len(b.queue) == 0 {
		b.queue = nil
	}
	return ev, true
}

// Receive waits for the next event or context cancellation.
func (b *Bus) Receive(ctx context.Context) (Event, error) {
	for {
		if ev, ok := b.TryReceive(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-b.notify:
		}
	}
}

// Drain pops every queued event.
func (b *Bus) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.queue
	b.queue = nil
	return out
}

// Len returns the number of queued events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Dropped returns the number of events discarded since creation.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
