package eventbus

import "sync"

// Event is an arbitrary value passed on the bus.
type Event interface{}

// EventBus is a small fan-out publish/subscribe bus used to surface
// per-response progress during a dispatch.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the channel-based EventBus implementation.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber. Delivery never blocks; a
// slow subscriber loses events rather than stalling the transport callback.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber and returns its channel. The channel is
// buffered generously enough for a full-fleet dispatch.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 128)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs[b.nextID] = ch
		b.nextID++
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		if ch == sub {
			delete(b.subs, id)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels; further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
