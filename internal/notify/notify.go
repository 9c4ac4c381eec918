package notify

import (
	"log/slog"
	"sync"
)

// Op is the kind of table change an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one change to a table, addressed by record ID. Clients use
// events only as an invalidation hint and refetch through the API.
type Event struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	ID    string `json:"id,omitempty"`
}

const subscriberBuffer = 16

// Broker fans change events out to live subscribers. Delivery is best
// effort: a subscriber that falls behind its buffer misses events instead of
// stalling the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; it closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber without blocking.
func (b *Broker) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("dropping event for slow subscriber", "table", e.Table, "op", e.Op)
		}
	}
}

// Subscribers reports the current listener count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
