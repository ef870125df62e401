package state

import "sync"

// Subscriber receives deltas from the broadcaster. A Send error means
// the underlying connection is gone and the subscriber is dropped; no
// explicit unsubscribe message is required.
type Subscriber interface {
	Send(Delta) error
}

// Broadcaster fans out state deltas to the current subscriber set,
// pruning dead subscribers lazily on write failure.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[Subscriber]struct{})}
}

// Subscribe adds sub to the set.
func (b *Broadcaster) Subscribe(sub Subscriber) {
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
}

// Unsubscribe removes sub from the set.
func (b *Broadcaster) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Publish writes d to every subscriber, removing those whose write
// fails.
func (b *Broadcaster) Publish(d Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if err := sub.Send(d); err != nil {
			delete(b.subs, sub)
		}
	}
}

// Count reports the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
