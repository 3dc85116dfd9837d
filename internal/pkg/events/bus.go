// Package events is a small synchronous publish/subscribe bus for zero-payload signals.
package events

import "sync"

// Topic names a signal published on the bus.
type Topic string

// Network lifecycle topics.
const (
	NetworkWillChange Topic = "network-will-change"
	NetworkDidChange  Topic = "network-did-change"
	InfuraBlocked     Topic = "infura-blocked"
	InfuraUnblocked   Topic = "infura-unblocked"
)

// Handler is invoked for each publication of the topic it is subscribed to.
type Handler func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers publications to subscribers in subscription order, on the publisher's goroutine.
// Handlers may subscribe and unsubscribe from within a handler.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic. The returned function removes it and is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

// Publish calls every handler subscribed to topic at the time of the call.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[topic]))
	for i, s := range b.subs[topic] {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}

// SubscriberCount returns the number of handlers subscribed to topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
