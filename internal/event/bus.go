package event

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTopic indicates a malformed topic or pattern.
var ErrInvalidTopic = errors.New("invalid topic")

// Event is a published message.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler receives events. Handlers run synchronously on the publishing
// goroutine.
type Handler func(Event)

// Subscription represents an active subscription.
type Subscription struct {
	id      uint64
	pattern Topic
	bus     *Bus
}

// Pattern returns the subscribed pattern.
func (s *Subscription) Pattern() Topic {
	return s.pattern
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.bus != nil {
		s.bus.unsubscribe(s.id)
	}
}

type subscriber struct {
	id      uint64
	pattern Topic
	handler Handler
}

// Bus delivers events to the handlers whose pattern matches the topic, in
// subscription order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscriber
	nextID      uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (*Subscription, error) {
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}
	if handler == nil {
		return nil, errors.New("nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers = append(b.subscribers, subscriber{id: id, pattern: pattern, handler: handler})

	return &Subscription{id: id, pattern: pattern, bus: b}, nil
}

// Publish delivers payload to every matching handler and returns the number
// of handlers called. Handlers may subscribe or unsubscribe re-entrantly.
func (b *Bus) Publish(topic Topic, payload any) int {
	b.mu.RLock()
	var matched []Handler
	for _, s := range b.subscribers {
		if topic.Matches(s.pattern) {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, h := range matched {
		h(ev)
	}
	return len(matched)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return
		}
	}
}
