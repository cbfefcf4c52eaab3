package vizmap

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Topic names a class of notifications carried by the Bus.
type Topic string

const (
	TopicTopologyChanged Topic = "topology-changed" // frame tree or fixed frame mutated
	TopicViewChanged     Topic = "view-changed"     // pan, zoom or viewport changed
	TopicDataReceived    Topic = "data-received"    // a tracker accepted a message
)

// Event is a notification published on the Bus.
type Event interface {
	Topic() Topic
}

// TopologyChanged is published after every FrameTree mutation batch.
type TopologyChanged struct {
	FixedFrame        string
	FixedFrameChanged bool
}

func (TopologyChanged) Topic() Topic { return TopicTopologyChanged }

// ViewChanged is published whenever the Projector's view state changes.
type ViewChanged struct {
	Zoom float64
}

func (ViewChanged) Topic() Topic { return TopicViewChanged }

// DataReceived is published by a PoseTracker when a message is accepted.
type DataReceived struct {
	Source string // widget id of the publishing tracker
	Stream string // topic the message arrived on
}

func (DataReceived) Topic() Topic { return TopicDataReceived }

// Handler handles a published event.
type Handler func(Event)

type subscription struct {
	id      uint64
	topic   Topic
	handler Handler
}

// Subscription is the handle returned by Bus.Subscribe.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Unsubscribe removes the handler. Safe to call more than once and on a
// nil handle.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.unsubscribe(s.id)
	s.bus = nil
}

// Bus is a synchronous publish/subscribe bus with named topics. Handlers run
// on the publishing goroutine, in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates an empty bus. A nil logger discards handler panics.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = discardLogger()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, topic: topic, handler: handler})
	return &Subscription{bus: b, id: id}
}

func (b *Bus) unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to every handler subscribed to its topic.
// A panicking handler is logged and recovered; delivery continues.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[event.Topic()]))
	copy(subs, b.subs[event.Topic()])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.safeCall(sub.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus handler panicked",
				"topic", string(event.Topic()),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Topic][]subscription)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subs {
		count += len(subs)
	}
	return count
}
