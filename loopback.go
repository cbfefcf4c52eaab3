package vizmap

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Loopback is an in-process Subscriber. Messages passed to Publish are
// encoded to JSON and handed to every handler of the topic on the caller's
// goroutine. It feeds offline views, demos and tests.
type Loopback struct {
	mu       sync.Mutex
	handlers map[string][]loopbackHandler
	nextID   uint64
}

type loopbackHandler struct {
	id uint64
	fn func(json.RawMessage)
}

var _ Subscriber = (*Loopback)(nil)

// NewLoopback returns an empty Loopback.
func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[string][]loopbackHandler)}
}

// Subscribe registers handler for topic. The message type is not checked.
func (b *Loopback) Subscribe(topic, msgType string, handler func(json.RawMessage)) (func(), error) {
	if topic == "" {
		return nil, configErrorf("loopback: empty topic")
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], loopbackHandler{id: id, fn: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { b.remove(topic, id) }) }, nil
}

func (b *Loopback) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[topic]
	for i, h := range hs {
		if h.id == id {
			b.handlers[topic] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(b.handlers[topic]) == 0 {
		delete(b.handlers, topic)
	}
}

// Publish delivers msg to the topic's handlers. A json.RawMessage or []byte
// is passed through unchanged. It returns the number of handlers reached.
func (b *Loopback) Publish(topic string, msg any) (int, error) {
	var raw json.RawMessage
	switch m := msg.(type) {
	case json.RawMessage:
		raw = m
	case []byte:
		raw = m
	default:
		data, err := json.Marshal(msg)
		if err != nil {
			return 0, fmt.Errorf("loopback: encode %s: %w", topic, err)
		}
		raw = data
	}

	b.mu.Lock()
	hs := append([]loopbackHandler(nil), b.handlers[topic]...)
	b.mu.Unlock()
	for _, h := range hs {
		h.fn(raw)
	}
	return len(hs), nil
}

// Subscribers returns how many handlers are registered for topic.
func (b *Loopback) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[topic])
}
