package vizmap

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// DefaultTFTopics are the dynamic and latched transform topics.
var DefaultTFTopics = []string{"/tf", "/tf_static"}

// TFFeed subscribes to transform topics and applies every message to a
// FrameTree as one batch, so each message yields one topology notification.
type TFFeed struct {
	tree     *FrameTree
	sub      Subscriber
	dispatch Dispatcher
	logger   *slog.Logger
	topics   []string

	generation uint64
	cancels    []func()

	applied  int
	rejected int
}

// NewTFFeed creates a stopped feed. No topics selects DefaultTFTopics.
func NewTFFeed(tree *FrameTree, sub Subscriber, dispatch Dispatcher, logger *slog.Logger, topics ...string) *TFFeed {
	if logger == nil {
		logger = discardLogger()
	}
	if len(topics) == 0 {
		topics = DefaultTFTopics
	}
	return &TFFeed{
		tree:     tree,
		sub:      sub,
		dispatch: dispatch,
		logger:   logger,
		topics:   append([]string(nil), topics...),
	}
}

// Topics returns the subscribed topic names.
func (f *TFFeed) Topics() []string {
	return f.topics
}

// Start subscribes to every topic. On failure the topics already
// subscribed are released.
func (f *TFFeed) Start() error {
	f.Stop()
	gen := f.generation
	for _, topic := range f.topics {
		cancel, err := f.sub.Subscribe(topic, TFMessageType, func(raw json.RawMessage) {
			f.dispatch.run(func() { f.Deliver(gen, raw) })
		})
		if err != nil {
			f.Stop()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		f.cancels = append(f.cancels, cancel)
	}
	f.logger.Info("tf feed started", "topics", f.topics)
	return nil
}

// Stop releases every subscription. Messages already queued are dropped.
func (f *TFFeed) Stop() {
	f.generation++
	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = nil
}

// Deliver applies one raw TF message tagged with the generation it was
// subscribed under. It must run on the goroutine that owns the tree.
func (f *TFFeed) Deliver(generation uint64, raw []byte) error {
	if generation != f.generation {
		f.logger.Debug("dropping stale tf message", "generation", generation, "current", f.generation)
		return nil
	}
	msg, err := DecodeTFMessage(raw)
	if err != nil {
		f.rejected++
		f.logger.Warn("rejecting tf message", "error", err)
		return err
	}
	frames, convErr := msg.Frames()
	applyErr := f.tree.Apply(frames)
	f.applied += len(frames)
	for _, err := range []error{convErr, applyErr} {
		if err != nil {
			f.rejected++
			f.logger.Warn("tf message partially applied", "error", err)
			return err
		}
	}
	return nil
}

// Stats returns the number of transforms applied and messages rejected or
// partially rejected.
func (f *TFFeed) Stats() (applied, rejected int) {
	return f.applied, f.rejected
}
