package vizmap

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestBusPublishOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.Subscribe(TopicViewChanged, func(Event) { got = append(got, "first") })
	bus.Subscribe(TopicViewChanged, func(Event) { got = append(got, "second") })
	bus.Subscribe(TopicTopologyChanged, func(Event) { got = append(got, "other") })

	bus.Publish(ViewChanged{Zoom: 2})
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("got %v, want [first second]", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	sub := bus.Subscribe(TopicDataReceived, func(Event) { calls++ })
	bus.Publish(DataReceived{Source: "pose"})
	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Publish(DataReceived{Source: "pose"})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := bus.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount = %d, want 0", n)
	}
	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	var sub *Subscription
	sub = bus.Subscribe(TopicViewChanged, func(Event) {
		calls++
		sub.Unsubscribe()
	})
	bus.Publish(ViewChanged{})
	bus.Publish(ViewChanged{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBusRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(slog.New(slog.NewTextHandler(&buf, nil)))
	delivered := false
	bus.Subscribe(TopicTopologyChanged, func(Event) { panic("boom") })
	bus.Subscribe(TopicTopologyChanged, func(Event) { delivered = true })

	bus.Publish(TopologyChanged{FixedFrame: "map"})
	if !delivered {
		t.Error("handler after a panicking one did not run")
	}
	if !strings.Contains(buf.String(), "bus handler panicked") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestBusClear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(TopicViewChanged, func(Event) {})
	bus.Subscribe(TopicTopologyChanged, func(Event) {})
	bus.Clear()
	if n := bus.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount = %d after Clear", n)
	}
}

func TestEventTopics(t *testing.T) {
	tests := []struct {
		event Event
		want  Topic
	}{
		{TopologyChanged{}, TopicTopologyChanged},
		{ViewChanged{}, TopicViewChanged},
		{DataReceived{}, TopicDataReceived},
	}
	for _, tt := range tests {
		if got := tt.event.Topic(); got != tt.want {
			t.Errorf("%T.Topic() = %q, want %q", tt.event, got, tt.want)
		}
	}
}
