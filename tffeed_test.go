package vizmap

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func stamped(parent, child string, x, y float64) TransformStamped {
	var ts TransformStamped
	ts.Header.FrameID = parent
	ts.ChildFrameID = child
	ts.Transform.Translation = Vector3{X: x, Y: y}
	ts.Transform.Rotation = Quaternion{W: 1}
	return ts
}

func TestTFFeedAppliesBatches(t *testing.T) {
	bus := NewBus(nil)
	changes := 0
	bus.Subscribe(TopicTopologyChanged, func(Event) { changes++ })
	tree := NewFrameTree("map", bus, nil)
	bridge := NewLoopback()
	feed := NewTFFeed(tree, bridge, nil, nil)

	if err := feed.Start(); err != nil {
		t.Fatal(err)
	}
	for _, topic := range DefaultTFTopics {
		if bridge.Subscribers(topic) != 1 {
			t.Errorf("%s subscribers = %d", topic, bridge.Subscribers(topic))
		}
	}

	_, _ = bridge.Publish("/tf", TFMessage{Transforms: []TransformStamped{
		stamped("map", "odom", 1, 0),
		stamped("odom", "base_link", 0, 2),
	}})
	if changes != 1 {
		t.Errorf("TopologyChanged published %d times, want 1", changes)
	}
	base, ok := tree.Resolved("base_link")
	if !ok {
		t.Fatal("base_link unresolved")
	}
	assertNear(t, "x", base.Translation[0], 1)
	assertNear(t, "y", base.Translation[1], 2)

	_, _ = bridge.Publish("/tf_static", TFMessage{Transforms: []TransformStamped{stamped("base_link", "laser", 0.2, 0)}})
	if _, ok := tree.Resolved("laser"); !ok {
		t.Error("static transform not applied")
	}
	if applied, rejected := feed.Stats(); applied != 3 || rejected != 0 {
		t.Errorf("Stats = %d, %d", applied, rejected)
	}
}

func TestTFFeedStopReleasesSubscriptions(t *testing.T) {
	bridge := NewLoopback()
	feed := NewTFFeed(NewFrameTree("map", nil, nil), bridge, nil, nil, "/tf")
	if err := feed.Start(); err != nil {
		t.Fatal(err)
	}
	feed.Stop()
	feed.Stop()
	if n := bridge.Subscribers("/tf"); n != 0 {
		t.Errorf("subscribers after Stop = %d", n)
	}
}

func TestTFFeedDropsQueuedAfterStop(t *testing.T) {
	var q queue
	tree := NewFrameTree("map", nil, nil)
	bridge := NewLoopback()
	feed := NewTFFeed(tree, bridge, q.post, nil, "/tf")
	_ = feed.Start()

	_, _ = bridge.Publish("/tf", TFMessage{Transforms: []TransformStamped{stamped("map", "odom", 1, 0)}})
	feed.Stop()
	q.run()

	if _, ok := tree.Resolved("odom"); ok {
		t.Error("message queued before Stop was applied")
	}
}

func TestTFFeedRestartDropsOldGeneration(t *testing.T) {
	tree := NewFrameTree("map", nil, nil)
	feed := NewTFFeed(tree, NewLoopback(), nil, nil)
	_ = feed.Start()
	old := feed.generation
	_ = feed.Start()

	raw, _ := json.Marshal(TFMessage{Transforms: []TransformStamped{stamped("map", "odom", 1, 0)}})
	if err := feed.Deliver(old, raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := tree.Resolved("odom"); ok {
		t.Error("stale generation applied")
	}
}

func TestTFFeedRejectsMalformed(t *testing.T) {
	tree := NewFrameTree("map", nil, nil)
	bridge := NewLoopback()
	feed := NewTFFeed(tree, bridge, nil, nil, "/tf")
	_ = feed.Start()

	_, _ = bridge.Publish("/tf", []byte(`{"transforms": 7}`))
	if _, rejected := feed.Stats(); rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
}

func TestTFFeedPartialApply(t *testing.T) {
	tree := NewFrameTree("map", nil, nil)
	feed := NewTFFeed(tree, NewLoopback(), nil, nil, "/tf")
	_ = feed.Start()

	raw := []byte(`{"transforms":[
		{"header":{"frame_id":"map"},"child_frame_id":"odom","transform":{"translation":{"x":1},"rotation":{"w":1}}},
		{"header":{"frame_id":"map"},"child_frame_id":"","transform":{"rotation":{"w":1}}},
		{"header":{"frame_id":"map"},"child_frame_id":"map","transform":{"rotation":{"w":1}}}
	]}`)
	err := feed.Deliver(feed.generation, raw)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
	if _, ok := tree.Resolved("odom"); !ok {
		t.Error("valid entry dropped with the invalid ones")
	}
	if _, rejected := feed.Stats(); rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
}

func TestTFFeedStartFailureReleases(t *testing.T) {
	bridge := NewLoopback()
	feed := NewTFFeed(NewFrameTree("map", nil, nil), bridge, nil, nil, "/tf", "")
	if err := feed.Start(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if n := bridge.Subscribers("/tf"); n != 0 {
		t.Errorf("/tf left subscribed after failed Start: %d", n)
	}
}

func TestTFMessageFramesDropsNonFinite(t *testing.T) {
	raw := []byte(`{"transforms":[
		{"header":{"frame_id":"map"},"child_frame_id":"a","transform":{"translation":{"x":1},"rotation":{"w":1}}}
	]}`)
	msg, err := DecodeTFMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	msg.Transforms = append(msg.Transforms, stamped("map", "b", 0, 0))
	msg.Transforms[1].Transform.Translation.X = math.NaN()
	frames, err := msg.Frames()
	if !errors.Is(err, ErrInvalidMessage) || len(frames) != 1 || frames[0].ID != "a" {
		t.Errorf("frames = %+v, err = %v", frames, err)
	}
}
