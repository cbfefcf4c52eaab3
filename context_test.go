package vizmap

import (
	"errors"
	"testing"

	"github.com/phanxgames/vizmap/settings"
)

func TestContextCloseFlushes(t *testing.T) {
	store := settings.NewMemoryStore()
	ctx := NewContext(ContextOptions{FixedFrame: "/map", Settings: store})
	if ctx.Tree.FixedFrame() != "map" {
		t.Errorf("FixedFrame = %q", ctx.Tree.FixedFrame())
	}
	if ctx.Projector.Zoom() != defaultZoom {
		t.Errorf("Zoom = %v", ctx.Projector.Zoom())
	}
	ctx.Bus.Subscribe(TopicViewChanged, func(Event) {})

	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if store.Flushes() != 1 || ctx.Bus.SubscriptionCount() != 0 {
		t.Errorf("flushes %d, subscriptions %d", store.Flushes(), ctx.Bus.SubscriptionCount())
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestUnresolvedFrameError(t *testing.T) {
	var err error = &UnresolvedFrameError{Frame: "laser"}
	if !errors.Is(err, ErrUnresolvedFrame) {
		t.Error("errors.Is does not match ErrUnresolvedFrame")
	}
	var ufe *UnresolvedFrameError
	if !errors.As(err, &ufe) || ufe.Frame != "laser" {
		t.Errorf("errors.As = %+v", ufe)
	}
	if err.Error() != `vizmap: frame "laser" has no transform to the fixed frame` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestConfigErrorfWraps(t *testing.T) {
	err := configErrorf("widget %s: empty topic", "p")
	if !errors.Is(err, ErrConfiguration) || err.Error() != "vizmap: configuration error: widget p: empty topic" {
		t.Errorf("err = %v", err)
	}
}
