package vizmap

import (
	"log/slog"

	"github.com/phanxgames/vizmap/settings"
	"github.com/tanema/gween/ease"
)

// centerDuration is how long CenterOnPose takes to scroll, in seconds.
const centerDuration = 0.4

// PoseSettings is the persisted state of a pose layer.
type PoseSettings struct {
	Topic string  `json:"topic"`
	Scale float64 `json:"scale"`
}

// PoseLayer draws one tracked pose estimate with its confidence ellipse.
type PoseLayer struct {
	ctx      *Context
	id       string
	logger   *slog.Logger
	settings PoseSettings
	tracker  *PoseTracker
	renderer CovarianceEllipseRenderer
	subs     []*Subscription

	fixed string // fixed frame at the last topology change
	dirty bool
	w, h  int
}

// NewPoseLayer creates a pose layer with its settings loaded from the
// context store under id. Call Start to subscribe to the stored topic.
func NewPoseLayer(ctx *Context, id string, sub Subscriber, dispatch Dispatcher) *PoseLayer {
	logger := ctx.Logger.With("layer", "pose", "id", id)
	l := &PoseLayer{
		ctx:      ctx,
		id:       id,
		logger:   logger,
		settings: PoseSettings{Scale: defaultScale},
		fixed:    ctx.Tree.FixedFrame(),
		dirty:    true,
	}
	if _, err := settings.LoadJSON(ctx.Settings, id, &l.settings); err != nil {
		logger.Warn("pose settings unreadable, using defaults", "error", err)
	}
	l.renderer = NewCovarianceEllipseRenderer(l.settings.Scale)
	l.tracker = NewPoseTracker(PoseTrackerConfig{
		ID:         id,
		Oracle:     ctx.Tree,
		Subscriber: sub,
		Dispatch:   dispatch,
		Bus:        ctx.Bus,
		Logger:     logger,
		OnUpdate:   l.markDirty,
	})
	l.subs = []*Subscription{
		ctx.Bus.Subscribe(TopicTopologyChanged, func(Event) { l.OnTopologyChanged() }),
		ctx.Bus.Subscribe(TopicViewChanged, func(Event) { l.OnViewChanged() }),
	}
	return l
}

// Start subscribes to the configured topic.
func (l *PoseLayer) Start() error {
	err := l.tracker.Subscribe(l.settings.Topic)
	l.save()
	return err
}

// SetTopic switches to a new topic. The previous subscription is torn down
// first and any late message from it is ignored.
func (l *PoseLayer) SetTopic(topic string) error {
	l.settings.Topic = topic
	l.dirty = true
	return l.Start()
}

// SetScale sets the marker size multiplier.
func (l *PoseLayer) SetScale(scale float64) {
	if scale <= 0 || scale == l.settings.Scale {
		return
	}
	l.settings.Scale = scale
	l.renderer.Scale = scale
	l.dirty = true
	l.save()
}

// Settings returns the persisted settings.
func (l *PoseLayer) Settings() PoseSettings { return l.settings }

// Tracker exposes the underlying tracker.
func (l *PoseLayer) Tracker() *PoseTracker { return l.tracker }

// ID returns the widget id.
func (l *PoseLayer) ID() string { return l.id }

// Name returns a display name for the status overlay.
func (l *PoseLayer) Name() string {
	if l.settings.Topic == "" {
		return "pose"
	}
	return "pose " + l.settings.Topic
}

// Status returns the tracker's indicator.
func (l *PoseLayer) Status() Status { return l.tracker.Status() }

// Dirty reports whether DrawAll has pending work.
func (l *PoseLayer) Dirty() bool { return l.dirty }

func (l *PoseLayer) markDirty() { l.dirty = true }

// DrawAll redraws the layer. The estimate is only drawn while it is
// expressed in the current fixed frame.
func (l *PoseLayer) DrawAll(dst Surface) {
	l.dirty = false
	dst.Clear()
	est, ok := l.tracker.Estimate()
	if !ok || est.Frame != l.ctx.Tree.FixedFrame() {
		return
	}
	l.renderer.Draw(dst, l.ctx.Projector, est)
}

// OnResize marks the layer dirty when the surface size changed.
func (l *PoseLayer) OnResize(w, h int) {
	if w == l.w && h == l.h {
		return
	}
	l.w, l.h = w, h
	l.dirty = true
}

// OnTopologyChanged redraws only when the fixed frame changed, which hides
// or reveals the estimate. Other tree changes wait for the next message.
func (l *PoseLayer) OnTopologyChanged() {
	fixed := l.ctx.Tree.FixedFrame()
	if fixed == l.fixed {
		return
	}
	l.fixed = fixed
	if _, ok := l.tracker.Estimate(); ok {
		l.dirty = true
	}
}

// OnViewChanged marks the layer dirty.
func (l *PoseLayer) OnViewChanged() {
	l.dirty = true
}

// CenterOnPose scrolls the view to the latest estimate.
func (l *PoseLayer) CenterOnPose() bool {
	est, ok := l.tracker.Estimate()
	if !ok || est.Frame != l.ctx.Tree.FixedFrame() {
		return false
	}
	l.ctx.Projector.ScrollTo(est.X, est.Y, centerDuration, ease.OutCubic)
	return true
}

// Close unsubscribes the tracker and bus handlers.
func (l *PoseLayer) Close() {
	l.tracker.Close()
	for _, s := range l.subs {
		s.Unsubscribe()
	}
	l.subs = nil
}

func (l *PoseLayer) save() {
	if err := settings.SaveJSON(l.ctx.Settings, l.id, l.settings); err != nil {
		l.logger.Warn("save pose settings", "error", err)
	}
}
