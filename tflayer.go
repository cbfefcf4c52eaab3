package vizmap

import (
	"fmt"
	"log/slog"

	"github.com/phanxgames/vizmap/settings"
)

const (
	msgNoTFData         = "No TF data received yet."
	visibilityKeySuffix = "/frame_visibility"
)

// TFSettings is the persisted state of a frame tree layer.
type TFSettings struct {
	ShowNames bool    `json:"show_names"`
	ShowAxes  bool    `json:"show_axes"`
	ShowLines bool    `json:"show_lines"`
	Scale     float64 `json:"scale"`
}

// DefaultTFSettings shows everything at scale 1.
func DefaultTFSettings() TFSettings {
	return TFSettings{ShowNames: true, ShowAxes: true, ShowLines: true, Scale: defaultScale}
}

// TFLayer draws the visible part of the frame tree: parent lines, axes and
// labels.
type TFLayer struct {
	ctx        *Context
	id         string
	logger     *slog.Logger
	settings   TFSettings
	visibility *FrameVisibilitySet
	subs       []*Subscription

	status   Status
	received bool
	dirty    bool
	w, h     int
}

// NewTFLayer creates a frame tree layer with its settings and visibility
// map loaded from the context store under id.
func NewTFLayer(ctx *Context, id string) *TFLayer {
	logger := ctx.Logger.With("layer", "tf", "id", id)
	l := &TFLayer{
		ctx:      ctx,
		id:       id,
		logger:   logger,
		settings: DefaultTFSettings(),
		status:   statusWarn(msgNoTFData),
		dirty:    true,
	}
	found, err := settings.LoadJSON(ctx.Settings, id, &l.settings)
	if err != nil {
		logger.Warn("tf settings unreadable, using defaults", "error", err)
	}
	if !found {
		l.save()
	}
	l.visibility = NewFrameVisibilitySet(ctx.Settings, id+visibilityKeySuffix, logger)
	l.visibility.Track(ctx.Tree.Relative())
	l.subs = []*Subscription{
		ctx.Bus.Subscribe(TopicTopologyChanged, func(Event) { l.OnTopologyChanged() }),
		ctx.Bus.Subscribe(TopicViewChanged, func(Event) { l.OnViewChanged() }),
	}
	return l
}

// ID returns the widget id.
func (l *TFLayer) ID() string { return l.id }

// Name returns a display name for the status overlay.
func (l *TFLayer) Name() string { return "tf" }

// Status returns the layer indicator.
func (l *TFLayer) Status() Status { return l.status }

// Dirty reports whether DrawAll has pending work.
func (l *TFLayer) Dirty() bool { return l.dirty }

// Settings returns the persisted display settings.
func (l *TFLayer) Settings() TFSettings { return l.settings }

// SetSettings replaces the display settings and persists them.
func (l *TFLayer) SetSettings(s TFSettings) {
	if s.Scale <= 0 {
		s.Scale = defaultScale
	}
	if s == l.settings {
		return
	}
	l.settings = s
	l.dirty = true
	l.save()
}

// Visibility exposes the frame visibility set.
func (l *TFLayer) Visibility() *FrameVisibilitySet { return l.visibility }

// Toggles lists every frame and parent id the tree references with its
// visibility, for the operator's frame list.
func (l *TFLayer) Toggles() []FrameToggle {
	return l.visibility.Toggles(l.ctx.Tree.Relative())
}

// SetFrameVisible shows or hides one frame.
func (l *TFLayer) SetFrameVisible(id string, visible bool) {
	l.visibility.SetVisible(NormalizeFrameID(id), visible)
	l.dirty = true
}

// DrawAll redraws the visible frames.
func (l *TFLayer) DrawAll(dst Surface) {
	l.dirty = false
	dst.Clear()

	snap := l.visibility.Filter(l.ctx.Tree.Snapshot())
	view := l.ctx.Projector
	s := l.settings
	if s.ShowLines {
		NewLinesRenderer(s.Scale).Draw(dst, view, snap)
	}
	if s.ShowAxes {
		NewAxesRenderer(s.Scale).Draw(dst, view, snap)
	}
	if s.ShowNames {
		NewLabelRenderer(s.Scale).Draw(dst, view, snap)
	}
}

// OnResize marks the layer dirty when the surface size changed.
func (l *TFLayer) OnResize(w, h int) {
	if w == l.w && h == l.h {
		return
	}
	l.w, l.h = w, h
	l.dirty = true
}

// OnTopologyChanged tracks any new frame ids and schedules a redraw.
func (l *TFLayer) OnTopologyChanged() {
	tree := l.ctx.Tree
	relative := tree.Relative()
	if added := l.visibility.Track(relative); added > 0 {
		l.logger.Debug("tracking new frames", "added", added, "total", l.visibility.Len())
	}
	if len(relative) > 0 {
		l.received = true
	}
	switch {
	case !l.received:
		l.status = statusWarn(msgNoTFData)
	case len(tree.Absolute()) == 0:
		l.status = statusWarn(fmt.Sprintf("Fixed frame %q not found.", tree.FixedFrame()))
	default:
		l.status = statusOK()
	}
	l.dirty = true
}

// OnViewChanged marks the layer dirty.
func (l *TFLayer) OnViewChanged() {
	l.dirty = true
}

// Close releases the bus handlers.
func (l *TFLayer) Close() {
	for _, s := range l.subs {
		s.Unsubscribe()
	}
	l.subs = nil
}

func (l *TFLayer) save() {
	if err := settings.SaveJSON(l.ctx.Settings, l.id, l.settings); err != nil {
		l.logger.Warn("save tf settings", "error", err)
	}
}
