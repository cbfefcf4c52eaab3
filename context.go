package vizmap

import (
	"log/slog"

	"github.com/phanxgames/vizmap/settings"
)

// Context is the shared state of one map view: the bus, the frame tree, the
// projector, the settings store and the logger. The host builds it once and
// injects it into every layer; layers never reach for globals.
type Context struct {
	Bus       *Bus
	Tree      *FrameTree
	Projector *Projector
	Settings  settings.Store
	Logger    *slog.Logger
}

// ContextOptions configures NewContext.
type ContextOptions struct {
	FixedFrame string
	Viewport   Rect
	Zoom       float64        // pixels per world unit; zero selects the default
	Settings   settings.Store // nil keeps settings in memory
	Logger     *slog.Logger   // nil discards
}

// NewContext wires a bus, frame tree and projector together.
func NewContext(opts ContextOptions) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	store := opts.Settings
	if store == nil {
		store = settings.NewMemoryStore()
	}
	bus := NewBus(logger)
	return &Context{
		Bus:       bus,
		Tree:      NewFrameTree(opts.FixedFrame, bus, logger.With("component", "frametree")),
		Projector: NewProjector(opts.Viewport, opts.Zoom, bus),
		Settings:  store,
		Logger:    logger,
	}
}

// Close drops every bus subscription and flushes settings. Layers should be
// closed first; Close is safe to call more than once.
func (c *Context) Close() error {
	if c.Bus != nil {
		c.Bus.Clear()
	}
	if c.Settings == nil {
		return nil
	}
	return c.Settings.Flush()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
