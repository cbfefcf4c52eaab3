package vizmap

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Layer is one overlay of the map. Each layer owns an offscreen canvas that
// is redrawn only while the layer reports itself dirty.
type Layer interface {
	ID() string
	Name() string
	Status() Status
	Dirty() bool
	DrawAll(dst Surface)
	OnResize(w, h int)
	Close()
}

var (
	_ Layer = (*TFLayer)(nil)
	_ Layer = (*PoseLayer)(nil)
)

// SceneConfig configures NewScene.
type SceneConfig struct {
	Background    Color
	Font          *LabelFont // nil loads Go Regular
	ScreenshotDir string     // defaults to "screenshots"
	ShowStatus    bool       // draw the status overlay
	Debug         bool       // log per-frame timing at debug level
}

// Scene is the ebiten.Game hosting the map layers. All core state is
// mutated on the game loop goroutine: transports hand work over with Post,
// and the queue is drained at the top of Update.
type Scene struct {
	ctx    *Context
	logger *slog.Logger
	cfg    SceneConfig
	font   *LabelFont

	layers   []Layer
	canvases []*EbitenSurface

	mu      sync.Mutex
	pending []func()
	running []func()

	width, height int

	// Input state
	pointer      pointerState
	dragDeadZone float64
	injectQueue  []syntheticPointerEvent
	keys         map[ebiten.Key]func()

	// Host features
	ScreenshotDir   string
	screenshotQueue []screenshotRequest
	script          *ScriptRunner
	quit            bool
	overlay         statusOverlay
}

// NewScene creates a scene drawing through ctx.
func NewScene(ctx *Context, cfg SceneConfig) (*Scene, error) {
	font := cfg.Font
	if font == nil {
		var err error
		if font, err = LoadLabelFont(nil); err != nil {
			return nil, err
		}
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	s := &Scene{
		ctx:           ctx,
		logger:        ctx.Logger.With("component", "scene"),
		cfg:           cfg,
		font:          font,
		dragDeadZone:  defaultDragDeadZone,
		keys:          make(map[ebiten.Key]func()),
		ScreenshotDir: cfg.ScreenshotDir,
	}
	s.BindKey(ebiten.KeyP, func() { s.Screenshot("manual") })
	return s, nil
}

// Context returns the shared context.
func (s *Scene) Context() *Context { return s.ctx }

// AddLayer appends a layer; later layers draw on top.
func (s *Scene) AddLayer(l Layer) {
	s.layers = append(s.layers, l)
	s.canvases = append(s.canvases, nil)
	if s.width > 0 && s.height > 0 {
		l.OnResize(s.width, s.height)
	}
}

// Layers returns the scene's layers. The returned slice MUST NOT be mutated.
func (s *Scene) Layers() []Layer {
	return s.layers
}

// Post queues fn to run on the game loop. Safe for concurrent use and never
// blocks.
func (s *Scene) Post(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// drainPosted runs every queued function, in order, and returns how many
// ran. Functions posted while draining run on the next call.
func (s *Scene) drainPosted() int {
	s.mu.Lock()
	s.running, s.pending = s.pending, s.running[:0]
	s.mu.Unlock()

	for i, fn := range s.running {
		fn()
		s.running[i] = nil
	}
	return len(s.running)
}

// Quit ends the game loop after the current Update.
func (s *Scene) Quit() { s.quit = true }

// Update drains posted work, advances view animation, runs the script and
// processes input.
func (s *Scene) Update() error {
	dt := float32(1.0 / float64(ebiten.TPS()))

	s.drainPosted()
	s.ctx.Projector.Update(dt)
	if s.script != nil {
		s.script.step(s)
	}
	s.processInput()

	if s.quit {
		return ebiten.Termination
	}
	return nil
}

// Draw redraws dirty layer canvases and composites every canvas onto
// screen.
func (s *Scene) Draw(screen *ebiten.Image) {
	var stats frameStats
	var t0 time.Time
	if s.cfg.Debug {
		t0 = time.Now()
	}

	screen.Fill(s.cfg.Background.RGBA())
	for i, l := range s.layers {
		canvas := s.canvas(i)
		if l.Dirty() {
			l.DrawAll(canvas)
			stats.redrawn++
		}
	}

	if s.cfg.Debug {
		stats.layerTime = time.Since(t0)
		t0 = time.Now()
	}

	var op ebiten.DrawImageOptions
	for _, c := range s.canvases {
		if c != nil {
			screen.DrawImage(c.Image(), &op)
		}
	}
	if s.cfg.ShowStatus {
		s.overlay.draw(screen, s.layers)
	}

	if s.cfg.Debug {
		stats.composeTime = time.Since(t0)
		stats.layers = len(s.layers)
		s.debugLog(stats)
	}

	s.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The view follows the window size.
func (s *Scene) Layout(outsideWidth, outsideHeight int) (int, int) {
	s.resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// resize propagates a new surface size. Repeating a size does nothing.
func (s *Scene) resize(w, h int) {
	if w == s.width && h == s.height {
		return
	}
	s.width, s.height = w, h
	s.ctx.Projector.SetViewport(Rect{Width: float64(w), Height: float64(h)})
	for i, l := range s.layers {
		if c := s.canvases[i]; c != nil {
			c.Resize(w, h)
		}
		l.OnResize(w, h)
	}
}

func (s *Scene) canvas(i int) *EbitenSurface {
	if s.canvases[i] == nil {
		s.canvases[i] = NewEbitenSurface(s.width, s.height, s.font)
	}
	return s.canvases[i]
}

// Close closes every layer in reverse order.
func (s *Scene) Close() {
	for i := len(s.layers) - 1; i >= 0; i-- {
		s.layers[i].Close()
	}
	for _, c := range s.canvases {
		if c != nil {
			c.Image().Deallocate()
		}
	}
	s.layers, s.canvases = nil, nil
}
