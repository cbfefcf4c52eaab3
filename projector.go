package vizmap

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	// MinZoom and MaxZoom bound Projector zoom in pixels per world unit.
	MinZoom = 1e-3
	MaxZoom = 1e5

	defaultZoom = 50.0
)

// scrollAnim holds active scroll-to tweens for the view centre.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Projector owns the view state and converts between world coordinates
// (metres, Y up) and screen pixels (Y down). Every mutation publishes
// ViewChanged; the screen matrix is rebuilt lazily on the next query.
type Projector struct {
	bus *Bus

	x, y     float64 // world point shown at the viewport centre
	zoom     float64 // pixels per world unit
	viewport Rect

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	scrollTween *scrollAnim
}

// NewProjector creates a projector centred on the world origin. A zoom of
// zero selects the default.
func NewProjector(viewport Rect, zoom float64, bus *Bus) *Projector {
	if zoom <= 0 {
		zoom = defaultZoom
	}
	return &Projector{
		bus:      bus,
		zoom:     clampZoom(zoom),
		viewport: viewport,
		dirty:    true,
	}
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(z, MaxZoom))
}

// Center returns the world point at the viewport centre.
func (p *Projector) Center() (x, y float64) {
	return p.x, p.y
}

// Zoom returns the current scale in pixels per world unit.
func (p *Projector) Zoom() float64 {
	return p.zoom
}

// Viewport returns the screen rectangle the projector maps into.
func (p *Projector) Viewport() Rect {
	return p.viewport
}

// SetCenter moves the view so (x, y) sits at the viewport centre.
func (p *Projector) SetCenter(x, y float64) {
	if x == p.x && y == p.y {
		return
	}
	p.x, p.y = x, y
	p.changed()
}

// Pan shifts the view by a screen-space drag of (dx, dy) pixels, so content
// follows the pointer.
func (p *Projector) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	p.x -= dx / p.zoom
	p.y += dy / p.zoom
	p.changed()
}

// SetZoom sets the scale in pixels per world unit, clamped to
// [MinZoom, MaxZoom].
func (p *Projector) SetZoom(zoom float64) {
	zoom = clampZoom(zoom)
	if zoom == p.zoom {
		return
	}
	p.zoom = zoom
	p.changed()
}

// ZoomAt multiplies the zoom by factor while keeping the world point under
// screen position (sx, sy) fixed.
func (p *Projector) ZoomAt(sx, sy, factor float64) {
	if factor <= 0 {
		return
	}
	zoom := clampZoom(p.zoom * factor)
	if zoom == p.zoom {
		return
	}
	wx, wy := p.ScreenToWorld(sx, sy)
	cx, cy := p.viewportCenter()
	p.zoom = zoom
	p.x = wx - (sx-cx)/zoom
	p.y = wy + (sy-cy)/zoom
	p.changed()
}

// SetViewport updates the screen rectangle. Idempotent: an unchanged
// viewport publishes nothing.
func (p *Projector) SetViewport(viewport Rect) {
	if viewport == p.viewport {
		return
	}
	p.viewport = viewport
	p.changed()
}

// ScrollTo animates the view centre to (x, y) over duration seconds.
// Advance the animation with Update.
func (p *Projector) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	if duration <= 0 {
		p.scrollTween = nil
		p.SetCenter(x, y)
		return
	}
	p.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(p.x), float32(x), duration, easeFn),
		tweenY: gween.New(float32(p.y), float32(y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is in progress.
func (p *Projector) Scrolling() bool {
	return p.scrollTween != nil
}

// Update advances an active scroll animation by dt seconds.
func (p *Projector) Update(dt float32) {
	if p.scrollTween == nil {
		return
	}
	prevX, prevY := p.x, p.y
	if !p.scrollTween.doneX {
		val, done := p.scrollTween.tweenX.Update(dt)
		p.x = float64(val)
		p.scrollTween.doneX = done
	}
	if !p.scrollTween.doneY {
		val, done := p.scrollTween.tweenY.Update(dt)
		p.y = float64(val)
		p.scrollTween.doneY = done
	}
	if p.scrollTween.doneX && p.scrollTween.doneY {
		p.scrollTween = nil
	}
	if p.x != prevX || p.y != prevY {
		p.changed()
	}
}

func (p *Projector) changed() {
	p.dirty = true
	if p.bus != nil {
		p.bus.Publish(ViewChanged{Zoom: p.zoom})
	}
}

func (p *Projector) viewportCenter() (float64, float64) {
	return p.viewport.X + p.viewport.Width/2, p.viewport.Y + p.viewport.Height/2
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom, -zoom) * Translate(-X, -Y)
// where cx, cy = viewport center. The negative Y scale flips world Y-up
// into screen Y-down.
func (p *Projector) computeViewMatrix() [6]float64 {
	if !p.dirty {
		return p.viewMatrix
	}
	p.dirty = false

	cx, cy := p.viewportCenter()
	z := p.zoom
	m := multiplyAffine([6]float64{1, 0, 0, 1, cx, cy}, [6]float64{z, 0, 0, -z, 0, 0})
	p.viewMatrix = multiplyAffine(m, [6]float64{1, 0, 0, 1, -p.x, -p.y})
	p.invViewMatrix = invertAffine(p.viewMatrix)
	return p.viewMatrix
}

// WorldToScreen converts world coordinates to screen pixels.
func (p *Projector) WorldToScreen(wx, wy float64) (sx, sy float64) {
	m := p.computeViewMatrix()
	return transformPoint(m, wx, wy)
}

// ScreenToWorld converts screen pixels to world coordinates.
func (p *Projector) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	p.computeViewMatrix()
	return transformPoint(p.invViewMatrix, sx, sy)
}

// PixelsPerWorldUnit is the on-screen length of one world unit. Multiply
// by it to draw true-scale elements.
func (p *Projector) PixelsPerWorldUnit() float64 {
	return p.zoom
}

// WorldUnitsPerPixel is the world length covered by one pixel. Multiply by
// it to keep elements a constant screen size at any zoom.
func (p *Projector) WorldUnitsPerPixel() float64 {
	return 1 / p.zoom
}

// PixelsToWorld converts a screen length to a world length.
func (p *Projector) PixelsToWorld(px float64) float64 {
	return px / p.zoom
}

// WorldToPixels converts a world length to a screen length.
func (p *Projector) WorldToPixels(w float64) float64 {
	return w * p.zoom
}

// VisibleBounds returns the world-space rectangle covered by the viewport.
func (p *Projector) VisibleBounds() Rect {
	p.computeViewMatrix()
	inv := p.invViewMatrix
	x0, y0 := transformPoint(inv, p.viewport.X, p.viewport.Y)
	x1, y1 := transformPoint(inv, p.viewport.X+p.viewport.Width, p.viewport.Y+p.viewport.Height)
	minX, maxX := math.Min(x0, x1), math.Max(x0, x1)
	minY, maxY := math.Min(y0, y1), math.Max(y0, y1)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
