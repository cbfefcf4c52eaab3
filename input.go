package vizmap

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	defaultDragDeadZone = 4.0 // pixels
	wheelZoomStep       = 1.1 // zoom factor per wheel notch
)

// pointerState tracks the mouse between frames for drag panning.
type pointerState struct {
	down     bool
	dragging bool
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
}

// syntheticPointerEvent is one injected input event in screen coordinates.
// A non-zero wheel value is a wheel event; otherwise it is a pointer event.
type syntheticPointerEvent struct {
	screenX, screenY float64
	pressed          bool
	wheel            float64
}

// BindKey runs fn when key is pressed. Binding a key again replaces it.
func (s *Scene) BindKey(key ebiten.Key, fn func()) {
	s.keys[key] = fn
}

// SetDragDeadZone sets the distance in pixels the pointer must move while
// pressed before panning starts.
func (s *Scene) SetDragDeadZone(pixels float64) {
	s.dragDeadZone = pixels
}

// processInput is called from Scene.Update. Injected events take priority
// over the real mouse, one per frame.
func (s *Scene) processInput() {
	for key, fn := range s.keys {
		if inpututil.IsKeyJustPressed(key) {
			fn()
		}
	}
	if s.processInjectedInput() {
		return
	}

	mx, my := ebiten.CursorPosition()
	sx, sy := float64(mx), float64(my)
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)
	s.processPointer(sx, sy, pressed)

	if _, wy := ebiten.Wheel(); wy != 0 {
		s.processWheel(sx, sy, wy)
	}
}

// processPointer runs the drag state machine. Once the pointer has moved
// past the dead zone while pressed, each further move pans the view so the
// content follows the pointer.
func (s *Scene) processPointer(sx, sy float64, pressed bool) {
	ps := &s.pointer
	switch {
	case pressed && !ps.down:
		*ps = pointerState{down: true, startX: sx, startY: sy, lastX: sx, lastY: sy}
	case !pressed && ps.down:
		if ps.dragging {
			s.ctx.Projector.Pan(sx-ps.lastX, sy-ps.lastY)
		}
		*ps = pointerState{lastX: sx, lastY: sy}
	case pressed && ps.down:
		if sx == ps.lastX && sy == ps.lastY {
			return
		}
		if !ps.dragging {
			dx := sx - ps.startX
			dy := sy - ps.startY
			if math.Sqrt(dx*dx+dy*dy) <= s.dragDeadZone {
				return
			}
			ps.dragging = true
			// Catch up on the movement swallowed by the dead zone.
			ps.lastX, ps.lastY = ps.startX, ps.startY
		}
		s.ctx.Projector.Pan(sx-ps.lastX, sy-ps.lastY)
		ps.lastX, ps.lastY = sx, sy
	default:
		ps.lastX, ps.lastY = sx, sy
	}
}

// processWheel zooms around the cursor, one step per notch.
func (s *Scene) processWheel(sx, sy, notches float64) {
	s.ctx.Projector.ZoomAt(sx, sy, math.Pow(wheelZoomStep, notches))
}

// InjectPress queues a pointer press at the given screen coordinates.
func (s *Scene) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, pressed: true})
}

// InjectMove queues a pointer move with the button held down.
func (s *Scene) InjectMove(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, pressed: true})
}

// InjectRelease queues a pointer release.
func (s *Scene) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{screenX: x, screenY: y})
}

// InjectDrag queues a press at (fromX, fromY), linearly interpolated moves,
// and a release at (toX, toY). The sequence consumes frames frames, at
// least 2.
func (s *Scene) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// InjectWheel queues a wheel scroll of notches at (x, y). Positive zooms in.
func (s *Scene) InjectWheel(x, y, notches float64) {
	if notches == 0 {
		return
	}
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, wheel: notches})
}

// processInjectedInput pops one event from the inject queue. Returns true
// if an event was consumed, in which case real mouse input is skipped.
func (s *Scene) processInjectedInput() bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]

	if evt.wheel != 0 {
		s.processWheel(evt.screenX, evt.screenY, evt.wheel)
		return true
	}
	s.processPointer(evt.screenX, evt.screenY, evt.pressed)
	return true
}
