package vizmap

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// View is the read-only projection renderers draw through. *Projector
// implements it.
type View interface {
	WorldToScreen(wx, wy float64) (sx, sy float64)
	WorldUnitsPerPixel() float64
	PixelsPerWorldUnit() float64
}

var _ View = (*Projector)(nil)

// Default pixel metrics for the tree renderers, multiplied by the layer scale.
const (
	axisLengthPx   = 30.0
	axisWidthPx    = 2.0
	lineWidthPx    = 1.0
	labelSizePx    = 12.0
	labelOffsetPx  = 15.0
	labelOutlinePx = 5.0
	defaultScale   = 1.0
)

// LinesRenderer draws one segment from each frame to its parent.
type LinesRenderer struct {
	Scale float64
	Color Color
}

// NewLinesRenderer returns a renderer with the default colour.
func NewLinesRenderer(scale float64) LinesRenderer {
	return LinesRenderer{Scale: scale, Color: ColorTreeLine}
}

// Draw renders every edge whose child and parent both appear in snap's
// absolute map and returns the number of segments drawn. An edge whose
// parent is unresolved or filtered out is skipped.
func (r LinesRenderer) Draw(dst Surface, view View, snap FrameSnapshot) int {
	width := lineWidthPx * scaleOrDefault(r.Scale)
	drawn := 0
	for _, id := range sortedKeys(snap.Absolute) {
		rel, ok := snap.Relative[id]
		if !ok || rel.Parent == "" {
			continue
		}
		parent, ok := snap.Absolute[rel.Parent]
		if !ok {
			continue
		}
		x0, y0, ok0 := project(view, snap.Absolute[id].Translation)
		x1, y1, ok1 := project(view, parent.Translation)
		if !ok0 || !ok1 {
			continue
		}
		dst.StrokeLine(x0, y0, x1, y1, width, r.Color)
		drawn++
	}
	return drawn
}

// AxesRenderer draws each frame's basis vectors, rotated by its absolute
// rotation, at a constant on-screen length.
type AxesRenderer struct {
	Scale  float64
	Colors [3]Color // x, y, z
}

// NewAxesRenderer returns a renderer with the red/green/blue palette.
func NewAxesRenderer(scale float64) AxesRenderer {
	return AxesRenderer{Scale: scale, Colors: [3]Color{ColorAxisX, ColorAxisY, ColorAxisZ}}
}

var basisVectors = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Draw renders three segments per frame and returns the number of frames
// drawn. The z axis projects onto the map plane, so it has no length for a
// frame that is level with the map.
func (r AxesRenderer) Draw(dst Surface, view View, snap FrameSnapshot) int {
	scale := scaleOrDefault(r.Scale)
	length := view.WorldUnitsPerPixel() * axisLengthPx * scale
	width := axisWidthPx * scale
	drawn := 0
	for _, id := range sortedKeys(snap.Absolute) {
		tf := snap.Absolute[id]
		ox, oy, ok := project(view, tf.Translation)
		if !ok {
			continue
		}
		for i, basis := range basisVectors {
			tip := tf.Rotation.Rotate(basis.Mul(length)).Add(tf.Translation)
			ex, ey, ok := project(view, tip)
			if !ok {
				continue
			}
			dst.StrokeLine(ox, oy, ex, ey, width, r.Colors[i])
		}
		drawn++
	}
	return drawn
}

// LabelRenderer draws each frame id just below its projected origin.
type LabelRenderer struct {
	Scale   float64
	Fill    Color
	Outline Color
}

// NewLabelRenderer returns a renderer with white text on a dark outline.
func NewLabelRenderer(scale float64) LabelRenderer {
	return LabelRenderer{Scale: scale, Fill: ColorWhite, Outline: ColorLabelOutline}
}

// Draw renders one label per frame and returns the number drawn.
func (r LabelRenderer) Draw(dst Surface, view View, snap FrameSnapshot) int {
	scale := scaleOrDefault(r.Scale)
	drawn := 0
	for _, id := range sortedKeys(snap.Absolute) {
		x, y, ok := project(view, snap.Absolute[id].Translation)
		if !ok {
			continue
		}
		dst.DrawText(id, x, y+labelOffsetPx*scale, labelSizePx*scale, r.Fill, r.Outline, labelOutlinePx*scale)
		drawn++
	}
	return drawn
}

// project maps a world point onto the screen, reporting false for
// non-finite input so a bad transform is skipped instead of drawn.
func project(view View, p mgl64.Vec3) (float64, float64, bool) {
	sx, sy := view.WorldToScreen(p[0], p[1])
	if !finite(sx) || !finite(sy) {
		return 0, 0, false
	}
	return sx, sy, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func scaleOrDefault(s float64) float64 {
	if s <= 0 || !finite(s) {
		return defaultScale
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
