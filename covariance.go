package vizmap

import "math"

// confidenceSigma is the number of standard deviations drawn on each axis
// (about 99.7% per axis).
const confidenceSigma = 3.0

// circleDiameter is the unknown-heading marker size relative to the arrow.
const circleDiameter = 0.4

// EllipseRadii returns the confidence ellipse radii in pixels for the given
// x and y variances. unit is pixels per world unit. Each axis is treated
// independently: off-diagonal terms and the rotation of the uncertainty axes
// are ignored. Negative or NaN variances produce a zero radius.
func EllipseRadii(varX, varY, unit float64) (rx, ry float64) {
	return confidenceSigma * safeSqrt(varX) * unit, confidenceSigma * safeSqrt(varY) * unit
}

func safeSqrt(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return math.Sqrt(v)
}

// MarkerKind selects the glyph drawn at a pose.
type MarkerKind uint8

const (
	// MarkerArrow points along the pose heading.
	MarkerArrow MarkerKind = iota
	// MarkerCircle stands in when the orientation is unknown.
	MarkerCircle
)

// PoseGlyph is the screen-space layout of one pose estimate.
type PoseGlyph struct {
	Center   Vec2
	RadiusX  float64 // ellipse radii in pixels
	RadiusY  float64
	Rotation float64 // screen rotation applied to ellipse and arrow, radians
	Marker   MarkerKind
	Shaft    []Vec2 // arrow only
	Head     []Vec2 // arrow only
	Circle   float64
}

// CovarianceEllipseRenderer draws a pose estimate as a translucent
// confidence ellipse under a heading arrow, or a circle when the heading is
// unknown.
type CovarianceEllipseRenderer struct {
	Scale  float64 // marker size multiplier
	Fill   Color
	Marker Color
}

// NewCovarianceEllipseRenderer returns a renderer with the default colours.
func NewCovarianceEllipseRenderer(scale float64) CovarianceEllipseRenderer {
	return CovarianceEllipseRenderer{Scale: scale, Fill: ColorCovariance, Marker: ColorPoseMarker}
}

// Layout computes where est is drawn. The ellipse is axis-aligned in the
// marker's local frame, so it turns with the heading. An estimate with an
// invalid rotation uses identity and the circle marker.
func (r CovarianceEllipseRenderer) Layout(view View, est PoseEstimate) (PoseGlyph, bool) {
	sx, sy := view.WorldToScreen(est.X, est.Y)
	if !finite(sx) || !finite(sy) {
		return PoseGlyph{}, false
	}
	unit := view.PixelsPerWorldUnit()
	size := unit * scaleOrDefault(r.Scale)

	yaw := 0.0
	if !est.RotationInvalid && finite(est.Yaw) {
		yaw = est.Yaw
	}
	vx, vy := est.Variances()
	rx, ry := EllipseRadii(vx, vy, unit)

	g := PoseGlyph{
		Center:   Vec2{sx, sy},
		RadiusX:  rx,
		RadiusY:  ry,
		Rotation: -yaw, // world counter-clockwise is screen clockwise
	}
	if est.RotationInvalid {
		g.Marker = MarkerCircle
		g.Circle = size * circleDiameter / 2
		return g, true
	}
	shaft, head := arrowShape(size)
	g.Marker = MarkerArrow
	g.Shaft = placeLocal(shaft, yaw, sx, sy)
	g.Head = placeLocal(head, yaw, sx, sy)
	return g, true
}

// Draw renders est onto dst and reports whether anything was drawn.
func (r CovarianceEllipseRenderer) Draw(dst Surface, view View, est PoseEstimate) bool {
	g, ok := r.Layout(view, est)
	if !ok {
		return false
	}
	if g.RadiusX > 0 && g.RadiusY > 0 {
		dst.FillEllipse(g.Center.X, g.Center.Y, g.RadiusX, g.RadiusY, g.Rotation, r.Fill)
	}
	switch g.Marker {
	case MarkerCircle:
		dst.FillEllipse(g.Center.X, g.Center.Y, g.Circle, g.Circle, 0, r.Marker)
	case MarkerArrow:
		dst.FillPolygon(g.Shaft, r.Marker)
		dst.FillPolygon(g.Head, r.Marker)
	}
	return true
}
