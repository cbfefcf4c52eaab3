package vizmap

import (
	"math"
	"testing"
)

func covariance(vx, vy float64) []float64 {
	c := make([]float64, 36)
	c[0], c[7] = vx, vy
	return c
}

func TestEllipseRadii(t *testing.T) {
	rx, ry := EllipseRadii(0.04, 0.09, 1)
	assertNear(t, "rx", rx, 0.6)
	assertNear(t, "ry", ry, 0.9)

	rx, ry = EllipseRadii(0.04, 0.09, 50)
	assertNear(t, "rx px", rx, 30)
	assertNear(t, "ry px", ry, 45)
}

func TestEllipseRadiiScaleWithSqrtOfVariance(t *testing.T) {
	base, _ := EllipseRadii(0.05, 0, 20)
	for _, f := range []float64{0.25, 2, 9, 100} {
		got, _ := EllipseRadii(0.05*f, 0, 20)
		assertNear(t, "scaled radius", got, base*math.Sqrt(f))
	}
}

func TestEllipseRadiiInvalidVariance(t *testing.T) {
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if rx, _ := EllipseRadii(v, 1, 10); rx != 0 {
			t.Errorf("EllipseRadii(%v) = %v, want 0", v, rx)
		}
	}
}

func TestCovarianceLayoutArrow(t *testing.T) {
	view := testView()
	est := PoseEstimate{Frame: "map", X: 1, Y: 2, Yaw: math.Pi / 2, Covariance: covariance(0.04, 0.09)}
	g, ok := NewCovarianceEllipseRenderer(1).Layout(view, est)
	if !ok {
		t.Fatal("layout failed")
	}
	if g.Center != (Vec2{450, 200}) {
		t.Errorf("Center = %v, want (450,200)", g.Center)
	}
	assertNear(t, "RadiusX", g.RadiusX, 30)
	assertNear(t, "RadiusY", g.RadiusY, 45)
	assertNear(t, "Rotation", g.Rotation, -math.Pi/2)
	if g.Marker != MarkerArrow || len(g.Shaft) != 4 || len(g.Head) != 3 {
		t.Fatalf("marker = %v shaft %d head %d", g.Marker, len(g.Shaft), len(g.Head))
	}
	// Heading +Y in the world points up the screen: length 2*size = 100 px.
	tip := g.Head[1]
	if !approxEqual(tip.X, 450, 1e-9) || !approxEqual(tip.Y, 100, 1e-9) {
		t.Errorf("arrow tip = %v, want (450,100)", tip)
	}
}

func TestCovarianceLayoutScale(t *testing.T) {
	view := testView()
	est := PoseEstimate{X: 0, Y: 0, Covariance: covariance(0.01, 0.01)}
	g1, _ := NewCovarianceEllipseRenderer(1).Layout(view, est)
	g2, _ := NewCovarianceEllipseRenderer(2).Layout(view, est)
	if g1.RadiusX != g2.RadiusX {
		t.Error("marker scale changed the covariance ellipse")
	}
	if g2.Head[1].X-g2.Center.X != 2*(g1.Head[1].X-g1.Center.X) {
		t.Errorf("arrow length did not double: %v vs %v", g1.Head[1], g2.Head[1])
	}
}

func TestCovarianceLayoutInvalidRotationUsesCircle(t *testing.T) {
	view := testView()
	invalid := PoseEstimate{X: 1, Y: 2, Yaw: 1.2, RotationInvalid: true, Covariance: covariance(0.04, 0.09)}
	identity := PoseEstimate{X: 1, Y: 2, Yaw: 0, RotationInvalid: true, Covariance: covariance(0.04, 0.09)}

	r := NewCovarianceEllipseRenderer(1)
	g1, ok1 := r.Layout(view, invalid)
	g2, ok2 := r.Layout(view, identity)
	if !ok1 || !ok2 {
		t.Fatal("layout failed")
	}
	if g1.Marker != MarkerCircle || g1.Rotation != 0 {
		t.Errorf("invalid rotation glyph = %+v", g1)
	}
	if g1.Center != g2.Center || g1.RadiusX != g2.RadiusX || g1.RadiusY != g2.RadiusY || g1.Circle != g2.Circle {
		t.Errorf("invalid-rotation path %+v differs from identity path %+v", g1, g2)
	}
	assertNear(t, "Circle", g1.Circle, 50*circleDiameter/2)
}

func TestCovarianceDraw(t *testing.T) {
	view := testView()
	r := NewCovarianceEllipseRenderer(1)

	dst := newRecordingSurface(800, 600)
	if !r.Draw(dst, view, PoseEstimate{Covariance: covariance(0.04, 0.09)}) {
		t.Fatal("Draw returned false")
	}
	if len(dst.ellipses) != 1 || len(dst.polygons) != 2 {
		t.Errorf("arrow pose drew %d ellipses, %d polygons; want 1, 2", len(dst.ellipses), len(dst.polygons))
	}
	if dst.ellipses[0].c != ColorCovariance {
		t.Errorf("ellipse colour = %+v", dst.ellipses[0].c)
	}

	dst = newRecordingSurface(800, 600)
	r.Draw(dst, view, PoseEstimate{RotationInvalid: true, Covariance: covariance(0, 0)})
	if len(dst.ellipses) != 1 || dst.ellipses[0].c != ColorPoseMarker {
		t.Errorf("zero-variance circle pose drew %+v", dst.ellipses)
	}

	dst = newRecordingSurface(800, 600)
	if r.Draw(dst, view, PoseEstimate{X: math.Inf(1)}) || !dst.empty() {
		t.Error("non-finite pose was drawn")
	}
}

func TestPoseEstimateVariancesShortCovariance(t *testing.T) {
	vx, vy := PoseEstimate{Covariance: []float64{1, 2, 3}}.Variances()
	if vx != 0 || vy != 0 {
		t.Errorf("Variances = (%v,%v), want zeros", vx, vy)
	}
}
