package vizmap

import "math"

// ellipseSegments is the polygon resolution used for ellipses and circles.
const ellipseSegments = 48

// lineQuad returns the four corners of a line segment of the given width,
// wound so the result is a convex polygon. A zero-length segment yields a
// degenerate quad that draws nothing.
func lineQuad(x0, y0, x1, y1, width float64) []Vec2 {
	nx, ny := perpendicular(Vec2{x0, y0}, Vec2{x1, y1})
	hw := width / 2
	return []Vec2{
		{x0 + nx*hw, y0 + ny*hw},
		{x1 + nx*hw, y1 + ny*hw},
		{x1 - nx*hw, y1 - ny*hw},
		{x0 - nx*hw, y0 - ny*hw},
	}
}

// perpendicular returns the unit left-perpendicular of the segment from a to b.
func perpendicular(a, b Vec2) (float64, float64) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	ln := math.Sqrt(dx*dx + dy*dy)
	if ln < 1e-10 {
		return 0, 0
	}
	return -dy / ln, dx / ln
}

// ellipsePolygon approximates an ellipse centred on (cx, cy) with radii rx
// and ry, rotated by rotation radians in screen space.
func ellipsePolygon(cx, cy, rx, ry, rotation float64, segments int) []Vec2 {
	if segments < 3 {
		segments = 3
	}
	sin, cos := math.Sincos(rotation)
	pts := make([]Vec2, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(segments)
		ex := rx * math.Cos(a)
		ey := ry * math.Sin(a)
		pts[i] = Vec2{
			X: cx + ex*cos - ey*sin,
			Y: cy + ex*sin + ey*cos,
		}
	}
	return pts
}

// arrowShape returns the pose arrow as two convex polygons (shaft and head)
// in local pixel coordinates, pointing along +X with its tail at the origin.
// size is the marker scale in pixels.
func arrowShape(size float64) (shaft, head []Vec2) {
	length := math.Trunc(size * 2.0)
	width := math.Trunc(size*0.1*0.6) + 1
	tip := math.Trunc(size*0.24) + 1
	tipWidth := math.Trunc(size*0.3*0.6) + 1

	shaft = []Vec2{
		{0, -width},
		{length - tip, -width},
		{length - tip, width},
		{0, width},
	}
	head = []Vec2{
		{length - tip, -tipWidth},
		{length, 0},
		{length - tip, tipWidth},
	}
	return shaft, head
}

// placeLocal maps local marker points, expressed with Y up, onto the screen:
// rotate by yaw (counter-clockwise in the world) then translate to (sx, sy)
// with the Y axis flipped.
func placeLocal(points []Vec2, yaw, sx, sy float64) []Vec2 {
	sin, cos := math.Sincos(yaw)
	out := make([]Vec2, len(points))
	for i, p := range points {
		wx := p.X*cos - p.Y*sin
		wy := p.X*sin + p.Y*cos
		out[i] = Vec2{X: sx + wx, Y: sy - wy}
	}
	return out
}
