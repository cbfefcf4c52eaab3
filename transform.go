package vizmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid 3D transform: rotation followed by translation.
// Applied to a point p it yields Rotation*p + Translation.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// IdentityTransform returns the transform that maps every point to itself.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// NewTransform builds a transform from a translation and rotation. A
// degenerate rotation is replaced by identity.
func NewTransform(translation mgl64.Vec3, rotation mgl64.Quat) Transform {
	if isDegenerate(rotation) {
		rotation = mgl64.QuatIdent()
	}
	return Transform{Translation: translation, Rotation: rotation.Normalize()}
}

// Compose returns t ∘ child: the child transform expressed in t's parent
// frame. For a chain A→B, absolute(A) = absolute(B).Compose(relative(A)).
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Translation: t.Rotation.Rotate(child.Translation).Add(t.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Translation: inv.Rotate(t.Translation).Mul(-1),
		Rotation:    inv,
	}
}

// Apply maps a point through t.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Translation)
}

// Yaw returns the heading about Z in radians, counter-clockwise from +X.
func (t Transform) Yaw() float64 {
	return quatYaw(t.Rotation)
}

// ApproxEqual reports whether two transforms agree within eps, treating q
// and -q as the same rotation.
func (t Transform) ApproxEqual(other Transform, eps float64) bool {
	if !t.Translation.ApproxEqualThreshold(other.Translation, eps) {
		return false
	}
	dot := t.Rotation.Dot(other.Rotation)
	return math.Abs(math.Abs(dot)-1) <= eps
}

// quatYaw extracts the Z-axis heading from a quaternion.
func quatYaw(q mgl64.Quat) float64 {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// isDegenerate reports whether every quaternion component is zero, which
// producers use to signal "no orientation".
func isDegenerate(q mgl64.Quat) bool {
	return q.W == 0 && q.V[0] == 0 && q.V[1] == 0 && q.V[2] == 0
}

// --- 2D affine helpers used by the Projector ---

// identityAffine is the identity affine matrix.
var identityAffine = [6]float64{1, 0, 0, 1, 0, 0}

// multiplyAffine multiplies two 2D affine matrices: result = p * c.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityAffine
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
