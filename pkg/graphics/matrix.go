package graphics

import "math"

// Matrix is a 2D affine transform.
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
//
// A point (x, y) maps to (A*x + C*y + E, B*x + D*y + F).
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity is the transform that maps every point to itself.
var Identity = Matrix{A: 1, D: 1}

// Translation returns a matrix translating by (dx, dy).
func Translation(dx, dy float64) Matrix {
	return Matrix{A: 1, D: 1, E: dx, F: dy}
}

// Scaling returns a matrix scaling by (sx, sy) around the origin.
func Scaling(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// Rotation returns a matrix rotating by radians around the origin.
func Rotation(radians float64) Matrix {
	sin, cos := math.Sincos(radians)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Multiply returns m × other: other is applied first, then m.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.C*other.B,
		B: m.B*other.A + m.D*other.B,
		C: m.A*other.C + m.C*other.D,
		D: m.B*other.C + m.D*other.D,
		E: m.A*other.E + m.C*other.F + m.E,
		F: m.B*other.E + m.D*other.F + m.F,
	}
}

// Translate returns m followed by a local translation of (dx, dy).
func (m Matrix) Translate(dx, dy float64) Matrix {
	return m.Multiply(Translation(dx, dy))
}

// Apply maps a point through the transform.
func (m Matrix) Apply(p Offset) Offset {
	return Offset{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// TransformRect returns the axis-aligned bounds of r after transformation.
func (m Matrix) TransformRect(r Rect) Rect {
	if m.IsTranslation() {
		return r.Translate(m.E, m.F)
	}
	p0 := m.Apply(Offset{X: r.Left, Y: r.Top})
	p1 := m.Apply(Offset{X: r.Right, Y: r.Top})
	p2 := m.Apply(Offset{X: r.Right, Y: r.Bottom})
	p3 := m.Apply(Offset{X: r.Left, Y: r.Bottom})
	return Rect{
		Left:   math.Min(math.Min(p0.X, p1.X), math.Min(p2.X, p3.X)),
		Top:    math.Min(math.Min(p0.Y, p1.Y), math.Min(p2.Y, p3.Y)),
		Right:  math.Max(math.Max(p0.X, p1.X), math.Max(p2.X, p3.X)),
		Bottom: math.Max(math.Max(p0.Y, p1.Y), math.Max(p2.Y, p3.Y)),
	}
}

// IsTranslation reports whether the matrix only translates.
func (m Matrix) IsTranslation() bool {
	return floatEqual(m.A, 1) && floatEqual(m.D, 1) && floatEqual(m.B, 0) && floatEqual(m.C, 0)
}

// IsIdentity reports whether the matrix is (approximately) the identity.
func (m Matrix) IsIdentity() bool {
	return m.IsTranslation() && floatEqual(m.E, 0) && floatEqual(m.F, 0)
}

// MaxScale returns the largest factor by which the transform stretches a
// unit vector. Tessellation tolerances are divided by it so curves stay
// smooth after scaling.
func (m Matrix) MaxScale() float64 {
	sx := math.Hypot(m.A, m.B)
	sy := math.Hypot(m.C, m.D)
	return math.Max(sx, sy)
}

// Invert returns the inverse transform. It reports false when the matrix
// is singular.
func (m Matrix) Invert() (Matrix, bool) {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-12 {
		return Matrix{}, false
	}
	inv := 1 / det
	return Matrix{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}
