// Package geom provides the affine-matrix and rectangle math shared by the
// Style & Geometry Resolver (CSS transform parsing) and the Importer
// (coordinate rescale, transform application). It carries no dependency on
// any browser or design-tool type.
package geom

import "math"

// Matrix is a 2x3 affine transform [a b c d tx ty], applied as:
//
//	x' = a*x + c*y + tx
//	y' = b*x + d*y + ty
//
// matching the CSS `matrix(a, b, c, d, tx, ty)` convention and spec §3.1's
// AnalyzedNode.absoluteTransform.matrix layout.
type Matrix struct {
	A, B, C, D, TX, TY float64
}

// Identity is the non-transform matrix; AnalyzedNode.absoluteTransform is
// only populated when a node's matrix is non-identity (§3.1).
var Identity = Matrix{A: 1, D: 1}

// IsIdentity reports whether m is (numerically) the identity transform.
func (m Matrix) IsIdentity() bool {
	const eps = 1e-9
	return math.Abs(m.A-1) < eps && math.Abs(m.B) < eps &&
		math.Abs(m.C) < eps && math.Abs(m.D-1) < eps &&
		math.Abs(m.TX) < eps && math.Abs(m.TY) < eps
}

// Determinant returns a*d - b*c. Invariant 4 of §3.2 requires this be
// non-zero for any matrix attached to a node.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Finite reports whether all six components are finite (§3.2 invariant 4,
// §8 property list).
func (m Matrix) Finite() bool {
	vals := [6]float64{m.A, m.B, m.C, m.D, m.TX, m.TY}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether m satisfies §3.2 invariant 4 and §8's matrix
// property: finite components and a non-zero determinant.
func (m Matrix) Valid() bool {
	return m.Finite() && m.Determinant() != 0
}

// Rotate builds the matrix for a pure rotation by theta radians, as used by
// the rotate() CSS transform function and by tests constructing the
// "rotated badge" scenario from §8.
func Rotate(theta float64) Matrix {
	s, c := math.Sin(theta), math.Cos(theta)
	return Matrix{A: c, B: s, C: -s, D: c}
}

// Multiply returns m applied after n (n first, then m), matching CSS
// transform function composition left-to-right.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A:  m.A*n.A + m.C*n.B,
		B:  m.B*n.A + m.D*n.B,
		C:  m.A*n.C + m.C*n.D,
		D:  m.B*n.C + m.D*n.D,
		TX: m.A*n.TX + m.C*n.TY + m.TX,
		TY: m.B*n.TX + m.D*n.TY + m.TY,
	}
}

// Project3D projects a 4x4 matrix3d column-major list of 16 values (the CSS
// matrix3d(...) argument order) down to its 2D affine submatrix, per
// §4.1.3's "matrix3d(...) is projected to its 2D submatrix". The projection
// uses the top-left 2x2 block plus the translation column, which is exact
// whenever the 3D transform has no perspective or out-of-plane rotation
// component; callers must still check Valid() since a genuinely
// out-of-plane transform projects to a degenerate (zero-determinant) matrix.
func Project3D(m3d [16]float64) Matrix {
	// matrix3d(m0, m1, m2, m3, m4, m5, ..., m15) is column-major:
	// column 0 = m0..m3, column 1 = m4..m7, column 3 (translation) = m12..m15.
	return Matrix{
		A:  m3d[0],
		B:  m3d[1],
		C:  m3d[4],
		D:  m3d[5],
		TX: m3d[12],
		TY: m3d[13],
	}
}

// Point is a 2D coordinate in capture-coordinate space.
type Point struct{ X, Y float64 }

// Apply transforms p by m.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.TX,
		Y: m.B*p.X + m.D*p.Y + m.TY,
	}
}

// Origin normalizes a CSS transform-origin given in pixels within a box of
// size (w, h) to the 0..1 fraction the schema stores (§3.1
// absoluteTransform.origin).
func Origin(originX, originY, w, h float64) Point {
	if w == 0 || h == 0 {
		return Point{X: 0.5, Y: 0.5}
	}
	return Point{X: originX / w, Y: originY / h}
}
