// Package rotation provides the unit-quaternion algebra consumed by the
// navigation filter: construction from Euler angles and axis-angle vectors,
// Hamilton products, conversions to rotation matrices and Euler angles, and
// the small helper operators (skew-symmetric matrix, angle wrapping, the
// axis-angle to roll-pitch-yaw Jacobian).
package rotation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// small is the threshold below which a rotation vector is treated as zero.
const small = 1e-12

// Quaternion is a rotation quaternion in scalar-first (w, x, y, z) order.
// All constructors return unit quaternions.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity returns the identity rotation.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// FromEuler builds the quaternion for XYZ (roll about x, pitch about y,
// yaw about z) Euler angles in radians.
func FromEuler(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// FromAxisAngle builds the quaternion for a rotation vector whose direction
// is the rotation axis and whose magnitude is the angle in radians. The zero
// vector yields the identity.
func FromAxisAngle(v [3]float64) Quaternion {
	angle := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if angle < small {
		return Identity()
	}
	s := math.Sin(angle/2) / angle
	return Quaternion{
		W: math.Cos(angle / 2),
		X: s * v[0],
		Y: s * v[1],
		Z: s * v[2],
	}
}

// Mul returns the Hamilton product a⊗b.
func Mul(a, b Quaternion) Quaternion {
	return Quaternion{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
	}
}

// MulLeft returns q⊗p: q applied on the left of p.
func (q Quaternion) MulLeft(p Quaternion) Quaternion {
	return Mul(q, p)
}

// MulRight returns p⊗q: q applied on the right of p.
func (q Quaternion) MulRight(p Quaternion) Quaternion {
	return Mul(p, q)
}

// Norm returns the Euclidean norm of the quaternion components.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit norm. A degenerate all-zero quaternion
// normalizes to the identity.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n < small {
		return Identity()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// RotationMatrix returns the 3×3 direction cosine matrix rotating body-frame
// vectors into the inertial frame.
func (q Quaternion) RotationMatrix() *mat.Dense {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// Rotate applies the quaternion rotation to a 3-vector.
func (q Quaternion) Rotate(v [3]float64) [3]float64 {
	c := q.RotationMatrix()
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = c.At(i, 0)*v[0] + c.At(i, 1)*v[1] + c.At(i, 2)*v[2]
	}
	return out
}

// Euler returns the XYZ roll, pitch, yaw angles of the rotation in radians.
func (q Quaternion) Euler() (roll, pitch, yaw float64) {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sp := 2 * (w*y - z*x)
	// Clamp for the gimbal-lock boundary.
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// AxisAngle returns the rotation vector (axis scaled by angle) of the
// quaternion. The identity maps to the zero vector.
func (q Quaternion) AxisAngle() [3]float64 {
	vn := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if vn < small {
		return [3]float64{}
	}
	angle := 2 * math.Atan2(vn, q.W)
	s := angle / vn
	return [3]float64{s * q.X, s * q.Y, s * q.Z}
}
