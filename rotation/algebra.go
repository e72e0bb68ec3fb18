package rotation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SkewSymmetric returns the 3×3 cross-product matrix [v]× such that
// [v]× u = v × u.
func SkewSymmetric(v [3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

// NormalizeAngle wraps an angle in radians to (−π, π].
func NormalizeAngle(rad float64) float64 {
	a := math.Mod(rad+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// RPYJacobianAxisAngle returns the 3×3 Jacobian of the roll-pitch-yaw Euler
// angles with respect to the axis-angle rotation vector, evaluated at a.
// It is the chain of dEuler/dq (3×4) and dq/da (4×3).
func RPYJacobianAxisAngle(a [3]float64) *mat.Dense {
	dqda := quatAxisAngleJacobian(a)
	deul := eulerQuatJacobian(FromAxisAngle(a))

	j := mat.NewDense(3, 3, nil)
	j.Mul(deul, dqda)
	return j
}

// quatAxisAngleJacobian is d[w x y z]/da for q = [cos(θ/2), sin(θ/2)·a/θ],
// θ = |a|. At θ→0 the limit is [0; I/2].
func quatAxisAngleJacobian(a [3]float64) *mat.Dense {
	theta := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	j := mat.NewDense(4, 3, nil)
	if theta < small {
		j.Set(1, 0, 0.5)
		j.Set(2, 1, 0.5)
		j.Set(3, 2, 0.5)
		return j
	}
	u := [3]float64{a[0] / theta, a[1] / theta, a[2] / theta}
	sh, ch := math.Sin(theta/2), math.Cos(theta/2)

	for c := 0; c < 3; c++ {
		j.Set(0, c, -0.5*sh*u[c])
	}
	// dv/da = (sin(θ/2)/θ)(I − uuᵀ) + (cos(θ/2)/2)uuᵀ
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			uu := u[r] * u[c]
			v := (ch / 2) * uu
			if r == c {
				v += (sh / theta) * (1 - uu)
			} else {
				v -= (sh / theta) * uu
			}
			j.Set(r+1, c, v)
		}
	}
	return j
}

// eulerQuatJacobian is d[roll pitch yaw]/d[w x y z] from the atan2/asin
// extraction formulas.
func eulerQuatJacobian(q Quaternion) *mat.Dense {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	j := mat.NewDense(3, 4, nil)

	// roll = atan2(A, B), A = 2(wx+yz), B = 1−2(x²+y²)
	A, B := 2*(w*x+y*z), 1-2*(x*x+y*y)
	den := A*A + B*B
	dA := [4]float64{2 * x, 2 * w, 2 * z, 2 * y}
	dB := [4]float64{0, -4 * x, -4 * y, 0}
	for c := 0; c < 4; c++ {
		j.Set(0, c, (B*dA[c]-A*dB[c])/den)
	}

	// pitch = asin(C), C = 2(wy−zx)
	C := 2 * (w*y - z*x)
	root := math.Sqrt(math.Max(1-C*C, small))
	dC := [4]float64{2 * y, -2 * z, 2 * w, -2 * x}
	for c := 0; c < 4; c++ {
		j.Set(1, c, dC[c]/root)
	}

	// yaw = atan2(D, E), D = 2(wz+xy), E = 1−2(y²+z²)
	D, E := 2*(w*z+x*y), 1-2*(y*y+z*z)
	den = D*D + E*E
	dD := [4]float64{2 * z, 2 * y, 2 * x, 2 * w}
	dE := [4]float64{0, 0, -4 * y, -4 * z}
	for c := 0; c < 4; c++ {
		j.Set(2, c, (E*dD[c]-D*dE[c])/den)
	}
	return j
}
