package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// Propagate advances the nominal state by one inertial step: the body-frame
// specific force is rotated into the inertial frame by the previous
// orientation, gravity is added, position integrates with a Δt² term and
// velocity with a Δt term, and the orientation composes with the incremental
// rotation swept by the angular rate over the interval.
//
// dt == 0 is a no-op; dt < 0 returns ErrInvalidTimestep.
func Propagate(prev State, force, rate [3]float64, dt float64) (State, error) {
	if dt < 0 {
		return State{}, fmt.Errorf("%w: dt=%g", ErrInvalidTimestep, dt)
	}
	if dt == 0 {
		return prev, nil
	}

	accel := prev.Orientation.Rotate(force)
	for i := range accel {
		accel[i] += Gravity[i]
	}

	var next State
	for i := 0; i < 3; i++ {
		next.Position[i] = prev.Position[i] + dt*prev.Velocity[i] + 0.5*dt*dt*accel[i]
		next.Velocity[i] = prev.Velocity[i] + dt*accel[i]
	}

	dq := rotation.FromAxisAngle([3]float64{rate[0] * dt, rate[1] * dt, rate[2] * dt})
	next.Orientation = dq.MulRight(prev.Orientation).Normalized()
	return next, nil
}

// PropagateCovariance advances the error covariance over the same interval:
// P ← F·P·Fᵀ + L·Q·Lᵀ, with F linearizing the motion model at the previous
// orientation and Q the inertial noise scaled by Δt². The result is
// explicitly symmetrized.
func PropagateCovariance(prev *mat.SymDense, q rotation.Quaternion, force [3]float64, dt, varForce, varRate float64) *mat.SymDense {
	f := MotionJacobian(q, force, dt)
	l := NoiseJacobian()
	qn := processNoise(dt, varForce, varRate)

	var fp, next, lq, lql mat.Dense
	fp.Mul(f, prev)
	next.Mul(&fp, f.T())
	lq.Mul(l, qn)
	lql.Mul(&lq, l.T())
	next.Add(&next, &lql)
	return symmetrize(&next)
}

// MotionJacobian builds F, the 9×9 linearization of the error-state
// transition: identity plus the position-velocity coupling Δt·I and the
// velocity-rotation coupling −[C·f]×·Δt, where C·f is the specific force
// rotated into the inertial frame.
func MotionJacobian(q rotation.Quaternion, force [3]float64, dt float64) *mat.Dense {
	f := mat.NewDense(ErrStateDim, ErrStateDim, nil)
	for i := 0; i < ErrStateDim; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < 3; i++ {
		f.Set(i, i+3, dt)
	}
	skew := rotation.SkewSymmetric(q.Rotate(force))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.Set(i+3, j+6, -dt*skew.At(i, j))
		}
	}
	return f
}

// NoiseJacobian builds L, the fixed 9×6 matrix routing inertial noise into
// the velocity and rotation blocks of the error state.
func NoiseJacobian() *mat.Dense {
	l := mat.NewDense(ErrStateDim, noiseDim, nil)
	for i := 0; i < noiseDim; i++ {
		l.Set(i+3, i, 1)
	}
	return l
}

// processNoise is the 6×6 inertial noise covariance over one step: Δt² times
// the specific-force variance on the first block and the angular-rate
// variance on the second.
func processNoise(dt, varForce, varRate float64) *mat.Dense {
	q := mat.NewDense(noiseDim, noiseDim, nil)
	dt2 := dt * dt
	for i := 0; i < 3; i++ {
		q.Set(i, i, dt2*varForce)
		q.Set(i+3, i+3, dt2*varRate)
	}
	return q
}
