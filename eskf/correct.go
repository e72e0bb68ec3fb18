package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// Correct folds one absolute position observation into the filter. It is a
// pure function: the corrected state and covariance are returned, the inputs
// are untouched. GNSS and LIDAR both go through here; they differ only in the
// variance supplied.
//
// The measurement Jacobian is the fixed position extractor H = [I₃ | 0 | 0],
// so the innovation covariance is the position block of P plus σ²·I₃ and the
// gain is the first three columns of P times S⁻¹. The error state δx is
// folded into the nominal state (vector addition for position and velocity,
// left quaternion composition for the small-angle rotation) and conceptually
// reset to zero; the covariance deflates as (I₉ − K·H)·P.
func Correct(variance float64, cov *mat.SymDense, y [3]float64, st State) (State, *mat.SymDense, error) {
	if variance <= 0 {
		return State{}, nil, fmt.Errorf("%w: sensor variance %g", ErrSingularInnovation, variance)
	}

	// S = H·P·Hᵀ + σ²·I₃
	s := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s.Set(i, j, cov.At(i, j))
		}
		s.Set(i, i, s.At(i, i)+variance)
	}
	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return State{}, nil, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}

	// K = P·Hᵀ·S⁻¹, with P·Hᵀ the first three columns of P.
	ph := mat.NewDense(ErrStateDim, 3, nil)
	for i := 0; i < ErrStateDim; i++ {
		for j := 0; j < 3; j++ {
			ph.Set(i, j, cov.At(i, j))
		}
	}
	var k mat.Dense
	k.Mul(ph, &sInv)

	// δx = K·(y − p)
	inno := mat.NewVecDense(3, []float64{
		y[0] - st.Position[0],
		y[1] - st.Position[1],
		y[2] - st.Position[2],
	})
	var dx mat.VecDense
	dx.MulVec(&k, inno)

	next := st
	for i := 0; i < 3; i++ {
		next.Position[i] += dx.AtVec(i)
		next.Velocity[i] += dx.AtVec(i + 3)
	}
	dq := rotation.FromEuler(dx.AtVec(6), dx.AtVec(7), dx.AtVec(8))
	next.Orientation = dq.MulLeft(st.Orientation).Normalized()

	// P ← (I₉ − K·H)·P
	ikh := mat.NewDense(ErrStateDim, ErrStateDim, nil)
	for i := 0; i < ErrStateDim; i++ {
		ikh.Set(i, i, 1)
	}
	for i := 0; i < ErrStateDim; i++ {
		for j := 0; j < 3; j++ {
			ikh.Set(i, j, ikh.At(i, j)-k.At(i, j))
		}
	}
	var pc mat.Dense
	pc.Mul(ikh, cov)
	return next, symmetrize(&pc), nil
}
