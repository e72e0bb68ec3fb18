// Package eskf implements the error-state extended Kalman filter at the core
// of the navigation engine: inertial mechanization of the nominal state,
// linearized propagation of the 9×9 error covariance, and the generic
// position-measurement correction shared by GNSS and LIDAR.
package eskf

import (
	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// State is the nominal state: the filter's best point estimate. It has value
// semantics; each step of the filter hands a fresh copy forward, so a stored
// snapshot is never mutated by later steps.
type State struct {
	Position    [3]float64
	Velocity    [3]float64
	Orientation rotation.Quaternion
}

// NewCovariance returns a zero 9×9 error covariance, the usual seed when the
// initial state comes from ground truth.
func NewCovariance() *mat.SymDense {
	return mat.NewSymDense(ErrStateDim, nil)
}

// DiagonalCovariance returns a 9×9 covariance with the given variances on the
// diagonal, in error-state order (position, velocity, rotation vector).
func DiagonalCovariance(diag [ErrStateDim]float64) *mat.SymDense {
	p := mat.NewSymDense(ErrStateDim, nil)
	for i, v := range diag {
		p.SetSym(i, i, v)
	}
	return p
}

// symmetrize averages a matrix with its transpose into a SymDense, discarding
// the round-off asymmetry that accumulates in the covariance products.
func symmetrize(a *mat.Dense) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}

// CheckCovariance verifies symmetry is intact and no eigenvalue is negative
// beyond tolerance. It returns ErrCovarianceDivergence (wrapped with the
// offending eigenvalue) on violation.
func CheckCovariance(p *mat.SymDense) error {
	var eig mat.EigenSym
	if !eig.Factorize(p, false) {
		return ErrCovarianceDivergence
	}
	for _, v := range eig.Values(nil) {
		if v < -PSDTol {
			return errWithEigen(v)
		}
	}
	return nil
}

// checkDiagonal is the cheap per-step divergence probe: a negative variance
// on the diagonal is already proof of lost positive semi-definiteness.
func checkDiagonal(p *mat.SymDense) error {
	for i := 0; i < ErrStateDim; i++ {
		if p.At(i, i) < -PSDTol {
			return errWithEigen(p.At(i, i))
		}
	}
	return nil
}
