package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Filter is the incremental form of the estimator, usable sample-by-sample
// by a streaming front as well as by the batch Scheduler. An inertial sample
// is valid over the interval that ends at the *next* sample, so Push holds
// each sample until its successor arrives and then propagates across the
// interval between them.
type Filter struct {
	varForce float64
	varRate  float64

	t     float64
	force [3]float64
	rate  [3]float64

	st     State
	cov    *mat.SymDense
	seeded bool
	pushed bool
}

// NewFilter returns a Filter with the given inertial noise variances. Seed
// must be called before the first Push.
func NewFilter(varForce, varRate float64) *Filter {
	return &Filter{varForce: varForce, varRate: varRate}
}

// Seed installs the externally supplied initial state and covariance. The
// covariance is copied; the caller keeps ownership of its argument.
func (f *Filter) Seed(st State, cov *mat.SymDense) {
	f.st = st
	f.cov = mat.NewSymDense(ErrStateDim, nil)
	f.cov.CopySym(cov)
	f.seeded = true
	f.pushed = false
}

// Push feeds one inertial sample. The first pushed sample only establishes
// the clock; every subsequent one propagates state and covariance across the
// interval since its predecessor using the predecessor's readings.
func (f *Filter) Push(t float64, force, rate [3]float64) error {
	if !f.seeded {
		return fmt.Errorf("eskf: filter not seeded")
	}
	if !f.pushed {
		f.t, f.force, f.rate = t, force, rate
		f.pushed = true
		return nil
	}
	dt := t - f.t
	if dt <= 0 {
		return fmt.Errorf("%w: dt=%g at t=%g", ErrInvalidTimestep, dt, t)
	}
	next, err := Propagate(f.st, f.force, f.rate, dt)
	if err != nil {
		return err
	}
	f.cov = PropagateCovariance(f.cov, f.st.Orientation, f.force, dt, f.varForce, f.varRate)
	f.st = next
	f.t, f.force, f.rate = t, force, rate
	return nil
}

// CorrectPosition folds an absolute position observation with the given
// sensor variance into the current estimate.
func (f *Filter) CorrectPosition(variance float64, y [3]float64) error {
	st, cov, err := Correct(variance, f.cov, y, f.st)
	if err != nil {
		return err
	}
	f.st, f.cov = st, cov
	return nil
}

// Time returns the timestamp of the current estimate.
func (f *Filter) Time() float64 { return f.t }

// State returns the current nominal state (by value).
func (f *Filter) State() State { return f.st }

// Covariance returns the current error covariance. Propagation and correction
// always allocate a fresh matrix, so the returned snapshot is stable.
func (f *Filter) Covariance() *mat.SymDense { return f.cov }
