package eskf

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestep reports a non-positive Δt between consecutive
	// inertial samples. The inertial clock is broken; the run cannot proceed.
	ErrInvalidTimestep = errors.New("eskf: non-positive inertial timestep")

	// ErrSingularInnovation reports an innovation covariance that cannot be
	// inverted. With a positive sensor variance this cannot happen, so it
	// always indicates a misconfiguration.
	ErrSingularInnovation = errors.New("eskf: singular innovation covariance")

	// ErrCovarianceDivergence reports an error covariance that lost positive
	// semi-definiteness beyond the floating-point tolerance.
	ErrCovarianceDivergence = errors.New("eskf: covariance lost positive semi-definiteness")
)

// Fault ties an error to the inertial step and sensor that produced it, so a
// caller can decide whether to halt, reinitialize, or continue degraded.
type Fault struct {
	Step   int
	Sensor string
	Err    error
}

func (f Fault) Error() string {
	if f.Sensor == "" {
		return fmt.Sprintf("step %d: %v", f.Step, f.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", f.Step, f.Sensor, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

func errWithEigen(v float64) error {
	return fmt.Errorf("%w: eigenvalue %g", ErrCovarianceDivergence, v)
}
