package eskf

import (
	"errors"
	"fmt"
)

// Timeline is a time-stamped sequence of 3-vectors from one position sensor.
// Timestamps must be monotonically non-decreasing and aligned to the same
// clock as the inertial timeline.
type Timeline struct {
	T []float64
	V [][3]float64
}

// Len returns the number of samples.
func (tl Timeline) Len() int { return len(tl.T) }

// Append adds one sample.
func (tl *Timeline) Append(t float64, v [3]float64) {
	tl.T = append(tl.T, t)
	tl.V = append(tl.V, v)
}

// Validate checks timestamp/value alignment and monotonicity.
func (tl Timeline) Validate() error {
	if len(tl.T) != len(tl.V) {
		return fmt.Errorf("timeline: %d timestamps for %d values", len(tl.T), len(tl.V))
	}
	for i := 1; i < len(tl.T); i++ {
		if tl.T[i] < tl.T[i-1] {
			return fmt.Errorf("timeline: timestamps regress at index %d (%g < %g)", i, tl.T[i], tl.T[i-1])
		}
	}
	return nil
}

// IMUTimeline is the master clock of the filter: one timestamp sequence with
// the specific-force and angular-rate tracks aligned to it.
type IMUTimeline struct {
	T     []float64
	Force [][3]float64
	Rate  [][3]float64
}

// Len returns the number of inertial samples.
func (tl IMUTimeline) Len() int { return len(tl.T) }

// Append adds one inertial sample pair.
func (tl *IMUTimeline) Append(t float64, force, rate [3]float64) {
	tl.T = append(tl.T, t)
	tl.Force = append(tl.Force, force)
	tl.Rate = append(tl.Rate, rate)
}

// Validate checks track alignment and that timestamps strictly increase; the
// inertial clock drives propagation and cannot stall or regress.
func (tl IMUTimeline) Validate() error {
	if len(tl.T) != len(tl.Force) || len(tl.T) != len(tl.Rate) {
		return errors.New("imu timeline: misaligned force/rate tracks")
	}
	for i := 1; i < len(tl.T); i++ {
		if tl.T[i] <= tl.T[i-1] {
			return fmt.Errorf("imu timeline: %w at index %d", ErrInvalidTimestep, i)
		}
	}
	return nil
}
