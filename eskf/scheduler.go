package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Step is one entry of the estimate history: the nominal state and error
// covariance at an inertial timestamp.
type Step struct {
	T     float64
	State State
	Cov   *mat.SymDense
}

// Result is the full per-step history of a run plus the non-fatal faults
// encountered along the way.
type Result struct {
	Steps  []Step
	Faults []Fault
}

// Scheduler drives the filter across the full inertial timeline, interleaving
// GNSS and LIDAR position corrections whenever their timestamps align with
// the inertial clock. Sensor cursors only move forward, and they move only
// when a sample is consumed.
type Scheduler struct {
	IMU   IMUTimeline
	GNSS  Timeline
	LIDAR Timeline

	VarForce float64
	VarRate  float64
	VarGNSS  float64
	VarLIDAR float64
}

// NewScheduler returns a Scheduler over the given timelines with the default
// noise variances.
func NewScheduler(imu IMUTimeline, gnss, lidar Timeline) *Scheduler {
	return &Scheduler{
		IMU:      imu,
		GNSS:     gnss,
		LIDAR:    lidar,
		VarForce: VarIMUForce,
		VarRate:  VarIMURate,
		VarGNSS:  VarGNSS,
		VarLIDAR: VarLIDAR,
	}
}

// Run executes the fusion loop from the supplied initial state and covariance
// (seeded externally, typically from ground truth or a coarse initializer).
//
// Per step k: propagate with sample k−1's inertial data across Δt, then apply
// a GNSS correction if the GNSS cursor's timestamp equals the current
// inertial timestamp, then a LIDAR correction if the LIDAR cursor's timestamp
// equals the *previous* inertial timestamp. The order is fixed: corrections
// are sequential, share the covariance, and must replay deterministically.
//
// A broken inertial clock or a singular innovation aborts the run with the
// partial history; covariance divergence is recorded as a fault and the run
// continues. Measurements whose timestamps never match are never consumed.
func (s *Scheduler) Run(initial State, initialCov *mat.SymDense) (*Result, error) {
	if err := s.IMU.Validate(); err != nil {
		return nil, err
	}
	if err := s.GNSS.Validate(); err != nil {
		return nil, fmt.Errorf("gnss: %w", err)
	}
	if err := s.LIDAR.Validate(); err != nil {
		return nil, fmt.Errorf("lidar: %w", err)
	}
	if s.IMU.Len() == 0 {
		return &Result{}, nil
	}

	f := NewFilter(s.VarForce, s.VarRate)
	f.Seed(initial, initialCov)
	if err := f.Push(s.IMU.T[0], s.IMU.Force[0], s.IMU.Rate[0]); err != nil {
		return nil, err
	}

	res := &Result{Steps: make([]Step, 0, s.IMU.Len())}
	res.Steps = append(res.Steps, Step{T: s.IMU.T[0], State: f.State(), Cov: f.Covariance()})

	gi, li := 0, 0
	for k := 1; k < s.IMU.Len(); k++ {
		if err := f.Push(s.IMU.T[k], s.IMU.Force[k], s.IMU.Rate[k]); err != nil {
			return res, Fault{Step: k, Err: err}
		}

		if gi < s.GNSS.Len() && s.GNSS.T[gi] == s.IMU.T[k] {
			if err := f.CorrectPosition(s.VarGNSS, s.GNSS.V[gi]); err != nil {
				return res, Fault{Step: k, Sensor: "gnss", Err: err}
			}
			gi++
		}
		if li < s.LIDAR.Len() && s.LIDAR.T[li] == s.IMU.T[k-1] {
			if err := f.CorrectPosition(s.VarLIDAR, s.LIDAR.V[li]); err != nil {
				return res, Fault{Step: k, Sensor: "lidar", Err: err}
			}
			li++
		}

		if err := checkDiagonal(f.Covariance()); err != nil {
			res.Faults = append(res.Faults, Fault{Step: k, Err: err})
		}

		res.Steps = append(res.Steps, Step{T: s.IMU.T[k], State: f.State(), Cov: f.Covariance()})
	}
	return res, nil
}
