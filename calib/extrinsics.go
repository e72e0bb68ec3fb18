// Package calib applies the fixed extrinsic calibration that moves sensor
// reported positions into the body frame before they reach the filter.
package calib

import (
	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// Extrinsics is a static rotation plus translation from a sensor frame into
// the body frame.
type Extrinsics struct {
	R *mat.Dense
	T [3]float64
}

// FromEuler builds extrinsics from the mounting roll, pitch, yaw (radians)
// and lever arm.
func FromEuler(roll, pitch, yaw float64, t [3]float64) Extrinsics {
	return Extrinsics{R: rotation.FromEuler(roll, pitch, yaw).RotationMatrix(), T: t}
}

// Identity returns a pass-through calibration.
func Identity() Extrinsics {
	return FromEuler(0, 0, 0, [3]float64{})
}

// Apply transforms one sensor-frame position into the body frame.
func (e Extrinsics) Apply(p [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = e.R.At(i, 0)*p[0] + e.R.At(i, 1)*p[1] + e.R.At(i, 2)*p[2] + e.T[i]
	}
	return out
}

// ApplyTimeline returns a copy of the timeline with every sample transformed.
// The input is left untouched.
func (e Extrinsics) ApplyTimeline(tl eskf.Timeline) eskf.Timeline {
	out := eskf.Timeline{
		T: append([]float64(nil), tl.T...),
		V: make([][3]float64, tl.Len()),
	}
	for i, v := range tl.V {
		out.V[i] = e.Apply(v)
	}
	return out
}
