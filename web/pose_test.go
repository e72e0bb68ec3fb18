package web

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

func TestEncodePose(t *testing.T) {
	st := eskf.State{
		Position:    [3]float64{1, 2, 3},
		Velocity:    [3]float64{0.1, 0.2, 0.3},
		Orientation: rotation.FromEuler(0, 0, math.Pi/2),
	}
	cov := eskf.DiagonalCovariance([9]float64{4, 4, 4, 1, 1, 1, 0.01, 0.01, 0.01})

	var msg PoseMessage
	if err := json.Unmarshal(EncodePose(7.5, st, cov), &msg); err != nil {
		t.Fatal(err)
	}

	if msg.T != 7.5 || msg.Position != st.Position {
		t.Errorf("t=%g p=%v", msg.T, msg.Position)
	}
	if math.Abs(msg.RPY[2]-math.Pi/2) > 1e-9 {
		t.Errorf("yaw = %g, want π/2", msg.RPY[2])
	}
	// 3σ on a variance of 4 is 6.
	for i := 0; i < 3; i++ {
		if math.Abs(msg.SigmaPos[i]-6) > 1e-9 {
			t.Errorf("sigma_p[%d] = %g, want 6", i, msg.SigmaPos[i])
		}
	}
	for i := 0; i < 3; i++ {
		if msg.SigmaRPY[i] <= 0 {
			t.Errorf("sigma_rpy[%d] = %g, want positive", i, msg.SigmaRPY[i])
		}
	}
}

func TestEncodePoseWithoutCovariance(t *testing.T) {
	st := eskf.State{Orientation: rotation.Identity()}
	var msg PoseMessage
	if err := json.Unmarshal(EncodePose(0, st, nil), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.SigmaPos != [3]float64{} || msg.SigmaRPY != [3]float64{} {
		t.Errorf("sigma fields set without covariance: %+v", msg)
	}
}
