package web

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// PoseMessage is the JSON payload streamed to websocket clients. The Sigma
// fields are 3-sigma bounds, position in meters, attitude in radians.
type PoseMessage struct {
	T        float64    `json:"t"`
	Position [3]float64 `json:"p"`
	Velocity [3]float64 `json:"v"`
	RPY      [3]float64 `json:"rpy"`
	SigmaPos [3]float64 `json:"sig_p,omitempty"`
	SigmaRPY [3]float64 `json:"sig_rpy,omitempty"`
}

// EncodePose builds the wire message for one fused step. cov may be nil, the
// sigma fields are then omitted.
func EncodePose(t float64, st eskf.State, cov *mat.SymDense) []byte {
	roll, pitch, yaw := st.Orientation.Euler()
	msg := PoseMessage{
		T:        t,
		Position: st.Position,
		Velocity: st.Velocity,
		RPY:      [3]float64{roll, pitch, yaw},
	}
	if cov != nil {
		for i := 0; i < 3; i++ {
			msg.SigmaPos[i] = 3 * math.Sqrt(math.Max(cov.At(i, i), 0))
		}
		msg.SigmaRPY = rpySigma(st, cov)
	}
	b, _ := json.Marshal(msg)
	return b
}

// rpySigma projects the attitude error covariance block into roll/pitch/yaw
// through the Jacobian of the Euler extraction at the current orientation.
func rpySigma(st eskf.State, cov *mat.SymDense) [3]float64 {
	a := st.Orientation.AxisAngle()
	jac := rotation.RPYJacobianAxisAngle(a)

	block := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			block.Set(i, j, cov.At(6+i, 6+j))
		}
	}

	var tmp, proj mat.Dense
	tmp.Mul(jac, block)
	proj.Mul(&tmp, jac.T())

	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = 3 * math.Sqrt(math.Max(proj.At(i, i), 0))
	}
	return out
}
