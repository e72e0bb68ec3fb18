package eskf

// Gravity is the inertial-frame gravity vector, m/s².
var Gravity = [3]float64{0, 0, -9.81}

// Default sensor noise variances. These mirror the tuning the engine ships
// with; callers override them per deployment.
const (
	VarIMUForce = 0.01
	VarIMURate  = 0.01
	VarGNSS     = 10.0
	VarLIDAR    = 1.0
)

const (
	// ErrStateDim is the dimension of the error state
	// (δposition, δvelocity, δθ).
	ErrStateDim = 9

	// noiseDim is the dimension of the injected inertial noise
	// (specific force, angular rate).
	noiseDim = 6

	// PSDTol is the magnitude below which a negative covariance eigenvalue
	// or diagonal entry is attributed to floating-point round-off.
	PSDTol = 1e-9
)
