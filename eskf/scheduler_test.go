package eskf

import (
	"errors"
	"testing"

	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

// restIMU builds n inertial samples of a vehicle at rest, dt apart.
func restIMU(n int, dt float64) IMUTimeline {
	var tl IMUTimeline
	for i := 0; i < n; i++ {
		tl.Append(float64(i)*dt, restForce, [3]float64{})
	}
	return tl
}

func restInitial() State {
	return State{Orientation: rotation.Identity()}
}

func TestSchedulerRest(t *testing.T) {
	imu := restIMU(100, 0.01)
	sched := NewScheduler(imu, Timeline{}, Timeline{})

	res, err := sched.Run(restInitial(), NewCovariance())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Steps) != imu.Len() {
		t.Fatalf("got %d steps, want %d", len(res.Steps), imu.Len())
	}
	if len(res.Faults) != 0 {
		t.Fatalf("unexpected faults: %v", res.Faults)
	}

	last := res.Steps[len(res.Steps)-1]
	for i := 0; i < 3; i++ {
		if !approx(last.State.Position[i], 0, tol) {
			t.Errorf("position[%d] drifted to %.12f at rest", i, last.State.Position[i])
		}
	}
	if err := CheckCovariance(last.Cov); err != nil {
		t.Errorf("final covariance: %v", err)
	}
}

func TestSchedulerGNSSGateExactMatch(t *testing.T) {
	imu := restIMU(20, 0.01)

	// One fix aligned with the inertial clock, one that misses it by a
	// fraction of a millisecond and must never be consumed.
	var gnss Timeline
	gnss.Append(imu.T[5], [3]float64{0, 0, 0})
	gnss.Append(imu.T[10]+1e-7, [3]float64{500, 500, 500})

	withGNSS := NewScheduler(imu, gnss, Timeline{})
	resW, err := withGNSS.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}
	without := NewScheduler(imu, Timeline{}, Timeline{})
	resO, err := without.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}

	// The aligned fix deflates the covariance at step 5.
	if covTrace(resW.Steps[5].Cov) >= covTrace(resO.Steps[5].Cov) {
		t.Error("aligned gnss fix did not deflate the covariance")
	}

	// The misaligned fix would have yanked the estimate to 500 m out.
	last := resW.Steps[len(resW.Steps)-1]
	for i := 0; i < 3; i++ {
		if last.State.Position[i] > 1 {
			t.Fatalf("misaligned fix was consumed: position %v", last.State.Position)
		}
	}
}

func TestSchedulerLidarGatesOnPreviousTimestamp(t *testing.T) {
	imu := restIMU(20, 0.01)

	var lidar Timeline
	lidar.Append(imu.T[7], [3]float64{0, 0, 0})

	sched := NewScheduler(imu, Timeline{}, lidar)
	res, err := sched.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}
	without := NewScheduler(imu, Timeline{}, Timeline{})
	resO, err := without.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}

	// A sweep stamped at T[7] lands with the step to T[8].
	if covTrace(res.Steps[7].Cov) < covTrace(resO.Steps[7].Cov) {
		t.Error("lidar applied a step early")
	}
	if covTrace(res.Steps[8].Cov) >= covTrace(resO.Steps[8].Cov) {
		t.Error("lidar sweep at the previous timestamp was not applied")
	}
}

func TestSchedulerRejectsBrokenClock(t *testing.T) {
	var imu IMUTimeline
	imu.Append(0, restForce, [3]float64{})
	imu.Append(0.01, restForce, [3]float64{})
	imu.Append(0.01, restForce, [3]float64{}) // stalled

	sched := NewScheduler(imu, Timeline{}, Timeline{})
	_, err := sched.Run(restInitial(), NewCovariance())
	if !errors.Is(err, ErrInvalidTimestep) {
		t.Fatalf("got %v, want ErrInvalidTimestep", err)
	}
}

func TestSchedulerSingularInnovationAborts(t *testing.T) {
	imu := restIMU(10, 0.01)
	var gnss Timeline
	gnss.Append(imu.T[4], [3]float64{})

	sched := NewScheduler(imu, gnss, Timeline{})
	sched.VarGNSS = 0 // misconfigured sensor

	res, err := sched.Run(restInitial(), NewCovariance())
	if !errors.Is(err, ErrSingularInnovation) {
		t.Fatalf("got %v, want ErrSingularInnovation", err)
	}
	var fault Fault
	if !errors.As(err, &fault) {
		t.Fatal("abort error does not carry the fault context")
	}
	if fault.Step != 4 || fault.Sensor != "gnss" {
		t.Errorf("fault = %+v, want step 4 sensor gnss", fault)
	}
	if len(res.Steps) != 4 {
		t.Errorf("partial history has %d steps, want 4", len(res.Steps))
	}
}

func TestSchedulerEmptyIMU(t *testing.T) {
	sched := NewScheduler(IMUTimeline{}, Timeline{}, Timeline{})
	res, err := sched.Run(restInitial(), NewCovariance())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Steps) != 0 {
		t.Fatalf("got %d steps from an empty timeline", len(res.Steps))
	}
}

func TestSchedulerSnapshotsAreStable(t *testing.T) {
	imu := restIMU(50, 0.01)
	var gnss Timeline
	gnss.Append(imu.T[20], [3]float64{0.1, 0, 0})

	sched := NewScheduler(imu, gnss, Timeline{})
	res, err := sched.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}

	// Later steps must not alias earlier covariance snapshots.
	for k := 1; k < len(res.Steps); k++ {
		if res.Steps[k].Cov == res.Steps[k-1].Cov {
			t.Fatalf("steps %d and %d share one covariance matrix", k-1, k)
		}
	}
	// A rest trajectory interrupted by one offset fix: states before the
	// fix keep their pre-correction values.
	if res.Steps[19].State.Position[0] != 0 {
		t.Errorf("snapshot before the fix mutated: %v", res.Steps[19].State.Position)
	}
	if res.Steps[20].State.Position[0] == 0 {
		t.Error("fix at step 20 had no effect")
	}
}
