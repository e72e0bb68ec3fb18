package eskf

import (
	"errors"
	"testing"
)

func TestFilterRequiresSeed(t *testing.T) {
	f := NewFilter(VarIMUForce, VarIMURate)
	if err := f.Push(0, restForce, [3]float64{}); err == nil {
		t.Fatal("push before seed succeeded")
	}
}

func TestFilterFirstPushOnlySetsClock(t *testing.T) {
	f := NewFilter(VarIMUForce, VarIMURate)
	f.Seed(restInitial(), NewCovariance())

	if err := f.Push(1.5, restForce, [3]float64{}); err != nil {
		t.Fatal(err)
	}
	if f.Time() != 1.5 {
		t.Errorf("time = %g, want 1.5", f.Time())
	}
	if f.State() != restInitial() {
		t.Errorf("state changed on the first push: %+v", f.State())
	}
}

func TestFilterRejectsNonIncreasingClock(t *testing.T) {
	f := NewFilter(VarIMUForce, VarIMURate)
	f.Seed(restInitial(), NewCovariance())

	if err := f.Push(0, restForce, [3]float64{}); err != nil {
		t.Fatal(err)
	}
	if err := f.Push(0, restForce, [3]float64{}); !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("stalled clock: got %v, want ErrInvalidTimestep", err)
	}
	if err := f.Push(-0.01, restForce, [3]float64{}); !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("regressing clock: got %v, want ErrInvalidTimestep", err)
	}
}

func TestFilterMatchesScheduler(t *testing.T) {
	imu := restIMU(50, 0.01)
	var gnss Timeline
	gnss.Append(imu.T[25], [3]float64{0.2, -0.1, 0.05})

	sched := NewScheduler(imu, gnss, Timeline{})
	res, err := sched.Run(restInitial(), identityCovariance())
	if err != nil {
		t.Fatal(err)
	}

	f := NewFilter(VarIMUForce, VarIMURate)
	f.Seed(restInitial(), identityCovariance())
	gi := 0
	for k := 0; k < imu.Len(); k++ {
		if err := f.Push(imu.T[k], imu.Force[k], imu.Rate[k]); err != nil {
			t.Fatal(err)
		}
		if k > 0 && gi < gnss.Len() && gnss.T[gi] == imu.T[k] {
			if err := f.CorrectPosition(VarGNSS, gnss.V[gi]); err != nil {
				t.Fatal(err)
			}
			gi++
		}
	}

	last := res.Steps[len(res.Steps)-1]
	if f.State() != last.State {
		t.Fatalf("streaming state %+v differs from batch %+v", f.State(), last.State)
	}
	for i := 0; i < ErrStateDim; i++ {
		for j := 0; j < ErrStateDim; j++ {
			if f.Covariance().At(i, j) != last.Cov.At(i, j) {
				t.Fatalf("covariance diverges at [%d,%d]", i, j)
			}
		}
	}
}

func TestFilterSeedCopiesCovariance(t *testing.T) {
	cov := identityCovariance()
	f := NewFilter(VarIMUForce, VarIMURate)
	f.Seed(restInitial(), cov)

	cov.SetSym(0, 0, 999)
	if f.Covariance().At(0, 0) == 999 {
		t.Fatal("filter aliases the caller's covariance")
	}
}
