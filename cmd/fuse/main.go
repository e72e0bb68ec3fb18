package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/config"
	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/publish"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
	"github.com/chetangadidesi/StateEstimationAV/trajlog"
)

func main() {
	imuPath := flag.String("imu", "", "Inertial CSV (t,fx,fy,fz,wx,wy,wz)")
	gnssPath := flag.String("gnss", "", "GNSS CSV (t,x,y,z)")
	lidarPath := flag.String("lidar", "", "LIDAR CSV (t,x,y,z), sensor frame")
	missionPath := flag.String("mission", "", "Mission XML, defaults apply if empty")
	outPath := flag.String("out", "fused.csv", "Output CSV path")
	trajPath := flag.String("traj", "", "Optional binary trajectory log output")
	truthPath := flag.String("truth", "", "Optional ground truth CSV (t,x,y,z) for RMSE")
	atStep := flag.Int("at", -1, "Print full state and covariance at this step")
	p0 := flag.Float64("p0", 0, "Initial covariance diagonal value")
	doPublish := flag.Bool("publish", false, "Publish fused poses to the mission txlist")
	flag.Parse()

	if *imuPath == "" {
		fmt.Println("--imu required")
		os.Exit(1)
	}

	m := config.Default()
	if *missionPath != "" {
		var err error
		m, err = config.Load(*missionPath)
		if err != nil {
			fmt.Printf("load mission failed: %v\n", err)
			os.Exit(1)
		}
	}

	imu, err := trajlog.LoadIMUTimeline(*imuPath)
	if err != nil {
		fmt.Printf("load imu failed: %v\n", err)
		os.Exit(1)
	}

	var gnss, lidar eskf.Timeline
	if *gnssPath != "" {
		if gnss, err = trajlog.LoadTimeline(*gnssPath); err != nil {
			fmt.Printf("load gnss failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *lidarPath != "" {
		raw, err := trajlog.LoadTimeline(*lidarPath)
		if err != nil {
			fmt.Printf("load lidar failed: %v\n", err)
			os.Exit(1)
		}
		lidar = m.Lidar.ApplyTimeline(raw)
	}

	sched := eskf.NewScheduler(imu, gnss, lidar)
	sched.VarForce = m.VarForce
	sched.VarRate = m.VarRate
	sched.VarGNSS = m.VarGNSS
	sched.VarLIDAR = m.VarLIDAR

	initial := initialState(gnss)
	var cov *mat.SymDense
	if *p0 > 0 {
		var diag [9]float64
		for i := range diag {
			diag[i] = *p0
		}
		cov = eskf.DiagonalCovariance(diag)
	} else {
		cov = eskf.NewCovariance()
	}

	res, err := sched.Run(initial, cov)
	if err != nil {
		var fault eskf.Fault
		if errors.As(err, &fault) {
			fmt.Printf("run aborted at step %d (%s): %v\n", fault.Step, fault.Sensor, fault.Err)
		} else {
			fmt.Printf("run failed: %v\n", err)
		}
		if res == nil || len(res.Steps) == 0 {
			os.Exit(1)
		}
		fmt.Printf("keeping %d steps computed before the fault\n", len(res.Steps))
	}

	for _, f := range res.Faults {
		fmt.Printf("fault at step %d (%s): %v\n", f.Step, f.Sensor, f.Err)
	}

	if err := writeFused(*outPath, res); err != nil {
		fmt.Printf("write output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("written %d steps to %s\n", len(res.Steps), *outPath)

	if *trajPath != "" {
		if err := writeTraj(*trajPath, res); err != nil {
			fmt.Printf("write trajectory log failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *atStep >= 0 {
		printStep(res, *atStep)
	}

	if *truthPath != "" {
		rmse, n, err := compareWithTruth(res, *truthPath)
		if err != nil {
			fmt.Printf("rmse compare failed: %v\n", err)
		} else {
			fmt.Printf("position RMSE %.4f m over %d matched steps\n", rmse, n)
		}
	}

	if *doPublish && len(m.Publish) > 0 {
		publishResult(m, res)
	}
}

// initialState seeds the run at the first GNSS fix if one exists, otherwise
// at the origin.
func initialState(gnss eskf.Timeline) eskf.State {
	st := eskf.State{Orientation: rotation.Identity()}
	if gnss.Len() > 0 {
		st.Position = gnss.V[0]
	}
	return st
}

func writeFused(path string, res *eskf.Result) error {
	rows := [][]string{{"t", "x_m", "y_m", "z_m", "vx", "vy", "vz", "roll", "pitch", "yaw"}}
	for _, s := range res.Steps {
		roll, pitch, yaw := s.State.Orientation.Euler()
		rows = append(rows, []string{
			fmt.Sprintf("%.6f", s.T),
			fmt.Sprintf("%.4f", s.State.Position[0]),
			fmt.Sprintf("%.4f", s.State.Position[1]),
			fmt.Sprintf("%.4f", s.State.Position[2]),
			fmt.Sprintf("%.4f", s.State.Velocity[0]),
			fmt.Sprintf("%.4f", s.State.Velocity[1]),
			fmt.Sprintf("%.4f", s.State.Velocity[2]),
			fmt.Sprintf("%.5f", roll),
			fmt.Sprintf("%.5f", pitch),
			fmt.Sprintf("%.5f", yaw),
		})
	}
	return writeCSV(path, rows)
}

func writeTraj(path string, res *eskf.Result) error {
	tw, err := trajlog.NewWriter(path)
	if err != nil {
		return err
	}
	defer tw.Close()
	for _, s := range res.Steps {
		if err := tw.WriteStep(s.T, s.State, s.Cov); err != nil {
			return err
		}
	}
	return nil
}

func printStep(res *eskf.Result, step int) {
	if step >= len(res.Steps) {
		fmt.Printf("step %d out of range, run has %d steps\n", step, len(res.Steps))
		return
	}
	s := res.Steps[step]
	fmt.Printf("step %d t=%.6f\n", step, s.T)
	fmt.Printf("  p = %v\n", s.State.Position)
	fmt.Printf("  v = %v\n", s.State.Velocity)
	fmt.Printf("  q = %v\n", s.State.Orientation)
	fmt.Printf("  P =\n%v\n", mat.Formatted(s.Cov, mat.Prefix("      "), mat.Squeeze()))
}

// compareWithTruth matches fused steps to truth rows by timestamp and
// reports the 3D position RMSE.
func compareWithTruth(res *eskf.Result, path string) (float64, int, error) {
	truth, err := trajlog.LoadTimeline(path)
	if err != nil {
		return 0, 0, err
	}
	var sum float64
	n := 0
	cursor := 0
	for _, s := range res.Steps {
		for cursor < truth.Len() && truth.T[cursor] < s.T {
			cursor++
		}
		if cursor >= truth.Len() || truth.T[cursor] != s.T {
			continue
		}
		for i := 0; i < 3; i++ {
			d := s.State.Position[i] - truth.V[cursor][i]
			sum += d * d
		}
		n++
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("no matching timestamps")
	}
	return math.Sqrt(sum / float64(n)), n, nil
}

func publishResult(m config.Mission, res *eskf.Result) {
	snd := publish.NewSender()
	for _, tgt := range m.Publish {
		addr := fmt.Sprintf("%s:%d", tgt.Addr, tgt.Port)
		if err := snd.AddUDPTarget(addr, publish.FlagPose|publish.FlagFault); err != nil {
			fmt.Printf("publish target %s skipped: %v\n", addr, err)
			continue
		}
		if tgt.Header != "" {
			snd.SetHeader(tgt.Header)
		}
	}
	if err := snd.Start(); err != nil {
		fmt.Printf("publish start failed: %v\n", err)
		return
	}
	defer snd.Stop()
	for _, s := range res.Steps {
		snd.SendPose(s.T, s.State)
	}
	for _, f := range res.Faults {
		snd.SendFault(f)
	}
	fmt.Printf("published %d poses to %d targets\n", len(res.Steps), len(m.Publish))
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
