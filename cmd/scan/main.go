package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
	"github.com/chetangadidesi/StateEstimationAV/trajlog"
)

// scan inspects a binary trajectory log: record counts, time span, clock
// monotonicity and covariance health.
func main() {
	trajPath := flag.String("traj", "", "Input trajectory log")
	noCRC := flag.Bool("no-crc", false, "Skip CRC verification")
	full := flag.Bool("full", false, "Run the full eigenvalue check on every covariance")
	flag.Parse()

	if *trajPath == "" {
		fmt.Println("--traj required")
		os.Exit(1)
	}

	p := trajlog.NewParser(*trajPath)
	p.VerifyCRC = !*noCRC
	if err := p.Parse(); err != nil {
		fmt.Printf("parse failed: %v\n", err)
		os.Exit(1)
	}

	first, last := p.Span()
	fmt.Printf("%s: %d records, %d skipped\n", *trajPath, len(p.Records), p.Skipped)
	if len(p.Records) == 0 {
		return
	}
	fmt.Printf("span %.6f .. %.6f (%.3f s)\n", first, last, last-first)

	backsteps := 0
	withCov := 0
	divergent := 0
	normDrift := 0.0
	traceMin, traceMax, traceSum := math.MaxFloat64, 0.0, 0.0

	prev := first
	for i, rec := range p.Records {
		if i > 0 && rec.T <= prev {
			backsteps++
		}
		prev = rec.T

		if d := math.Abs(rec.State.Orientation.Norm() - 1); d > normDrift {
			normDrift = d
		}

		if rec.Cov == nil {
			continue
		}
		withCov++
		tr := 0.0
		for j := 0; j < eskf.ErrStateDim; j++ {
			tr += rec.Cov.At(j, j)
		}
		traceMin = math.Min(traceMin, tr)
		traceMax = math.Max(traceMax, tr)
		traceSum += tr

		var err error
		if *full {
			err = eskf.CheckCovariance(rec.Cov)
		} else {
			for j := 0; j < eskf.ErrStateDim; j++ {
				if rec.Cov.At(j, j) < 0 {
					err = fmt.Errorf("negative variance on diagonal %d", j)
					break
				}
			}
		}
		if err != nil {
			divergent++
			if divergent <= 5 {
				fmt.Printf("record %d (t=%.6f): %v\n", i, rec.T, err)
			}
		}
	}

	fmt.Printf("clock backsteps: %d\n", backsteps)
	fmt.Printf("max quaternion norm drift: %.3g\n", normDrift)
	if withCov > 0 {
		fmt.Printf("covariance: %d records, trace min/mean/max %.4g / %.4g / %.4g\n",
			withCov, traceMin, traceSum/float64(withCov), traceMax)
		fmt.Printf("divergent covariances: %d\n", divergent)
		printFinalAttitudeBounds(p)
	}

	if backsteps > 0 || divergent > 0 {
		os.Exit(1)
	}
}

// printFinalAttitudeBounds projects the last record's rotation covariance
// block into roll/pitch/yaw 3σ bounds.
func printFinalAttitudeBounds(p *trajlog.Parser) {
	for i := len(p.Records) - 1; i >= 0; i-- {
		rec := p.Records[i]
		if rec.Cov == nil {
			continue
		}
		jac := rotation.RPYJacobianAxisAngle(rec.State.Orientation.AxisAngle())
		block := mat.NewDense(3, 3, nil)
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				block.Set(r, c, rec.Cov.At(6+r, 6+c))
			}
		}
		var tmp, proj mat.Dense
		tmp.Mul(jac, block)
		proj.Mul(&tmp, jac.T())

		fmt.Printf("final attitude 3σ (rad): roll %.4g, pitch %.4g, yaw %.4g\n",
			3*math.Sqrt(math.Max(proj.At(0, 0), 0)),
			3*math.Sqrt(math.Max(proj.At(1, 1), 0)),
			3*math.Sqrt(math.Max(proj.At(2, 2), 0)))
		return
	}
}
