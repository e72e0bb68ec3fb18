package trajlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

// LoadTimeline reads a positional sensor CSV with rows t,x,y,z. A single
// header row is tolerated.
func LoadTimeline(path string) (eskf.Timeline, error) {
	var tl eskf.Timeline
	rows, err := readCSV(path, 4)
	if err != nil {
		return tl, err
	}
	for _, row := range rows {
		tl.Append(row[0], [3]float64{row[1], row[2], row[3]})
	}
	return tl, nil
}

// LoadIMUTimeline reads an inertial CSV with rows t,fx,fy,fz,wx,wy,wz.
func LoadIMUTimeline(path string) (eskf.IMUTimeline, error) {
	var tl eskf.IMUTimeline
	rows, err := readCSV(path, 7)
	if err != nil {
		return tl, err
	}
	for _, row := range rows {
		tl.Append(row[0],
			[3]float64{row[1], row[2], row[3]},
			[3]float64{row[4], row[5], row[6]})
	}
	return tl, nil
}

func readCSV(path string, fields int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(records))
	for i, rec := range records {
		if len(rec) < fields {
			return nil, fmt.Errorf("%s row %d: want %d fields, got %d", path, i+1, fields, len(rec))
		}
		row := make([]float64, fields)
		ok := true
		for j := 0; j < fields; j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				ok = false
				break
			}
			row[j] = v
		}
		if !ok {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("%s row %d: bad number", path, i+1)
		}
		out = append(out, row)
	}
	return out, nil
}
