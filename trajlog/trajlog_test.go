package trajlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
)

func sampleState(i int) eskf.State {
	return eskf.State{
		Position:    [3]float64{float64(i), float64(i) * 0.5, -float64(i)},
		Velocity:    [3]float64{0.1, -0.2, 0.3},
		Orientation: rotation.FromEuler(0.01*float64(i), 0, 0.1),
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trajlog")

	tw, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	cov := eskf.DiagonalCovariance([9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	for i := 0; i < 5; i++ {
		var c = cov
		if i == 2 {
			c = nil // state-only record
		}
		if err := tw.WriteStep(float64(i)*0.01, sampleState(i), c); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	p := NewParser(path)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if len(p.Records) != 5 {
		t.Fatalf("got %d records, want 5", len(p.Records))
	}
	if p.Skipped != 0 {
		t.Fatalf("%d records skipped", p.Skipped)
	}

	for i, rec := range p.Records {
		if rec.T != float64(i)*0.01 {
			t.Errorf("record %d: t = %g", i, rec.T)
		}
		if rec.State != sampleState(i) {
			t.Errorf("record %d: state %+v", i, rec.State)
		}
		if i == 2 {
			if rec.Cov != nil {
				t.Errorf("record 2: unexpected covariance")
			}
			continue
		}
		if rec.Cov == nil {
			t.Fatalf("record %d: missing covariance", i)
		}
		for j := 0; j < eskf.ErrStateDim; j++ {
			if rec.Cov.At(j, j) != float64(j+1) {
				t.Errorf("record %d: cov[%d,%d] = %g", i, j, j, rec.Cov.At(j, j))
			}
		}
	}

	first, last := p.Span()
	if first != 0 || last != 0.04 {
		t.Errorf("span %g..%g, want 0..0.04", first, last)
	}
}

func TestParserSkipsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trajlog")

	tw, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := tw.WriteStep(float64(i), sampleState(i), nil); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()

	// Flip one payload byte inside the second record.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	recLen := recordHdrLen + stateLen + crcLen
	data[globalHdrLen+recLen+recordHdrLen+3] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	p := NewParser(path)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if len(p.Records) != 2 || p.Skipped != 1 {
		t.Fatalf("got %d records, %d skipped; want 2 and 1", len(p.Records), p.Skipped)
	}
}

func TestParserToleratesTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trajlog")

	tw, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := tw.WriteStep(float64(i), sampleState(i), nil); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-10], 0644); err != nil {
		t.Fatal(err)
	}

	p := NewParser(path)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if len(p.Records) != 2 {
		t.Fatalf("got %d records from a truncated log, want 2", len(p.Records))
	}
}

func TestParserRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	if err := os.WriteFile(path, make([]byte, 64), 0644); err != nil {
		t.Fatal(err)
	}
	p := NewParser(path)
	if err := p.Parse(); err == nil {
		t.Fatal("parsed a file without the magic header")
	}
}
