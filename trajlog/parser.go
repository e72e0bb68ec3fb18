package trajlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

// Record is one decoded step of a trajectory log. Cov is nil for state-only
// records.
type Record struct {
	T     float64
	State eskf.State
	Cov   *mat.SymDense
}

type Parser struct {
	Path      string
	VerifyCRC bool

	Records []Record
	Skipped int // records dropped for bad length or CRC
}

func NewParser(path string) *Parser {
	return &Parser{Path: path, VerifyCRC: true}
}

// Parse reads the whole log. A truncated tail is not an error, the records
// read so far are kept.
func (p *Parser) Parse() error {
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, globalHdrLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return fmt.Errorf("trajlog header: %w", err)
	}
	if binary.LittleEndian.Uint32(hdr[0:4]) != Magic {
		return fmt.Errorf("trajlog header: bad magic")
	}
	if major := binary.LittleEndian.Uint16(hdr[4:6]); major != VersionMajor {
		return fmt.Errorf("trajlog header: unsupported version %d", major)
	}

	for {
		rec := make([]byte, recordHdrLen)
		if _, err := io.ReadFull(f, rec); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("trajlog record: %w", err)
		}
		flag := binary.LittleEndian.Uint16(rec[0:2])
		payloadLen := binary.LittleEndian.Uint32(rec[2:6])

		wantLen := stateLen
		if flag&FlagCovariance != 0 {
			wantLen += covLen
		}
		if int(payloadLen) != wantLen {
			// malformed record, skip the stated length plus trailer
			p.Skipped++
			if _, err := f.Seek(int64(payloadLen)+crcLen, io.SeekCurrent); err != nil {
				return fmt.Errorf("skip malformed record: %w", err)
			}
			continue
		}

		payload := make([]byte, int(payloadLen)+crcLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("trajlog payload: %w", err)
		}

		if p.VerifyCRC {
			body := append(append([]byte{}, rec...), payload[:payloadLen]...)
			crcRead := binary.LittleEndian.Uint16(payload[payloadLen:])
			if crc16(body) != crcRead {
				p.Skipped++
				continue
			}
		}

		p.Records = append(p.Records, decodeRecord(flag, payload[:payloadLen]))
	}
	return nil
}

func decodeRecord(flag uint16, payload []byte) Record {
	pos := 0
	getFloat := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(payload[pos:]))
		pos += 8
		return v
	}

	var r Record
	r.T = getFloat()
	for i := 0; i < 3; i++ {
		r.State.Position[i] = getFloat()
	}
	for i := 0; i < 3; i++ {
		r.State.Velocity[i] = getFloat()
	}
	r.State.Orientation.W = getFloat()
	r.State.Orientation.X = getFloat()
	r.State.Orientation.Y = getFloat()
	r.State.Orientation.Z = getFloat()

	if flag&FlagCovariance != 0 {
		cov := mat.NewSymDense(eskf.ErrStateDim, nil)
		for i := 0; i < eskf.ErrStateDim; i++ {
			for j := 0; j < eskf.ErrStateDim; j++ {
				v := getFloat()
				if j >= i {
					cov.SetSym(i, j, v)
				}
			}
		}
		r.Cov = cov
	}
	return r
}

// Span returns the first and last timestamps of the parsed log.
func (p *Parser) Span() (float64, float64) {
	if len(p.Records) == 0 {
		return 0, 0
	}
	return p.Records[0].T, p.Records[len(p.Records)-1].T
}
