// Package trajlog reads and writes the binary trajectory log: one fixed-size
// record per fused step carrying the timestamp, the nominal state and the
// error covariance, each record protected by a CRC16 trailer.
package trajlog

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

const (
	Magic = 0x54524A4C // "TRJL"

	VersionMajor = 1
	VersionMinor = 0

	globalHdrLen = 12 // Magic(4), Major(2), Minor(2), Reserved(4)
	recordHdrLen = 6  // flag(2), payloadLen(4)
	crcLen       = 2

	// flag bits
	FlagCovariance = 0x01

	stateLen = 8 + 24 + 24 + 32 // ts + position + velocity + quaternion
	covLen   = 9 * 9 * 8
)

type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	tw := &Writer{
		w:   f,
		buf: make([]byte, recordHdrLen+stateLen+covLen+crcLen),
	}

	if err := tw.writeGlobalHeader(); err != nil {
		f.Close()
		return nil, err
	}

	return tw, nil
}

func (tw *Writer) writeGlobalHeader() error {
	b := make([]byte, globalHdrLen)
	binary.LittleEndian.PutUint32(b[0:], Magic)
	binary.LittleEndian.PutUint16(b[4:], VersionMajor)
	binary.LittleEndian.PutUint16(b[6:], VersionMinor)
	// Reserved = 0
	_, err := tw.w.Write(b)
	return err
}

// WriteStep appends one fused step. A nil covariance writes a state-only
// record without the FlagCovariance bit.
func (tw *Writer) WriteStep(t float64, st eskf.State, cov *mat.SymDense) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	flag := uint16(0)
	payloadLen := stateLen
	if cov != nil {
		flag |= FlagCovariance
		payloadLen += covLen
	}

	binary.LittleEndian.PutUint16(tw.buf[0:], flag)
	binary.LittleEndian.PutUint32(tw.buf[2:], uint32(payloadLen))

	pos := recordHdrLen
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(tw.buf[pos:], math.Float64bits(v))
		pos += 8
	}

	putFloat(t)
	for i := 0; i < 3; i++ {
		putFloat(st.Position[i])
	}
	for i := 0; i < 3; i++ {
		putFloat(st.Velocity[i])
	}
	putFloat(st.Orientation.W)
	putFloat(st.Orientation.X)
	putFloat(st.Orientation.Y)
	putFloat(st.Orientation.Z)

	if cov != nil {
		for i := 0; i < eskf.ErrStateDim; i++ {
			for j := 0; j < eskf.ErrStateDim; j++ {
				putFloat(cov.At(i, j))
			}
		}
	}

	crc := crc16(tw.buf[:pos])
	binary.LittleEndian.PutUint16(tw.buf[pos:], crc)
	pos += crcLen

	_, err := tw.w.Write(tw.buf[:pos])
	return err
}

func (tw *Writer) Close() error {
	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func crc16(data []byte) uint16 {
	var crc uint16 = 0
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
