// Package server runs the online ingest front: a UDP listener decoding
// framed sensor samples and feeding them through the streaming filter.
package server

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	FrameMagic  = 0x5353 // "SS"
	frameHdrLen = 5      // magic(2), type(1), bodyLen(2)
	frameCRCLen = 2

	TypeInertial = 0x10 // ts + specific force + angular rate
	TypeGNSS     = 0x20 // ts + position
	TypeLidar    = 0x30 // ts + position, sensor frame

	inertialBodyLen = 8 + 24 + 24
	positionBodyLen = 8 + 24
)

// Frame is one decoded sensor sample. Force and Rate are set for inertial
// frames, Position for GNSS and LIDAR frames.
type Frame struct {
	Type     uint8
	T        float64
	Force    [3]float64
	Rate     [3]float64
	Position [3]float64
}

// ParseFrame decodes one frame from the start of data. Returns the frame and
// its total wire length.
func ParseFrame(data []byte) (*Frame, int, error) {
	if len(data) < frameHdrLen {
		return nil, 0, fmt.Errorf("frame too short")
	}
	if binary.LittleEndian.Uint16(data[0:2]) != FrameMagic {
		return nil, 0, fmt.Errorf("invalid magic")
	}
	typ := data[2]
	bodyLen := int(binary.LittleEndian.Uint16(data[3:5]))

	switch typ {
	case TypeInertial:
		if bodyLen != inertialBodyLen {
			return nil, 0, fmt.Errorf("inertial frame: bad body length %d", bodyLen)
		}
	case TypeGNSS, TypeLidar:
		if bodyLen != positionBodyLen {
			return nil, 0, fmt.Errorf("position frame: bad body length %d", bodyLen)
		}
	default:
		return nil, 0, fmt.Errorf("unknown frame type 0x%x", typ)
	}

	total := frameHdrLen + bodyLen + frameCRCLen
	if len(data) < total {
		return nil, 0, fmt.Errorf("frame truncated")
	}

	crcRead := binary.LittleEndian.Uint16(data[frameHdrLen+bodyLen:])
	if crc16(data[:frameHdrLen+bodyLen]) != crcRead {
		return nil, 0, fmt.Errorf("crc mismatch")
	}

	body := data[frameHdrLen : frameHdrLen+bodyLen]
	f := &Frame{Type: typ}
	pos := 0
	getFloat := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(body[pos:]))
		pos += 8
		return v
	}
	f.T = getFloat()
	switch typ {
	case TypeInertial:
		for i := 0; i < 3; i++ {
			f.Force[i] = getFloat()
		}
		for i := 0; i < 3; i++ {
			f.Rate[i] = getFloat()
		}
	default:
		for i := 0; i < 3; i++ {
			f.Position[i] = getFloat()
		}
	}
	return f, total, nil
}

// EncodeFrame builds the wire form of a frame.
func EncodeFrame(f *Frame) []byte {
	bodyLen := positionBodyLen
	if f.Type == TypeInertial {
		bodyLen = inertialBodyLen
	}
	buf := make([]byte, frameHdrLen+bodyLen+frameCRCLen)
	binary.LittleEndian.PutUint16(buf[0:], FrameMagic)
	buf[2] = f.Type
	binary.LittleEndian.PutUint16(buf[3:], uint16(bodyLen))

	pos := frameHdrLen
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[pos:], math.Float64bits(v))
		pos += 8
	}
	putFloat(f.T)
	if f.Type == TypeInertial {
		for i := 0; i < 3; i++ {
			putFloat(f.Force[i])
		}
		for i := 0; i < 3; i++ {
			putFloat(f.Rate[i])
		}
	} else {
		for i := 0; i < 3; i++ {
			putFloat(f.Position[i])
		}
	}
	binary.LittleEndian.PutUint16(buf[pos:], crc16(buf[:pos]))
	return buf
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
