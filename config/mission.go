// Package config loads the mission file: sensor noise variances, the LIDAR
// extrinsic calibration, and the endpoints of the serving and publishing
// fronts.
package config

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/chetangadidesi/StateEstimationAV/calib"
	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

// PublishTarget is one downstream UDP consumer of fused poses.
type PublishTarget struct {
	Addr   string
	Port   int
	Header string
}

// Mission carries everything a run needs beyond the sensor data itself.
type Mission struct {
	VarForce float64
	VarRate  float64
	VarGNSS  float64
	VarLIDAR float64

	Lidar calib.Extrinsics

	UDPPort  int
	HTTPPort int

	Publish []PublishTarget
}

// Default returns the mission the engine ships with: the stock variance
// tuning and the reference vehicle's LIDAR mounting.
func Default() Mission {
	return Mission{
		VarForce: eskf.VarIMUForce,
		VarRate:  eskf.VarIMURate,
		VarGNSS:  eskf.VarGNSS,
		VarLIDAR: eskf.VarLIDAR,
		Lidar:    calib.FromEuler(0.05, 0.05, 0.1, [3]float64{0.5, 0.1, 0.5}),
		UDPPort:  44333,
		HTTPPort: 8080,
	}
}

// Load parses a mission.xml, starting from the defaults and overriding
// whatever the file specifies. Malformed elements are skipped.
func Load(path string) (Mission, error) {
	m := Default()
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	inTxList := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return m, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "variances":
				floatAttr(t, "imu_f", &m.VarForce)
				floatAttr(t, "imu_w", &m.VarRate)
				floatAttr(t, "gnss", &m.VarGNSS)
				floatAttr(t, "lidar", &m.VarLIDAR)
			case "lidar":
				var roll, pitch, yaw float64
				var tr [3]float64
				floatAttr(t, "roll", &roll)
				floatAttr(t, "pitch", &pitch)
				floatAttr(t, "yaw", &yaw)
				floatAttr(t, "tx", &tr[0])
				floatAttr(t, "ty", &tr[1])
				floatAttr(t, "tz", &tr[2])
				m.Lidar = calib.FromEuler(roll, pitch, yaw, tr)
			case "serve":
				intAttr(t, "udp", &m.UDPPort)
				intAttr(t, "http", &m.HTTPPort)
			case "txlist":
				inTxList = true
			case "transferItem":
				if !inTxList {
					continue
				}
				addr, ok := attrValue(t, "addr")
				if !ok {
					continue
				}
				tgt := PublishTarget{Addr: addr}
				intAttr(t, "port", &tgt.Port)
				if hdr, ok := attrValue(t, "header"); ok {
					tgt.Header = hdr
				}
				if tgt.Port > 0 {
					m.Publish = append(m.Publish, tgt)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "txlist" {
				inTxList = false
			}
		}
	}
	return m, nil
}

func attrValue(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func floatAttr(el xml.StartElement, name string, dst *float64) {
	if s, ok := attrValue(el, name); ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*dst = v
		}
	}
}

func intAttr(el xml.StartElement, name string, dst *int) {
	if s, ok := attrValue(el, name); ok {
		if v, err := strconv.Atoi(s); err == nil {
			*dst = v
		}
	}
}
