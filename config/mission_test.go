package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

const missionXML = `<?xml version="1.0"?>
<mission>
  <variances imu_f="0.02" gnss="5.0"/>
  <lidar roll="0.05" pitch="0.05" yaw="0.1" tx="0.5" ty="0.1" tz="0.5"/>
  <serve udp="4000" http="9000"/>
  <txlist>
    <transferItem addr="10.0.0.5" port="5555" header="NAV"/>
    <transferItem addr="10.0.0.6" port="bogus"/>
    <transferItem port="7777"/>
  </txlist>
</mission>`

func TestLoadMission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.xml")
	if err := os.WriteFile(path, []byte(missionXML), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if m.VarForce != 0.02 || m.VarGNSS != 5.0 {
		t.Errorf("overridden variances: force=%g gnss=%g", m.VarForce, m.VarGNSS)
	}
	// Unspecified values keep defaults.
	if m.VarRate != eskf.VarIMURate || m.VarLIDAR != eskf.VarLIDAR {
		t.Errorf("default variances lost: rate=%g lidar=%g", m.VarRate, m.VarLIDAR)
	}

	if m.UDPPort != 4000 || m.HTTPPort != 9000 {
		t.Errorf("ports: udp=%d http=%d", m.UDPPort, m.HTTPPort)
	}

	// Malformed txlist entries are dropped.
	if len(m.Publish) != 1 {
		t.Fatalf("got %d publish targets, want 1", len(m.Publish))
	}
	tgt := m.Publish[0]
	if tgt.Addr != "10.0.0.5" || tgt.Port != 5555 || tgt.Header != "NAV" {
		t.Errorf("target = %+v", tgt)
	}

	// Lever arm applied through the parsed extrinsics.
	got := m.Lidar.Apply([3]float64{0, 0, 0})
	want := [3]float64{0.5, 0.1, 0.5}
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("lever arm component %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.xml"))
	if err == nil {
		t.Fatal("missing file did not error")
	}
	if m.VarGNSS != eskf.VarGNSS || m.UDPPort != 44333 {
		t.Errorf("defaults not returned alongside the error: %+v", m)
	}
}

func TestDefaultMission(t *testing.T) {
	m := Default()
	if m.VarForce != eskf.VarIMUForce || m.VarRate != eskf.VarIMURate {
		t.Errorf("inertial variances: %+v", m)
	}
	if m.VarGNSS != eskf.VarGNSS || m.VarLIDAR != eskf.VarLIDAR {
		t.Errorf("sensor variances: %+v", m)
	}
}
