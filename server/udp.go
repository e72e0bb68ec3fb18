package server

import (
	"math"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/calib"
	"github.com/chetangadidesi/StateEstimationAV/config"
	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/publish"
	"github.com/chetangadidesi/StateEstimationAV/rotation"
	"github.com/chetangadidesi/StateEstimationAV/trajlog"
	"github.com/chetangadidesi/StateEstimationAV/web"
)

const (
	DefaultPort   = 44333
	MaxPacketSize = 65535
)

type UdpServer struct {
	conn     *net.UDPConn
	filter   *eskf.Filter
	lidar    calib.Extrinsics
	varGNSS  float64
	varLIDAR float64

	traj    *trajlog.Writer
	sender  *publish.Sender
	webHub  *web.Hub
	running bool

	mu     sync.Mutex
	step   int
	prevT  float64
	frames int
	drops  int
}

// NewUdpServer binds and seeds a streaming filter with the mission tuning.
// The filter starts at the origin with identity covariance and waits for the
// first inertial frame to anchor its clock.
func NewUdpServer(port int, m config.Mission) (*UdpServer, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr := net.UDPAddr{
		Port: port,
		IP:   net.ParseIP("0.0.0.0"),
	}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		return nil, err
	}
	conn.SetReadBuffer(256 * 1024)

	flt := eskf.NewFilter(m.VarForce, m.VarRate)
	flt.Seed(eskf.State{Orientation: rotation.Identity()}, eskf.NewCovariance())

	return &UdpServer{
		conn:     conn,
		filter:   flt,
		lidar:    m.Lidar,
		varGNSS:  m.VarGNSS,
		varLIDAR: m.VarLIDAR,
		prevT:    math.NaN(),
	}, nil
}

func (s *UdpServer) SetTrajWriter(tw *trajlog.Writer) {
	s.traj = tw
}

func (s *UdpServer) SetSender(snd *publish.Sender) {
	s.sender = snd
}

func (s *UdpServer) SetWebHub(h *web.Hub) {
	s.webHub = h
}

// Stats returns frames accepted and datagram bytes dropped as undecodable.
func (s *UdpServer) Stats() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.drops
}

func (s *UdpServer) Start() {
	s.running = true
	buf := make([]byte, MaxPacketSize)
	log.Infof("udp server listening on %s", s.conn.LocalAddr().String())

	for s.running {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if s.running {
				log.WithError(err).Warn("udp read error")
			}
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.handlePacket(data)
	}
}

func (s *UdpServer) Stop() {
	s.running = false
	s.conn.Close()
}

// handlePacket walks the datagram, decoding back-to-back frames and
// resynchronizing byte by byte after garbage.
func (s *UdpServer) handlePacket(data []byte) {
	offset := 0
	for offset < len(data) {
		frame, n, err := ParseFrame(data[offset:])
		if err != nil {
			offset++
			s.mu.Lock()
			s.drops++
			s.mu.Unlock()
			continue
		}
		offset += n
		s.processFrame(frame)
	}
}

func (s *UdpServer) processFrame(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++

	switch f.Type {
	case TypeInertial:
		prev := s.filter.Time()
		if s.step == 0 {
			prev = math.NaN() // no interval consumed yet
		}
		if err := s.filter.Push(f.T, f.Force, f.Rate); err != nil {
			log.WithError(err).Warnf("inertial frame at t=%.6f rejected", f.T)
			return
		}
		s.prevT = prev
		s.step++
	case TypeGNSS:
		// A fix corrects only the step it is stamped for.
		if f.T != s.filter.Time() {
			log.Debugf("gnss fix at t=%.6f skipped, filter at t=%.6f", f.T, s.filter.Time())
			return
		}
		if err := s.filter.CorrectPosition(s.varGNSS, f.Position); err != nil {
			log.WithError(err).Error("gnss correction failed")
			s.publishFault(eskf.Fault{Step: s.step, Sensor: "gnss", Err: err})
			return
		}
	case TypeLidar:
		// Sweeps are stamped at the previous inertial timestamp and land
		// after the step that consumed it.
		if f.T != s.prevT {
			log.Debugf("lidar sweep at t=%.6f skipped, previous step at t=%.6f", f.T, s.prevT)
			return
		}
		p := s.lidar.Apply(f.Position)
		if err := s.filter.CorrectPosition(s.varLIDAR, p); err != nil {
			log.WithError(err).Error("lidar correction failed")
			s.publishFault(eskf.Fault{Step: s.step, Sensor: "lidar", Err: err})
			return
		}
	}

	s.emit()
}

func (s *UdpServer) emit() {
	t := s.filter.Time()
	st := s.filter.State()
	cov := s.filter.Covariance()

	if s.traj != nil {
		if err := s.traj.WriteStep(t, st, cov); err != nil {
			log.WithError(err).Warn("trajectory log write failed")
		}
	}
	if s.sender != nil {
		s.sender.SendPose(t, st)
	}
	if s.webHub != nil {
		s.webHub.Broadcast(web.EncodePose(t, st, cov))
	}
}

func (s *UdpServer) publishFault(f eskf.Fault) {
	if s.sender != nil {
		s.sender.SendFault(f)
	}
}
