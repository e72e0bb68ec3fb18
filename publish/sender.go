// Package publish fans fused poses out to downstream consumers over UDP and
// TCP. Targets subscribe by flag mask so a consumer can take poses, faults or
// both.
package publish

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
)

const (
	FlagPose  uint32 = 0x01
	FlagFault uint32 = 0x02
)

type message struct {
	data []byte
	flag uint32
}

type udpTarget struct {
	addr *net.UDPAddr
	flag uint32
}

type tcpClient struct {
	addr    string
	flag    uint32
	queue   chan *message
	running bool
	wg      sync.WaitGroup
}

type Sender struct {
	udpTargets []*udpTarget
	tcpClients []*tcpClient
	connUDP    *net.UDPConn
	header     []byte
	running    bool
}

func NewSender() *Sender {
	return &Sender{}
}

// SetHeader sets a prefix prepended to every outgoing line, "hdr:".
func (s *Sender) SetHeader(hdr string) {
	if hdr == "" {
		s.header = nil
	} else {
		s.header = []byte(hdr + ":")
	}
}

func (s *Sender) AddUDPTarget(addr string, flag uint32) error {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	s.udpTargets = append(s.udpTargets, &udpTarget{addr: uaddr, flag: flag})
	return nil
}

func (s *Sender) AddTCPTarget(addr string, flag uint32) {
	s.tcpClients = append(s.tcpClients, &tcpClient{
		addr:  addr,
		flag:  flag,
		queue: make(chan *message, 1000),
	})
}

func (s *Sender) Start() error {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	s.connUDP = conn
	s.running = true

	for _, c := range s.tcpClients {
		c.start()
	}
	return nil
}

func (s *Sender) Stop() {
	s.running = false
	if s.connUDP != nil {
		s.connUDP.Close()
	}
	for _, c := range s.tcpClients {
		c.stop()
	}
}

// SendPose formats and sends one fused step.
// Line format: "t,px,py,pz,vx,vy,vz,roll,pitch,yaw".
func (s *Sender) SendPose(t float64, st eskf.State) {
	roll, pitch, yaw := st.Orientation.Euler()
	line := fmt.Sprintf("%.6f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.5f,%.5f,%.5f",
		t,
		st.Position[0], st.Position[1], st.Position[2],
		st.Velocity[0], st.Velocity[1], st.Velocity[2],
		roll, pitch, yaw)
	s.send([]byte(line), FlagPose)
}

// SendFault reports a non-fatal filter fault downstream.
func (s *Sender) SendFault(f eskf.Fault) {
	line := fmt.Sprintf("fault,%d,%s,%v", f.Step, f.Sensor, f.Err)
	s.send([]byte(line), FlagFault)
}

func (s *Sender) send(data []byte, flag uint32) {
	if !s.running {
		return
	}

	var msgData []byte
	if len(s.header) > 0 {
		msgData = make([]byte, len(s.header)+len(data))
		copy(msgData, s.header)
		copy(msgData[len(s.header):], data)
	} else {
		msgData = data
	}

	msg := &message{data: msgData, flag: flag}

	for _, t := range s.udpTargets {
		if (t.flag & flag) == flag {
			if _, err := s.connUDP.WriteToUDP(msgData, t.addr); err != nil {
				log.WithError(err).Debug("udp publish failed")
			}
		}
	}

	for _, c := range s.tcpClients {
		if (c.flag & flag) == flag {
			select {
			case c.queue <- msg:
			default:
				// drop if full
			}
		}
	}
}

func (c *tcpClient) start() {
	c.running = true
	c.wg.Add(1)
	go c.loop()
}

func (c *tcpClient) stop() {
	c.running = false
	close(c.queue)
	c.wg.Wait()
}

func (c *tcpClient) loop() {
	defer c.wg.Done()
	var conn net.Conn
	var err error

	connect := func() bool {
		if conn != nil {
			return true
		}
		conn, err = net.DialTimeout("tcp", c.addr, 2*time.Second)
		return err == nil
	}

	for msg := range c.queue {
		if !c.running {
			break
		}

		if !connect() {
			time.Sleep(500 * time.Millisecond)
			if !connect() {
				continue // drop this message
			}
		}

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if _, err = conn.Write(msg.data); err != nil {
			log.WithError(err).Warnf("tcp publish to %s failed", c.addr)
			conn.Close()
			conn = nil
			time.Sleep(100 * time.Millisecond)
		}
	}
	if conn != nil {
		conn.Close()
	}
}
