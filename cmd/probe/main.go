package main

import (
	"flag"
	"math/rand"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/eskf"
	"github.com/chetangadidesi/StateEstimationAV/server"
)

// probe feeds a serve instance with synthetic frames: a stationary vehicle
// whose accelerometer reads the gravity reaction, plus noisy GNSS fixes at
// the origin. Useful for exercising the ingest path end to end.
func main() {
	dest := flag.String("dest", "127.0.0.1:44333", "Destination UDP address")
	rate := flag.Float64("rate", 100, "Inertial sample rate in Hz")
	gnssEvery := flag.Int("gnss-every", 100, "Send a GNSS frame every N inertial frames")
	noise := flag.Float64("noise", 0.05, "Sensor noise amplitude")
	flag.Parse()

	raddr, err := net.ResolveUDPAddr("udp", *dest)
	if err != nil {
		log.WithError(err).Fatal("invalid dest address")
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		log.WithError(err).Fatal("dial failed")
	}
	defer conn.Close()

	dt := 1.0 / *rate
	log.Infof("probing %s at %.0f Hz", *dest, *rate)

	t := 0.0
	i := 0
	for {
		imu := &server.Frame{
			Type: server.TypeInertial,
			T:    t,
			Force: [3]float64{
				*noise * rand.NormFloat64(),
				*noise * rand.NormFloat64(),
				-eskf.Gravity[2] + *noise*rand.NormFloat64(),
			},
			Rate: [3]float64{
				*noise * rand.NormFloat64(),
				*noise * rand.NormFloat64(),
				*noise * rand.NormFloat64(),
			},
		}
		if _, err := conn.Write(server.EncodeFrame(imu)); err != nil {
			log.WithError(err).Fatal("send failed")
		}

		if i%*gnssEvery == 0 {
			gnss := &server.Frame{
				Type: server.TypeGNSS,
				T:    t,
				Position: [3]float64{
					*noise * rand.NormFloat64(),
					*noise * rand.NormFloat64(),
					*noise * rand.NormFloat64(),
				},
			}
			if _, err := conn.Write(server.EncodeFrame(gnss)); err != nil {
				log.WithError(err).Fatal("send failed")
			}
		}

		time.Sleep(time.Duration(dt * float64(time.Second)))
		t += dt
		i++
	}
}
