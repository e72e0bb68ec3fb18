package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/config"
	"github.com/chetangadidesi/StateEstimationAV/publish"
	"github.com/chetangadidesi/StateEstimationAV/server"
	"github.com/chetangadidesi/StateEstimationAV/trajlog"
	"github.com/chetangadidesi/StateEstimationAV/web"
)

func main() {
	missionPath := flag.String("mission", "", "Mission XML, defaults apply if empty")
	port := flag.Int("port", 0, "UDP port override, 0 uses the mission value")
	httpPort := flag.Int("http", 0, "HTTP port override, 0 uses the mission value, -1 disables")
	distDir := flag.String("dist", "", "Static frontend directory")
	trajPath := flag.String("traj", "", "Binary trajectory log output (optional)")
	flag.Parse()

	m := config.Default()
	if *missionPath != "" {
		var err error
		m, err = config.Load(*missionPath)
		if err != nil {
			log.WithError(err).Fatal("load mission failed")
		}
	}
	if *port > 0 {
		m.UDPPort = *port
	}
	if *httpPort != 0 {
		m.HTTPPort = *httpPort
	}

	udpSvr, err := server.NewUdpServer(m.UDPPort, m)
	if err != nil {
		log.WithError(err).Fatal("failed to create udp server")
	}

	if m.HTTPPort > 0 {
		webSvr := web.NewServer()
		go webSvr.Start(m.HTTPPort, *distDir)
		udpSvr.SetWebHub(webSvr.Hub)
	}

	if len(m.Publish) > 0 {
		sender := publish.NewSender()
		for _, tgt := range m.Publish {
			fullAddr := fmt.Sprintf("%s:%d", tgt.Addr, tgt.Port)
			if err := sender.AddUDPTarget(fullAddr, publish.FlagPose|publish.FlagFault); err != nil {
				log.WithError(err).Warnf("publish target %s skipped", fullAddr)
				continue
			}
			if tgt.Header != "" {
				sender.SetHeader(tgt.Header)
			}
			log.Infof("added publish target %s", fullAddr)
		}
		if err := sender.Start(); err != nil {
			log.WithError(err).Fatal("failed to start publish sender")
		}
		udpSvr.SetSender(sender)
		defer sender.Stop()
	}

	if *trajPath != "" {
		path := *trajPath
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			path = fmt.Sprintf("%s/TRAJ_%s.trajlog", path, time.Now().Format("20060102150405"))
		}
		tw, err := trajlog.NewWriter(path)
		if err != nil {
			log.WithError(err).Fatal("failed to create trajectory log")
		}
		defer tw.Close()
		udpSvr.SetTrajWriter(tw)
		log.Infof("logging trajectory to %s", path)
	}

	go udpSvr.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	frames, drops := udpSvr.Stats()
	log.Infof("shutting down, %d frames accepted, %d bytes dropped", frames, drops)
	udpSvr.Stop()
}
