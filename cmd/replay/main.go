package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/publish"
	"github.com/chetangadidesi/StateEstimationAV/server"
	"github.com/chetangadidesi/StateEstimationAV/web"
)

func main() {
	trajPath := flag.String("traj", "", "Input trajectory log")
	httpPort := flag.Int("http", 8080, "HTTP port for the live view")
	distDir := flag.String("dist", "", "Static frontend directory")
	speed := flag.Float64("speed", 1.0, "Replay speed multiplier (0 for max speed)")
	dest := flag.String("dest", "", "Optional UDP destination for pose lines")
	loop := flag.Bool("loop", false, "Restart the replay when it ends")
	flag.Parse()

	if *trajPath == "" {
		log.Fatal("--traj required")
	}

	ws := web.NewServer()
	go ws.Start(*httpPort, *distDir)

	var snd *publish.Sender
	if *dest != "" {
		snd = publish.NewSender()
		if err := snd.AddUDPTarget(*dest, publish.FlagPose); err != nil {
			log.WithError(err).Fatal("invalid dest address")
		}
		if err := snd.Start(); err != nil {
			log.WithError(err).Fatal("publish start failed")
		}
		defer snd.Stop()
	}

	for {
		if err := server.Replay(*trajPath, *speed, ws.Hub, snd); err != nil {
			log.WithError(err).Fatal("replay failed")
		}
		if !*loop {
			break
		}
		time.Sleep(time.Second)
	}
}
