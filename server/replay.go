package server

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chetangadidesi/StateEstimationAV/publish"
	"github.com/chetangadidesi/StateEstimationAV/trajlog"
	"github.com/chetangadidesi/StateEstimationAV/web"
)

// Replay streams a recorded trajectory log to the hub and the publish fan-out
// with inter-record pacing scaled by speed. speed <= 0 replays without
// pacing.
func Replay(path string, speed float64, hub *web.Hub, sender *publish.Sender) error {
	p := trajlog.NewParser(path)
	if err := p.Parse(); err != nil {
		return err
	}
	if p.Skipped > 0 {
		log.Warnf("replay: %d corrupt records skipped", p.Skipped)
	}
	log.Infof("replaying %d records from %s at %.1fx speed", len(p.Records), path, speed)

	var firstTs float64
	startReal := time.Now()

	for i, rec := range p.Records {
		if i == 0 {
			firstTs = rec.T
			startReal = time.Now()
		} else if speed > 0 {
			targetDelay := time.Duration((rec.T - firstTs) / speed * float64(time.Second))
			elapsed := time.Since(startReal)
			if targetDelay > elapsed {
				time.Sleep(targetDelay - elapsed)
			}
		}

		if hub != nil {
			hub.Broadcast(web.EncodePose(rec.T, rec.State, rec.Cov))
		}
		if sender != nil {
			sender.SendPose(rec.T, rec.State)
		}
	}
	log.Infof("replay finished, %d records", len(p.Records))
	return nil
}
