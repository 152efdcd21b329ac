package app

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/stream"
)

// runPipeline is the main detection loop that processes frames from the camera.
// Motion only paces the loop; every tick is classified.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. On motion, switch to active mode (ActiveFPS)
// 3. Detect hands, classify and merge them into one raw label
// 4. Filter the raw label; offer the stable label to the gate
// 5. After IdleTimeout without motion, switch back to idle mode
func (a *App) runPipeline(ctx context.Context, session string) error {
	logger := log.WithFields(log.Fields{"session": session, "component": "app"})

	activeMode := a.config.Motion == nil
	lastMotion := time.Now()

	fps := IdleFPS
	if activeMode {
		fps = ActiveFPS
	}
	a.config.Camera.SetFPS(fps)
	a.setActive(activeMode)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			a.filter.Reset()
			continue
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, capture.ErrCameraNotOpen) {
				return err
			}
			logger.Warnf("Error reading frame: %v", err)
			continue
		}

		if a.config.Mirror {
			gocv.Flip(*frame, frame, 1)
		}

		if a.config.Motion != nil {
			moving, _ := a.config.Motion.Detect(frame)
			now := time.Now()
			switch {
			case moving:
				lastMotion = now
				if !activeMode {
					activeMode = true
					a.pace(ticker, ActiveFPS)
					logger.Debug("Switched to active mode")
				}
			case activeMode && now.Sub(lastMotion) > IdleTimeout:
				activeMode = false
				a.pace(ticker, IdleFPS)
				logger.Debug("Switched to idle mode")
			}
			a.setActive(activeMode)
		}

		a.processFrame(frame, time.Now(), session)
		frame.Close()
	}
}

// pace changes the camera and ticker rate.
func (a *App) pace(ticker *time.Ticker, fps int) {
	a.config.Camera.SetFPS(fps)
	ticker.Reset(time.Second / time.Duration(fps))
}

func (a *App) setActive(active bool) {
	a.mu.Lock()
	a.status.Active = active
	a.mu.Unlock()
}

// processFrame runs detection, classification and the stability stages on a
// single frame.
func (a *App) processFrame(frame *gocv.Mat, now time.Time, session string) {
	logger := log.WithFields(log.Fields{"session": session, "component": "app"})

	d := a.Detector()
	if d == nil {
		return
	}

	hands, err := d.Detect(frame)
	if err != nil {
		logger.Warnf("Error detecting hands: %v", err)
		return
	}

	raw, results := a.config.Classifier.ClassifyFrame(hands)
	prev := a.filter.Stable()
	stable := a.filter.Update(raw, now)
	if stable != prev {
		logger.WithField("label", stable).Debug("Stable label changed")
	}
	a.gate.Offer(stable, now)

	a.mu.Lock()
	a.status.Raw = raw
	a.status.Stable = stable
	a.status.Frames++
	a.mu.Unlock()

	if a.config.Sink == nil {
		return
	}
	obs := stream.Observation{
		Session: session,
		Hands:   hands,
		Results: results,
		Raw:     raw,
		Stable:  stable,
		At:      now,
	}
	if data, err := capture.EncodeJPEG(frame, a.config.JPEGQuality); err == nil {
		obs.Frame = data
	} else {
		logger.Warnf("Error encoding frame: %v", err)
	}
	a.config.Sink.Observe(obs)
}
