// Package app runs Soyle in local mode: camera, recognition and speech in a
// single process.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/detector"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/stability"
	"github.com/soyle-app/soyle/internal/stream"
)

// Pipeline pacing.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the scene is moving.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must be still before dropping
	// back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// Config holds the components of the local pipeline. Camera, Detector,
// Phrases and Speaker are required.
type Config struct {
	Camera     capture.Camera
	Motion     *capture.MotionDetector // nil keeps the active rate
	Detector   detector.Detector
	Classifier *gesture.Classifier

	Phrases  stability.Phrasebook
	Speaker  stability.Speaker
	Dwell    time.Duration
	Cooldown time.Duration

	Mirror      bool
	JPEGQuality int

	Sink     stream.FrameSink // receives every analyzed frame; frames are encoded only when set
	Recorder stream.Recorder

	// OnSpoken, if set, is called after each spoken phrase.
	OnSpoken func(label gesture.Label, phrase string)
}

// Status is a snapshot of the local pipeline.
type Status struct {
	Enabled    bool          `json:"enabled"`
	Running    bool          `json:"running"`
	Active     bool          `json:"active"`
	Session    string        `json:"session,omitempty"`
	Raw        gesture.Label `json:"raw"`
	Stable     gesture.Label `json:"stable"`
	LastSpoken gesture.Label `json:"last_spoken,omitempty"`
	Frames     uint64        `json:"frames"`
}

// App orchestrates the local detection pipeline.
type App struct {
	config Config

	mu       sync.RWMutex
	detector detector.Detector
	enabled  bool
	status   Status

	filter *stability.Filter
	gate   *stability.Gate
}

// New creates a new App. Detection starts enabled.
func New(config Config) *App {
	if config.Classifier == nil {
		config.Classifier = gesture.NewClassifier(gesture.DefaultConfig())
	}
	if config.Dwell <= 0 {
		config.Dwell = stability.DefaultDwell
	}
	if config.Cooldown <= 0 {
		config.Cooldown = stability.DefaultCooldown
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = capture.DefaultJPEGQuality
	}
	if config.Recorder == nil {
		config.Recorder = stream.Recorders(nil)
	}

	a := &App{
		config:   config,
		detector: config.Detector,
		enabled:  true,
		filter:   stability.NewFilter(config.Dwell),
		status:   Status{Enabled: true, Raw: gesture.NoHand, Stable: gesture.NoHand},
	}
	a.gate = stability.NewGate(config.Cooldown, config.Phrases, config.Speaker)
	return a
}

// SetEnabled enables or disables gesture detection. Disabling clears the
// stability filter so a held pose has to dwell again afterwards.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.status.Enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector swaps the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Status returns a snapshot of the pipeline state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Run opens the camera and processes frames until ctx is canceled or the
// camera runs out of frames. The camera is closed on return.
func (a *App) Run(ctx context.Context) error {
	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	defer func() {
		if err := a.config.Camera.Close(); err != nil {
			log.WithField("component", "app").Warnf("Error closing camera: %v", err)
		}
	}()

	info := stream.SessionInfo{
		ID:        uuid.New().String(),
		Role:      stream.RoleLocal,
		StartedAt: time.Now(),
	}
	logger := log.WithFields(log.Fields{"session": info.ID, "component": "app"})

	a.gate.OnSpeak = func(label gesture.Label, phrase string, at time.Time) {
		logger.WithField("label", label).Infof("Speaking %q", phrase)
		a.mu.Lock()
		a.status.LastSpoken = label
		a.mu.Unlock()

		a.config.Recorder.Spoken(stream.SpokenEvent{
			Session: info.ID,
			Label:   label,
			Phrase:  phrase,
			Source:  stream.SourceCamera,
			At:      at,
		})
		if a.config.OnSpoken != nil {
			a.config.OnSpoken(label, phrase)
		}
	}

	a.mu.Lock()
	a.status.Running = true
	a.status.Session = info.ID
	a.mu.Unlock()
	a.config.Recorder.SessionStarted(info)
	logger.Info("Detection pipeline started")

	err := a.runPipeline(ctx, info.ID)

	reason := "closed"
	if ctx.Err() != nil {
		reason = "shutdown"
		err = nil
	} else if err != nil {
		reason = err.Error()
	}
	a.config.Recorder.SessionEnded(info, reason, time.Now())

	a.mu.Lock()
	a.status.Running = false
	a.status.Active = false
	a.mu.Unlock()
	logger.Infof("Detection pipeline stopped: %s", reason)
	return err
}
