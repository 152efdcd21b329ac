package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/audio"
	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/config"
	"github.com/soyle-app/soyle/internal/detector"
	"github.com/soyle-app/soyle/internal/logging"
	"github.com/soyle-app/soyle/internal/notify"
	"github.com/soyle-app/soyle/internal/phrases"
	"github.com/soyle-app/soyle/internal/store"
	"github.com/soyle-app/soyle/internal/stream"
)

// speechQueue is how many phrases may wait for playback.
const speechQueue = 4

// Bootstrap loads the configuration, sets up logging for the named binary
// and returns a context canceled on SIGINT or SIGTERM. cleanup must be
// deferred by the caller.
func Bootstrap(name string) (cfg *config.Config, ctx context.Context, cleanup func(), err error) {
	cfg, err = config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logCloser, err := logging.Setup(logging.Options{
		Level: cfg.LogLevel,
		Dir:   cfg.LogDir,
		Name:  name,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cleanup = func() {
		stop()
		logCloser.Close()
	}
	return cfg, ctx, cleanup, nil
}

// OpenStore creates the data directory and opens the database.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return store.New(cfg.DatabasePath())
}

// Book builds the phrase book from the configured language, file and
// saved overrides. It returns the effective language.
func Book(cfg *config.Config, st *store.Store) (*phrases.Book, string, error) {
	return BuildBook(PhraseSource{
		Lang:    cfg.Speech.Lang,
		Profile: cfg.Speech.Profile,
		File:    cfg.Speech.PhraseFile,
		Store:   st,
	})
}

// Speaker picks the audio sink and wraps it so playback never blocks a
// pipeline. Close the result on shutdown.
func Speaker(cfg *config.Config, lang string, book *phrases.Book) *audio.AsyncSpeaker {
	sink := audio.New(audio.Options{
		Command: cfg.Speech.Command,
		Lang:    lang,
		Voice:   cfg.Speech.Voice,
		RateWPM: cfg.Speech.RateWPM,
	}, cfg.Speech.ClipDir, book.Snapshot())
	return audio.NewAsyncSpeaker(sink, speechQueue)
}

// Recorder persists sessions to st and, when a broker is configured, also
// publishes them over MQTT. The returned closer disconnects the publisher.
func Recorder(cfg *config.Config, st *store.Store) (stream.Recorder, io.Closer) {
	recs := stream.Recorders{stream.NewStoreRecorder(st)}
	if cfg.MQTT.Broker == "" {
		return recs, nopCloser{}
	}

	pub := notify.NewPublisher(notify.Options{
		Broker:   cfg.MQTT.Broker,
		Topic:    cfg.MQTT.Topic,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})
	log.WithField("component", "mqtt").Infof("Publishing events to %s on %s", cfg.MQTT.Topic, cfg.MQTT.Broker)
	return append(recs, pub), pub
}

// Detector starts the MediaPipe landmark service, falling back to a mock
// detector that never sees a hand.
func Detector(cfg *config.Config) detector.Detector {
	dc := detector.DefaultConfig()
	dc.MaxHands = cfg.Detector.MaxHands
	dc.MinConfidence = cfg.Detector.MinConfidence

	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		log.WithField("component", "detector").Warnf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.WithField("component", "detector").Info("Using MediaPipe hand detection")
	return mp
}

// VideoSource opens cam as the outbound frame source. A camera that fails to
// open only disables video: the source is nil and the server keeps taking
// commands. Close the returned closer on shutdown.
func VideoSource(cam capture.Camera, quality int, mirror bool) (stream.FrameSource, io.Closer) {
	if err := cam.Open(); err != nil {
		log.WithField("component", "capture").Warnf("Camera not available (%v), streaming no video", err)
		return nil, nopCloser{}
	}
	return capture.NewJPEGSource(cam, quality, mirror), cam
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
