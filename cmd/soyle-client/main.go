// Command soyle-client is the recognition side: it receives frames from a
// soyle-server, classifies the hands in them and sends back the stable
// gesture whenever it changes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soyle-app/soyle/internal/app"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/server"
	"github.com/soyle-app/soyle/internal/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	retry := flag.Duration("retry", 0, "reconnect after this delay when the server goes away (0 exits)")
	flag.Parse()

	cfg, ctx, cleanup, err := app.Bootstrap("soyle-client")
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := app.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	rec, recCloser := app.Recorder(cfg, st)
	defer recCloser.Close()

	det := app.Detector(cfg)
	defer det.Close()

	hub := server.NewHub()
	client := stream.NewClient(stream.ClientConfig{
		Addr:          cfg.Stream.ServerAddr,
		DialTimeout:   cfg.Stream.DialTimeout,
		ReadTimeout:   cfg.Stream.FrameTimeout,
		WriteTimeout:  cfg.Stream.WriteTimeout,
		MaxFrameSize:  uint32(cfg.Stream.MaxFrameSize),
		Detector:      det,
		Classifier:    gesture.NewClassifier(cfg.Classifier),
		Dwell:         cfg.Dwell,
		ProcessEveryN: cfg.Capture.ProcessEveryN,
		Sink:          hub,
		Recorder:      rec,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			err := client.Run(gctx)
			if err == nil || *retry <= 0 {
				return err
			}
			log.WithField("component", "stream").Warnf("Session ended: %v. Reconnecting in %s", err, *retry)

			select {
			case <-gctx.Done():
				return nil
			case <-time.After(*retry):
			}
		}
	})
	if cfg.HTTPAddr != "" {
		debug := server.New(server.Config{
			StaticDir: cfg.WebDir,
			Hub:       hub,
			Status:    func() any { return client.Stats() },
		})
		g.Go(func() error {
			return debug.Run(gctx, cfg.HTTPAddr)
		})
	}

	err = g.Wait()
	if errors.Is(err, stream.ErrDisconnected) {
		log.Info("Server closed the connection")
		return nil
	}
	return err
}
