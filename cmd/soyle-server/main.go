// Command soyle-server is the sensor/feedback side: it streams camera frames
// to a recognition client and speaks the gesture commands it sends back.
package main

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soyle-app/soyle/internal/app"
	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/server"
	"github.com/soyle-app/soyle/internal/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, ctx, cleanup, err := app.Bootstrap("soyle-server")
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := app.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	book, lang, err := app.Book(cfg, st)
	if err != nil {
		return err
	}

	speaker := app.Speaker(cfg, lang, book)
	defer speaker.Close()

	rec, recCloser := app.Recorder(cfg, st)
	defer recCloser.Close()

	source, camCloser := app.VideoSource(capture.NewCamera(capture.Options{
		DeviceID: cfg.Capture.CameraID,
		Width:    cfg.Capture.Width,
		Height:   cfg.Capture.Height,
		FPS:      cfg.Capture.FPS,
	}), cfg.Capture.JPEGQuality, cfg.Capture.Mirror)
	defer camCloser.Close()

	srv := stream.NewServer(stream.ServerConfig{
		Source:       source,
		FPS:          float64(cfg.Capture.FPS),
		Phrases:      book,
		Speaker:      speaker,
		Cooldown:     cfg.Cooldown,
		IdleTimeout:  cfg.Stream.CommandIdleTimeout,
		WriteTimeout: cfg.Stream.WriteTimeout,
		Recorder:     rec,
	})

	ln, err := net.Listen("tcp", cfg.Stream.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Stream.ListenAddr, err)
	}
	log.WithField("component", "stream").Infof("Waiting for a client on %s", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	if cfg.HTTPAddr != "" {
		debug := server.New(server.Config{
			StaticDir: cfg.WebDir,
			Status:    func() any { return srv.Status() },
			Book:      book,
			Store:     st,
			Lang:      lang,
		})
		g.Go(func() error {
			return debug.Run(gctx, cfg.HTTPAddr)
		})
	}
	return g.Wait()
}
