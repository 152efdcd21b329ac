// Command soyle runs gesture recognition and speech on one machine.
package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soyle-app/soyle/internal/app"
	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/server"
	"github.com/soyle-app/soyle/internal/tray"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, ctx, cleanup, err := app.Bootstrap("soyle")
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

	det := app.Detector(cfg)
	defer det.Close()

	motion := capture.NewMotionDetector(cfg.Capture.MotionThresh)
	defer motion.Close()

	hub := server.NewHub()
	var t *tray.Tray
	if cfg.Tray {
		t = tray.New()
	}

	a := app.New(app.Config{
		Camera: capture.NewCamera(capture.Options{
			DeviceID: cfg.Capture.CameraID,
			Width:    cfg.Capture.Width,
			Height:   cfg.Capture.Height,
			FPS:      app.IdleFPS,
		}),
		Motion:      motion,
		Detector:    det,
		Classifier:  gesture.NewClassifier(cfg.Classifier),
		Phrases:     book,
		Speaker:     speaker,
		Dwell:       cfg.Dwell,
		Cooldown:    cfg.Cooldown,
		Mirror:      cfg.Capture.Mirror,
		JPEGQuality: cfg.Capture.JPEGQuality,
		Sink:        hub,
		Recorder:    rec,
		OnSpoken: func(label gesture.Label, phrase string) {
			if t != nil {
				t.SetLastSpoken(label, phrase)
			}
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx)
	})
	if cfg.HTTPAddr != "" {
		srv := server.New(server.Config{
			StaticDir: cfg.WebDir,
			Hub:       hub,
			Status:    func() any { return a.Status() },
			Book:      book,
			Store:     st,
			Lang:      lang,
		})
		g.Go(func() error {
			return srv.Run(gctx, cfg.HTTPAddr)
		})
	}

	if t == nil {
		return g.Wait()
	}

	// The menu bar owns the main goroutine until Quit.
	t.OnToggle(a.SetEnabled)
	t.OnQuit(cancel)
	if cfg.HTTPAddr != "" {
		t.OnOpenDebug(func() { openBrowser("http://" + localAddr(cfg.HTTPAddr)) })
	}
	go func() {
		<-gctx.Done()
		t.Quit()
	}()
	t.Run()
	cancel()
	return g.Wait()
}

// localAddr turns a listen address such as ":8080" into a dialable one.
func localAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.WithField("component", "tray").Warnf("Failed to open %s: %v", url, err)
		return
	}
	go cmd.Wait()
}
