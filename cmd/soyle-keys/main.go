// Command soyle-keys sends gesture commands to a soyle-server from the
// keyboard.
package main

import (
	"context"
	"errors"
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/app"
	"github.com/soyle-app/soyle/internal/keypad"
	"github.com/soyle-app/soyle/internal/stream"
)

const reconnectDelay = time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", "", "server address (default SOYLE_SERVER_ADDR)")
	flag.Parse()

	cfg, ctx, cleanup, err := app.Bootstrap("soyle-keys")
	if err != nil {
		return err
	}
	defer cleanup()

	// The panel owns the terminal; logs only go to the file sink.
	if cfg.LogDir == "" {
		log.SetLevel(log.ErrorLevel)
	}

	if *addr == "" {
		*addr = cfg.Stream.ServerAddr
	}

	client := stream.NewClient(stream.ClientConfig{
		Addr:         *addr,
		DialTimeout:  cfg.Stream.DialTimeout,
		WriteTimeout: cfg.Stream.WriteTimeout,
		MaxFrameSize: uint32(cfg.Stream.MaxFrameSize),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := client.Run(ctx); err != nil && !errors.Is(err, stream.ErrDisconnected) {
				log.WithField("component", "stream").Warnf("Session ended: %v", err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(reconnectDelay):
			}
		}
	}()

	p := keypad.NewProgram(client, *addr)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err = p.Run()
	cancel()
	<-done
	return err
}
