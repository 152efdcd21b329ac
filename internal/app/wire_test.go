package app

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/protocol"
	"github.com/soyle-app/soyle/internal/stability"
	"github.com/soyle-app/soyle/internal/stream"
)

// brokenCamera is a camera whose device is missing.
type brokenCamera struct {
	*capture.MockCamera
}

func (brokenCamera) Open() error { return errors.New("no video device") }

func TestVideoSource(t *testing.T) {
	t.Run("camera opens", func(t *testing.T) {
		frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		defer frame.Close()
		cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

		src, closer := VideoSource(cam, 70, false)
		if src == nil {
			t.Fatal("VideoSource() returned no source for a working camera")
		}
		data, err := src.Next(context.Background())
		if err != nil || len(data) == 0 {
			t.Fatalf("Next() = %d bytes, %v", len(data), err)
		}
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}
		if cam.IsOpen() {
			t.Error("closer should close the camera")
		}
	})

	t.Run("camera missing", func(t *testing.T) {
		src, closer := VideoSource(brokenCamera{capture.NewMockCamera(nil, false)}, 70, false)
		if src != nil {
			t.Errorf("VideoSource() = %v, want nil source", src)
		}
		if err := closer.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestVideoSource_ServerWithoutCameraSpeaks(t *testing.T) {
	src, closer := VideoSource(brokenCamera{capture.NewMockCamera(nil, false)}, 70, false)
	defer closer.Close()

	speaker := &spoken{}
	srv := stream.NewServer(stream.ServerConfig{
		Source:  src,
		Phrases: stability.PhraseMap{gesture.Fist: "Помогите"},
		Speaker: speaker,
	})

	serverConn, peer := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(context.Background(), serverConn) }()

	if err := protocol.WriteCommand(peer, "FIST"); err != nil {
		t.Fatalf("WriteCommand() error = %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for len(speaker.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := speaker.all(); len(got) != 1 || got[0] != "Помогите" {
		t.Errorf("spoken = %v", got)
	}
	if st := srv.Status(); !st.Connected || st.FramesSent != 0 {
		t.Errorf("Status() = %+v", st)
	}

	peer.Close()
	select {
	case err := <-done:
		if !errors.Is(err, stream.ErrDisconnected) {
			t.Errorf("ServeConn() error = %v, want ErrDisconnected", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end")
	}
}
