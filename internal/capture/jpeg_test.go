package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"gocv.io/x/gocv"
)

// halfWhite returns a frame whose left half is white.
func halfWhite(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	roi := m.Region(image.Rect(0, 0, 80, 120))
	roi.SetTo(gocv.NewScalar(255, 255, 255, 0))
	roi.Close()
	t.Cleanup(func() { m.Close() })
	return m
}

func decode(t *testing.T, data []byte) gocv.Mat {
	t.Helper()
	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestEncodeJPEG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := halfWhite(t)

	data, err := EncodeJPEG(&frame, 90)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Error("output should start with the JPEG SOI marker")
	}

	low, err := EncodeJPEG(&frame, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(data) {
		t.Logf("quality 5 (%d bytes) not smaller than quality 90 (%d bytes)", len(low), len(data))
	}

	m := decode(t, data)
	if m.Cols() != 160 || m.Rows() != 120 {
		t.Errorf("decoded size = %dx%d, want 160x120", m.Cols(), m.Rows())
	}
}

func TestJPEGSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name       string
		mirror     bool
		wantBright int // column expected to be white
	}{
		{name: "as captured", mirror: false, wantBright: 10},
		{name: "mirrored", mirror: true, wantBright: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := halfWhite(t)
			cam := NewMockCamera([]*gocv.Mat{&frame}, false)
			cam.Open()
			defer cam.Close()

			src := NewJPEGSource(cam, 95, tt.mirror)
			data, err := src.Next(context.Background())
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}

			m := decode(t, data)
			if v := m.GetUCharAt(60, tt.wantBright*3); v < 200 {
				t.Errorf("pixel at column %d = %d, want white", tt.wantBright, v)
			}

			if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
				t.Errorf("Next() after the last frame error = %v, want io.EOF", err)
			}
		})
	}
}

func TestJPEGSource_Canceled(t *testing.T) {
	cam := NewMockCamera(nil, false)
	src := NewJPEGSource(cam, 80, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
	if cam.Reads() != 0 {
		t.Error("a canceled source must not read the camera")
	}
}
