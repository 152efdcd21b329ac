package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{name: "explicit ratio", ratio: 0.05, want: 0.05},
		{name: "zero uses default", ratio: 0, want: DefaultMotionRatio},
		{name: "negative uses default", ratio: -1, want: DefaultMotionRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.ratio)
			defer md.Close()

			if md.Ratio() != tt.want {
				t.Errorf("Ratio() = %f, want %f", md.Ratio(), tt.want)
			}
			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func blackAndWhite(t *testing.T) (gocv.Mat, gocv.Mat) {
	t.Helper()
	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))
	t.Cleanup(func() {
		black.Close()
		white.Close()
	})
	return black, white
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	t.Run("identical frames", func(t *testing.T) {
		md := NewMotionDetector(0.01)
		defer md.Close()
		black, _ := blackAndWhite(t)

		if detected, changed := md.Detect(&black); detected || changed != 0 {
			t.Errorf("first frame = (%v, %f), want baseline only", detected, changed)
		}
		if detected, changed := md.Detect(&black); detected {
			t.Errorf("identical frames should not detect motion, changed = %f", changed)
		}
	})

	t.Run("black to white", func(t *testing.T) {
		md := NewMotionDetector(0.01)
		defer md.Close()
		black, white := blackAndWhite(t)

		md.Detect(&black)
		detected, changed := md.Detect(&white)
		if !detected {
			t.Errorf("black to white should detect motion, changed = %f", changed)
		}
		if changed < 0.5 || changed > 1 {
			t.Errorf("changed = %f, want a ratio above 0.5", changed)
		}
	})

	t.Run("ratio above the change", func(t *testing.T) {
		md := NewMotionDetector(1)
		defer md.Close()
		black, white := blackAndWhite(t)

		md.Detect(&black)
		if detected, changed := md.Detect(&white); detected {
			t.Errorf("ratio 1 can never be exceeded, changed = %f", changed)
		}
	})

	t.Run("nil and empty frames", func(t *testing.T) {
		md := NewMotionDetector(0.01)
		defer md.Close()
		empty := gocv.NewMat()
		defer empty.Close()

		if detected, _ := md.Detect(nil); detected {
			t.Error("nil frame should not detect motion")
		}
		if detected, _ := md.Detect(&empty); detected {
			t.Error("empty frame should not detect motion")
		}
		if md.initialized {
			t.Error("unusable frames must not set the baseline")
		}
	})
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(0.01)
	defer md.Close()
	black, white := blackAndWhite(t)

	md.Detect(&black)
	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	md.Reset()
	if md.initialized || !md.prevGray.Empty() {
		t.Error("Reset should drop the baseline")
	}

	// After a reset the next frame is a new baseline, not motion.
	if detected, _ := md.Detect(&white); detected {
		t.Error("first frame after Reset should not detect motion")
	}
}

func TestMotionDetector_SetRatio(t *testing.T) {
	md := NewMotionDetector(0.02)
	defer md.Close()

	tests := []struct {
		set  float64
		want float64
	}{
		{0.1, 0.1},
		{1, 1},
		{0, 1},
		{-0.5, 1},
		{1.5, 1},
		{0.005, 0.005},
	}
	for _, tt := range tests {
		md.SetRatio(tt.set)
		if got := md.Ratio(); got != tt.want {
			t.Errorf("after SetRatio(%v) Ratio() = %v, want %v", tt.set, got, tt.want)
		}
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(0.02)
	md.Close()
	md.Close()
}
