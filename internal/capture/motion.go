package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts as motion
	DiffThreshold = 25
	// DefaultMotionRatio is the share of changed pixels that counts as motion
	DefaultMotionRatio = 0.02
)

// MotionDetector detects motion between consecutive frames by differencing
// blurred grayscale images. It paces the local pipeline: frames without
// motion are never sent to the landmark model.
type MotionDetector struct {
	ratio       float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector that reports motion when more
// than ratio (0..1) of the pixels changed. Non-positive values use
// DefaultMotionRatio.
func NewMotionDetector(ratio float64) *MotionDetector {
	if ratio <= 0 {
		ratio = DefaultMotionRatio
	}
	return &MotionDetector{
		ratio:    ratio,
		prevGray: gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion was
// seen and the share of changed pixels. The first frame only sets the
// baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols())

	blurred.CopyTo(&m.prevGray)

	return changed > m.ratio, changed
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases resources used by the motion detector. It is safe to call
// more than once; a closed detector can be reused.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetRatio changes the motion threshold. Values outside (0, 1] are ignored.
func (m *MotionDetector) SetRatio(ratio float64) {
	if ratio <= 0 || ratio > 1 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ratio = ratio
}

// Ratio returns the current motion threshold.
func (m *MotionDetector) Ratio() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratio
}
