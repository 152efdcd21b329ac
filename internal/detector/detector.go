package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// EncodedDetector is implemented by detectors that can work directly on an
// encoded (JPEG) frame without a decode round trip.
type EncodedDetector interface {
	DetectEncoded(data []byte) ([]HandLandmarks, error)
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// PixelCoords converts the model's normalized output into pixel
	// coordinates of the analyzed frame.
	PixelCoords bool

	// Python and Script override interpreter and service discovery.
	Python string
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		PixelCoords:     true,
	}
}

// DetectEncoded runs d against an encoded frame. Detectors implementing
// EncodedDetector receive the bytes as-is; others get a decoded Mat.
func DetectEncoded(d Detector, data []byte) ([]HandLandmarks, error) {
	if ed, ok := d.(EncodedDetector); ok {
		return ed.DetectEncoded(data)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decode frame: empty image")
	}
	return d.Detect(&mat)
}
