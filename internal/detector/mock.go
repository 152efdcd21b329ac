package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many frames have been analyzed.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	return m.DetectEncoded(nil)
}

// DetectEncoded returns the pre-configured hands or error without decoding.
func (m *MockDetector) DetectEncoded(data []byte) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset poses below are in pixel coordinates of a 640x480 frame with the
// wrist at (320, 400). Palm scale is roughly 104px.

type fingerPose int

const (
	curled fingerPose = iota
	extended
)

type thumbPose int

const (
	thumbCurled thumbPose = iota
	thumbOut              // extended up and outward
	thumbSide             // extended sideways, perpendicular to the index finger
	thumbUp               // extended straight up
	thumbPinch            // tip touching the curled index tip
)

var fingerMCPs = [4]Point3D{
	{X: 290, Y: 300}, // index
	{X: 320, Y: 295}, // middle
	{X: 350, Y: 300}, // ring
	{X: 375, Y: 315}, // pinky
}

// buildHand assembles a right hand from a thumb pose and four finger poses
// ordered index, middle, ring, pinky.
func buildHand(thumb thumbPose, fingers [4]fingerPose) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 320, Y: 400}
	h.Points[ThumbCMC] = Point3D{X: 280, Y: 380}
	h.Points[ThumbMCP] = Point3D{X: 255, Y: 350}

	switch thumb {
	case thumbCurled:
		h.Points[ThumbIP] = Point3D{X: 260, Y: 320}
		h.Points[ThumbTip] = Point3D{X: 285, Y: 345}
	case thumbOut:
		h.Points[ThumbIP] = Point3D{X: 235, Y: 325}
		h.Points[ThumbTip] = Point3D{X: 215, Y: 300}
	case thumbSide:
		h.Points[ThumbIP] = Point3D{X: 225, Y: 345}
		h.Points[ThumbTip] = Point3D{X: 195, Y: 340}
	case thumbUp:
		h.Points[ThumbIP] = Point3D{X: 250, Y: 310}
		h.Points[ThumbTip] = Point3D{X: 245, Y: 270}
	case thumbPinch:
		h.Points[ThumbIP] = Point3D{X: 270, Y: 315}
		h.Points[ThumbTip] = Point3D{X: 295, Y: 300}
	}

	joints := [4][3]int{
		{IndexPIP, IndexDIP, IndexTip},
		{MiddlePIP, MiddleDIP, MiddleTip},
		{RingPIP, RingDIP, RingTip},
		{PinkyPIP, PinkyDIP, PinkyTip},
	}
	mcpIdx := [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

	for i, pose := range fingers {
		m := fingerMCPs[i]
		h.Points[mcpIdx[i]] = m
		h.Points[joints[i][0]] = Point3D{X: m.X, Y: m.Y - 40}
		if pose == extended {
			h.Points[joints[i][1]] = Point3D{X: m.X, Y: m.Y - 65}
			h.Points[joints[i][2]] = Point3D{X: m.X, Y: m.Y - 90}
		} else {
			h.Points[joints[i][1]] = Point3D{X: m.X + 8, Y: m.Y - 30}
			h.Points[joints[i][2]] = Point3D{X: m.X + 10, Y: m.Y - 10}
		}
	}

	return h
}

// FistLandmarks returns a closed fist with the thumb folded over the palm.
func FistLandmarks() HandLandmarks {
	return buildHand(thumbCurled, [4]fingerPose{curled, curled, curled, curled})
}

// PeaceLandmarks returns index and middle extended, the rest curled.
func PeaceLandmarks() HandLandmarks {
	return buildHand(thumbCurled, [4]fingerPose{extended, extended, curled, curled})
}

// OneLandmarks returns only the index finger extended.
func OneLandmarks() HandLandmarks {
	return buildHand(thumbCurled, [4]fingerPose{extended, curled, curled, curled})
}

// PointLandmarks returns index and thumb extended at an angle too narrow for an L.
func PointLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4]fingerPose{extended, curled, curled, curled})
}

// OKLandmarks returns thumb and index tips touching with the other fingers extended.
func OKLandmarks() HandLandmarks {
	return buildHand(thumbPinch, [4]fingerPose{curled, extended, extended, extended})
}

// PinchLandmarks returns thumb and index tips touching with the other fingers curled.
func PinchLandmarks() HandLandmarks {
	return buildHand(thumbPinch, [4]fingerPose{curled, curled, curled, curled})
}

// OpenPalmLandmarks returns all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4]fingerPose{extended, extended, extended, extended})
}

// ILYLandmarks returns thumb, index and pinky extended.
func ILYLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4]fingerPose{extended, curled, curled, extended})
}

// RockLandmarks returns index and pinky extended with the thumb folded.
func RockLandmarks() HandLandmarks {
	return buildHand(thumbCurled, [4]fingerPose{extended, curled, curled, extended})
}

// CallMeLandmarks returns thumb and pinky extended.
func CallMeLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4]fingerPose{curled, curled, curled, extended})
}

// LShapeLandmarks returns index up and thumb out sideways at roughly 80 degrees.
func LShapeLandmarks() HandLandmarks {
	return buildHand(thumbSide, [4]fingerPose{extended, curled, curled, curled})
}

// ThreeLandmarks returns thumb, index and middle extended.
func ThreeLandmarks() HandLandmarks {
	return buildHand(thumbOut, [4]fingerPose{extended, extended, curled, curled})
}

// ThumbsUpLandmarks returns the thumb extended upward with the other fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return buildHand(thumbUp, [4]fingerPose{curled, curled, curled, curled})
}

// MiddleRingLandmarks returns a pose no rule recognizes.
func MiddleRingLandmarks() HandLandmarks {
	return buildHand(thumbCurled, [4]fingerPose{curled, extended, extended, curled})
}
