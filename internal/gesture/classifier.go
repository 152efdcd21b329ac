package gesture

import (
	"math"

	"github.com/soyle-app/soyle/internal/detector"
)

// FingerState is the per-frame reading of one finger.
type FingerState string

const (
	Extended      FingerState = "extended"
	Curled        FingerState = "curled"
	Indeterminate FingerState = "unknown"
)

// Finger indexes Result.Fingers.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

var fingerNames = [...]string{"TH", "IX", "MD", "RG", "PK"}

func (f Finger) String() string {
	if f < Thumb || f > Pinky {
		return "??"
	}
	return fingerNames[f]
}

// Thumb kinematics differ from the other fingers; these bounds are fixed.
const (
	thumbExtAngle  = 150.0
	thumbCurlAngle = 120.0
	thumbExtReach  = 0.85
	thumbCurlReach = 0.95
)

// Thumb up/down margin: the larger of a pixel floor and a palm-scale share.
const (
	thumbMarginMin   = 12.0
	thumbMarginScale = 0.15
)

// Config holds the classifier thresholds. Angles are in degrees, lengths in
// palm-scale units.
type Config struct {
	ExtAngleDeg   float64 `yaml:"ext_angle_deg" validate:"gt=0,lte=180"`
	CurlAngleDeg  float64 `yaml:"curl_angle_deg" validate:"gte=0,ltfield=ExtAngleDeg"`
	OKPinchThresh float64 `yaml:"ok_pinch_thresh" validate:"gte=0"`
	LAngleMin     float64 `yaml:"l_angle_min" validate:"gte=0,lte=180"`
	LAngleMax     float64 `yaml:"l_angle_max" validate:"gtefield=LAngleMin,lte=180"`
	LIndexLenMin  float64 `yaml:"l_index_len_min" validate:"gte=0"`
	LThumbLenMin  float64 `yaml:"l_thumb_len_min" validate:"gte=0"`
}

// DefaultConfig returns the tuned default thresholds.
func DefaultConfig() Config {
	return Config{
		ExtAngleDeg:   155,
		CurlAngleDeg:  140,
		OKPinchThresh: 0.32,
		LAngleMin:     60,
		LAngleMax:     120,
		LIndexLenMin:  0.48,
		LThumbLenMin:  0.40,
	}
}

// FingerReading is the diagnostic state of one finger. It never feeds back
// into classification beyond the state itself.
type FingerReading struct {
	State FingerState `json:"state"`
	Angle float64     `json:"angle"`
}

// Result is the outcome of classifying one hand.
type Result struct {
	Label   Label            `json:"label"`
	Fingers [5]FingerReading `json:"fingers"`
}

// Classifier maps a hand's landmarks to a Label. It is stateless and safe for
// concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with a copy of cfg.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the thresholds the classifier was built with.
func (c *Classifier) Config() Config {
	return c.cfg
}

// features is everything the rule cascade looks at for one hand.
type features struct {
	cfg    *Config
	hand   *detector.HandLandmarks
	scale  float64
	states [5]FingerState
	pinch  float64 // thumb tip to index tip, palm-scale units
}

func (f *features) ext(fingers ...Finger) bool {
	for _, fg := range fingers {
		if f.states[fg] != Extended {
			return false
		}
	}
	return true
}

func (f *features) curled(fingers ...Finger) bool {
	for _, fg := range fingers {
		if f.states[fg] != Curled {
			return false
		}
	}
	return true
}

func (f *features) anyExt(fingers ...Finger) bool {
	for _, fg := range fingers {
		if f.states[fg] == Extended {
			return true
		}
	}
	return false
}

func (f *features) extCount() int {
	n := 0
	for _, s := range f.states {
		if s == Extended {
			n++
		}
	}
	return n
}

func (f *features) norm(i, j int) float64 {
	return detector.Distance2D(f.hand.Points[i], f.hand.Points[j]) / f.scale
}

type rule struct {
	label Label
	match func(f *features) bool
}

// cascade is evaluated top to bottom and the first match wins. Rules overlap,
// so the order is the priority.
var cascade = []rule{
	{ILY, func(f *features) bool {
		return f.ext(Thumb, Index, Pinky) && f.curled(Middle, Ring)
	}},
	{Rock, func(f *features) bool {
		return f.ext(Index, Pinky) && f.curled(Middle, Ring)
	}},
	{Four, func(f *features) bool {
		return f.ext(Index, Middle, Ring, Pinky)
	}},
	{OK, func(f *features) bool {
		return f.pinch < f.cfg.OKPinchThresh && f.anyExt(Middle, Ring, Pinky)
	}},
	{Pinch, func(f *features) bool {
		return f.pinch < f.cfg.OKPinchThresh && !f.anyExt(Middle, Ring, Pinky)
	}},
	{CallMe, func(f *features) bool {
		return f.ext(Thumb, Pinky) && f.curled(Index, Middle, Ring)
	}},
	{LShape, func(f *features) bool {
		if !f.ext(Index, Thumb) || !f.curled(Middle, Ring) {
			return false
		}
		p := &f.hand.Points
		angle := rayAngle(p[detector.IndexTip], p[detector.IndexMCP], p[detector.ThumbTip], p[detector.ThumbMCP])
		return angle >= f.cfg.LAngleMin && angle <= f.cfg.LAngleMax &&
			f.norm(detector.IndexTip, detector.IndexMCP) > f.cfg.LIndexLenMin &&
			f.norm(detector.ThumbTip, detector.ThumbMCP) > f.cfg.LThumbLenMin
	}},
	{Three, func(f *features) bool {
		return f.ext(Thumb, Index, Middle) && f.curled(Ring, Pinky)
	}},
	{One, func(f *features) bool {
		return f.ext(Index) && !f.anyExt(Thumb, Middle, Ring, Pinky)
	}},
	{Fist, func(f *features) bool {
		return f.extCount() <= 1 && !f.ext(Index)
	}},
	{Palm, func(f *features) bool {
		return f.ext(Index, Middle, Ring, Pinky) && f.states[Middle] != Curled && f.states[Ring] != Curled
	}},
	{Peace, func(f *features) bool {
		return f.ext(Index, Middle) && !f.anyExt(Ring, Pinky)
	}},
	{ThumbUp, func(f *features) bool {
		return f.thumbOnly() && f.thumbTipY() < f.wristY()-f.thumbMargin()
	}},
	{ThumbDown, func(f *features) bool {
		return f.thumbOnly() && f.thumbTipY() > f.wristY()+f.thumbMargin()
	}},
	{Point, func(f *features) bool {
		return f.ext(Index) && !f.anyExt(Middle, Ring, Pinky)
	}},
}

func (f *features) thumbOnly() bool {
	return f.ext(Thumb) && f.curled(Index, Middle, Ring, Pinky)
}

func (f *features) thumbTipY() float64 { return f.hand.Points[detector.ThumbTip].Y }
func (f *features) wristY() float64    { return f.hand.Points[detector.Wrist].Y }

// thumbMargin mixes a pixel floor with a scale share, so it is only
// size-invariant for hands larger than about 80px.
func (f *features) thumbMargin() float64 {
	return math.Max(thumbMarginMin, f.scale*thumbMarginScale)
}

// Classify returns the label for one hand. It never fails: a nil hand or a
// pose that matches no rule yields Unknown.
func (c *Classifier) Classify(hand *detector.HandLandmarks) Result {
	if hand == nil {
		return Result{Label: Unknown}
	}

	var res Result
	f := &features{
		cfg:   &c.cfg,
		hand:  hand,
		scale: palmScale(hand),
	}

	p := &hand.Points
	res.Fingers[Thumb] = c.thumb(hand)
	res.Fingers[Index] = c.finger(p[detector.IndexTip], p[detector.IndexPIP], p[detector.IndexMCP])
	res.Fingers[Middle] = c.finger(p[detector.MiddleTip], p[detector.MiddlePIP], p[detector.MiddleMCP])
	res.Fingers[Ring] = c.finger(p[detector.RingTip], p[detector.RingPIP], p[detector.RingMCP])
	res.Fingers[Pinky] = c.finger(p[detector.PinkyTip], p[detector.PinkyPIP], p[detector.PinkyMCP])
	for i, r := range res.Fingers {
		f.states[i] = r.State
	}
	f.pinch = f.norm(detector.ThumbTip, detector.IndexTip)

	res.Label = Unknown
	for _, r := range cascade {
		if r.match(f) {
			res.Label = r.label
			break
		}
	}
	return res
}

// finger reads a non-thumb finger from the angle at its PIP joint. A curl
// reading wins when the thresholds overlap.
func (c *Classifier) finger(tip, pip, mcp detector.Point3D) FingerReading {
	angle := jointAngle(tip, pip, mcp)
	state := Indeterminate
	if angle >= c.cfg.ExtAngleDeg {
		state = Extended
	}
	if angle <= c.cfg.CurlAngleDeg {
		state = Curled
	}
	return FingerReading{State: state, Angle: angle}
}

// thumb combines the IP joint angle with how far the tip reaches from the
// wrist relative to the thumb MCP.
func (c *Classifier) thumb(h *detector.HandLandmarks) FingerReading {
	p := &h.Points
	angle := jointAngle(p[detector.ThumbTip], p[detector.ThumbIP], p[detector.ThumbMCP])
	tip := detector.Distance2D(p[detector.Wrist], p[detector.ThumbTip])
	mcp := detector.Distance2D(p[detector.Wrist], p[detector.ThumbMCP])

	state := Indeterminate
	if angle >= thumbExtAngle && tip > mcp*thumbExtReach {
		state = Extended
	}
	if angle <= thumbCurlAngle && tip < mcp*thumbCurlReach {
		state = Curled
	}
	return FingerReading{State: state, Angle: angle}
}
