// Package gesture classifies static hand poses into a closed set of labels.
package gesture

// Label is a gesture name as it travels through the pipeline and over the wire.
type Label string

// Recognized poses.
const (
	Fist      Label = "FIST"
	Palm      Label = "PALM"
	Peace     Label = "PEACE"
	ThumbUp   Label = "THUMB_UP"
	ThumbDown Label = "THUMB_DOWN"
	Point     Label = "POINT"
	OK        Label = "OK"
	Pinch     Label = "PINCH"
	ILY       Label = "ILY"
	CallMe    Label = "CALL_ME"
	LShape    Label = "L"
	Rock      Label = "ROCK"
	Three     Label = "THREE"
	Four      Label = "FOUR"
	One       Label = "ONE"
)

// Meta states.
const (
	// Unknown is a hand that matched no rule.
	Unknown Label = "UNKNOWN"
	// NoHand means the landmark provider found no hand in the frame.
	NoHand Label = "NO_HAND"
	// Connecting is shown by a stream client before its connection is up.
	Connecting Label = "CONNECTING"
)

var poses = []Label{
	Fist, Palm, Peace, ThumbUp, ThumbDown, Point, OK, Pinch,
	ILY, CallMe, LShape, Rock, Three, Four, One,
}

// Poses returns every label the classifier can produce for a recognized hand.
func Poses() []Label {
	out := make([]Label, len(poses))
	copy(out, poses)
	return out
}

// IsPose reports whether l is a single recognized pose (not a meta state and
// not a merged multi-hand label).
func (l Label) IsPose() bool {
	for _, p := range poses {
		if p == l {
			return true
		}
	}
	return false
}

// IsMeta reports whether l carries no gesture: UNKNOWN, NO_HAND or CONNECTING.
func (l Label) IsMeta() bool {
	return l == Unknown || l == NoHand || l == Connecting
}

func (l Label) String() string {
	return string(l)
}
