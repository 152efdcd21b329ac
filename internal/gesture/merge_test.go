package gesture

import (
	"testing"

	"github.com/soyle-app/soyle/internal/detector"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		labels []Label
		want   Label
	}{
		{"no hands", nil, NoHand},
		{"only unknown", []Label{Unknown, Unknown}, Unknown},
		{"no-hand entries are dropped", []Label{NoHand}, Unknown},
		{"single pose", []Label{Fist}, Fist},
		{"same pose on both hands", []Label{Peace, Peace}, Peace},
		{"unknown hand ignored", []Label{Unknown, OK}, OK},
		{"two poses sorted and joined", []Label{Peace, Fist}, "FIST+PEACE"},
		{"exactly 24 characters kept", []Label{ThumbDown, Peace, CallMe}, "CALL_ME+PEACE+THUMB_DOWN"},
		{"truncated mid-label", []Label{ThumbUp, ThumbDown, CallMe}, "CALL_ME+THUMB_DOWN+THUMB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.labels)
			if got != tt.want {
				t.Errorf("Merge(%v) = %q, want %q", tt.labels, got, tt.want)
			}
			if len(got) > MaxMergedLabelLen {
				t.Errorf("merged label %q exceeds %d bytes", got, MaxMergedLabelLen)
			}
		})
	}
}

func TestClassifier_ClassifyFrame(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	t.Run("empty frame", func(t *testing.T) {
		label, results := c.ClassifyFrame(nil)
		if label != NoHand {
			t.Errorf("label = %s, want NO_HAND", label)
		}
		if results != nil {
			t.Errorf("expected no per-hand results, got %d", len(results))
		}
	})

	t.Run("two hands", func(t *testing.T) {
		hands := []detector.HandLandmarks{detector.PeaceLandmarks(), detector.FistLandmarks()}
		label, results := c.ClassifyFrame(hands)
		if label != "FIST+PEACE" {
			t.Errorf("label = %s, want FIST+PEACE", label)
		}
		if len(results) != 2 || results[0].Label != Peace || results[1].Label != Fist {
			t.Errorf("per-hand results out of order: %+v", results)
		}
	})

	t.Run("one unrecognized hand", func(t *testing.T) {
		hands := []detector.HandLandmarks{detector.MiddleRingLandmarks()}
		if label, _ := c.ClassifyFrame(hands); label != Unknown {
			t.Errorf("label = %s, want UNKNOWN", label)
		}
	})
}

func TestLabel(t *testing.T) {
	for _, p := range Poses() {
		if !p.IsPose() || p.IsMeta() {
			t.Errorf("%s: IsPose=%v IsMeta=%v", p, p.IsPose(), p.IsMeta())
		}
	}
	for _, m := range []Label{Unknown, NoHand, Connecting} {
		if m.IsPose() || !m.IsMeta() {
			t.Errorf("%s: IsPose=%v IsMeta=%v", m, m.IsPose(), m.IsMeta())
		}
	}
	if Label("FIST+PEACE").IsPose() {
		t.Error("merged label should not be a single pose")
	}
	if len(Poses()) != 15 {
		t.Errorf("Poses() has %d labels, want 15", len(Poses()))
	}
}
