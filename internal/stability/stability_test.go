package stability

import (
	"testing"
	"time"

	"github.com/soyle-app/soyle/internal/gesture"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

type sample struct {
	ms   int
	raw  gesture.Label
	want gesture.Label
}

func runFilter(t *testing.T, f *Filter, samples []sample) {
	t.Helper()
	for _, s := range samples {
		if got := f.Update(s.raw, at(s.ms)); got != s.want {
			t.Fatalf("at %dms Update(%s) = %s, want %s", s.ms, s.raw, got, s.want)
		}
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		samples []sample
	}{
		{
			name: "initial stable label is NO_HAND",
			samples: []sample{
				{0, gesture.Fist, gesture.NoHand},
			},
		},
		{
			name: "held label becomes stable once dwell elapses",
			samples: []sample{
				{0, gesture.Fist, gesture.NoHand},
				{150, gesture.Fist, gesture.NoHand},
				{300, gesture.Fist, gesture.NoHand},
				{450, gesture.Fist, gesture.Fist},
			},
		},
		{
			name: "not before dwell",
			samples: []sample{
				{0, gesture.Peace, gesture.NoHand},
				{449, gesture.Peace, gesture.NoHand},
				{450, gesture.Peace, gesture.Peace},
			},
		},
		{
			name: "single-frame flicker is rejected",
			samples: []sample{
				{0, gesture.Fist, gesture.NoHand},
				{150, gesture.Fist, gesture.NoHand},
				{300, gesture.Fist, gesture.NoHand},
				{450, gesture.Fist, gesture.Fist},
				{600, gesture.Palm, gesture.Fist},
				{750, gesture.Fist, gesture.Fist},
				{900, gesture.Fist, gesture.Fist},
				{1400, gesture.Fist, gesture.Fist},
			},
		},
		{
			name: "change shorter than dwell then revert",
			samples: []sample{
				{0, gesture.Fist, gesture.NoHand},
				{500, gesture.Fist, gesture.Fist},
				{510, gesture.OK, gesture.Fist},
				{700, gesture.OK, gesture.Fist},
				{900, gesture.OK, gesture.Fist},
				{950, gesture.Fist, gesture.Fist},
			},
		},
		{
			name: "flicker restarts the dwell clock",
			samples: []sample{
				{0, gesture.Peace, gesture.NoHand},
				{300, gesture.Peace, gesture.NoHand},
				{400, gesture.Unknown, gesture.NoHand},
				{420, gesture.Peace, gesture.NoHand},
				{800, gesture.Peace, gesture.NoHand},
				{870, gesture.Peace, gesture.Peace},
			},
		},
		{
			name: "meta labels stabilize like any other",
			samples: []sample{
				{0, gesture.Fist, gesture.NoHand},
				{450, gesture.Fist, gesture.Fist},
				{500, gesture.NoHand, gesture.Fist},
				{1000, gesture.NoHand, gesture.NoHand},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runFilter(t, NewFilter(DefaultDwell), tt.samples)
		})
	}
}

func TestFilter_StableChangesExactlyOnce(t *testing.T) {
	f := NewFilter(DefaultDwell)
	changes := 0
	prev := f.Stable()
	for ms := 0; ms <= 3000; ms += 33 {
		got := f.Update(gesture.ThumbUp, at(ms))
		if got != prev {
			changes++
			if ms < 450 {
				t.Errorf("stable changed at %dms, before dwell", ms)
			}
			prev = got
		}
	}
	if changes != 1 {
		t.Errorf("stable label changed %d times, want 1", changes)
	}
}

func TestFilter_Reset(t *testing.T) {
	f := NewFilter(DefaultDwell)
	f.Update(gesture.Fist, at(0))
	f.Update(gesture.Fist, at(500))
	if f.Stable() != gesture.Fist {
		t.Fatalf("Stable() = %s, want FIST", f.Stable())
	}

	f.Reset()

	if f.Stable() != gesture.NoHand {
		t.Errorf("Stable() after Reset = %s, want NO_HAND", f.Stable())
	}
	if _, _, ok := f.Candidate(); ok {
		t.Error("expected no candidate after Reset")
	}
}

type recorder struct {
	spoken []string
}

func (r *recorder) Speak(phrase string) {
	r.spoken = append(r.spoken, phrase)
}

var testPhrases = PhraseMap{
	gesture.Fist:  "Помогите",
	gesture.Peace: "Спасибо",
	gesture.OK:    "Окей",
}

func TestGate_Offer(t *testing.T) {
	type offer struct {
		ms    int
		label gesture.Label
		fire  bool
	}

	tests := []struct {
		name   string
		offers []offer
		spoken []string
	}{
		{
			name:   "first known label fires",
			offers: []offer{{0, gesture.Fist, true}},
			spoken: []string{"Помогите"},
		},
		{
			name:   "unknown phrase never fires",
			offers: []offer{{0, gesture.Rock, false}, {5000, gesture.NoHand, false}},
			spoken: nil,
		},
		{
			name: "held label fires once",
			offers: []offer{
				{0, gesture.Fist, true},
				{2000, gesture.Fist, false},
				{9000, gesture.Fist, false},
			},
			spoken: []string{"Помогите"},
		},
		{
			name: "different label inside cooldown is dropped",
			offers: []offer{
				{0, gesture.Fist, true},
				{1000, gesture.Peace, false},
				{1200, gesture.Peace, false},
				{1201, gesture.Peace, true},
			},
			spoken: []string{"Помогите", "Спасибо"},
		},
		{
			name: "return to the same label needs another label in between",
			offers: []offer{
				{0, gesture.Fist, true},
				{2000, gesture.NoHand, false},
				{4000, gesture.Fist, false},
				{5000, gesture.OK, true},
				{7000, gesture.Fist, true},
			},
			spoken: []string{"Помогите", "Окей", "Помогите"},
		},
		{
			name: "two transitions to the same label within cooldown speak once",
			offers: []offer{
				{0, gesture.Peace, true},
				{300, gesture.Fist, false},
				{600, gesture.Peace, false},
				{900, gesture.Fist, false},
			},
			spoken: []string{"Спасибо"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			g := NewGate(DefaultCooldown, testPhrases, rec)

			for _, o := range tt.offers {
				if got := g.Offer(o.label, at(o.ms)); got != o.fire {
					t.Errorf("at %dms Offer(%s) = %v, want %v", o.ms, o.label, got, o.fire)
				}
			}

			if len(rec.spoken) != len(tt.spoken) {
				t.Fatalf("spoken = %v, want %v", rec.spoken, tt.spoken)
			}
			for i := range tt.spoken {
				if rec.spoken[i] != tt.spoken[i] {
					t.Errorf("spoken[%d] = %q, want %q", i, rec.spoken[i], tt.spoken[i])
				}
			}
		})
	}
}

func TestGate_OnSpeak(t *testing.T) {
	var gotLabel gesture.Label
	var gotPhrase string
	var gotAt time.Time
	calls := 0

	g := NewGate(DefaultCooldown, testPhrases, SpeakerFunc(func(string) {}))
	g.OnSpeak = func(label gesture.Label, phrase string, when time.Time) {
		calls++
		gotLabel, gotPhrase, gotAt = label, phrase, when
	}

	g.Offer(gesture.OK, at(100))
	g.Offer(gesture.OK, at(5000))

	if calls != 1 {
		t.Fatalf("OnSpeak called %d times, want 1", calls)
	}
	if gotLabel != gesture.OK || gotPhrase != "Окей" || !gotAt.Equal(at(100)) {
		t.Errorf("OnSpeak(%s, %q, %v), want (OK, Окей, %v)", gotLabel, gotPhrase, gotAt, at(100))
	}

	last, when := g.LastSpoken()
	if last != gesture.OK || !when.Equal(at(100)) {
		t.Errorf("LastSpoken() = %s at %v", last, when)
	}
}

func TestFilterAndGate_Pipeline(t *testing.T) {
	rec := &recorder{}
	f := NewFilter(DefaultDwell)
	g := NewGate(DefaultCooldown, testPhrases, rec)

	// 30fps: FIST for 1s, a one-frame PEACE glitch, FIST again, then PEACE held.
	ms := 0
	feed := func(label gesture.Label, frames int) {
		for i := 0; i < frames; i++ {
			g.Offer(f.Update(label, at(ms)), at(ms))
			ms += 33
		}
	}
	feed(gesture.Fist, 30)
	feed(gesture.Peace, 1)
	feed(gesture.Fist, 30)
	feed(gesture.Peace, 60)

	want := []string{"Помогите", "Спасибо"}
	if len(rec.spoken) != len(want) {
		t.Fatalf("spoken = %v, want %v", rec.spoken, want)
	}
	for i := range want {
		if rec.spoken[i] != want[i] {
			t.Errorf("spoken[%d] = %q, want %q", i, rec.spoken[i], want[i])
		}
	}
}
