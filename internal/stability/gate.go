package stability

import (
	"time"

	"github.com/soyle-app/soyle/internal/gesture"
)

// DefaultCooldown is the minimum time between two spoken phrases.
const DefaultCooldown = 1200 * time.Millisecond

// Phrasebook maps a gesture label to the phrase spoken for it.
type Phrasebook interface {
	Phrase(label gesture.Label) (string, bool)
}

// Speaker plays a phrase. It must not block the caller for long and reports
// its own failures.
type Speaker interface {
	Speak(phrase string)
}

// Gate decides when a stable label is spoken. A label fires when it differs
// from the last spoken label, has a phrase, and the cooldown since the last
// phrase has fully elapsed.
type Gate struct {
	cooldown time.Duration
	phrases  Phrasebook
	speaker  Speaker

	lastLabel gesture.Label
	lastTime  time.Time

	// OnSpeak, if set, is called after each fired phrase.
	OnSpeak func(label gesture.Label, phrase string, at time.Time)
}

// NewGate creates a Gate that speaks through speaker.
func NewGate(cooldown time.Duration, phrases Phrasebook, speaker Speaker) *Gate {
	return &Gate{
		cooldown: cooldown,
		phrases:  phrases,
		speaker:  speaker,
	}
}

// Offer presents a stable label observed at now and reports whether it was
// spoken.
func (g *Gate) Offer(label gesture.Label, now time.Time) bool {
	if label == g.lastLabel {
		return false
	}
	phrase, ok := g.phrases.Phrase(label)
	if !ok {
		return false
	}
	if !g.lastTime.IsZero() && now.Sub(g.lastTime) <= g.cooldown {
		return false
	}

	g.speaker.Speak(phrase)
	g.lastLabel = label
	g.lastTime = now

	if g.OnSpeak != nil {
		g.OnSpeak(label, phrase, now)
	}
	return true
}

// LastSpoken returns the last spoken label and when it fired.
func (g *Gate) LastSpoken() (gesture.Label, time.Time) {
	return g.lastLabel, g.lastTime
}

// PhraseMap is a Phrasebook backed by a plain map.
type PhraseMap map[gesture.Label]string

// Phrase implements Phrasebook.
func (m PhraseMap) Phrase(label gesture.Label) (string, bool) {
	p, ok := m[label]
	return p, ok
}

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(phrase string)

// Speak implements Speaker.
func (f SpeakerFunc) Speak(phrase string) {
	f(phrase)
}
