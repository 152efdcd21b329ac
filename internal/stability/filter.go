// Package stability turns noisy per-frame gesture labels into stable labels
// and decides when a stable label should be spoken.
//
// Neither Filter nor Gate is safe for concurrent use. Each belongs to one
// session and is driven by a single loop.
package stability

import (
	"time"

	"github.com/soyle-app/soyle/internal/gesture"
)

// DefaultDwell is how long a raw label must hold before it becomes stable.
const DefaultDwell = 450 * time.Millisecond

// Filter suppresses label flicker shorter than the dwell window.
type Filter struct {
	dwell        time.Duration
	candidate    gesture.Label
	hasCandidate bool
	since        time.Time
	stable       gesture.Label
}

// NewFilter creates a Filter whose stable label starts as NO_HAND.
func NewFilter(dwell time.Duration) *Filter {
	return &Filter{
		dwell:  dwell,
		stable: gesture.NoHand,
	}
}

// Update feeds one raw label observed at now and returns the stable label.
// Any change of raw label restarts the dwell clock.
func (f *Filter) Update(raw gesture.Label, now time.Time) gesture.Label {
	if !f.hasCandidate || raw != f.candidate {
		f.candidate = raw
		f.hasCandidate = true
		f.since = now
		return f.stable
	}

	if now.Sub(f.since) >= f.dwell {
		f.stable = f.candidate
	}
	return f.stable
}

// Stable returns the current stable label.
func (f *Filter) Stable() gesture.Label {
	return f.stable
}

// Candidate returns the label currently dwelling and when it was first seen.
func (f *Filter) Candidate() (gesture.Label, time.Time, bool) {
	return f.candidate, f.since, f.hasCandidate
}

// Reset returns the filter to its initial state.
func (f *Filter) Reset() {
	f.candidate = ""
	f.hasCandidate = false
	f.since = time.Time{}
	f.stable = gesture.NoHand
}
