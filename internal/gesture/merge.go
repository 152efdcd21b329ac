package gesture

import (
	"sort"
	"strings"

	"github.com/soyle-app/soyle/internal/detector"
)

// MaxMergedLabelLen caps a multi-hand label. The cut ignores label
// boundaries and may end mid-word.
const MaxMergedLabelLen = 24

// Merge combines the per-hand labels of one frame into a single label.
// No hands gives NoHand; only unrecognized hands give Unknown; one distinct
// pose is returned as is; several are sorted, joined with "+" and truncated.
func Merge(labels []Label) Label {
	if len(labels) == 0 {
		return NoHand
	}

	seen := make(map[Label]struct{}, len(labels))
	var distinct []string
	for _, l := range labels {
		if l == Unknown || l == NoHand {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		distinct = append(distinct, string(l))
	}

	switch len(distinct) {
	case 0:
		return Unknown
	case 1:
		return Label(distinct[0])
	}

	sort.Strings(distinct)
	joined := strings.Join(distinct, "+")
	if len(joined) > MaxMergedLabelLen {
		joined = joined[:MaxMergedLabelLen]
	}
	return Label(joined)
}

// ClassifyFrame classifies every hand in a frame and merges the results.
// The per-hand results are returned in detection order for diagnostics.
func (c *Classifier) ClassifyFrame(hands []detector.HandLandmarks) (Label, []Result) {
	if len(hands) == 0 {
		return NoHand, nil
	}

	results := make([]Result, len(hands))
	labels := make([]Label, len(hands))
	for i := range hands {
		results[i] = c.Classify(&hands[i])
		labels[i] = results[i].Label
	}
	return Merge(labels), results
}
