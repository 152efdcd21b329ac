package gesture

import (
	"math"
	"sort"

	"github.com/soyle-app/soyle/internal/detector"
)

// minPalmScale floors the palm scale so normalized distances stay finite.
const minPalmScale = 1e-3

// cosEpsilon keeps the cosine denominator non-zero for collapsed joints.
const cosEpsilon = 1e-6

// jointAngle returns the angle at b, in degrees, between b->a and b->c.
func jointAngle(a, b, c detector.Point3D) float64 {
	return vectorAngle(a.X-b.X, a.Y-b.Y, c.X-b.X, c.Y-b.Y)
}

// rayAngle returns the angle in degrees between the rays a0->a1 and b0->b1.
func rayAngle(a1, a0, b1, b0 detector.Point3D) float64 {
	return vectorAngle(a1.X-a0.X, a1.Y-a0.Y, b1.X-b0.X, b1.Y-b0.Y)
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	denom := math.Hypot(ux, uy)*math.Hypot(vx, vy) + cosEpsilon
	cos := (ux*vx + uy*vy) / denom
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// palmScale is the median wrist distance to the index, middle and ring MCP
// joints. It is the unit for every size-dependent threshold.
func palmScale(h *detector.HandLandmarks) float64 {
	wrist := h.Points[detector.Wrist]
	d := []float64{
		detector.Distance2D(wrist, h.Points[detector.IndexMCP]),
		detector.Distance2D(wrist, h.Points[detector.MiddleMCP]),
		detector.Distance2D(wrist, h.Points[detector.RingMCP]),
	}
	sort.Float64s(d)
	return math.Max(d[1], minPalmScale)
}
