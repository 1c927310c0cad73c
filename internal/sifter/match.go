package sifter

import (
	gomath "math"

	"github.com/Monnte/car-dataset-generator/internal/keypoint"
)

// MatchOptions gates which nearest vertices count as hits.
type MatchOptions struct {
	Tolerance           float64 // pixels, distance must be strictly below
	VisibilityThreshold float64 // score must be strictly above
}

// DefaultMatchOptions returns a 1 pixel tolerance and 0.5 threshold.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{Tolerance: 1, VisibilityThreshold: 0.5}
}

// Match returns the vertex id hit by each accepted keypoint, in keypoint
// order. Each keypoint only considers its single nearest vertex; a
// keypoint whose nearest vertex is too far or not visible is dropped even
// if another visible vertex is within tolerance.
func (ix *Index) Match(kps []keypoint.Keypoint, opts MatchOptions) []int {
	var hits []int
	for _, kp := range kps {
		v, dist, ok := ix.Nearest(kp.X, kp.Y)
		if !ok {
			continue
		}
		if dist < opts.Tolerance && v.Visibility() > opts.VisibilityThreshold {
			hits = append(hits, v.ID)
		}
	}
	return hits
}

func sqrt(x float64) float64 {
	return gomath.Sqrt(x)
}
