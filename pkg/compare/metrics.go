package compare

import (
	"fmt"
	"math"
)

// DiffSummary describes how two equally shaped sample arrays differ.
type DiffSummary struct {
	// Differing is the number of voxels not equal under the predicate.
	Differing int

	// Total is the number of voxels compared.
	Total int

	// MaxAbs is the largest absolute difference.
	MaxAbs float64

	// RMSE is the root mean square difference.
	RMSE float64
}

func (d DiffSummary) String() string {
	return fmt.Sprintf("%d of %d voxels differ (max abs difference %g, RMSE %g)",
		d.Differing, d.Total, d.MaxAbs, d.RMSE)
}

// summarizeDiff compares a and b voxel by voxel. Both must have the same
// length.
func summarizeDiff(p *Predicate, a, b []float64) DiffSummary {
	s := DiffSummary{Total: len(a)}
	if len(a) == 0 {
		return s
	}
	mse := 0.0
	for i := range a {
		if !p.Same(a[i], b[i]) {
			s.Differing++
		}
		diff := a[i] - b[i]
		mse += diff * diff
		s.MaxAbs = math.Max(s.MaxAbs, math.Abs(diff))
	}
	mse /= float64(len(a))
	s.RMSE = math.Sqrt(mse)
	return s
}
