package compare

import (
	"errors"
	"math"

	"pndniutils/pkg/volume"
)

// ErrConflictingPolicies is returned when both approximate and rounded
// equality are requested.
var ErrConflictingPolicies = errors.New(`only one of "close" and "round" may be specified`)

// Policy selects how two samples are judged equal.
type Policy int

const (
	// Strict requires exact equality.
	Strict Policy = iota
	// Close allows |a-b| <= atol + rtol*|b|.
	Close
	// Round rounds both samples half-to-even before comparing exactly.
	Round
)

func (p Policy) String() string {
	switch p {
	case Close:
		return "approximate equality"
	case Round:
		return "rounding"
	default:
		return "strict equality"
	}
}

// Options configures a comparison.
type Options struct {
	// Close and Round select the equality policy; at most one may be set.
	Close bool
	Round bool

	// IntersectionOnly skips the check that data outside the overlap of
	// the two images is zero.
	IntersectionOnly bool

	// RoundOffset accepts non-integer voxel offsets by rounding them.
	RoundOffset bool

	// Tolerances for the Close policy and for affine comparisons. Zero
	// means volume.DefaultRTol / volume.DefaultATol.
	RTol float64
	ATol float64
}

// Policy returns the selected equality policy.
func (o Options) Policy() (Policy, error) {
	switch {
	case o.Close && o.Round:
		return Strict, ErrConflictingPolicies
	case o.Close:
		return Close, nil
	case o.Round:
		return Round, nil
	default:
		return Strict, nil
	}
}

func (o Options) tolerances() (rtol, atol float64) {
	rtol, atol = o.RTol, o.ATol
	if rtol == 0 {
		rtol = volume.DefaultRTol
	}
	if atol == 0 {
		atol = volume.DefaultATol
	}
	return rtol, atol
}

// Predicate applies an equality policy elementwise.
type Predicate struct {
	Policy Policy
	RTol   float64
	ATol   float64
}

// NewPredicate builds the predicate for opts, failing on conflicting
// policies.
func NewPredicate(opts Options) (*Predicate, error) {
	p, err := opts.Policy()
	if err != nil {
		return nil, err
	}
	rtol, atol := opts.tolerances()
	return &Predicate{Policy: p, RTol: rtol, ATol: atol}, nil
}

// Same reports whether two samples are equal under the policy.
func (p *Predicate) Same(a, b float64) bool {
	switch p.Policy {
	case Close:
		return volume.IsClose(a, b, p.RTol, p.ATol)
	case Round:
		return math.RoundToEven(a) == math.RoundToEven(b)
	default:
		return a == b
	}
}

// AllEqual reports whether a and b have the same length and are equal
// elementwise.
func (p *Predicate) AllEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !p.Same(a[i], b[i]) {
			return false
		}
	}
	return true
}

// AllZero reports whether every sample equals zero under the policy.
// An empty slice is all zero.
func (p *Predicate) AllZero(a []float64) bool {
	for _, x := range a {
		if !p.Same(x, 0) {
			return false
		}
	}
	return true
}
