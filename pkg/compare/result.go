package compare

import "fmt"

// Result is the outcome of a comparison. It is a closed set: the only
// implementations are Equal, NotEqual and AffineMismatch.
type Result interface {
	// StatusCode is the process exit status for this outcome.
	StatusCode() int

	// Description explains the outcome in one sentence.
	Description() string

	// OK is true only for Equal.
	OK() bool

	String() string

	isResult()
}

// Equal means the images hold the same data in world space.
type Equal struct {
	Desc string

	// Misalignment is the residual world-space (RAS, mm) difference of the
	// image origins left after rounding a non-integer voxel offset. It is
	// only set when offset rounding was requested.
	Misalignment *[3]float64
}

// NotEqual means the data differ once the images are aligned.
type NotEqual struct {
	Desc string

	// Diff summarises the differences over the overlap, when the overlap
	// itself was compared. Nil when the mismatch was found outside it.
	Diff *DiffSummary
}

// AffineMismatch means the voxel grids cannot be reconciled: rotation or
// zooms differ, or the offset is not a whole number of voxels.
type AffineMismatch struct {
	Desc string
}

func (Equal) StatusCode() int          { return 0 }
func (NotEqual) StatusCode() int       { return 1 }
func (AffineMismatch) StatusCode() int { return 2 }

func (r Equal) Description() string          { return r.Desc }
func (r NotEqual) Description() string       { return r.Desc }
func (r AffineMismatch) Description() string { return r.Desc }

func (Equal) OK() bool          { return true }
func (NotEqual) OK() bool       { return false }
func (AffineMismatch) OK() bool { return false }

func (r Equal) String() string          { return format("Equal", r.Desc) }
func (r NotEqual) String() string       { return format("NotEqual", r.Desc) }
func (r AffineMismatch) String() string { return format("AffineMismatch", r.Desc) }

func (Equal) isResult()          {}
func (NotEqual) isResult()       {}
func (AffineMismatch) isResult() {}

func format(name, desc string) string {
	if desc == "" {
		return name
	}
	return fmt.Sprintf("%s: %s", name, desc)
}
