package compare

// axisAction is the decision taken for one axis during reconciliation.
type axisAction int

const (
	// keepBoth leaves both images untouched along the axis.
	keepBoth axisAction = iota
	// cropFirst removes a slab from the first image.
	cropFirst
	// cropSecond removes a slab from the second image.
	cropSecond
)

func (a axisAction) String() string {
	switch a {
	case cropFirst:
		return "crop-first"
	case cropSecond:
		return "crop-second"
	default:
		return "keep"
	}
}

// span is a half-open index range [Start, Stop).
type span struct {
	Start, Stop int
}

// axisStep is one planned slab removal. Drop is the slab that must be
// zero unless only the intersection is compared; Keep is what remains.
type axisStep struct {
	Axis   int
	Action axisAction
	Drop   span
	Keep   span
}

// planOffset decides what to crop along axis when the first image starts
// offset voxels after the second (negative: before). n1 and n2 are the
// extents of the two images along the axis.
func planOffset(axis, offset, n1, n2 int) axisStep {
	switch {
	case offset < 0:
		return axisStep{Axis: axis, Action: cropFirst, Drop: span{0, -offset}, Keep: span{-offset, n1}}
	case offset > 0:
		return axisStep{Axis: axis, Action: cropSecond, Drop: span{0, offset}, Keep: span{offset, n2}}
	default:
		return axisStep{Axis: axis, Action: keepBoth}
	}
}

// planShape decides what to crop along axis once both images start at the
// same voxel: the trailing excess of the longer one.
func planShape(axis, n1, n2 int) axisStep {
	switch {
	case n2 < n1:
		return axisStep{Axis: axis, Action: cropFirst, Drop: span{n2, n1}, Keep: span{0, n2}}
	case n2 > n1:
		return axisStep{Axis: axis, Action: cropSecond, Drop: span{n1, n2}, Keep: span{0, n1}}
	default:
		return axisStep{Axis: axis, Action: keepBoth}
	}
}

// overlap returns the voxel range of the second image that the first
// image covers along one axis, given the first image's offset.
func overlap(offset, n1, n2 int) span {
	lo := offset
	if lo < 0 {
		lo = 0
	}
	hi := n1 + offset
	if hi > n2 {
		hi = n2
	}
	return span{lo, hi}
}

func (s span) empty() bool {
	return s.Stop <= s.Start
}
