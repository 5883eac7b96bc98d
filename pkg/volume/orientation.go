package volume

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// AxisOrientation says which world axis (0=x, 1=y, 2=z) a voxel axis
// follows, and in which direction (+1 increasing, -1 decreasing).
type AxisOrientation struct {
	Axis int
	Flip int
}

// Orientation holds one AxisOrientation per voxel axis.
type Orientation [3]AxisOrientation

// RAS is the canonical orientation: voxel axes follow x, y, z increasing.
var RAS = Orientation{{0, 1}, {1, 1}, {2, 1}}

var axisLabels = [3][2]string{{"L", "R"}, {"P", "A"}, {"I", "S"}}

// ErrDegenerateAxis is returned when a voxel axis has no world direction.
var ErrDegenerateAxis = errors.New("affine has a degenerate voxel axis")

// IOOrientation returns the orientation of the voxel axes of aff in world
// space. The rotation is taken from the polar decomposition of the
// column-normalised 3x3 block, so zooms and small shears do not matter.
// When two voxel axes compete for the same world axis the earlier voxel
// axis wins and the world axis is removed from consideration.
func IOOrientation(aff Affine) (Orientation, error) {
	var ornt Orientation
	rzs := aff.RZS()
	zooms := aff.Zooms()
	rs := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			z := zooms[j]
			if z == 0 {
				z = 1
			}
			rs.Set(i, j, rzs[i][j]/z)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(rs, mat.SVDFull); !ok {
		return ornt, fmt.Errorf("SVD of affine rotation block failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	smax := 0.0
	for _, x := range s {
		smax = math.Max(smax, x)
	}
	tol := smax * 3 * eps

	// r = U[:, keep] · V[:, keep]ᵀ
	var r [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k, sv := range s {
				if sv > tol {
					r[i][j] += u.At(i, k) * v.At(j, k)
				}
			}
		}
	}

	for in := 0; in < 3; in++ {
		out := -1
		best := 0.0
		for row := 0; row < 3; row++ {
			if a := math.Abs(r[row][in]); a > DefaultATol && a > best {
				out, best = row, a
			}
		}
		if out < 0 {
			return ornt, fmt.Errorf("%w: axis %d", ErrDegenerateAxis, in)
		}
		ornt[in].Axis = out
		ornt[in].Flip = 1
		if r[out][in] < 0 {
			ornt[in].Flip = -1
		}
		for col := 0; col < 3; col++ {
			r[out][col] = 0
		}
	}
	return ornt, nil
}

const eps = 2.220446049250313e-16

// OrientationTransform returns the orientation that takes an array in
// orientation start to orientation end.
func OrientationTransform(start, end Orientation) (Orientation, error) {
	var result Orientation
	for si, s := range start {
		found := false
		for ei, e := range end {
			if s.Axis == e.Axis {
				flip := 1
				if s.Flip != e.Flip {
					flip = -1
				}
				result[si] = AxisOrientation{Axis: ei, Flip: flip}
				found = true
				break
			}
		}
		if !found {
			return result, fmt.Errorf("world axis %d of start orientation not in end orientation", s.Axis)
		}
	}
	return result, nil
}

// InvOrientationAffine returns the voxel-space affine mapping indices of an
// array reoriented with ornt back to indices of the original array of the
// given shape. Post-multiplying the original affine by it gives the affine
// of the reoriented array.
func InvOrientationAffine(ornt Orientation, shape [3]int) Affine {
	var reorder Affine
	reorder[3][3] = 1
	for r, o := range ornt {
		reorder[r][o.Axis] = 1
	}
	undoFlip := Identity()
	for r, o := range ornt {
		center := -float64(shape[r]-1) / 2
		undoFlip[r][r] = float64(o.Flip)
		undoFlip[r][3] = float64(o.Flip)*center - center
	}
	return undoFlip.Mul(reorder)
}

// AxisCodes returns the world direction each voxel axis increases toward,
// e.g. ("R", "A", "S").
func AxisCodes(aff Affine) ([3]string, error) {
	var codes [3]string
	ornt, err := IOOrientation(aff)
	if err != nil {
		return codes, err
	}
	for i, o := range ornt {
		if o.Flip < 0 {
			codes[i] = axisLabels[o.Axis][0]
		} else {
			codes[i] = axisLabels[o.Axis][1]
		}
	}
	return codes, nil
}

// Canonical returns v reoriented so its voxel axes run R, A, S. The data
// is only flipped and transposed.
func Canonical(v *Volume) (*Volume, error) {
	ornt, err := IOOrientation(v.Affine)
	if err != nil {
		return nil, err
	}
	tr, err := OrientationTransform(ornt, RAS)
	if err != nil {
		return nil, err
	}
	out := v.Reorient(tr)
	codes, err := AxisCodes(out.Affine)
	if err != nil || codes != [3]string{"R", "A", "S"} {
		panic(fmt.Sprintf("volume: reorientation produced axis codes %v, want RAS", codes))
	}
	return out, nil
}
