// Package volume holds the in-memory representation of a 3-D image: a dense
// sample array, its shape, and the affine that places it in world space.
// Derived volumes (crops, reorientations) are always independent copies.
package volume

import "fmt"

// Volume is a dense 3-D sample array with its voxel-to-world affine.
type Volume struct {
	// Data holds the samples with the first axis varying fastest.
	Data []float64

	// Shape is the number of voxels along each axis (nx, ny, nz).
	Shape [3]int

	// Affine maps voxel indices to world coordinates in mm.
	Affine Affine
}

// New creates a volume, checking that data matches the shape.
func New(data []float64, shape [3]int, affine Affine) (*Volume, error) {
	for i, n := range shape {
		if n < 0 {
			return nil, fmt.Errorf("negative extent %d along axis %d", n, i)
		}
	}
	if len(data) != shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("data length %d does not match shape %v", len(data), shape)
	}
	return &Volume{Data: data, Shape: shape, Affine: affine}, nil
}

// Zeros creates a zero-filled volume.
func Zeros(shape [3]int, affine Affine) *Volume {
	return &Volume{
		Data:   make([]float64, shape[0]*shape[1]*shape[2]),
		Shape:  shape,
		Affine: affine,
	}
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return len(v.Data)
}

// Index returns the flat offset of voxel (i, j, k).
func (v *Volume) Index(i, j, k int) int {
	return i + v.Shape[0]*(j+v.Shape[1]*k)
}

// At returns the sample at voxel (i, j, k).
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[v.Index(i, j, k)]
}

// Set stores a sample at voxel (i, j, k).
func (v *Volume) Set(i, j, k int, value float64) {
	v.Data[v.Index(i, j, k)] = value
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Shape: v.Shape, Affine: v.Affine}
}

// Slab returns a copy of the samples in [start, stop) along axis, all
// other axes taken in full.
func (v *Volume) Slab(axis, start, stop int) ([]float64, error) {
	lo, hi, err := v.bounds(axis, start, stop)
	if err != nil {
		return nil, err
	}
	return v.extract(lo, hi), nil
}

// Crop returns the sub-volume [start, stop) along axis. The affine of the
// result is shifted so every retained voxel keeps its world position.
func (v *Volume) Crop(axis, start, stop int) (*Volume, error) {
	lo, hi, err := v.bounds(axis, start, stop)
	if err != nil {
		return nil, err
	}
	return &Volume{
		Data:   v.extract(lo, hi),
		Shape:  [3]int{hi[0] - lo[0], hi[1] - lo[1], hi[2] - lo[2]},
		Affine: v.Affine.Shift(lo),
	}, nil
}

func (v *Volume) bounds(axis, start, stop int) (lo, hi [3]int, err error) {
	if axis < 0 || axis > 2 {
		return lo, hi, fmt.Errorf("axis %d out of range", axis)
	}
	if start < 0 || stop > v.Shape[axis] || start > stop {
		return lo, hi, fmt.Errorf("range [%d, %d) out of bounds for axis %d of extent %d",
			start, stop, axis, v.Shape[axis])
	}
	hi = v.Shape
	lo[axis] = start
	hi[axis] = stop
	return lo, hi, nil
}

func (v *Volume) extract(lo, hi [3]int) []float64 {
	out := make([]float64, 0, (hi[0]-lo[0])*(hi[1]-lo[1])*(hi[2]-lo[2]))
	for k := lo[2]; k < hi[2]; k++ {
		for j := lo[1]; j < hi[1]; j++ {
			row := v.Index(lo[0], j, k)
			out = append(out, v.Data[row:row+hi[0]-lo[0]]...)
		}
	}
	return out
}

// Reorient flips and transposes whole axes according to ornt, which gives
// for each current axis the axis it becomes and whether it is reversed.
// No samples are interpolated.
func (v *Volume) Reorient(ornt Orientation) *Volume {
	var shape [3]int
	for ax, o := range ornt {
		shape[o.Axis] = v.Shape[ax]
	}
	out := Zeros(shape, v.Affine.Mul(InvOrientationAffine(ornt, v.Shape)))

	var src [3]int
	var dst [3]int
	for dst[2] = 0; dst[2] < shape[2]; dst[2]++ {
		for dst[1] = 0; dst[1] < shape[1]; dst[1]++ {
			for dst[0] = 0; dst[0] < shape[0]; dst[0]++ {
				for ax, o := range ornt {
					p := dst[o.Axis]
					if o.Flip < 0 {
						p = v.Shape[ax] - 1 - p
					}
					src[ax] = p
				}
				out.Set(dst[0], dst[1], dst[2], v.At(src[0], src[1], src[2]))
			}
		}
	}
	return out
}

// Min and Max return the extreme sample values; both are 0 for an empty
// volume.
func (v *Volume) Min() float64 {
	if len(v.Data) == 0 {
		return 0
	}
	m := v.Data[0]
	for _, x := range v.Data[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func (v *Volume) Max() float64 {
	if len(v.Data) == 0 {
		return 0
	}
	m := v.Data[0]
	for _, x := range v.Data[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
