package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tolerances used when comparing affines and offsets, matching the usual
// relative/absolute closeness test for floating point arrays.
const (
	DefaultRTol = 1e-5
	DefaultATol = 1e-8
)

// Affine is a homogeneous 4x4 transform mapping voxel indices (i, j, k, 1)
// to world coordinates (x, y, z, 1) in millimetres. The top-left 3x3 block
// holds rotation, zooms and shears; the last column holds the origin.
type Affine [4][4]float64

// Identity returns the identity transform.
func Identity() Affine {
	var a Affine
	for i := 0; i < 4; i++ {
		a[i][i] = 1
	}
	return a
}

// Diagonal returns a transform with the given zooms and origin.
func Diagonal(zooms, origin [3]float64) Affine {
	a := Identity()
	for i := 0; i < 3; i++ {
		a[i][i] = zooms[i]
		a[i][3] = origin[i]
	}
	return a
}

// Dense returns the affine as a gonum matrix.
func (a Affine) Dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for r := 0; r < 4; r++ {
		data = append(data, a[r][:]...)
	}
	return mat.NewDense(4, 4, data)
}

// FromMatrix copies a 4x4 gonum matrix into an Affine.
func FromMatrix(m mat.Matrix) (Affine, error) {
	var a Affine
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return a, fmt.Errorf("affine must be 4x4, got %dx%d", r, c)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = m.At(i, j)
		}
	}
	return a, nil
}

// Mul returns a·b.
func (a Affine) Mul(b Affine) Affine {
	var out Affine
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Inverse returns a⁻¹.
func (a Affine) Inverse() (Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(a.Dense()); err != nil && !isConditionOnly(err) {
		return Affine{}, fmt.Errorf("affine is not invertible: %w", err)
	}
	return FromMatrix(&inv)
}

// Solve returns a⁻¹·b, the transform taking b's voxel grid into a's.
func (a Affine) Solve(b Affine) (Affine, error) {
	var x mat.Dense
	if err := x.Solve(a.Dense(), b.Dense()); err != nil && !isConditionOnly(err) {
		return Affine{}, fmt.Errorf("cannot solve affine system: %w", err)
	}
	return FromMatrix(&x)
}

// An ill-conditioned but non-singular system still yields a usable result.
func isConditionOnly(err error) bool {
	_, ok := err.(mat.Condition)
	return ok
}

// Translation returns the origin column.
func (a Affine) Translation() [3]float64 {
	return [3]float64{a[0][3], a[1][3], a[2][3]}
}

// RZS returns the rotation/zoom/shear block.
func (a Affine) RZS() [3][3]float64 {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = a[i][j]
		}
	}
	return m
}

// Zooms returns the voxel size along each voxel axis (column norms of RZS).
func (a Affine) Zooms() [3]float64 {
	var z [3]float64
	for j := 0; j < 3; j++ {
		var s float64
		for i := 0; i < 3; i++ {
			s += a[i][j] * a[i][j]
		}
		z[j] = math.Sqrt(s)
	}
	return z
}

// Shift returns the affine of the same grid with its voxel origin moved to
// voxel index start, i.e. a·T(start).
func (a Affine) Shift(start [3]int) Affine {
	out := a
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][3] += a[i][j] * float64(start[j])
		}
	}
	return out
}

// AllClose reports whether every element of a is close to the matching
// element of b.
func (a Affine) AllClose(b Affine, rtol, atol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if !IsClose(a[i][j], b[i][j], rtol, atol) {
				return false
			}
		}
	}
	return true
}

// RZSClose compares only the rotation/zoom/shear blocks.
func (a Affine) RZSClose(b Affine, rtol, atol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !IsClose(a[i][j], b[i][j], rtol, atol) {
				return false
			}
		}
	}
	return true
}

// IsClose is the asymmetric closeness test |x-y| <= atol + rtol*|y|.
// NaN is never close to anything.
func IsClose(x, y, rtol, atol float64) bool {
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return x == y
	}
	return math.Abs(x-y) <= atol+rtol*math.Abs(y)
}

func (a Affine) String() string {
	s := ""
	for i := 0; i < 4; i++ {
		s += fmt.Sprintf("[%10.4f %10.4f %10.4f %10.4f]", a[i][0], a[i][1], a[i][2], a[i][3])
		if i < 3 {
			s += "\n"
		}
	}
	return s
}
