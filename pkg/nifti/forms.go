package nifti

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"pndniutils/pkg/volume"
)

var (
	// ErrNoForm is returned when neither the qform nor the sform is set.
	ErrNoForm = errors.New("neither sform nor qform set")

	// ErrShears is returned when an affine with shears is stored as a
	// qform without permission to strip them.
	ErrShears = errors.New("shears in affine and stripShears is false")
)

// QForm returns the affine encoded by the quaternion fields and the
// qform code.
func (h *Header) QForm() (volume.Affine, int) {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	var a float64
	if w2 := 1 - (b*b + c*c + d*d); w2 < 1e-7 {
		// Quaternion is (numerically) not unit length, renormalise.
		n := 1 / math.Sqrt(b*b+c*c+d*d)
		b, c, d = b*n, c*n, d*n
	} else {
		a = math.Sqrt(w2)
	}

	zooms := [3]float64{1, 1, 1}
	for i := 0; i < 3; i++ {
		if p := float64(h.PixDim[i+1]); p > 0 {
			zooms[i] = p
		}
	}
	if h.PixDim[0] < 0 {
		zooms[2] = -zooms[2]
	}

	aff := volume.Identity()
	aff[0][0] = (a*a + b*b - c*c - d*d) * zooms[0]
	aff[0][1] = 2 * (b*c - a*d) * zooms[1]
	aff[0][2] = 2 * (b*d + a*c) * zooms[2]
	aff[1][0] = 2 * (b*c + a*d) * zooms[0]
	aff[1][1] = (a*a + c*c - b*b - d*d) * zooms[1]
	aff[1][2] = 2 * (c*d - a*b) * zooms[2]
	aff[2][0] = 2 * (b*d - a*c) * zooms[0]
	aff[2][1] = 2 * (c*d + a*b) * zooms[1]
	aff[2][2] = (a*a + d*d - c*c - b*b) * zooms[2]
	aff[0][3] = float64(h.QOffsetX)
	aff[1][3] = float64(h.QOffsetY)
	aff[2][3] = float64(h.QOffsetZ)
	return aff, int(h.QFormCode)
}

// SForm returns the affine stored in the srow fields and the sform code.
func (h *Header) SForm() (volume.Affine, int) {
	aff := volume.Identity()
	for j := 0; j < 4; j++ {
		aff[0][j] = float64(h.SRowX[j])
		aff[1][j] = float64(h.SRowY[j])
		aff[2][j] = float64(h.SRowZ[j])
	}
	return aff, int(h.SFormCode)
}

// SetSForm stores aff in the srow fields with the given code.
func (h *Header) SetSForm(aff volume.Affine, code int) {
	for j := 0; j < 4; j++ {
		h.SRowX[j] = float32(aff[0][j])
		h.SRowY[j] = float32(aff[1][j])
		h.SRowZ[j] = float32(aff[2][j])
	}
	h.SFormCode = int16(code)
}

// ClearSForm unsets the sform.
func (h *Header) ClearSForm() {
	h.SRowX = [4]float32{}
	h.SRowY = [4]float32{}
	h.SRowZ = [4]float32{}
	h.SFormCode = XformUnknown
}

// SetQForm encodes aff as a quaternion, zooms and offset with the given
// code. The qform can only represent an orthogonal rotation; if aff has
// shears they are dropped when stripShears is set, otherwise ErrShears is
// returned and the header is unchanged.
func (h *Header) SetQForm(aff volume.Affine, code int, stripShears bool) error {
	zooms := aff.Zooms()
	rzs := aff.RZS()
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if zooms[j] == 0 {
				return fmt.Errorf("affine has a zero-length column %d", j)
			}
			r.Set(i, j, rzs[i][j]/zooms[j])
		}
	}
	qfac := 1.0
	if mat.Det(r) < 0 {
		qfac = -1
		for i := 0; i < 3; i++ {
			r.Set(i, 2, -r.At(i, 2))
		}
	}

	// Closest orthogonal matrix via the polar decomposition.
	var svd mat.SVD
	if ok := svd.Factorize(r, mat.SVDFull); !ok {
		return fmt.Errorf("SVD of qform rotation failed")
	}
	var u, v, pr mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	pr.Mul(&u, v.T())
	if !stripShears && !mat.EqualApprox(&pr, r, 1e-5) {
		return ErrShears
	}

	a, b, c, d := rotationToQuaternion(&pr)
	if a < 0 {
		b, c, d = -b, -c, -d
	}
	t := aff.Translation()
	h.QuaternB, h.QuaternC, h.QuaternD = float32(b), float32(c), float32(d)
	h.QOffsetX, h.QOffsetY, h.QOffsetZ = float32(t[0]), float32(t[1]), float32(t[2])
	h.PixDim[0] = float32(qfac)
	for i := 0; i < 3; i++ {
		h.PixDim[i+1] = float32(zooms[i])
	}
	h.QFormCode = int16(code)
	return nil
}

// rotationToQuaternion converts a proper rotation matrix to a unit
// quaternion (a, b, c, d), following nifti_mat44_to_quatern.
func rotationToQuaternion(r mat.Matrix) (a, b, c, d float64) {
	r11, r12, r13 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	r21, r22, r23 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	r31, r32, r33 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	a = r11 + r22 + r33 + 1
	if a > 0.5 {
		a = 0.5 * math.Sqrt(a)
		b = 0.25 * (r32 - r23) / a
		c = 0.25 * (r13 - r31) / a
		d = 0.25 * (r21 - r12) / a
		return
	}
	xd := 1 + r11 - (r22 + r33)
	yd := 1 + r22 - (r11 + r33)
	zd := 1 + r33 - (r11 + r22)
	switch {
	case xd > 1:
		b = 0.5 * math.Sqrt(xd)
		c = 0.25 * (r12 + r21) / b
		d = 0.25 * (r13 + r31) / b
		a = 0.25 * (r32 - r23) / b
	case yd > 1:
		c = 0.5 * math.Sqrt(yd)
		b = 0.25 * (r12 + r21) / c
		d = 0.25 * (r23 + r32) / c
		a = 0.25 * (r13 - r31) / c
	default:
		d = 0.5 * math.Sqrt(zd)
		b = 0.25 * (r13 + r31) / d
		c = 0.25 * (r23 + r32) / d
		a = 0.25 * (r21 - r12) / d
	}
	if a < 0 {
		a, b, c, d = -a, -b, -c, -d
	}
	return
}

// BaseAffine is the fallback transform built from pixdim alone: a
// diagonal with the x axis flipped, centred on the middle of the grid.
func (h *Header) BaseAffine() volume.Affine {
	shape := h.Shape()
	var zooms, origin [3]float64
	for i := 0; i < 3; i++ {
		zooms[i] = float64(h.PixDim[i+1])
		if zooms[i] == 0 {
			zooms[i] = 1
		}
	}
	zooms[0] = -zooms[0]
	for i := 0; i < 3; i++ {
		origin[i] = -float64(shape[i]-1) / 2 * zooms[i]
	}
	return volume.Diagonal(zooms, origin)
}

// Affine returns the best voxel-to-world transform: the sform when its
// code is set, then the qform, then BaseAffine.
func (h *Header) Affine() volume.Affine {
	if aff, code := h.SForm(); code > 0 {
		return aff
	}
	if aff, code := h.QForm(); code > 0 {
		return aff
	}
	return h.BaseAffine()
}

// CopyForms copies both transforms, their codes and the spatial zooms
// from src to dst.
func CopyForms(dst, src *Header) {
	dst.QuaternB, dst.QuaternC, dst.QuaternD = src.QuaternB, src.QuaternC, src.QuaternD
	dst.QOffsetX, dst.QOffsetY, dst.QOffsetZ = src.QOffsetX, src.QOffsetY, src.QOffsetZ
	dst.QFormCode = src.QFormCode
	dst.SRowX, dst.SRowY, dst.SRowZ = src.SRowX, src.SRowY, src.SRowZ
	dst.SFormCode = src.SFormCode
	for i := 0; i < 4; i++ {
		dst.PixDim[i] = src.PixDim[i]
	}
	dst.XYZTUnits = src.XYZTUnits
}

// ForceQForm rewrites the header so only the qform is set, keeping the
// transform applications will use:
//
//   - qform set, sform unset: nothing changes.
//   - both set: the sform is cleared.
//   - sform set, qform unset: the qform is set from the sform (with the
//     sform's code) and the sform cleared. Shears are not stripped.
//   - neither set: ErrNoForm.
func (h *Header) ForceQForm() error {
	_, qcode := h.QForm()
	saff, scode := h.SForm()
	switch {
	case qcode > 0 && scode == 0:
		return nil
	case qcode > 0 && scode > 0:
		h.ClearSForm()
		return nil
	case qcode == 0 && scode > 0:
		if err := h.SetQForm(saff, scode, false); err != nil {
			return err
		}
		h.ClearSForm()
		return nil
	default:
		return ErrNoForm
	}
}
