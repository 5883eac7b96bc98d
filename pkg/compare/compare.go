// Package compare decides whether two volumes hold the same data once
// lined up in world coordinates. The volumes may differ in data layout
// (axis order and direction), in extent (one cropped from the other) and
// in origin, as long as the offset between their grids is a whole number
// of voxels.
package compare

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"pndniutils/pkg/nifti"
	"pndniutils/pkg/volume"
)

const outsideNotZero = `Data outside the overlap is not zero. Use the "intersection_only" flag to ignore.`

// comparison carries the state of one Compare call.
type comparison struct {
	opts       Options
	pred       *Predicate
	rtol, atol float64
}

// Compare aligns im1 and im2 in world space and compares their data.
// The only error is ErrConflictingPolicies (or a failure to reorient a
// degenerate affine); mismatches are reported as results.
func Compare(im1, im2 *volume.Volume, opts Options) (Result, error) {
	pred, err := NewPredicate(opts)
	if err != nil {
		return nil, err
	}
	rtol, atol := opts.tolerances()
	c := &comparison{opts: opts, pred: pred, rtol: rtol, atol: atol}
	return c.run(im1, im2)
}

// CompareFiles loads two NIfTI files and compares them. Options are
// validated before either file is opened.
func CompareFiles(path1, path2 string, opts Options) (Result, error) {
	if _, err := opts.Policy(); err != nil {
		return nil, err
	}
	img1, err := nifti.Load(path1)
	if err != nil {
		return nil, err
	}
	img2, err := nifti.Load(path2)
	if err != nil {
		return nil, err
	}
	return Compare(img1.Volume(), img2.Volume(), opts)
}

func (c *comparison) run(im1, im2 *volume.Volume) (Result, error) {
	if !(im1.Affine.AllClose(im2.Affine, c.rtol, c.atol) && im1.Shape == im2.Shape) {
		var res Result
		var err error
		im1, im2, res, err = c.reconcile(im1, im2)
		if err != nil || res != nil {
			return res, err
		}
	}
	return c.compareData(im1, im2), nil
}

// reconcile reorients both images to RAS and crops them to their common
// extent. A non-nil Result means the comparison is already decided.
func (c *comparison) reconcile(im1, im2 *volume.Volume) (*volume.Volume, *volume.Volume, Result, error) {
	im1, err := volume.Canonical(im1)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("first image: %w", err)
	}
	im2, err = volume.Canonical(im2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("second image: %w", err)
	}
	if !im1.Affine.RZSClose(im2.Affine, c.rtol, c.atol) {
		return nil, nil, AffineMismatch{Desc: "Rotation and scaling do not match."}, nil
	}

	offsets, fractional, res, err := c.voxelOffsets(im1, im2)
	if err != nil || res != nil {
		return nil, nil, res, err
	}
	log.WithFields(log.Fields{
		"offsets": offsets,
		"shape1":  im1.Shape,
		"shape2":  im2.Shape,
	}).Debug("Reconciling voxel grids")

	for axis := 0; axis < 3; axis++ {
		if overlap(offsets[axis], im1.Shape[axis], im2.Shape[axis]).empty() {
			return nil, nil, c.disjoint(im1, im2), nil
		}
	}

	for axis := 0; axis < 3; axis++ {
		step := planOffset(axis, offsets[axis], im1.Shape[axis], im2.Shape[axis])
		if im1, im2, res, err = c.apply(step, im1, im2); err != nil || res != nil {
			return nil, nil, res, err
		}
	}
	for axis := 0; axis < 3; axis++ {
		step := planShape(axis, im1.Shape[axis], im2.Shape[axis])
		if im1, im2, res, err = c.apply(step, im1, im2); err != nil || res != nil {
			return nil, nil, res, err
		}
	}

	c.checkAligned(im1, im2, fractional)
	return im1, im2, nil, nil
}

// voxelOffsets returns, per axis, the whole-voxel position of im1's origin
// in im2's grid, and the fractional part that rounding discarded.
func (c *comparison) voxelOffsets(im1, im2 *volume.Volume) ([3]int, [3]float64, Result, error) {
	var offsets [3]int
	var fractional [3]float64
	toIm2, err := im2.Affine.Solve(im1.Affine)
	if err != nil {
		return offsets, fractional, nil, err
	}
	for axis, off := range toIm2.Translation() {
		rounded := math.RoundToEven(off)
		if !c.opts.RoundOffset && !volume.IsClose(off, rounded, c.rtol, c.atol) {
			return offsets, fractional, AffineMismatch{
				Desc: `Images are not offset an integer amount. Use the "round_offset" flag to ignore.`,
			}, nil
		}
		offsets[axis] = int(rounded)
		fractional[axis] = off - rounded
	}
	return offsets, fractional, nil, nil
}

// apply performs one planned slab removal, checking first that the
// removed slab is zero unless only the intersection is compared.
func (c *comparison) apply(step axisStep, im1, im2 *volume.Volume) (*volume.Volume, *volume.Volume, Result, error) {
	if step.Action == keepBoth {
		return im1, im2, nil, nil
	}
	target := im1
	if step.Action == cropSecond {
		target = im2
	}
	if !c.opts.IntersectionOnly {
		slab, err := target.Slab(step.Axis, step.Drop.Start, step.Drop.Stop)
		if err != nil {
			return nil, nil, nil, err
		}
		if !c.pred.AllZero(slab) {
			log.WithFields(log.Fields{
				"axis":   step.Axis,
				"action": step.Action,
				"slab":   step.Drop,
			}).Debug("Non-zero data outside overlap")
			return nil, nil, NotEqual{Desc: outsideNotZero}, nil
		}
	}
	cropped, err := target.Crop(step.Axis, step.Keep.Start, step.Keep.Stop)
	if err != nil {
		return nil, nil, nil, err
	}
	if step.Action == cropFirst {
		return cropped, im2, nil, nil
	}
	return im1, cropped, nil, nil
}

// disjoint decides the result for images whose world extents do not
// intersect. Every voxel lies outside the overlap, so with outside checks
// the images are equal only when both are entirely zero; with
// intersection-only comparison there is nothing to compare.
func (c *comparison) disjoint(im1, im2 *volume.Volume) Result {
	if c.opts.IntersectionOnly {
		return NotEqual{Desc: "Images do not overlap."}
	}
	if c.pred.AllZero(im1.Data) && c.pred.AllZero(im2.Data) {
		return Equal{Desc: fmt.Sprintf("Images do not overlap and are both zero (using %s).", c.pred.Policy)}
	}
	return NotEqual{Desc: outsideNotZero}
}

// checkAligned asserts that cropping left the grids coincident: same
// rotation and zooms, and a residual voxel offset equal to the fraction
// discarded by rounding.
func (c *comparison) checkAligned(im1, im2 *volume.Volume, fractional [3]float64) {
	if !im1.Affine.RZSClose(im2.Affine, c.rtol, c.atol) {
		panic("compare: rotation and scaling diverged while cropping")
	}
	toIm2, err := im2.Affine.Solve(im1.Affine)
	if err != nil {
		panic(fmt.Sprintf("compare: cropped affine not invertible: %v", err))
	}
	for axis, off := range toIm2.Translation() {
		if math.Abs(off-fractional[axis]) > 1e-6 {
			panic(fmt.Sprintf("compare: residual offset %v along axis %d, want %v", off, axis, fractional[axis]))
		}
	}
}

func (c *comparison) compareData(im1, im2 *volume.Volume) Result {
	if im1.Shape != im2.Shape {
		panic(fmt.Sprintf("compare: shapes %v and %v differ after reconciliation", im1.Shape, im2.Shape))
	}
	if !c.pred.AllEqual(im1.Data, im2.Data) {
		diff := summarizeDiff(c.pred, im1.Data, im2.Data)
		return NotEqual{
			Desc: fmt.Sprintf("Images NOT equal (using %s)", c.pred.Policy),
			Diff: &diff,
		}
	}
	if !c.opts.RoundOffset {
		return Equal{Desc: fmt.Sprintf("Images equal (using %s).", c.pred.Policy)}
	}
	t1, t2 := im1.Affine.Translation(), im2.Affine.Translation()
	m := [3]float64{t1[0] - t2[0], t1[1] - t2[1], t1[2] - t2[2]}
	return Equal{
		Desc:         fmt.Sprintf("Images equal (using %s). Misaligned by %g, %g, %g (in RAS).", c.pred.Policy, m[0], m[1], m[2]),
		Misalignment: &m,
	}
}
