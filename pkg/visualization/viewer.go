// Package visualization renders quality-control snapshots of volumes.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"

	"pndniutils/pkg/volume"
)

// Viewer extracts 2D slices from a volume. Intensities are min-max
// normalised over the whole volume so every slice shares one scale.
type Viewer struct {
	vol *volume.Volume

	// intensity window
	lo, hi float64

	// quality is the JPEG quality (1-100)
	quality int

	// numCores bounds the goroutines used by SaveSliceSequence
	numCores int
}

// NewViewer creates a viewer for v, saving JPEGs at the given quality.
func NewViewer(v *volume.Volume, quality int) *Viewer {
	return &Viewer{
		vol:      v,
		lo:       v.Min(),
		hi:       v.Max(),
		quality:  quality,
		numCores: runtime.NumCPU(),
	}
}

// SetNumCores sets how many slices SaveSliceSequence encodes at once.
func (v *Viewer) SetNumCores(n int) {
	v.numCores = n
}

// axisIndex maps an axis name to a voxel axis.
func axisIndex(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return 0, nil
	case "y", "Y":
		return 1, nil
	case "z", "Z":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// gray maps a sample onto the 16-bit display range.
func (v *Viewer) gray(x float64) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	scaled := (x - v.lo) / (v.hi - v.lo) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(scaled))))}
}

// ExtractSlice extracts the 2D slice at position along axis. The first of
// the two remaining voxel axes runs left to right and the second bottom to
// top, so a canonical (RAS) volume is shown in neurological convention.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	ax, err := axisIndex(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= v.vol.Shape[ax] {
		return nil, fmt.Errorf("position %d outside 0-%d along %s", position, v.vol.Shape[ax]-1, axis)
	}

	// u runs along the image width, w along the height.
	u, w := (ax+1)%3, (ax+2)%3
	if u > w {
		u, w = w, u
	}
	nu, nw := v.vol.Shape[u], v.vol.Shape[w]

	img := image.NewGray16(image.Rect(0, 0, nu, nw))
	var idx [3]int
	idx[ax] = position
	for b := 0; b < nw; b++ {
		for a := 0; a < nu; a++ {
			idx[u], idx[w] = a, b
			img.SetGray16(a, nw-1-b, v.gray(v.vol.At(idx[0], idx[1], idx[2])))
		}
	}
	return img, nil
}

// ExtractRegion extracts a 3D subregion from the volume, keeping its
// world placement.
func (v *Viewer) ExtractRegion(start, size [3]int) (*volume.Volume, error) {
	region := v.vol
	for ax := 0; ax < 3; ax++ {
		if start[ax] < 0 {
			return nil, fmt.Errorf("start coordinates must be non-negative")
		}
		if size[ax] <= 0 {
			return nil, fmt.Errorf("size dimensions must be positive")
		}
		var err error
		region, err = region.Crop(ax, start[ax], start[ax]+size[ax])
		if err != nil {
			return nil, fmt.Errorf("region extends beyond volume boundaries: %w", err)
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: v.quality})
}

// SaveSliceSequence extracts and saves every slice along the specified
// axis, returning the number of files written. Slices are split into
// contiguous ranges, one per core.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) (int, error) {
	ax, err := axisIndex(axis)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	n := v.vol.Shape[ax]
	numCores := max(1, min(v.numCores, n))
	slicesPerCore := (n + numCores - 1) / numCores

	var wg sync.WaitGroup
	errs := make([]error, numCores)
	for c := 0; c < numCores; c++ {
		wg.Add(1)
		go func(coreID int) {
			defer wg.Done()
			startSlice := coreID * slicesPerCore
			endSlice := min(startSlice+slicesPerCore, n)
			for pos := startSlice; pos < endSlice; pos++ {
				img, err := v.ExtractSlice(axis, pos)
				if err != nil {
					errs[coreID] = err
					return
				}
				filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
				if err := v.SaveSlice(img, filename); err != nil {
					errs[coreID] = err
					return
				}
			}
		}(c)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"axis":   axis,
		"slices": n,
		"cores":  numCores,
		"dir":    outputDir,
	}).Info("Saved slice snapshots")

	return n, nil
}
