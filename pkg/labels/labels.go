// Package labels manipulates integer label images: combining several
// parcellations into one, remapping label values and turning label images
// into per-label probability maps.
package labels

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"pndniutils/internal/models"
	"pndniutils/pkg/nifti"
)

// ErrNotLabels is returned for images holding non-integer or negative
// values where labels are expected.
var ErrNotLabels = errors.New("image contains non-integer values or values < 0")

// Labels converts samples to non-negative integer labels.
func Labels(data []float64) ([]int64, error) {
	out := make([]int64, len(data))
	for i, x := range data {
		if x < 0 || x != math.Trunc(x) || x > math.MaxUint32 {
			return nil, fmt.Errorf("%w (value %v at voxel %d)", ErrNotLabels, x, i)
		}
		out[i] = int64(x)
	}
	return out, nil
}

func maxLabel(l []int64) int64 {
	var m int64
	for _, x := range l {
		if x > m {
			m = x
		}
	}
	return m
}

func toFloat(l []int64) []float64 {
	out := make([]float64, len(l))
	for i, x := range l {
		out[i] = float64(x)
	}
	return out
}

// combine2 merges two label arrays so every pair of non-zero labels gets
// a distinct output label: l1 + (l2-1)*max(l1). Voxels unlabelled in
// either input stay 0.
func combine2(l1, l2 []int64) []int64 {
	m := maxLabel(l1)
	out := make([]int64, len(l1))
	for i := range l1 {
		if l1[i] == 0 || l2[i] == 0 {
			continue
		}
		out[i] = l1[i] + (l2[i]-1)*m
	}
	return out
}

// Combine folds the label images left to right with combine2. The result
// uses the smallest unsigned datatype holding its largest label and the
// transforms of the first image.
func Combine(images []*nifti.Image) (*nifti.Image, error) {
	if len(images) == 0 {
		return nil, errors.New("no input images")
	}
	acc, err := Labels(images[0].Data)
	if err != nil {
		return nil, fmt.Errorf("input 1: %w", err)
	}
	for i, img := range images[1:] {
		if img.Shape != images[0].Shape {
			return nil, fmt.Errorf("input %d: shape %v does not match %v", i+2, img.Shape, images[0].Shape)
		}
		l, err := Labels(img.Data)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i+2, err)
		}
		acc = combine2(acc, l)
	}

	dt := nifti.MinScalarType(0, maxLabel(acc))
	out, err := nifti.NewImage(toFloat(acc), images[0].Shape, dt)
	if err != nil {
		return nil, err
	}
	nifti.CopyForms(out.Header, images[0].Header)
	log.WithFields(log.Fields{
		"inputs":   len(images),
		"maxLabel": maxLabel(acc),
		"dataType": dt,
	}).Debug("Combined labels")
	return out, nil
}

// ParseMap parses a mapping of the form "in1: out1, in2: out2". Surrounding
// quotes are ignored.
func ParseMap(s string) (map[int64]int64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	m := make(map[int64]int64)
	for _, pair := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("mapping entry %q is not of the form in: out", strings.TrimSpace(pair))
		}
		k, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing mapping key: %w", err)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing mapping value: %w", err)
		}
		m[k] = v
	}
	return m, nil
}

// Swap remaps voxel values through m; values not in m become 0. The
// output uses the smallest datatype holding every mapped value and the
// transforms of img.
func Swap(img *nifti.Image, m map[int64]int64) (*nifti.Image, error) {
	if len(m) == 0 {
		return nil, errors.New("empty label mapping")
	}
	var lo, hi int64
	for _, v := range m {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	data := make([]float64, len(img.Data))
	for i, x := range img.Data {
		if x != math.Trunc(x) {
			continue
		}
		if v, ok := m[int64(x)]; ok {
			data[i] = float64(v)
		}
	}

	out, err := nifti.NewImage(data, img.Shape, nifti.MinScalarType(lo, hi))
	if err != nil {
		return nil, err
	}
	nifti.CopyForms(out.Header, img.Header)

	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		log.WithFields(log.Fields{"from": k, "to": m[k]}).Debug("Swapped label")
	}
	return out, nil
}

// ProbMap is the fraction of inputs assigning each voxel one label.
type ProbMap struct {
	Label int64

	// Key names the map in output file names: the label number, or its
	// BIDS abbreviation.
	Key string

	Data []float64
}

// BIDSKey returns the BEP011 abbreviation of label.
func BIDSKey(label int64) (string, error) {
	if label < 0 || label >= int64(len(models.BIDSLabels)) {
		return "", fmt.Errorf("label %d is larger than bids label list", label)
	}
	return models.BIDSLabels[label].Abbr, nil
}

// ProbMaps averages binary masks of each label across the inputs. When
// want is empty the labels present in the first input are used. Maps are
// returned in ascending label order.
func ProbMaps(images []*nifti.Image, want []int64, bids bool) ([]ProbMap, error) {
	if len(images) == 0 {
		return nil, errors.New("no input images")
	}
	all := make([][]int64, len(images))
	for i, img := range images {
		if img.Shape != images[0].Shape {
			return nil, fmt.Errorf("input %d: shape %v does not match %v", i+1, img.Shape, images[0].Shape)
		}
		l, err := Labels(img.Data)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
		all[i] = l
	}

	labels := uniqueSorted(want)
	if len(labels) == 0 {
		labels = uniqueSorted(all[0])
	}

	index := make(map[int64]int, len(labels))
	result := make([]ProbMap, len(labels))
	for i, l := range labels {
		key := strconv.FormatInt(l, 10)
		if bids {
			var err error
			if key, err = BIDSKey(l); err != nil {
				return nil, err
			}
		}
		index[l] = i
		result[i] = ProbMap{Label: l, Key: key, Data: make([]float64, len(all[0]))}
	}

	for _, l := range all {
		for v, x := range l {
			if i, ok := index[x]; ok {
				result[i].Data[v]++
			}
		}
	}
	n := float64(len(images))
	for _, pm := range result {
		for v := range pm.Data {
			pm.Data[v] /= n
		}
	}
	return result, nil
}

func uniqueSorted(l []int64) []int64 {
	set := make(map[int64]struct{})
	for _, x := range l {
		set[x] = struct{}{}
	}
	keys := maps.Keys(set)
	slices.Sort(keys)
	return keys
}

// OutputName substitutes key for every "{label}" in template.
func OutputName(template, key string) string {
	return strings.ReplaceAll(template, "{label}", key)
}
