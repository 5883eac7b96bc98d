// Package stats computes fslstats-style summary statistics of volumes,
// optionally per label of an integer mask.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// ErrMask is returned for masks that are not integer valued or do not
// match the input.
var ErrMask = errors.New("invalid mask")

// Statistic is one summary statistic.
type Statistic int

const (
	Mean Statistic = iota
	// StdDev is the sample standard deviation (n-1 denominator), 0 for a
	// single sample.
	StdDev
	// Skew is the biased sample skewness m3/m2^1.5.
	Skew
	// Kurtosis is the biased excess kurtosis m4/m2^2 - 3.
	Kurtosis
	Median
)

func (s Statistic) String() string {
	switch s {
	case Mean:
		return "mean"
	case StdDev:
		return "std"
	case Skew:
		return "skew"
	case Kurtosis:
		return "kurtosis"
	case Median:
		return "median"
	default:
		return fmt.Sprintf("Statistic(%d)", int(s))
	}
}

// Compute evaluates the statistic over x.
func (s Statistic) Compute(x []float64) float64 {
	switch s {
	case Mean:
		return stat.Mean(x, nil)
	case StdDev:
		if len(x) == 1 {
			return 0
		}
		return stat.StdDev(x, nil)
	case Skew:
		m2 := stat.Moment(2, x, nil)
		if m2 == 0 {
			return math.NaN()
		}
		return stat.Moment(3, x, nil) / math.Pow(m2, 1.5)
	case Kurtosis:
		m2 := stat.Moment(2, x, nil)
		if m2 == 0 {
			return math.NaN()
		}
		return stat.Moment(4, x, nil)/(m2*m2) - 3
	case Median:
		return median(x)
	default:
		panic(fmt.Sprintf("stats: unknown statistic %d", int(s)))
	}
}

// median calculates the median value of a slice of float64 values
func median(values []float64) float64 {
	valuesCopy := make([]float64, len(values))
	copy(valuesCopy, values)
	sort.Float64s(valuesCopy)

	n := len(valuesCopy)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (valuesCopy[n/2-1] + valuesCopy[n/2]) / 2
	}
	return valuesCopy[n/2]
}

// Compute evaluates each statistic over data, in order.
func Compute(data []float64, list []Statistic) []float64 {
	out := make([]float64, len(list))
	for i, s := range list {
		out[i] = s.Compute(data)
	}
	return out
}

// ComputeMasked evaluates the statistics for each label 1..max(mask) in
// turn, giving len(list) values per label. Labels with no voxels yield 0.
func ComputeMasked(data, mask []float64, list []Statistic) ([]float64, error) {
	if len(mask) != len(data) {
		return nil, fmt.Errorf("%w: mask has %d voxels, input has %d", ErrMask, len(mask), len(data))
	}
	maxLabel := 0
	for _, m := range mask {
		if m != math.Trunc(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("%w: mask must have only integer values, found %v", ErrMask, m)
		}
		if int(m) > maxLabel {
			maxLabel = int(m)
		}
	}

	groups := make([][]float64, maxLabel+1)
	for i, m := range mask {
		if m >= 1 {
			groups[int(m)] = append(groups[int(m)], data[i])
		}
	}

	out := make([]float64, 0, maxLabel*len(list))
	for label := 1; label <= maxLabel; label++ {
		if len(groups[label]) == 0 {
			log.WithField("label", label).Debug("Empty label")
			for range list {
				out = append(out, 0)
			}
			continue
		}
		out = append(out, Compute(groups[label], list)...)
	}
	return out, nil
}
