package stats

import (
	"errors"
	"math"
	"testing"
)

// createRange returns 0..n-1.
func createRange(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

func approxEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestCompute(t *testing.T) {
	data := createRange(60)
	cases := []struct {
		list []Statistic
		want []float64
	}{
		{[]Statistic{Mean}, []float64{29.5}},
		{[]Statistic{StdDev}, []float64{math.Sqrt(305)}},
		{[]Statistic{Mean, StdDev}, []float64{29.5, math.Sqrt(305)}},
		{[]Statistic{StdDev, Mean}, []float64{math.Sqrt(305), 29.5}},
		{[]Statistic{Median, Skew}, []float64{29.5, 0}},
		{[]Statistic{Kurtosis}, []float64{-6.0 * 3601 / (5 * 3599)}},
	}
	for _, tc := range cases {
		if got := Compute(data, tc.list); !approxEqual(got, tc.want, 1e-9) {
			t.Errorf("Compute(%v) = %v, want %v", tc.list, got, tc.want)
		}
	}
}

func TestSkewSign(t *testing.T) {
	x := []float64{0, 0, 0, 1}
	// m2 = 3/16, m3 = 3/32
	if want := 2 / math.Sqrt(3); math.Abs(Skew.Compute(x)-want) > 1e-12 {
		t.Errorf("skew = %v, want %v", Skew.Compute(x), want)
	}
	if got := Skew.Compute([]float64{3, 3}); !math.IsNaN(got) {
		t.Errorf("skew of constant data = %v, want NaN", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median.Compute([]float64{5, 1, 3}); got != 3 {
		t.Errorf("median = %v, want 3", got)
	}
	x := []float64{4, 1, 3, 2}
	if got := Median.Compute(x); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
	if x[0] != 4 {
		t.Errorf("median reordered its input")
	}
}

func TestStdDevSingleVoxel(t *testing.T) {
	if got := StdDev.Compute([]float64{7}); got != 0 {
		t.Errorf("std of one voxel = %v, want 0", got)
	}
}

func TestComputeMasked(t *testing.T) {
	// A 3x4x5 ramp flattened in C order, value equal to flat index.
	data := createRange(60)
	mask := make([]float64, 60)
	flat := func(i, j, k int) int { return i*20 + j*5 + k }
	mask[flat(0, 0, 4)] = 1
	mask[flat(1, 0, 4)] = 1
	for j := 1; j < 3; j++ {
		for k := 1; k < 3; k++ {
			mask[flat(1, j, k)] = 2
		}
	}
	mask[flat(2, 1, 1)] = 4

	got, err := ComputeMasked(data, mask, []Statistic{Mean, StdDev})
	if err != nil {
		t.Fatalf("ComputeMasked failed: %v", err)
	}
	want := []float64{
		14, math.Sqrt(200),
		29, math.Sqrt(26.0 / 3),
		0, 0,
		46, 0,
	}
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("ComputeMasked = %v, want %v", got, want)
	}
}

func TestComputeMaskedRejects(t *testing.T) {
	data := createRange(4)
	if _, err := ComputeMasked(data, []float64{0, 1, 1.5, 0}, []Statistic{Mean}); !errors.Is(err, ErrMask) {
		t.Errorf("fractional mask: err = %v, want ErrMask", err)
	}
	if _, err := ComputeMasked(data, []float64{0, 1}, []Statistic{Mean}); !errors.Is(err, ErrMask) {
		t.Errorf("short mask: err = %v, want ErrMask", err)
	}
}
