// Package numfmt formats numbers the way the text formats read by the
// neuroimaging tools in this module expect them: shortest round-trip
// digits, always with a decimal point or exponent.
package numfmt

import (
	"math"
	"strconv"
	"strings"
)

// Float returns the shortest decimal string that parses back to x. Fixed
// notation is used for decimal exponents in [-4, 16), scientific notation
// with at least two exponent digits otherwise. Whole numbers keep a
// trailing ".0" so they read back as floats.
func Float(x float64) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	if x == 0 {
		if math.Signbit(x) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(x, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		panic("numfmt: malformed exponent in " + sci)
	}
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Floats formats each value with Float.
func Floats(xs []float64) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}
