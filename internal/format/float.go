// Package format provides shared formatting utilities.
package format

import (
	"math"
	"strconv"
	"strings"
)

const (
	expLow  = 1e-4
	expHigh = 1e16
)

// Float formats v as the shortest decimal that round-trips, keeping a ".0"
// on integral values (e.g. "3.0", "576.9767441860465", "1e-05").
// Magnitudes outside [1e-4, 1e16) use exponent form.
func Float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < expLow || abs >= expHigh) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
