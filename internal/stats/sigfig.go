// Package stats implements the numeric helpers behind fieldplot's data boxes
// and previews: range-window statistics, significant-figure formatting, and
// filter expression evaluation.
package stats

import (
	"fmt"
	"math"
	"strconv"
)

// DefaultSigFigs is the display precision used throughout the data boxes.
const DefaultSigFigs = 5

// FormatSignificant renders a value to the given number of significant
// figures, switching to scientific notation for magnitudes >= 1e4 or < 1e-2.
func FormatSignificant(value float64, sigFigs int) string {
	if sigFigs < 1 {
		sigFigs = DefaultSigFigs
	}
	if value == 0 {
		return "0.0000"
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	magnitude := int(math.Floor(math.Log10(math.Abs(value))))
	if magnitude >= 4 || magnitude < -2 {
		mantissa := value / math.Pow(10, float64(magnitude))
		return fmt.Sprintf("%.*fe%+d", sigFigs-1, mantissa, magnitude)
	}
	var decimals int
	if magnitude >= 0 {
		decimals = sigFigs - magnitude - 1
		if decimals < 0 {
			decimals = 0
		}
	} else {
		decimals = sigFigs - magnitude - 1
	}
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

// ParseFormatted parses a string produced by FormatSignificant back into a
// float64. The scientific form ("1.2345e+05") parses directly.
func ParseFormatted(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse formatted value %q: %w", s, err)
	}
	return v, nil
}
