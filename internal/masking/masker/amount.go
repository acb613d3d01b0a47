package masker

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"tiermask/internal/masking/policy"
)

// maskAmount places value in a lower-inclusive bucket and returns its label,
// "lo-hi" or "hi+" for the last bucket. Anything that cannot be bucketed
// (non-positive, not a finite number, below the first boundary) returns the
// mask token.
func maskAmount(value string, spec policy.RevealSpec) (string, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "", false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return spec.MaskToken, true
	}
	return Bucket(v, spec.Boundaries, spec.MaskToken), true
}

// Bucket returns the label of the bucket holding v. boundaries must be
// ascending.
func Bucket(v float64, boundaries []float64, undisclosed string) string {
	// First boundary strictly greater than v; the bucket starts one before it.
	i := sort.Search(len(boundaries), func(i int) bool { return boundaries[i] > v })
	if i == 0 {
		return undisclosed
	}
	lo := formatBoundary(boundaries[i-1])
	if i == len(boundaries) {
		return lo + "+"
	}
	return lo + "-" + formatBoundary(boundaries[i])
}

func formatBoundary(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}
