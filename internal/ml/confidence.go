package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// confidenceEpsilon keeps the ratio finite when the point estimate is near zero.
const confidenceEpsilon = 1e-6

// Confidence turns the spread of per-tree estimates into an agreement score:
// clamp(1 - std(estimates) / (|point| + eps), 0, 1). It approaches 1 when trees
// agree and 0 as their relative disagreement grows. It is a heuristic, not a
// calibrated probability or an interval.
func Confidence(estimates []float64, point float64) float64 {
	if len(estimates) == 0 {
		return 0
	}
	std := stat.PopStdDev(estimates, nil)
	c := 1 - std/(math.Abs(point)+confidenceEpsilon)
	switch {
	case math.IsNaN(c):
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
