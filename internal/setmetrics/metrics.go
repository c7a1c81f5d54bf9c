// Package setmetrics implements the set-theoretic fit measures used by QCA:
// sufficiency and necessity consistency/coverage, PRI, and the fuzzy
// operators they are built from. Every function is pure. Pairs where either
// side is NaN are skipped, and a zero denominator yields 0 rather than an error.
package setmetrics

import "math"

// Consistency is the sufficiency consistency of x for y: Σmin(x,y) / Σx.
func Consistency(x, y []float64) float64 {
	overlap, sx, _ := sums(x, y)
	return ratio(overlap, sx)
}

// Coverage is the sufficiency coverage of x for y: Σmin(x,y) / Σy.
func Coverage(x, y []float64) float64 {
	overlap, _, sy := sums(x, y)
	return ratio(overlap, sy)
}

// NecessityConsistency measures how far y is a subset of x: Σmin(x,y) / Σy.
func NecessityConsistency(x, y []float64) float64 {
	return Coverage(x, y)
}

// NecessityCoverage measures the relevance of a necessary condition x: Σmin(x,y) / Σx.
func NecessityCoverage(x, y []float64) float64 {
	return Consistency(x, y)
}

// PRI is the proportional reduction in inconsistency: consistency of x
// against max(0, y - (1-y)).
func PRI(x, y []float64) float64 {
	adjusted := make([]float64, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			adjusted[i] = v
			continue
		}
		adjusted[i] = math.Max(0, v-(1-v))
	}
	return Consistency(x, adjusted)
}

// Negate returns 1 - x elementwise.
func Negate(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = 1 - v
	}
	return out
}

// Intersect is the fuzzy AND (min t-norm) of equally sized membership vectors.
func Intersect(sets ...[]float64) []float64 {
	return combine(math.Min, sets)
}

// Union is the fuzzy OR (max) of equally sized membership vectors.
func Union(sets ...[]float64) []float64 {
	return combine(math.Max, sets)
}

// Fit bundles the four ratios computed over one pass of the data.
type Fit struct {
	Consistency float64 `json:"consistency"`
	Coverage    float64 `json:"coverage"`
	PRI         float64 `json:"pri"`
	Overlap     float64 `json:"overlap"`
}

// Sufficiency computes consistency, coverage and PRI of x for y.
func Sufficiency(x, y []float64) Fit {
	overlap, sx, sy := sums(x, y)
	return Fit{
		Consistency: ratio(overlap, sx),
		Coverage:    ratio(overlap, sy),
		PRI:         PRI(x, y),
		Overlap:     overlap,
	}
}

// Necessity computes necessity consistency and coverage of x for y.
func Necessity(x, y []float64) Fit {
	overlap, sx, sy := sums(x, y)
	return Fit{
		Consistency: ratio(overlap, sy),
		Coverage:    ratio(overlap, sx),
		Overlap:     overlap,
	}
}

func sums(x, y []float64) (overlap, sx, sy float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		overlap += math.Min(x[i], y[i])
		sx += x[i]
		sy += y[i]
	}
	return overlap, sx, sy
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func combine(op func(a, b float64) float64, sets [][]float64) []float64 {
	if len(sets) == 0 {
		return nil
	}
	out := append([]float64(nil), sets[0]...)
	for _, s := range sets[1:] {
		for i := range out {
			if i < len(s) {
				out[i] = op(out[i], s[i])
			}
		}
	}
	return out
}
