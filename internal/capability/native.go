package capability

import (
	"math"
	"sort"
)

type nativeBackend struct{}

// NewNativeBackend returns the dependency-free fallback backend.
func NewNativeBackend() Backend {
	return nativeBackend{}
}

func (nativeBackend) Name() string { return "native" }

func (nativeBackend) Gaussian(x, center, spread float64) float64 {
	z := (x - center) / spread
	return math.Exp(-0.5 * z * z)
}

func (nativeBackend) Logistic(x, center, spread float64) float64 {
	return 1 / (1 + math.Exp(-(x-center)/spread))
}

// Percentile interpolates between closest ranks.
func (nativeBackend) Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q := math.Min(math.Max(p/100, 0), 1)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func (nativeBackend) StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(n-1))
}
