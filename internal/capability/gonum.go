package capability

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type gonumBackend struct{}

// NewGonumBackend returns the backend built on gonum distributions and
// montanaflynn/stats summaries.
func NewGonumBackend() Backend {
	return gonumBackend{}
}

func (gonumBackend) Name() string { return "gonum" }

func (gonumBackend) Gaussian(x, center, spread float64) float64 {
	n := distuv.Normal{Mu: center, Sigma: spread}
	peak := n.Prob(center)
	if peak == 0 || math.IsInf(peak, 0) {
		return 0
	}
	return n.Prob(x) / peak
}

func (gonumBackend) Logistic(x, center, spread float64) float64 {
	return distuv.Logistic{Mu: center, S: spread}.CDF(x)
}

func (gonumBackend) Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q := math.Min(math.Max(p/100, 0), 1)
	return stat.Quantile(q, stat.LinInterp, sorted, nil)
}

func (gonumBackend) StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0
	}
	return sd
}
