package calibration

import (
	"math"
	"sort"

	"goqca/domain/qca"
)

// resolveAuto picks a concrete spec from the column's shape. It reports false
// when the column has no usable values.
func (c *Calibrator) resolveAuto(values []qca.RawValue, k int) (qca.CalibrationSpec, bool) {
	var nums []float64
	names := make(map[string]struct{})
	categorical := false
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		if v.IsCategory() {
			categorical = true
		} else {
			x, _ := v.Float()
			nums = append(nums, x)
		}
		names[v.String()] = struct{}{}
	}
	if len(names) == 0 {
		return qca.CalibrationSpec{}, false
	}

	if categorical {
		cats := sortedKeys(names)
		spec := qca.CalibrationSpec{Method: qca.MethodIndirect, Categories: make(map[string]float64, len(cats))}
		for i, name := range cats {
			spec.Categories[name] = evenlySpaced(i, len(cats), k)
		}
		return spec, true
	}

	sort.Float64s(nums)
	if k > 2 {
		cuts := make([]float64, k-1)
		for i := range cuts {
			cuts[i] = c.caps.Backend.Percentile(nums, 100*float64(i+1)/float64(k))
		}
		return qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: cuts}, true
	}

	if len(names) <= c.caps.AutoCardinality {
		return qca.CalibrationSpec{
			Method:  qca.MethodThreshold,
			Anchors: []float64{nums[0], nums[len(nums)-1]},
		}, true
	}
	return qca.CalibrationSpec{
		Method: qca.MethodDirect,
		Anchors: []float64{
			c.caps.Backend.Percentile(nums, 95),
			c.caps.Backend.Percentile(nums, 50),
			c.caps.Backend.Percentile(nums, 5),
		},
	}, true
}

// evenlySpaced maps the i-th of n sorted categories onto [0,1] for two-level
// conditions or onto levels 0..k-1 otherwise.
func evenlySpaced(i, n, k int) float64 {
	if n == 1 {
		if k > 2 {
			return float64(k - 1)
		}
		return 1
	}
	frac := float64(i) / float64(n-1)
	if k > 2 {
		return math.Round(frac * float64(k-1))
	}
	return frac
}
