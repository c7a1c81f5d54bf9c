package calibration

import (
	"fmt"
	"math"
	"sort"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// levels calibrates a crisp (k = 2) or multi-value condition to integer levels
// in [0, k-1]. Memberships carry level/(k-1).
func (c *Calibrator) levels(values []qca.RawValue, spec qca.CalibrationSpec, k int, res *Result) error {
	switch {
	case spec.Method == qca.MethodThreshold && (k > 2 || len(spec.Anchors) == 1):
		if err := cutPoints(values, spec.Anchors, k, res); err != nil {
			return err
		}
	case spec.Method == qca.MethodIndirect && k > 2:
		if err := categoryLevels(values, spec.Categories, k, res); err != nil {
			return err
		}
	case k == 2:
		if err := c.fuzzy(values, spec, res); err != nil {
			return err
		}
		for i, m := range res.Memberships {
			if m >= 0.5 {
				res.Levels[i] = 1
			}
		}
	default:
		return core.NewInvalidCalibrationSpecError("method",
			fmt.Sprintf("%s cannot produce %d levels; use threshold cut points or indirect", spec.Method, k))
	}

	for i, level := range res.Levels {
		res.Memberships[i] = float64(level) / float64(k-1)
	}
	return nil
}

// cutPoints assigns level = number of cut points <= x.
func cutPoints(values []qca.RawValue, anchors []float64, k int, res *Result) error {
	if err := validateAnchors(anchors); err != nil {
		return err
	}
	if len(anchors) != k-1 {
		return core.NewInvalidCalibrationSpecError("anchors",
			fmt.Sprintf("%d levels need %d cut points, got %d", k, k-1, len(anchors)))
	}
	cuts := append([]float64(nil), anchors...)
	if !sort.Float64sAreSorted(cuts) {
		sort.Float64s(cuts)
		res.correct("anchors", "cut points %v reordered to %v", anchors, cuts)
	}

	nonNumeric := 0
	for i, v := range values {
		x, ok := v.Float()
		if !ok {
			if !v.IsMissing() {
				nonNumeric++
			}
			res.Missing = append(res.Missing, i)
			continue
		}
		res.Levels[i] = sort.Search(len(cuts), func(j int) bool { return cuts[j] > x })
	}
	if nonNumeric > 0 {
		res.correct("values", "%d non-numeric values treated as missing", nonNumeric)
	}
	return nil
}

func categoryLevels(values []qca.RawValue, categories map[string]float64, k int, res *Result) error {
	if len(categories) == 0 {
		return core.NewInvalidCalibrationSpecError("categories", "no categories given")
	}
	levels := make(map[string]int, len(categories))
	for _, name := range sortedKeys(categories) {
		raw := categories[name]
		if math.IsNaN(raw) {
			return core.NewInvalidCalibrationSpecError("categories", fmt.Sprintf("level for %q is NaN", name))
		}
		level := int(math.Round(raw))
		if level < 0 || level > k-1 || float64(level) != raw {
			clamped := min(max(level, 0), k-1)
			res.correct("categories", "level %g for %q set to %d", raw, name, clamped)
			level = clamped
		}
		levels[name] = level
	}

	middle := int(math.Round(float64(k-1) / 2))
	unmapped := make(map[string]struct{})
	for i, v := range values {
		if v.IsMissing() {
			res.Missing = append(res.Missing, i)
			continue
		}
		level, ok := lookupCategory(levels, v.String())
		if !ok {
			unmapped[v.String()] = struct{}{}
			level = middle
		}
		res.Levels[i] = level
	}
	res.Unmapped = sortedKeys(unmapped)
	return nil
}
