package calibration

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"goqca/domain/core"
	"goqca/domain/qca"
)

type membershipFunc func(x float64) float64

func (c *Calibrator) fuzzy(values []qca.RawValue, spec qca.CalibrationSpec, res *Result) error {
	if spec.Method == qca.MethodIndirect {
		return c.indirect(values, spec, res)
	}

	fn, err := c.membership(spec, numericColumn(values), res)
	if err != nil {
		return err
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
		res.Memberships[i] = clamp01(fn(x))
	}
	if nonNumeric > 0 {
		res.correct("values", "%d non-numeric values treated as missing", nonNumeric)
	}
	return nil
}

func (c *Calibrator) membership(spec qca.CalibrationSpec, column []float64, res *Result) (membershipFunc, error) {
	switch spec.Method {
	case qca.MethodDirect:
		return direct(spec.Anchors, res)
	case qca.MethodThreshold:
		return threshold(spec.Anchors, res)
	case qca.MethodInterpolation:
		return interpolation(spec.Points, res)
	case qca.MethodGaussian, qca.MethodSigmoid:
		if math.IsNaN(spec.Center) || math.IsInf(spec.Center, 0) {
			return nil, core.NewInvalidCalibrationSpecError("center", "must be a finite number")
		}
		spread := spec.Spread
		if !(spread > 0) || math.IsInf(spread, 0) {
			spread = c.caps.Backend.StdDev(column)
			if !(spread > 0) {
				spread = 1
			}
			res.correct("spread", "non-positive spread %g replaced by %g", spec.Spread, spread)
		}
		backend, center := c.caps.Backend, spec.Center
		if spec.Method == qca.MethodGaussian {
			return func(x float64) float64 { return backend.Gaussian(x, center, spread) }, nil
		}
		return func(x float64) float64 { return backend.Logistic(x, center, spread) }, nil
	}
	return nil, core.NewInvalidCalibrationSpecError("method", fmt.Sprintf("%q cannot produce memberships", spec.Method))
}

// direct expects anchors (full membership, crossover, full non-membership).
func direct(anchors []float64, res *Result) (membershipFunc, error) {
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}
	if len(anchors) != 3 {
		return nil, core.NewInvalidCalibrationSpecError("anchors",
			fmt.Sprintf("direct calibration needs 3 anchors, got %d", len(anchors)))
	}

	a := append([]float64(nil), anchors...)
	if !(a[0] >= a[1] && a[1] >= a[2]) {
		sort.Sort(sort.Reverse(sort.Float64Slice(a)))
		res.correct("anchors", "direct anchors %v reordered to %v", anchors, a)
	}
	full, cross, non := a[0], a[1], a[2]

	switch {
	case full == non:
		res.correct("anchors", "all anchors equal %g; using a step", full)
		return step(full), nil
	case full == cross || cross == non:
		res.correct("anchors", "coincident anchors collapsed to threshold(%g, %g)", non, full)
		return linear(non, full), nil
	}

	return func(x float64) float64 {
		switch {
		case x >= full:
			return 1
		case x <= non:
			return 0
		case x >= cross:
			return 0.5 + 0.5*(x-cross)/(full-cross)
		}
		return 0.5 * (x - non) / (cross - non)
	}, nil
}

// threshold expects (lower, upper) anchors; a single anchor is a step.
func threshold(anchors []float64, res *Result) (membershipFunc, error) {
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}
	switch len(anchors) {
	case 1:
		return step(anchors[0]), nil
	case 2:
	default:
		return nil, core.NewInvalidCalibrationSpecError("anchors",
			fmt.Sprintf("threshold calibration needs 1 or 2 anchors, got %d", len(anchors)))
	}

	lo, hi := anchors[0], anchors[1]
	if lo > hi {
		lo, hi = hi, lo
		res.correct("anchors", "threshold anchors reversed to (%g, %g)", lo, hi)
	}
	if lo == hi {
		return step(lo), nil
	}
	return linear(lo, hi), nil
}

func interpolation(points []qca.AnchorPoint, res *Result) (membershipFunc, error) {
	if len(points) == 0 {
		return nil, core.NewInvalidCalibrationSpecError("points", "no anchor points given")
	}
	pts := make([]qca.AnchorPoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Raw) || math.IsNaN(p.Membership) || math.IsInf(p.Raw, 0) {
			return nil, core.NewInvalidCalibrationSpecError("points", "anchor points must be finite numbers")
		}
		if p.Membership < 0 || p.Membership > 1 {
			clamped := clamp01(p.Membership)
			res.correct("points", "membership %g at %g clamped to %g", p.Membership, p.Raw, clamped)
			p.Membership = clamped
		}
		pts = append(pts, p)
	}

	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Raw < pts[j].Raw })
	uniq := pts[:1]
	for _, p := range pts[1:] {
		if p.Raw == uniq[len(uniq)-1].Raw {
			res.correct("points", "duplicate raw point %g dropped", p.Raw)
			continue
		}
		uniq = append(uniq, p)
	}

	return func(x float64) float64 {
		if x <= uniq[0].Raw {
			return uniq[0].Membership
		}
		last := uniq[len(uniq)-1]
		if x >= last.Raw {
			return last.Membership
		}
		j := sort.Search(len(uniq), func(i int) bool { return uniq[i].Raw >= x })
		a, b := uniq[j-1], uniq[j]
		return a.Membership + (b.Membership-a.Membership)*(x-a.Raw)/(b.Raw-a.Raw)
	}, nil
}

func (c *Calibrator) indirect(values []qca.RawValue, spec qca.CalibrationSpec, res *Result) error {
	scores, err := categoryScores(spec.Categories, res)
	if err != nil {
		return err
	}
	unmapped := make(map[string]struct{})
	for i, v := range values {
		if v.IsMissing() {
			res.Missing = append(res.Missing, i)
			continue
		}
		score, ok := lookupCategory(scores, v.String())
		if !ok {
			unmapped[v.String()] = struct{}{}
			score = 0.5
		}
		res.Memberships[i] = score
	}
	res.Unmapped = sortedKeys(unmapped)
	return nil
}

func categoryScores(categories map[string]float64, res *Result) (map[string]float64, error) {
	if len(categories) == 0 {
		return nil, core.NewInvalidCalibrationSpecError("categories", "no categories given")
	}
	scores := make(map[string]float64, len(categories))
	for _, name := range sortedKeys(categories) {
		score := categories[name]
		if math.IsNaN(score) {
			return nil, core.NewInvalidCalibrationSpecError("categories", fmt.Sprintf("score for %q is NaN", name))
		}
		if score < 0 || score > 1 {
			res.correct("categories", "score %g for %q clamped", score, name)
			score = clamp01(score)
		}
		scores[name] = score
	}
	return scores, nil
}

func lookupCategory[T any](m map[string]T, key string) (T, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(key)) {
			return m[k], true
		}
	}
	var zero T
	return zero, false
}

func validateAnchors(anchors []float64) error {
	if len(anchors) == 0 {
		return core.NewInvalidCalibrationSpecError("anchors", "no anchors given")
	}
	for _, a := range anchors {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return core.NewInvalidCalibrationSpecError("anchors", "anchors must be finite numbers")
		}
	}
	return nil
}

func step(t float64) membershipFunc {
	return func(x float64) float64 {
		if x >= t {
			return 1
		}
		return 0
	}
}

func linear(lo, hi float64) membershipFunc {
	return func(x float64) float64 {
		return clamp01((x - lo) / (hi - lo))
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func numericColumn(values []qca.RawValue) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if x, ok := v.Float(); ok {
			out = append(out, x)
		}
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
