package calibration

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal/capability"
)

func numbers(xs ...float64) []qca.RawValue {
	out := make([]qca.RawValue, len(xs))
	for i, x := range xs {
		out[i] = qca.Number(x)
	}
	return out
}

func fuzzyCond(name string, spec qca.CalibrationSpec) qca.Condition {
	return qca.Condition{Name: name, Domain: qca.DomainFuzzy, Calibration: spec}
}

func newTestCalibrator() *Calibrator {
	return NewCalibrator(capability.Default(), nil)
}

func TestDirectCalibration(t *testing.T) {
	cal := newTestCalibrator()
	res, err := cal.Calibrate(numbers(10, 5, 0, 7.5, 2.5, 20, -3),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{10, 5, 0}}))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 0.5, 0, 0.75, 0.25, 1, 0}, res.Memberships, 1e-12)
	assert.Empty(t, res.Corrections)
	assert.Equal(t, qca.MethodDirect, res.Method)
}

func TestDirectReversedAnchorsAreSortedAndFlagged(t *testing.T) {
	cal := newTestCalibrator()
	values := numbers(0, 2.5, 5, 7.5, 10)

	ordered, err := cal.Calibrate(values, fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{10, 5, 0}}))
	require.NoError(t, err)
	reversed, err := cal.Calibrate(values, fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{0, 5, 10}}))
	require.NoError(t, err)

	assert.Equal(t, ordered.Memberships, reversed.Memberships)
	require.Len(t, reversed.Corrections, 1)
	assert.Equal(t, "anchors", reversed.Corrections[0].Field)
}

func TestDirectWithCoincidentAnchorsEqualsThreshold(t *testing.T) {
	cal := newTestCalibrator()
	values := numbers(-1, 0, 1, 2.5, 4, 7, 9.99, 10, 12)

	direct, err := cal.Calibrate(values, fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{10, 10, 0}}))
	require.NoError(t, err)
	thresh, err := cal.Calibrate(values, fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{0, 10}}))
	require.NoError(t, err)

	assert.InDeltaSlice(t, thresh.Memberships, direct.Memberships, 1e-12)
	assert.NotEmpty(t, direct.Corrections)
}

func TestDirectAllAnchorsEqualIsStep(t *testing.T) {
	res, err := newTestCalibrator().Calibrate(numbers(4, 5, 6),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{5, 5, 5}}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, res.Memberships)
}

func TestThresholdCalibration(t *testing.T) {
	cal := newTestCalibrator()

	res, err := cal.Calibrate(numbers(0, 5, 10, 15),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{10, 0}}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1}, res.Memberships, 1e-12)
	assert.Len(t, res.Corrections, 1)

	res, err = cal.Calibrate(numbers(2, 3, 4),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{3, 3}}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, res.Memberships)
}

func TestInterpolationCalibration(t *testing.T) {
	spec := qca.CalibrationSpec{
		Method: qca.MethodInterpolation,
		Points: []qca.AnchorPoint{
			{Raw: 10, Membership: 1.2},
			{Raw: 0, Membership: 0},
			{Raw: 5, Membership: 0.4},
			{Raw: 5, Membership: 0.9},
		},
	}
	res, err := newTestCalibrator().Calibrate(numbers(-5, 0, 2.5, 5, 7.5, 10, 50), fuzzyCond("A", spec))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0, 0, 0.2, 0.4, 0.7, 1, 1}, res.Memberships, 1e-12)
	// clamped membership and dropped duplicate
	assert.Len(t, res.Corrections, 2)
}

func TestGaussianAndSigmoid(t *testing.T) {
	cal := newTestCalibrator()

	res, err := cal.Calibrate(numbers(5, 0, 10),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodGaussian, Center: 5, Spread: 2}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Memberships[0], 1e-9)
	assert.InDelta(t, math.Exp(-25.0/8.0), res.Memberships[1], 1e-9)
	assert.InDelta(t, res.Memberships[1], res.Memberships[2], 1e-9)

	res, err = cal.Calibrate(numbers(5, 100, -100),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodSigmoid, Center: 5, Spread: 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Memberships[0], 1e-9)
	assert.InDelta(t, 1.0, res.Memberships[1], 1e-9)
	assert.InDelta(t, 0.0, res.Memberships[2], 1e-9)
}

func TestNonPositiveSpreadIsCorrected(t *testing.T) {
	res, err := newTestCalibrator().Calibrate(numbers(1, 2, 3, 4, 5),
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodSigmoid, Center: 3, Spread: -1}))
	require.NoError(t, err)
	require.Len(t, res.Corrections, 1)
	assert.Equal(t, "spread", res.Corrections[0].Field)
	assert.InDelta(t, 0.5, res.Memberships[2], 1e-9)
	assert.Less(t, res.Memberships[0], res.Memberships[4])
}

func TestIndirectCalibration(t *testing.T) {
	spec := qca.CalibrationSpec{
		Method:     qca.MethodIndirect,
		Categories: map[string]float64{"high": 1, "medium": 0.6, "low": -0.2},
	}
	values := []qca.RawValue{qca.Category("high"), qca.Category("LOW"), qca.Category("unknown"), qca.Missing(), qca.Category("medium")}
	res, err := newTestCalibrator().Calibrate(values, fuzzyCond("A", spec))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 0, 0.5, 0, 0.6}, res.Memberships, 1e-12)
	assert.Equal(t, []string{"unknown"}, res.Unmapped)
	assert.Equal(t, []int{3}, res.Missing)
	assert.Len(t, res.Corrections, 1)
}

func TestIndirectFallbackMatchIsStable(t *testing.T) {
	spec := qca.CalibrationSpec{
		Method:     qca.MethodIndirect,
		Categories: map[string]float64{"high ": 0.2, "High": 1, " HIGH": 0.6},
	}
	values := []qca.RawValue{qca.Category("high")}
	for i := 0; i < 50; i++ {
		res, err := newTestCalibrator().Calibrate(values, fuzzyCond("A", spec))
		require.NoError(t, err)
		// " HIGH" sorts first
		require.InDelta(t, 0.6, res.Memberships[0], 1e-12, "attempt %d", i)
	}
}

func TestMissingValuesCalibrateToZero(t *testing.T) {
	values := []qca.RawValue{qca.Number(8), qca.Missing(), qca.Category("n/a")}
	res, err := newTestCalibrator().Calibrate(values,
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{0, 8}}))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0, 0}, res.Memberships)
	assert.Equal(t, []int{1, 2}, res.Missing)
}

func TestMembershipsStayInUnitInterval(t *testing.T) {
	specs := []qca.CalibrationSpec{
		{Method: qca.MethodDirect, Anchors: []float64{3, 9, -2}},
		{Method: qca.MethodThreshold, Anchors: []float64{7, 1}},
		{Method: qca.MethodInterpolation, Points: []qca.AnchorPoint{{Raw: 0, Membership: -1}, {Raw: 4, Membership: 3}}},
		{Method: qca.MethodGaussian, Center: 2, Spread: 0},
		{Method: qca.MethodSigmoid, Center: -1, Spread: 0.3},
		{Method: qca.MethodAuto},
	}
	values := numbers(-1e9, -10, -1, 0, 0.5, 1, 2, 3.3, 5, 8, 13, 1e9)

	cal := newTestCalibrator()
	for _, spec := range specs {
		res, err := cal.Calibrate(values, fuzzyCond("A", spec))
		require.NoError(t, err, spec.Method)
		require.Len(t, res.Memberships, len(values))
		for _, m := range res.Memberships {
			assert.GreaterOrEqual(t, m, 0.0, spec.Method)
			assert.LessOrEqual(t, m, 1.0, spec.Method)
		}
	}
}

func TestMultiValueCutPoints(t *testing.T) {
	cond := qca.Condition{
		Name:        "M",
		Domain:      qca.DomainMultiValue,
		Levels:      3,
		Calibration: qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{20, 10}},
	}
	res, err := newTestCalibrator().Calibrate(numbers(5, 10, 15, 20, 25), cond)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 1, 2, 2}, res.Levels)
	assert.InDeltaSlice(t, []float64{0, 0.5, 0.5, 1, 1}, res.Memberships, 1e-12)
	assert.Len(t, res.Corrections, 1)
}

func TestMultiValueIndirectUnmappedGoesToMiddle(t *testing.T) {
	for _, tc := range []struct {
		levels int
		middle int
	}{{3, 1}, {4, 2}, {5, 2}} {
		cond := qca.Condition{
			Name:   "M",
			Domain: qca.DomainMultiValue,
			Levels: tc.levels,
			Calibration: qca.CalibrationSpec{
				Method:     qca.MethodIndirect,
				Categories: map[string]float64{"a": 0, "b": 1},
			},
		}
		res, err := newTestCalibrator().Calibrate([]qca.RawValue{qca.Category("a"), qca.Category("z"), qca.Category("b")}, cond)
		require.NoError(t, err)
		assert.Equal(t, []int{0, tc.middle, 1}, res.Levels, "k=%d", tc.levels)
		assert.Equal(t, []string{"z"}, res.Unmapped)
	}
}

func TestCrispConditionIsCrispedAtHalf(t *testing.T) {
	cond := qca.Condition{
		Name:        "C",
		Domain:      qca.DomainCrisp,
		Calibration: qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{10, 5, 0}},
	}
	res, err := newTestCalibrator().Calibrate(numbers(0, 4.9, 5, 9), cond)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, res.Levels)
	assert.Equal(t, []float64{0, 0, 1, 1}, res.Memberships)

	cond.Calibration = qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{3}}
	res, err = newTestCalibrator().Calibrate(numbers(2, 3, 4), cond)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, res.Levels)
}

func TestAutoModeSelection(t *testing.T) {
	cal := newTestCalibrator()

	res, err := cal.Calibrate([]qca.RawValue{qca.Category("b"), qca.Category("a"), qca.Category("c")}, fuzzyCond("A", qca.CalibrationSpec{}))
	require.NoError(t, err)
	assert.Equal(t, qca.MethodIndirect, res.Method)
	assert.InDeltaSlice(t, []float64{0.5, 0, 1}, res.Memberships, 1e-12)

	res, err = cal.Calibrate(numbers(1, 2, 3, 2, 1), fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodAuto}))
	require.NoError(t, err)
	assert.Equal(t, qca.MethodThreshold, res.Method)
	assert.Equal(t, []float64{1, 3}, res.Spec.Anchors)

	many := make([]float64, 100)
	for i := range many {
		many[i] = float64(i + 1)
	}
	res, err = cal.Calibrate(numbers(many...), fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodAuto}))
	require.NoError(t, err)
	assert.Equal(t, qca.MethodDirect, res.Method)
	require.Len(t, res.Spec.Anchors, 3)
	assert.Greater(t, res.Spec.Anchors[0], res.Spec.Anchors[1])
	assert.Greater(t, res.Spec.Anchors[1], res.Spec.Anchors[2])
}

func TestAutoWithNoValues(t *testing.T) {
	res, err := newTestCalibrator().Calibrate([]qca.RawValue{qca.Missing(), qca.Missing()}, fuzzyCond("A", qca.CalibrationSpec{}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, res.Memberships)
	assert.Equal(t, []int{0, 1}, res.Missing)
}

func TestStructuralSpecErrors(t *testing.T) {
	cal := newTestCalibrator()
	cases := map[string]qca.Condition{
		"unknown method": fuzzyCond("A", qca.CalibrationSpec{Method: "wavelet"}),
		"no anchors":     fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect}),
		"nan anchor":     fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{1, math.NaN(), 0}}),
		"wrong count":    fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{1, 0}}),
		"no points":      fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodInterpolation}),
		"no categories":  fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodIndirect}),
		"k below 2": {
			Name: "M", Domain: qca.DomainMultiValue, Levels: 1,
			Calibration: qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{1}},
		},
		"cut count": {
			Name: "M", Domain: qca.DomainMultiValue, Levels: 4,
			Calibration: qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{1, 2}},
		},
		"mv gaussian": {
			Name: "M", Domain: qca.DomainMultiValue, Levels: 3,
			Calibration: qca.CalibrationSpec{Method: qca.MethodGaussian, Center: 1, Spread: 1},
		},
	}
	for name, cond := range cases {
		_, err := cal.Calibrate(numbers(1, 2, 3), cond)
		require.Error(t, err, name)
		assert.True(t, core.IsInvalidCalibrationSpec(err), "%s: %v", name, err)
	}
}

func TestCalibrateAll(t *testing.T) {
	cases := []qca.Case{
		{ID: "c1", Values: map[string]qca.RawValue{"A": qca.Number(10), "B": qca.Category("yes")}, Outcome: qca.Number(0.9)},
		{ID: "c2", Values: map[string]qca.RawValue{"A": qca.Number(0), "B": qca.Category("no")}, Outcome: qca.Number(0.2)},
		{ID: "c3", Values: map[string]qca.RawValue{"A": qca.Number(5)}, Outcome: qca.Missing()},
	}
	conditions := []qca.Condition{
		fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodDirect, Anchors: []float64{10, 5, 0}}),
		{Name: "B", Domain: qca.DomainCrisp, Calibration: qca.CalibrationSpec{Method: qca.MethodIndirect, Categories: map[string]float64{"yes": 1, "no": 0}}},
	}
	outcome := fuzzyCond("Y", qca.CalibrationSpec{Method: qca.MethodThreshold, Anchors: []float64{0, 1}})

	out, err := newTestCalibrator().CalibrateAll(context.Background(), cases, conditions, outcome)
	require.NoError(t, err)
	require.Len(t, out.Cases, 3)

	assert.Equal(t, "c1", out.Cases[0].ID)
	assert.Equal(t, 1.0, out.Cases[0].Memberships["A"])
	assert.Equal(t, 1, out.Cases[0].Levels["B"])
	assert.InDelta(t, 0.9, out.Cases[0].Outcome, 1e-12)
	assert.Equal(t, 0, out.Cases[1].Levels["B"])
	assert.Equal(t, 0.5, out.Cases[2].Memberships["A"])
	assert.Equal(t, 0.0, out.Cases[2].Outcome)
	assert.Equal(t, []int{2}, out.Outcome.Missing)
	assert.Equal(t, []int{2}, out.Conditions[1].Missing)
}

func TestCalibrateAllRejectsDuplicatesAndPropagatesErrors(t *testing.T) {
	cal := newTestCalibrator()
	cond := fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodAuto})

	_, err := cal.CalibrateAll(context.Background(), nil, []qca.Condition{cond, cond}, fuzzyCond("Y", qca.CalibrationSpec{}))
	assert.True(t, core.IsInvalidCalibrationSpec(err))

	bad := fuzzyCond("B", qca.CalibrationSpec{Method: qca.MethodDirect})
	_, err = cal.CalibrateAll(context.Background(), nil, []qca.Condition{cond, bad}, fuzzyCond("Y", qca.CalibrationSpec{}))
	assert.True(t, core.IsInvalidCalibrationSpec(err))
}

func TestBackendsAgreeOnCalibration(t *testing.T) {
	values := numbers(0, 1.5, 3, 4.5, 6)
	spec := fuzzyCond("A", qca.CalibrationSpec{Method: qca.MethodGaussian, Center: 3, Spread: 1.5})

	gonumRes, err := NewCalibrator(capability.Default(), nil).Calibrate(values, spec)
	require.NoError(t, err)

	caps := capability.Default()
	caps.Backend = capability.NewNativeBackend()
	nativeRes, err := NewCalibrator(caps, nil).Calibrate(values, spec)
	require.NoError(t, err)

	assert.InDeltaSlice(t, gonumRes.Memberships, nativeRes.Memberships, 1e-9)
}
