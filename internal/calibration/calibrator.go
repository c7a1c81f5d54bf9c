// Package calibration maps raw case values to set memberships (fuzzy) or
// integer levels (crisp and multi-value). Calibration never fails on
// recoverable anomalies such as reversed anchors or out-of-range scores; it
// corrects them and reports each correction in the Result.
package calibration

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	"goqca/internal/capability"
)

// Correction records one local fix applied to a calibration spec or value.
type Correction struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the calibrated column for one condition.
type Result struct {
	Condition   string              `json:"condition"`
	Method      qca.Method          `json:"method"`
	Spec        qca.CalibrationSpec `json:"spec"`
	Memberships []float64           `json:"memberships"`
	Levels      []int               `json:"levels,omitempty"`
	Corrections []Correction        `json:"corrections,omitempty"`
	Unmapped    []string            `json:"unmapped,omitempty"`
	Missing     []int               `json:"missing,omitempty"`
}

func (r *Result) correct(field, format string, args ...interface{}) {
	r.Corrections = append(r.Corrections, Correction{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Output is the result of calibrating a whole case set.
type Output struct {
	Cases      []qca.CalibratedCase `json:"cases"`
	Conditions []*Result            `json:"conditions"`
	Outcome    *Result              `json:"outcome"`
}

// Calibrator applies calibration specs using the configured numeric backend.
type Calibrator struct {
	caps   capability.Capabilities
	logger *internal.Logger
}

// NewCalibrator creates a calibrator; a nil logger discards output.
func NewCalibrator(caps capability.Capabilities, logger *internal.Logger) *Calibrator {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Calibrator{
		caps:   caps.Normalize(),
		logger: logger.With("component", "calibration"),
	}
}

// Calibrate converts one raw column according to cond. The output always has
// the same length as values.
func (c *Calibrator) Calibrate(values []qca.RawValue, cond qca.Condition) (*Result, error) {
	domain := cond.Kind()
	if !domain.Valid() {
		return nil, core.NewInvalidCalibrationSpecError(cond.Name+".domain", fmt.Sprintf("unknown domain %q", cond.Domain))
	}
	if domain == qca.DomainMultiValue && cond.Levels < 2 {
		return nil, core.NewInvalidCalibrationSpecError(cond.Name+".levels",
			fmt.Sprintf("multi-value condition needs at least 2 levels, got %d", cond.Levels))
	}
	method, ok := qca.ParseMethod(string(cond.Calibration.Method))
	if !ok {
		return nil, core.NewInvalidCalibrationSpecError(cond.Name+".method", fmt.Sprintf("unknown method %q", cond.Calibration.Method))
	}

	spec := cond.Calibration
	spec.Method = method
	k := 2
	if domain == qca.DomainMultiValue {
		k = cond.Levels
	}

	res := &Result{
		Condition:   cond.Name,
		Method:      method,
		Memberships: make([]float64, len(values)),
	}
	if domain != qca.DomainFuzzy {
		res.Levels = make([]int, len(values))
	}

	if method == qca.MethodAuto {
		resolved, ok := c.resolveAuto(values, k)
		if !ok {
			for i := range values {
				res.Missing = append(res.Missing, i)
			}
			res.Spec = spec
			res.correct("values", "column has no usable values; every case calibrated to 0")
			c.logger.Warn("[Calibrator] %s: no usable values", cond.Name)
			return res, nil
		}
		spec = resolved
		res.Method = spec.Method
		c.logger.Debug("[Calibrator] %s: auto selected %s", cond.Name, spec.Method)
	}
	res.Spec = spec

	var err error
	if domain == qca.DomainFuzzy {
		err = c.fuzzy(values, spec, res)
	} else {
		err = c.levels(values, spec, k, res)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "condition %s", cond.Name)
	}

	if len(res.Corrections) > 0 {
		c.logger.Info("[Calibrator] %s: %d corrections applied", cond.Name, len(res.Corrections))
	}
	return res, nil
}

// CalibrateAll calibrates every condition column and the outcome column
// concurrently and assembles calibrated cases in input order.
func (c *Calibrator) CalibrateAll(ctx context.Context, cases []qca.Case, conditions []qca.Condition, outcome qca.Condition) (*Output, error) {
	seen := make(map[string]struct{}, len(conditions))
	for _, cond := range conditions {
		if _, dup := seen[cond.Name]; dup {
			return nil, core.NewInvalidCalibrationSpecError(cond.Name, "duplicate condition name")
		}
		seen[cond.Name] = struct{}{}
	}
	if outcome.Domain == qca.DomainMultiValue && outcome.Levels > 2 {
		return nil, core.NewInvalidCalibrationSpecError("outcome.domain", "outcome must be crisp or fuzzy")
	}
	if outcome.Domain == qca.DomainMultiValue {
		outcome.Domain = qca.DomainCrisp
	}
	if outcome.Name == "" {
		outcome.Name = "outcome"
	}

	results := make([]*Result, len(conditions))
	var outcomeRes *Result

	g, gctx := errgroup.WithContext(ctx)
	for i, cond := range conditions {
		i, cond := i, cond
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.Calibrate(qca.Column(cases, cond.Name), cond)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res, err := c.Calibrate(qca.OutcomeColumn(cases), outcome)
		if err != nil {
			return errors.Wrap(err, "outcome")
		}
		outcomeRes = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{
		Cases:      make([]qca.CalibratedCase, len(cases)),
		Conditions: results,
		Outcome:    outcomeRes,
	}
	for i, cs := range cases {
		cc := qca.CalibratedCase{
			ID:          cs.ID,
			Memberships: make(map[string]float64, len(conditions)),
			Outcome:     outcomeRes.Memberships[i],
		}
		for j, cond := range conditions {
			cc.Memberships[cond.Name] = results[j].Memberships[i]
			if results[j].Levels != nil {
				if cc.Levels == nil {
					cc.Levels = make(map[string]int)
				}
				cc.Levels[cond.Name] = results[j].Levels[i]
			}
		}
		out.Cases[i] = cc
	}

	c.logger.Debug("[Calibrator] calibrated %d cases over %d conditions", len(cases), len(conditions))
	return out, nil
}
