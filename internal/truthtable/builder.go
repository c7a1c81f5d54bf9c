// Package truthtable groups calibrated cases into configurations, classifies
// each configuration against the inclusion threshold, enumerates logical
// remainders and resolves contradictory rows.
package truthtable

import (
	"fmt"
	"math"
	"sort"
	"time"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	"goqca/internal/capability"
	"goqca/internal/setmetrics"
)

// Builder creates truth tables under fixed capabilities.
type Builder struct {
	caps   capability.Capabilities
	logger *internal.Logger
}

// NewBuilder creates a builder; a nil logger discards output.
func NewBuilder(caps capability.Capabilities, logger *internal.Logger) *Builder {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Builder{
		caps:   caps.Normalize(),
		logger: logger.With("component", "truthtable"),
	}
}

type rowAcc struct {
	key       []int
	ids       []string
	inclusion []float64
	outcome   []float64
}

// Build groups cases by configuration and adds a remainder row for every
// unobserved configuration, so len(Rows) is the product of condition levels.
func (b *Builder) Build(cases []qca.CalibratedCase, conditions []qca.Condition, outcome string, inclusionThreshold float64) (*qca.TruthTable, error) {
	if len(conditions) < 2 || len(cases) < 1 {
		return nil, core.NewInsufficientDataError(len(conditions), len(cases))
	}
	if !(inclusionThreshold > 0 && inclusionThreshold < 1) {
		return nil, core.NewInvalidCalibrationSpecError("inclusion_threshold",
			fmt.Sprintf("%g is outside (0, 1)", inclusionThreshold))
	}

	infos := qca.Infos(conditions)
	if err := b.caps.CheckLimits(infos); err != nil {
		return nil, err
	}

	start := time.Now()
	groups := make(map[string]*rowAcc)
	var totalOutcome float64
	for _, cc := range cases {
		key, incl, err := Place(cc, infos)
		if err != nil {
			return nil, err
		}
		ks := qca.KeyString(key)
		acc, ok := groups[ks]
		if !ok {
			acc = &rowAcc{key: key}
			groups[ks] = acc
		}
		acc.ids = append(acc.ids, cc.ID)
		acc.inclusion = append(acc.inclusion, incl)
		acc.outcome = append(acc.outcome, cc.Outcome)
		if !math.IsNaN(cc.Outcome) {
			totalOutcome += cc.Outcome
		}
	}

	rows := make([]qca.Configuration, 0, qca.LevelProduct(infos, 0))
	Enumerate(infos, func(key []int) {
		acc, ok := groups[qca.KeyString(key)]
		if !ok {
			rows = append(rows, qca.Configuration{
				Key:        append([]int(nil), key...),
				ResultType: qca.ResultRemainder,
			})
			return
		}
		row := summarize(acc.key, acc.ids, acc.inclusion, acc.outcome, totalOutcome)
		row.ResultType = Classify(row.Consistency, inclusionThreshold)
		rows = append(rows, row)
	})

	tt := &qca.TruthTable{
		Conditions:         infos,
		Outcome:            outcome,
		Cases:              append([]qca.CalibratedCase(nil), cases...),
		InclusionThreshold: inclusionThreshold,
	}
	tt = tt.WithRows(rows)

	b.logger.With(
		"conditions", len(infos),
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	).Debug("[TruthTable] %d observed rows, %d remainders", tt.Quality.ObservedRows, tt.Quality.RemainderRows)
	return tt, nil
}

// Classify maps a row consistency to its result type.
func Classify(consistency, threshold float64) qca.ResultType {
	switch {
	case consistency >= threshold:
		return qca.ResultPositive
	case consistency <= 1-threshold:
		return qca.ResultNegative
	}
	return qca.ResultContradictory
}

// Place returns the configuration a case belongs to and its inclusion in
// that configuration (min over conditions of the membership in the row's
// level; crisp and multi-value conditions contribute 1).
func Place(cc qca.CalibratedCase, infos []qca.ConditionInfo) ([]int, float64, error) {
	key := make([]int, len(infos))
	incl := 1.0
	for p, info := range infos {
		if info.Domain == qca.DomainFuzzy {
			m := cc.Memberships[info.Name]
			if m > 0.5 {
				key[p] = 1
				incl = math.Min(incl, m)
			} else {
				incl = math.Min(incl, 1-m)
			}
			continue
		}
		level, ok := cc.Levels[info.Name]
		if !ok {
			level = int(math.Round(cc.Memberships[info.Name] * float64(info.Levels-1)))
		}
		if level < 0 || level >= info.Levels {
			return nil, 0, core.NewInvalidCalibrationSpecError(info.Name,
				fmt.Sprintf("case %s has level %d outside [0, %d]", cc.ID, level, info.Levels-1))
		}
		key[p] = level
	}
	return key, incl, nil
}

// summarize computes the fit of one observed row. totalOutcome is Σ outcome
// over all cases of the table.
func summarize(key []int, ids []string, inclusion, outcome []float64, totalOutcome float64) qca.Configuration {
	fit := setmetrics.Sufficiency(inclusion, outcome)
	var sumY float64
	for _, y := range outcome {
		sumY += y
	}

	row := qca.Configuration{
		Key:            append([]int(nil), key...),
		Consistency:    fit.Consistency,
		PRIConsistency: fit.PRI,
		Frequency:      len(ids),
		Cases:          append([]string(nil), ids...),
	}
	if totalOutcome > 0 {
		row.Coverage = fit.Overlap / totalOutcome
	}
	if len(outcome) > 0 {
		row.Outcome = sumY / float64(len(outcome))
	}
	sort.Strings(row.Cases)
	return row
}
