// Package minimize derives complex, parsimonious and intermediate solutions
// from a truth table with a generalized Quine-McCluskey procedure that
// handles crisp, multi-value and fuzzy conditions.
package minimize

import (
	"fmt"
	"time"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	"goqca/internal/capability"
)

// Options controls candidate selection and remainder use.
type Options struct {
	InclusionThreshold float64          `json:"inclusion_threshold" yaml:"inclusion_threshold"`
	PRIThreshold       float64          `json:"pri_threshold" yaml:"pri_threshold"`
	IncludeRemainders  bool             `json:"include_remainders" yaml:"include_remainders"`
	Expectations       qca.Expectations `json:"expectations,omitempty" yaml:"expectations,omitempty"`
}

// DefaultOptions returns the conventional thresholds with remainders enabled.
func DefaultOptions() Options {
	return Options{
		InclusionThreshold: 0.8,
		PRIThreshold:       0.51,
		IncludeRemainders:  true,
	}
}

// Validate checks thresholds and expectation names against the conditions.
func (o Options) Validate(conditions []qca.ConditionInfo) error {
	if !(o.InclusionThreshold > 0 && o.InclusionThreshold <= 1) {
		return core.NewInvalidCalibrationSpecError("inclusion_threshold", fmt.Sprintf("%g is outside (0, 1]", o.InclusionThreshold))
	}
	if !(o.PRIThreshold >= 0 && o.PRIThreshold <= 1) {
		return core.NewInvalidCalibrationSpecError("pri_threshold", fmt.Sprintf("%g is outside [0, 1]", o.PRIThreshold))
	}
	levels := make(map[string]int, len(conditions))
	for _, c := range conditions {
		levels[c.Name] = c.Levels
	}
	for name, level := range o.Expectations {
		k, ok := levels[name]
		if !ok {
			return core.NewInvalidCalibrationSpecError("expectations", fmt.Sprintf("unknown condition %q", name))
		}
		if level < 0 || level >= k {
			return core.NewInvalidCalibrationSpecError("expectations", fmt.Sprintf("level %d outside [0, %d] for %q", level, k-1, name))
		}
	}
	return nil
}

// Minimizer runs logical minimization under fixed capabilities.
type Minimizer struct {
	caps   capability.Capabilities
	logger *internal.Logger
}

// NewMinimizer creates a minimizer; a nil logger discards output.
func NewMinimizer(caps capability.Capabilities, logger *internal.Logger) *Minimizer {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Minimizer{
		caps:   caps.Normalize(),
		logger: logger.With("component", "minimize"),
	}
}

// Minimize returns the complex solution, followed by the parsimonious and
// intermediate solutions when opts.IncludeRemainders is set.
func (m *Minimizer) Minimize(tt *qca.TruthTable, opts Options) ([]qca.Solution, error) {
	if tt == nil || len(tt.Conditions) < 2 {
		n, cases := 0, 0
		if tt != nil {
			n, cases = len(tt.Conditions), len(tt.Cases)
		}
		return nil, core.NewInsufficientDataError(n, cases)
	}
	if err := opts.Validate(tt.Conditions); err != nil {
		return nil, err
	}
	if err := m.caps.CheckLimits(tt.Conditions); err != nil {
		return nil, err
	}
	for i, row := range tt.Rows {
		if len(row.Key) != len(tt.Conditions) {
			return nil, core.NewInvalidCalibrationSpecError("rows",
				fmt.Sprintf("row %d has %d levels for %d conditions", i, len(row.Key), len(tt.Conditions)))
		}
	}

	start := time.Now()
	candidates := Candidates(tt, opts)
	if len(candidates) == 0 {
		m.logger.Warn("[Minimizer] no configuration passes the inclusion thresholds")
	}

	complexPrimes := PrimeImplicants(candidates, tt.Conditions)
	solutions := []qca.Solution{evaluate(qca.SolutionComplex, complexPrimes, tt)}

	if opts.IncludeRemainders {
		remainders := remainderImplicants(tt)
		pars := evaluate(qca.SolutionParsimonious, reduce(candidates, remainders, complexPrimes, tt.Conditions), tt)

		var inter qca.Solution
		if len(opts.Expectations) == 0 {
			inter = pars
			inter.Type = qca.SolutionIntermediate
			inter.DegenerateToParsimonious = true
		} else {
			easy := EasyRemainders(remainders, candidates, opts.Expectations.Positions(tt.Conditions))
			inter = evaluate(qca.SolutionIntermediate, reduce(candidates, easy, complexPrimes, tt.Conditions), tt)
		}
		solutions = append(solutions, pars, inter)
	}

	m.logger.With(
		"conditions", len(tt.Conditions),
		"candidates", len(candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	).Debug("[Minimizer] produced %d solutions", len(solutions))
	return solutions, nil
}

// Candidates are the observed rows whose outcome, consistency and PRI all
// pass the thresholds, as implicants.
func Candidates(tt *qca.TruthTable, opts Options) []qca.Implicant {
	var out []qca.Implicant
	for _, row := range tt.Rows {
		if row.IsRemainder() || row.Frequency == 0 {
			continue
		}
		if row.Outcome < 0.5 || row.Consistency < opts.InclusionThreshold || row.PRIConsistency < opts.PRIThreshold {
			continue
		}
		out = append(out, qca.Implicant{
			Key:         append([]int(nil), row.Key...),
			Cases:       append([]string(nil), row.Cases...),
			Coverage:    row.Coverage,
			Consistency: row.Consistency,
		})
	}
	return out
}

// remainderImplicants carry no cases, coverage 0 and consistency 1 so they
// are neutral under the max/min merge rules.
func remainderImplicants(tt *qca.TruthTable) []qca.Implicant {
	var out []qca.Implicant
	for _, row := range tt.Rows {
		if !row.IsRemainder() {
			continue
		}
		out = append(out, qca.Implicant{
			Key:         append([]int(nil), row.Key...),
			Coverage:    0,
			Consistency: 1,
		})
	}
	return out
}

// EasyRemainders keeps remainder R when some candidate P differs from R only
// at conditions with a directional expectation that R satisfies.
func EasyRemainders(remainders, candidates []qca.Implicant, expected []int) []qca.Implicant {
	var out []qca.Implicant
	for _, r := range remainders {
		for _, p := range candidates {
			if easyFor(r.Key, p.Key, expected) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func easyFor(r, p, expected []int) bool {
	for i := range r {
		if r[i] == p[i] {
			continue
		}
		if i >= len(expected) || expected[i] == qca.DontCare || r[i] != expected[i] {
			return false
		}
	}
	return true
}

// reduce merges candidates with the extra remainders, keeps primes that
// cover a candidate and picks a minimum cover, never more complex than the
// complex solution.
func reduce(candidates, extra, complexPrimes []qca.Implicant, infos []qca.ConditionInfo) []qca.Implicant {
	if len(candidates) == 0 {
		return nil
	}
	all := make([]qca.Implicant, 0, len(candidates)+len(extra))
	all = append(all, candidates...)
	all = append(all, extra...)

	var relevant []qca.Implicant
	for _, prime := range PrimeImplicants(all, infos) {
		for _, c := range candidates {
			if prime.Covers(c.Key) {
				relevant = append(relevant, prime)
				break
			}
		}
	}

	minterms := make([][]int, 0, len(candidates))
	for _, c := range coalesce(candidates) {
		minterms = append(minterms, c.Key)
	}

	cover := ChartCover(relevant, minterms)
	if alt := containmentCover(complexPrimes, relevant); alt != nil && simpler(alt, cover) {
		cover = alt
	}
	return cover
}

// simpler orders covers by term count, then by literal count.
func simpler(a, b []qca.Implicant) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return literals(a) < literals(b)
}

func literals(terms []qca.Implicant) int {
	n := 0
	for _, t := range terms {
		n += t.Literals()
	}
	return n
}
