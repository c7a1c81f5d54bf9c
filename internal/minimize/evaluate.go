package minimize

import (
	"math"
	"sort"

	"goqca/domain/qca"
	"goqca/internal/setmetrics"
)

// evaluate turns a set of terms into a Solution with fit measures computed
// over the truth table's cases. Tables rebuilt from exported records carry no
// cases; their rows stand in, weighted by frequency.
func evaluate(typ qca.SolutionType, terms []qca.Implicant, tt *qca.TruthTable) qca.Solution {
	conds := tt.Conditions
	terms = append([]qca.Implicant(nil), terms...)
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Term(conds) < terms[j].Term(conds)
	})

	sol := qca.Solution{
		Type:       typ,
		Expression: qca.FormatExpression(terms, conds),
		Terms:      terms,
	}
	caseLists := make([][]string, len(terms))
	for i, t := range terms {
		sol.PrimeImplicants = append(sol.PrimeImplicants, t.Term(conds))
		sol.Literals += t.Literals()
		caseLists[i] = t.Cases
	}
	sol.Complexity = len(terms)
	sol.Cases = qca.UnionCases(caseLists...)

	termSets, y := memberships(terms, tt)
	solSet := make([]float64, len(y))
	if len(termSets) > 0 {
		solSet = setmetrics.Union(termSets...)
	}
	sol.Coverage = setmetrics.Coverage(solSet, y)
	sol.Consistency = setmetrics.Consistency(solSet, y)

	for i := range terms {
		others := make([][]float64, 0, len(termSets)-1)
		others = append(others, termSets[:i]...)
		others = append(others, termSets[i+1:]...)
		var rest []float64
		if len(others) > 0 {
			rest = setmetrics.Union(others...)
		}
		sol.TermFits = append(sol.TermFits, qca.TermFit{
			Term:           sol.PrimeImplicants[i],
			RawCoverage:    setmetrics.Coverage(termSets[i], y),
			UniqueCoverage: math.Max(0, sol.Coverage-setmetrics.Coverage(rest, y)),
			Consistency:    setmetrics.Consistency(termSets[i], y),
		})
	}

	cx := float64(sol.Complexity)
	sol.Interpretability = sol.Consistency / (1 + math.Log(math.Max(cx, 1)))
	sol.Robustness = (sol.Coverage + sol.Consistency) / (1 + 0.1*cx)
	return sol
}

// memberships returns one membership vector per term plus the outcome
// vector, over cases when present and frequency-weighted rows otherwise.
func memberships(terms []qca.Implicant, tt *qca.TruthTable) ([][]float64, []float64) {
	sets := make([][]float64, len(terms))

	if len(tt.Cases) > 0 {
		y := make([]float64, len(tt.Cases))
		for i, cc := range tt.Cases {
			y[i] = cc.Outcome
		}
		for t, term := range terms {
			sets[t] = make([]float64, len(tt.Cases))
			for i, cc := range tt.Cases {
				sets[t][i] = TermMembership(term, cc, tt.Conditions)
			}
		}
		return sets, y
	}

	var y []float64
	var keys [][]int
	for _, row := range tt.Rows {
		if row.IsRemainder() {
			continue
		}
		for n := 0; n < row.Frequency; n++ {
			y = append(y, row.Outcome)
			keys = append(keys, row.Key)
		}
	}
	for t, term := range terms {
		sets[t] = make([]float64, len(keys))
		for i, key := range keys {
			if term.Covers(key) {
				sets[t][i] = 1
			}
		}
	}
	return sets, y
}

// TermMembership is the min over the term's literals of the case's
// membership in each literal. A term without literals is 1 everywhere.
func TermMembership(term qca.Implicant, cc qca.CalibratedCase, conds []qca.ConditionInfo) float64 {
	m := 1.0
	for p, level := range term.Key {
		if level == qca.DontCare || p >= len(conds) {
			continue
		}
		m = math.Min(m, literalMembership(cc, conds[p], level))
	}
	return m
}

func literalMembership(cc qca.CalibratedCase, info qca.ConditionInfo, level int) float64 {
	if info.Domain == qca.DomainFuzzy {
		v := cc.Memberships[info.Name]
		if level == 1 {
			return v
		}
		return 1 - v
	}
	actual, ok := cc.Levels[info.Name]
	if !ok {
		actual = int(math.Round(cc.Memberships[info.Name] * float64(info.Levels-1)))
	}
	if actual == level {
		return 1
	}
	return 0
}
