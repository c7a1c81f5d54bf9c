package minimize

import (
	"sort"
	"strings"

	"goqca/domain/qca"
)

// EssentialConditions scores each condition by Σ coverage×consistency over
// the solutions whose expression mentions it, normalized by the best score.
func EssentialConditions(solutions []qca.Solution, conditions []qca.ConditionInfo) []qca.ConditionScore {
	raw := make(map[string]float64, len(conditions))
	for _, c := range conditions {
		raw[c.Name] = 0
	}
	for _, sol := range solutions {
		for name := range literalNames(sol.Expression) {
			if _, ok := raw[name]; ok {
				raw[name] += sol.Coverage * sol.Consistency
			}
		}
	}

	var top float64
	for _, v := range raw {
		top = max(top, v)
	}
	scores := make([]qca.ConditionScore, 0, len(conditions))
	for _, c := range conditions {
		s := qca.ConditionScore{Condition: c.Name, Raw: raw[c.Name]}
		if top > 0 {
			s.Score = s.Raw / top
		}
		scores = append(scores, s)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Condition < scores[j].Condition
	})
	return scores
}

func literalNames(expr string) map[string]struct{} {
	names := make(map[string]struct{})
	for _, term := range strings.Split(expr, " + ") {
		for _, lit := range strings.Split(term, "*") {
			lit = strings.TrimPrefix(strings.TrimSpace(lit), "~")
			if i := strings.IndexByte(lit, '{'); i >= 0 {
				lit = lit[:i]
			}
			if lit != "" && lit != "1" {
				names[lit] = struct{}{}
			}
		}
	}
	return names
}
