package minimize

import (
	"sort"

	"goqca/domain/qca"
)

// PrimeImplicants merges implicants until no merge applies. Implicants that
// agree everywhere except at one non-wildcard position p merge into one with
// a wildcard at p when together they hold every level of condition p. For
// two-level conditions this is the classic one-difference rule.
func PrimeImplicants(initial []qca.Implicant, infos []qca.ConditionInfo) []qca.Implicant {
	current := coalesce(initial)
	var primes []qca.Implicant

	for len(current) > 0 {
		used := make([]bool, len(current))
		var next []qca.Implicant

		for p, info := range infos {
			groups := make(map[string][]int)
			var order []string
			for i, imp := range current {
				if imp.Key[p] == qca.DontCare {
					continue
				}
				gk := qca.KeyString(withWildcard(imp.Key, p))
				if _, ok := groups[gk]; !ok {
					order = append(order, gk)
				}
				groups[gk] = append(groups[gk], i)
			}
			for _, gk := range order {
				members := groups[gk]
				if len(members) < info.Levels {
					continue
				}
				next = append(next, combine(current, members, p))
				for _, i := range members {
					used[i] = true
				}
			}
		}

		for i, imp := range current {
			if !used[i] {
				primes = append(primes, imp)
			}
		}
		current = coalesce(next)
	}

	primes = dropSubsumed(primes)
	sortImplicants(primes)
	return primes
}

func withWildcard(key []int, p int) []int {
	out := append([]int(nil), key...)
	out[p] = qca.DontCare
	return out
}

func combine(current []qca.Implicant, members []int, p int) qca.Implicant {
	first := current[members[0]]
	merged := qca.Implicant{
		Key:         withWildcard(first.Key, p),
		Coverage:    first.Coverage,
		Consistency: first.Consistency,
	}
	lists := make([][]string, 0, len(members))
	for _, i := range members {
		imp := current[i]
		lists = append(lists, imp.Cases)
		merged.Coverage = max(merged.Coverage, imp.Coverage)
		merged.Consistency = min(merged.Consistency, imp.Consistency)
	}
	merged.Cases = qca.UnionCases(lists...)
	return merged
}

// coalesce folds implicants with the same key into one, preserving first
// appearance order.
func coalesce(list []qca.Implicant) []qca.Implicant {
	index := make(map[string]int, len(list))
	out := make([]qca.Implicant, 0, len(list))
	for _, imp := range list {
		ks := qca.KeyString(imp.Key)
		if i, ok := index[ks]; ok {
			prev := out[i]
			out[i] = qca.Implicant{
				Key:         prev.Key,
				Cases:       qca.UnionCases(prev.Cases, imp.Cases),
				Coverage:    max(prev.Coverage, imp.Coverage),
				Consistency: min(prev.Consistency, imp.Consistency),
			}
			continue
		}
		index[ks] = len(out)
		out = append(out, qca.Implicant{
			Key:         append([]int(nil), imp.Key...),
			Cases:       append([]string(nil), imp.Cases...),
			Coverage:    imp.Coverage,
			Consistency: imp.Consistency,
		})
	}
	return out
}

func dropSubsumed(primes []qca.Implicant) []qca.Implicant {
	out := primes[:0:0]
	for i, p := range primes {
		subsumed := false
		for j, q := range primes {
			if i != j && q.Literals() < p.Literals() && q.Subsumes(p) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, p)
		}
	}
	return out
}

func sortImplicants(list []qca.Implicant) {
	sort.SliceStable(list, func(i, j int) bool {
		return qca.CompareKeys(list[i].Key, list[j].Key) < 0
	})
}
