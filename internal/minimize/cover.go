package minimize

import (
	"sort"

	"goqca/domain/qca"
)

// exactCoverLimit bounds the number of non-essential primes searched
// exhaustively; larger charts fall back to a greedy cover.
const exactCoverLimit = 20

// chart is the prime implicant chart restricted to the minterms still open.
type chart struct {
	primes    []qca.Implicant
	open      []int
	coveredBy map[int][]int // minterm -> primes
	covers    map[int][]int // prime -> open minterms
}

// ChartCover selects a minimum set of primes covering every minterm:
// essential primes first, then an exact branch-and-bound search for the
// fewest remaining primes (fewest literals on ties).
func ChartCover(primes []qca.Implicant, minterms [][]int) []qca.Implicant {
	if len(minterms) == 0 || len(primes) == 0 {
		return nil
	}

	coveredBy := make(map[int][]int, len(minterms))
	for m, key := range minterms {
		for p, prime := range primes {
			if prime.Covers(key) {
				coveredBy[m] = append(coveredBy[m], p)
			}
		}
	}

	chosen := make(map[int]bool)
	for m := range minterms {
		if ps := coveredBy[m]; len(ps) == 1 {
			chosen[ps[0]] = true
		}
	}

	c := &chart{primes: primes, coveredBy: coveredBy, covers: make(map[int][]int)}
	for m := range minterms {
		ps := coveredBy[m]
		if len(ps) == 0 || anyChosen(ps, chosen) {
			continue
		}
		c.open = append(c.open, m)
		for _, p := range ps {
			c.covers[p] = append(c.covers[p], m)
		}
	}

	if len(c.open) > 0 {
		var extra []int
		if len(c.covers) <= exactCoverLimit {
			extra = c.exact()
		} else {
			extra = c.greedy()
		}
		for _, p := range extra {
			chosen[p] = true
		}
	}

	idx := make([]int, 0, len(chosen))
	for p := range chosen {
		idx = append(idx, p)
	}
	sort.Ints(idx)
	out := make([]qca.Implicant, len(idx))
	for i, p := range idx {
		out[i] = primes[p]
	}
	return out
}

func anyChosen(ps []int, chosen map[int]bool) bool {
	for _, p := range ps {
		if chosen[p] {
			return true
		}
	}
	return false
}

// greedy repeatedly takes the prime covering the most open minterms,
// preferring fewer literals, then the lower index.
func (c *chart) greedy() []int {
	done := make(map[int]bool, len(c.open))
	var picked []int
	for len(done) < len(c.open) {
		best, bestGain := -1, 0
		for p := range c.primes {
			gain := 0
			for _, m := range c.covers[p] {
				if !done[m] {
					gain++
				}
			}
			if gain == 0 {
				continue
			}
			if best < 0 || gain > bestGain ||
				(gain == bestGain && c.primes[p].Literals() < c.primes[best].Literals()) {
				best, bestGain = p, gain
			}
		}
		if best < 0 {
			break
		}
		picked = append(picked, best)
		for _, m := range c.covers[best] {
			done[m] = true
		}
	}
	return picked
}

type search struct {
	*chart
	hits     map[int]int
	best     []int
	bestLits int
}

// exact is a branch and bound over the primes covering the first uncovered
// minterm, seeded with the greedy cover as the initial bound.
func (c *chart) exact() []int {
	s := &search{chart: c, hits: make(map[int]int, len(c.open))}
	s.best = c.greedy()
	s.bestLits = c.literals(s.best)
	s.run(nil, 0)
	return s.best
}

func (s *search) run(chosen []int, lits int) {
	next := -1
	for _, m := range s.open {
		if s.hits[m] == 0 {
			next = m
			break
		}
	}
	if next < 0 {
		if len(chosen) < len(s.best) || (len(chosen) == len(s.best) && lits < s.bestLits) {
			s.best = append([]int(nil), chosen...)
			s.bestLits = lits
		}
		return
	}
	if len(chosen)+1 > len(s.best) || (len(chosen)+1 == len(s.best) && lits >= s.bestLits) {
		return
	}

	for _, p := range s.coveredBy[next] {
		for _, m := range s.covers[p] {
			s.hits[m]++
		}
		s.run(append(chosen, p), lits+s.primes[p].Literals())
		for _, m := range s.covers[p] {
			s.hits[m]--
		}
	}
}

func (c *chart) literals(idx []int) int {
	n := 0
	for _, p := range idx {
		n += c.primes[p].Literals()
	}
	return n
}

// containmentCover maps every complex prime onto the simplest prime that
// contains it. The result covers everything the complex primes cover and is
// never more complex than them. It returns nil when some complex prime has
// no container.
func containmentCover(complexPrimes, primes []qca.Implicant) []qca.Implicant {
	if len(complexPrimes) == 0 {
		return nil
	}
	picked := make(map[int]bool)
	for _, cp := range complexPrimes {
		best := -1
		for p, prime := range primes {
			if !prime.Subsumes(cp) {
				continue
			}
			if best < 0 || prime.Literals() < primes[best].Literals() {
				best = p
			}
		}
		if best < 0 {
			return nil
		}
		picked[best] = true
	}
	idx := make([]int, 0, len(picked))
	for p := range picked {
		idx = append(idx, p)
	}
	sort.Ints(idx)
	out := make([]qca.Implicant, len(idx))
	for i, p := range idx {
		out[i] = primes[p]
	}
	return out
}
