package qca

import (
	"sort"
	"strconv"
	"strings"
)

// DontCare marks a key position whose condition was eliminated by merging.
const DontCare = -1

// Implicant is a product term over condition levels. Implicants are values:
// merging produces a new Implicant and never touches its inputs.
type Implicant struct {
	Key         []int    `json:"key"`
	Cases       []string `json:"cases"`
	Coverage    float64  `json:"coverage"`
	Consistency float64  `json:"consistency"`
}

// Literals counts the positions that are not wildcards.
func (i Implicant) Literals() int {
	n := 0
	for _, v := range i.Key {
		if v != DontCare {
			n++
		}
	}
	return n
}

// Covers reports whether a fully specified configuration key satisfies the term.
func (i Implicant) Covers(key []int) bool {
	if len(key) != len(i.Key) {
		return false
	}
	for p, v := range i.Key {
		if v != DontCare && v != key[p] {
			return false
		}
	}
	return true
}

// Subsumes reports whether every configuration covered by other is also
// covered by i.
func (i Implicant) Subsumes(other Implicant) bool {
	if len(other.Key) != len(i.Key) {
		return false
	}
	for p, v := range i.Key {
		if v != DontCare && v != other.Key[p] {
			return false
		}
	}
	return true
}

// Term renders the implicant as a product of literals, e.g. "A*~B" or "C{2}".
// A term without literals is the tautology "1".
func (i Implicant) Term(conditions []ConditionInfo) string {
	var lits []string
	for p, v := range i.Key {
		if v == DontCare || p >= len(conditions) {
			continue
		}
		lits = append(lits, Literal(conditions[p], v))
	}
	if len(lits) == 0 {
		return "1"
	}
	return strings.Join(lits, "*")
}

// Literal renders a single condition level.
func Literal(c ConditionInfo, level int) string {
	if c.Levels > 2 {
		return c.Name + "{" + strconv.Itoa(level) + "}"
	}
	if level == 0 {
		return "~" + c.Name
	}
	return c.Name
}

// FormatExpression joins terms in a canonical order as a sum of products.
func FormatExpression(terms []Implicant, conditions []ConditionInfo) string {
	strs := make([]string, len(terms))
	for i, t := range terms {
		strs[i] = t.Term(conditions)
	}
	sort.Strings(strs)
	return strings.Join(strs, " + ")
}

// UnionCases merges sorted case id lists without duplicates.
func UnionCases(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, id := range l {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
