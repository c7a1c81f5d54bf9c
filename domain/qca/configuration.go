package qca

import (
	"strconv"
	"strings"
)

// ResultType classifies a truth table row.
type ResultType string

const (
	ResultPositive      ResultType = "positive"
	ResultNegative      ResultType = "negative"
	ResultContradictory ResultType = "contradictory"
	ResultRemainder     ResultType = "remainder"
)

// Configuration is one truth table row: a tuple of condition levels and the
// cases that fall into it.
type Configuration struct {
	Key            []int      `json:"configuration"`
	Consistency    float64    `json:"consistency"`
	PRIConsistency float64    `json:"pri_consistency"`
	Coverage       float64    `json:"coverage"`
	Outcome        float64    `json:"outcome"`
	Frequency      int        `json:"frequency"`
	Cases          []string   `json:"cases"`
	ResultType     ResultType `json:"result_type"`
}

// IsRemainder reports whether the row has no empirical cases.
func (c Configuration) IsRemainder() bool {
	return c.ResultType == ResultRemainder
}

// KeyString renders the row key, e.g. "1,0,2".
func (c Configuration) KeyString() string {
	return KeyString(c.Key)
}

// KeyString renders a configuration or implicant key. Wildcards print as "-".
func KeyString(key []int) string {
	parts := make([]string, len(key))
	for i, v := range key {
		if v == DontCare {
			parts[i] = "-"
			continue
		}
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// EqualKeys reports whether two keys are identical.
func EqualKeys(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CompareKeys orders keys lexicographically.
func CompareKeys(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
