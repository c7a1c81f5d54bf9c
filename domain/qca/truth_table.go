package qca

import (
	"encoding/json"

	"goqca/domain/core"
)

// Quality summarizes how well the observed rows resolve the outcome.
type Quality struct {
	ContradictionRate float64 `json:"contradiction_rate"`
	Coverage          float64 `json:"coverage"`
	RemainderRatio    float64 `json:"remainder_ratio"`
	ObservedRows      int     `json:"observed_rows"`
	RemainderRows     int     `json:"remainder_rows"`
	TotalFrequency    int     `json:"total_frequency"`
}

// TruthTable is the immutable output of the builder. Rows holds observed
// configurations and logical remainders in key order.
type TruthTable struct {
	Conditions         []ConditionInfo  `json:"conditions"`
	Outcome            string           `json:"outcome"`
	Rows               []Configuration  `json:"rows"`
	Cases              []CalibratedCase `json:"-"`
	InclusionThreshold float64          `json:"inclusion_threshold"`
	Quality            Quality          `json:"quality"`
}

// ConditionNames lists the condition names in key order.
func (tt *TruthTable) ConditionNames() []string {
	names := make([]string, len(tt.Conditions))
	for i, c := range tt.Conditions {
		names[i] = c.Name
	}
	return names
}

// Observed returns rows backed by at least one case.
func (tt *TruthTable) Observed() []Configuration {
	var out []Configuration
	for _, row := range tt.Rows {
		if !row.IsRemainder() {
			out = append(out, row)
		}
	}
	return out
}

// Remainders returns the logical remainder rows.
func (tt *TruthTable) Remainders() []Configuration {
	return tt.ByType(ResultRemainder)
}

// ByType returns the rows with the given result type.
func (tt *TruthTable) ByType(rt ResultType) []Configuration {
	var out []Configuration
	for _, row := range tt.Rows {
		if row.ResultType == rt {
			out = append(out, row)
		}
	}
	return out
}

// WithRows returns a copy of the table holding rows, with quality recomputed.
func (tt *TruthTable) WithRows(rows []Configuration) *TruthTable {
	next := *tt
	next.Rows = rows
	next.Quality = ComputeQuality(rows)
	return &next
}

// Hash identifies the table contents and threshold, for memoizing solutions.
func (tt *TruthTable) Hash() core.Hash {
	payload := struct {
		Conditions []ConditionInfo    `json:"conditions"`
		Outcome    string             `json:"outcome"`
		Threshold  float64            `json:"threshold"`
		Rows       []TruthTableRecord `json:"rows"`
	}{tt.Conditions, tt.Outcome, tt.InclusionThreshold, tt.Records()}
	data, _ := json.Marshal(payload)
	return core.NewHash(data)
}

// ComputeQuality derives the table-level quality ratios from its rows.
func ComputeQuality(rows []Configuration) Quality {
	var q Quality
	var contradictory, resolved int
	for _, row := range rows {
		if row.IsRemainder() {
			q.RemainderRows++
			continue
		}
		q.ObservedRows++
		q.TotalFrequency += row.Frequency
		switch row.ResultType {
		case ResultContradictory:
			contradictory += row.Frequency
		case ResultPositive, ResultNegative:
			resolved += row.Frequency
		}
	}
	if q.TotalFrequency > 0 {
		q.ContradictionRate = float64(contradictory) / float64(q.TotalFrequency)
		q.Coverage = float64(resolved) / float64(q.TotalFrequency)
	}
	if total := q.ObservedRows + q.RemainderRows; total > 0 {
		q.RemainderRatio = float64(q.RemainderRows) / float64(total)
	}
	return q
}
