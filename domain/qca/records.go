package qca

import (
	"fmt"
)

// TruthTableRecord is the export shape of one truth table row.
type TruthTableRecord struct {
	Configuration  []int      `json:"configuration"`
	Consistency    float64    `json:"consistency"`
	PRIConsistency float64    `json:"pri_consistency"`
	Coverage       float64    `json:"coverage"`
	Outcome        float64    `json:"outcome"`
	Frequency      int        `json:"frequency"`
	Cases          []string   `json:"cases"`
	ResultType     ResultType `json:"result_type"`
}

// SolutionRecord is the export shape of one solution.
type SolutionRecord struct {
	Type            SolutionType `json:"type"`
	Expression      string       `json:"expression"`
	PrimeImplicants []string     `json:"prime_implicants"`
	Coverage        float64      `json:"coverage"`
	Consistency     float64      `json:"consistency"`
	Complexity      int          `json:"complexity"`

	DegenerateToParsimonious bool `json:"degenerate_to_parsimonious,omitempty"`
}

// TruthTableExport bundles the rows with the column shape needed to re-ingest them.
type TruthTableExport struct {
	Conditions         []ConditionInfo    `json:"conditions"`
	Outcome            string             `json:"outcome"`
	InclusionThreshold float64            `json:"inclusion_threshold"`
	Rows               []TruthTableRecord `json:"rows"`
}

// Records exports every row, remainders included.
func (tt *TruthTable) Records() []TruthTableRecord {
	recs := make([]TruthTableRecord, len(tt.Rows))
	for i, row := range tt.Rows {
		cases := row.Cases
		if cases == nil {
			cases = []string{}
		}
		recs[i] = TruthTableRecord{
			Configuration:  append([]int(nil), row.Key...),
			Consistency:    row.Consistency,
			PRIConsistency: row.PRIConsistency,
			Coverage:       row.Coverage,
			Outcome:        row.Outcome,
			Frequency:      row.Frequency,
			Cases:          append([]string{}, cases...),
			ResultType:     row.ResultType,
		}
	}
	return recs
}

// Export returns the table in its re-ingestable record form.
func (tt *TruthTable) Export() TruthTableExport {
	return TruthTableExport{
		Conditions:         tt.Conditions,
		Outcome:            tt.Outcome,
		InclusionThreshold: tt.InclusionThreshold,
		Rows:               tt.Records(),
	}
}

// TruthTableFromRecords rebuilds a table from exported records. The result
// carries no calibrated cases, so solution fit is limited to the row values.
func TruthTableFromRecords(exp TruthTableExport) (*TruthTable, error) {
	rows := make([]Configuration, len(exp.Rows))
	for i, rec := range exp.Rows {
		if len(rec.Configuration) != len(exp.Conditions) {
			return nil, fmt.Errorf("row %d: configuration has %d levels, want %d", i, len(rec.Configuration), len(exp.Conditions))
		}
		for p, level := range rec.Configuration {
			if level < 0 || level >= exp.Conditions[p].Levels {
				return nil, fmt.Errorf("row %d: level %d out of range for %s", i, level, exp.Conditions[p].Name)
			}
		}
		switch rec.ResultType {
		case ResultPositive, ResultNegative, ResultContradictory, ResultRemainder:
		default:
			return nil, fmt.Errorf("row %d: unknown result type %q", i, rec.ResultType)
		}
		rows[i] = Configuration{
			Key:            append([]int(nil), rec.Configuration...),
			Consistency:    rec.Consistency,
			PRIConsistency: rec.PRIConsistency,
			Coverage:       rec.Coverage,
			Outcome:        rec.Outcome,
			Frequency:      rec.Frequency,
			Cases:          append([]string(nil), rec.Cases...),
			ResultType:     rec.ResultType,
		}
	}

	tt := &TruthTable{
		Conditions:         append([]ConditionInfo(nil), exp.Conditions...),
		Outcome:            exp.Outcome,
		InclusionThreshold: exp.InclusionThreshold,
	}
	return tt.WithRows(rows), nil
}

// Record exports the solution.
func (s Solution) Record() SolutionRecord {
	primes := s.PrimeImplicants
	if primes == nil {
		primes = []string{}
	}
	return SolutionRecord{
		Type:            s.Type,
		Expression:      s.Expression,
		PrimeImplicants: append([]string{}, primes...),
		Coverage:        s.Coverage,
		Consistency:     s.Consistency,
		Complexity:      s.Complexity,

		DegenerateToParsimonious: s.DegenerateToParsimonious,
	}
}

// SolutionRecords exports a solution set.
func SolutionRecords(solutions []Solution) []SolutionRecord {
	recs := make([]SolutionRecord, len(solutions))
	for i, s := range solutions {
		recs[i] = s.Record()
	}
	return recs
}

// SolutionsFromRecords re-ingests exported solutions as term-less views.
func SolutionsFromRecords(recs []SolutionRecord) []Solution {
	out := make([]Solution, len(recs))
	for i, r := range recs {
		out[i] = Solution{
			Type:            r.Type,
			Expression:      r.Expression,
			PrimeImplicants: append([]string(nil), r.PrimeImplicants...),
			Coverage:        r.Coverage,
			Consistency:     r.Consistency,
			Complexity:      r.Complexity,

			DegenerateToParsimonious: r.DegenerateToParsimonious,
		}
	}
	return out
}
