package qca

import "goqca/domain/core"

// AnalysisRun is the persisted record of one analysis: its truth table and
// solutions in export form.
type AnalysisRun struct {
	ID                 core.RunID         `json:"id"`
	Name               string             `json:"name,omitempty"`
	Outcome            string             `json:"outcome"`
	Conditions         []ConditionInfo    `json:"conditions"`
	InclusionThreshold float64            `json:"inclusion_threshold"`
	TableHash          core.Hash          `json:"table_hash"`
	ParamsHash         core.Hash          `json:"params_hash"`
	Quality            Quality            `json:"quality"`
	Rows               []TruthTableRecord `json:"rows"`
	Solutions          []SolutionRecord   `json:"solutions"`
	CreatedAt          core.Timestamp     `json:"created_at"`
}

// RunSummary is the listing view of a stored run
type RunSummary struct {
	ID         core.RunID     `json:"id"`
	Name       string         `json:"name"`
	Outcome    string         `json:"outcome"`
	Conditions int            `json:"conditions"`
	TableHash  core.Hash      `json:"table_hash"`
	Quality    Quality        `json:"quality"`
	CreatedAt  core.Timestamp `json:"created_at"`
}

// TruthTable rebuilds the exported truth table of a stored run.
func (r *AnalysisRun) TruthTable() (*TruthTable, error) {
	return TruthTableFromRecords(TruthTableExport{
		Conditions:         r.Conditions,
		Outcome:            r.Outcome,
		InclusionThreshold: r.InclusionThreshold,
		Rows:               r.Rows,
	})
}
