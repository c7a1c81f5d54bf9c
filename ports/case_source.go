package ports

import (
	"context"

	"goqca/domain/qca"
)

// CaseLayout names the columns that make up a case set. An empty IDColumn
// asks the source to detect one; empty Conditions means every remaining
// column except the outcome.
type CaseLayout struct {
	IDColumn      string   `json:"id_column" yaml:"id_column"`
	OutcomeColumn string   `json:"outcome_column" yaml:"outcome_column"`
	Conditions    []string `json:"conditions" yaml:"conditions"`
}

// CaseSource produces the raw cases an analysis starts from
type CaseSource interface {
	ReadCases(ctx context.Context, layout CaseLayout) ([]qca.Case, error)
}
