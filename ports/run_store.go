package ports

import (
	"context"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// RunFilters for querying stored runs
type RunFilters struct {
	Outcome string
	Limit   int
	Offset  int
}

// RunStore persists analysis runs with their truth table and solutions
type RunStore interface {
	SaveRun(ctx context.Context, run *qca.AnalysisRun) error
	GetRun(ctx context.Context, id core.RunID) (*qca.AnalysisRun, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]qca.RunSummary, error)
	DeleteRun(ctx context.Context, id core.RunID) error
}
