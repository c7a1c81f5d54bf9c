package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"goqca/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run store schema. The statements are portable
// between sqlite3 and postgres.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAnalysisRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_runs table")
	}

	if err := r.createTruthTableRowsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create truth_table_rows table")
	}

	if err := r.createSolutionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create solutions table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createAnalysisRunsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			conditions TEXT NOT NULL,
			inclusion_threshold DOUBLE PRECISION NOT NULL,
			table_hash TEXT NOT NULL,
			params_hash TEXT NOT NULL,
			quality TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createTruthTableRowsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS truth_table_rows (
			run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			configuration TEXT NOT NULL,
			consistency DOUBLE PRECISION NOT NULL,
			pri_consistency DOUBLE PRECISION NOT NULL,
			coverage DOUBLE PRECISION NOT NULL,
			outcome DOUBLE PRECISION NOT NULL,
			frequency INTEGER NOT NULL,
			cases TEXT NOT NULL,
			result_type TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createSolutionsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS solutions (
			run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			expression TEXT NOT NULL,
			prime_implicants TEXT NOT NULL,
			coverage DOUBLE PRECISION NOT NULL,
			consistency DOUBLE PRECISION NOT NULL,
			complexity INTEGER NOT NULL,
			degenerate_to_parsimonious BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (run_id, type)
		)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_table_hash ON analysis_runs(table_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_truth_table_rows_result_type ON truth_table_rows(run_id, result_type)`,
	}

	for _, query := range indexes {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
