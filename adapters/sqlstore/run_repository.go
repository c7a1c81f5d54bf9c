// Package sqlstore persists analysis runs in sqlite3 or postgres through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal/errors"
	"goqca/internal/migration"
	"goqca/ports"
)

// runRepository implements ports.RunStore
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a run store over an open connection. Queries are
// written with ? placeholders and rebound for the connection's driver.
func NewRunRepository(db *sqlx.DB) ports.RunStore {
	return &runRepository{db: db}
}

// Open connects to driver/dsn and applies the schema migrations.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}
	if driver == "sqlite3" {
		// sqlite serializes writers; a single connection also keeps :memory: databases alive
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to migrate database", err)
	}
	return db, nil
}

type runRow struct {
	ID                 string  `db:"id"`
	Name               string  `db:"name"`
	Outcome            string  `db:"outcome"`
	Conditions         string  `db:"conditions"`
	InclusionThreshold float64 `db:"inclusion_threshold"`
	TableHash          string  `db:"table_hash"`
	ParamsHash         string  `db:"params_hash"`
	Quality            string  `db:"quality"`
	CreatedAt          string  `db:"created_at"`
}

type truthTableRow struct {
	Position       int     `db:"position"`
	Configuration  string  `db:"configuration"`
	Consistency    float64 `db:"consistency"`
	PRIConsistency float64 `db:"pri_consistency"`
	Coverage       float64 `db:"coverage"`
	Outcome        float64 `db:"outcome"`
	Frequency      int     `db:"frequency"`
	Cases          string  `db:"cases"`
	ResultType     string  `db:"result_type"`
}

type solutionRow struct {
	Type            string  `db:"type"`
	Expression      string  `db:"expression"`
	PrimeImplicants string  `db:"prime_implicants"`
	Coverage        float64 `db:"coverage"`
	Consistency     float64 `db:"consistency"`
	Complexity      int     `db:"complexity"`
	Degenerate      bool    `db:"degenerate_to_parsimonious"`
}

// SaveRun inserts the run, its truth table rows and its solutions in one
// transaction. An empty ID or creation time is filled in.
func (r *runRepository) SaveRun(ctx context.Context, run *qca.AnalysisRun) error {
	if run.ID == "" {
		run.ID = core.NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = core.Now()
	}

	conditionsJSON, err := json.Marshal(run.Conditions)
	if err != nil {
		return errors.Wrap(err, "failed to marshal conditions")
	}
	qualityJSON, err := json.Marshal(run.Quality)
	if err != nil {
		return errors.Wrap(err, "failed to marshal quality")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO analysis_runs (
		id, name, outcome, conditions, inclusion_threshold, table_hash, params_hash, quality, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		string(run.ID), run.Name, run.Outcome, string(conditionsJSON), run.InclusionThreshold,
		string(run.TableHash), string(run.ParamsHash), string(qualityJSON), formatTime(run.CreatedAt),
	)
	if err != nil {
		return errors.DatabaseError("failed to create analysis run", err)
	}

	rowQuery := tx.Rebind(`INSERT INTO truth_table_rows (
		run_id, position, configuration, consistency, pri_consistency, coverage, outcome, frequency, cases, result_type
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, rec := range run.Rows {
		keyJSON, err := json.Marshal(rec.Configuration)
		if err != nil {
			return errors.Wrap(err, "failed to marshal configuration")
		}
		casesJSON, err := json.Marshal(nonNil(rec.Cases))
		if err != nil {
			return errors.Wrap(err, "failed to marshal cases")
		}
		if _, err := tx.ExecContext(ctx, rowQuery,
			string(run.ID), i, string(keyJSON), rec.Consistency, rec.PRIConsistency, rec.Coverage,
			rec.Outcome, rec.Frequency, string(casesJSON), string(rec.ResultType),
		); err != nil {
			return errors.DatabaseError("failed to insert truth table row", err)
		}
	}

	solutionQuery := tx.Rebind(`INSERT INTO solutions (
		run_id, type, expression, prime_implicants, coverage, consistency, complexity,
		degenerate_to_parsimonious
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, sol := range run.Solutions {
		primesJSON, err := json.Marshal(nonNil(sol.PrimeImplicants))
		if err != nil {
			return errors.Wrap(err, "failed to marshal prime implicants")
		}
		if _, err := tx.ExecContext(ctx, solutionQuery,
			string(run.ID), string(sol.Type), sol.Expression, string(primesJSON),
			sol.Coverage, sol.Consistency, sol.Complexity, sol.DegenerateToParsimonious,
		); err != nil {
			return errors.DatabaseError("failed to insert solution", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit analysis run", err)
	}
	return nil
}

// GetRun loads a run with its rows in table order
func (r *runRepository) GetRun(ctx context.Context, id core.RunID) (*qca.AnalysisRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT
		id, name, outcome, conditions, inclusion_threshold, table_hash, params_hash, quality, created_at
	FROM analysis_runs WHERE id = ?`), string(id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("analysis run " + string(id))
		}
		return nil, errors.DatabaseError("failed to get analysis run", err)
	}

	run, err := row.toRun()
	if err != nil {
		return nil, err
	}

	var rows []truthTableRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT
		position, configuration, consistency, pri_consistency, coverage, outcome, frequency, cases, result_type
	FROM truth_table_rows WHERE run_id = ? ORDER BY position`), string(id)); err != nil {
		return nil, errors.DatabaseError("failed to query truth table rows", err)
	}
	for _, tr := range rows {
		rec := qca.TruthTableRecord{
			Consistency:    tr.Consistency,
			PRIConsistency: tr.PRIConsistency,
			Coverage:       tr.Coverage,
			Outcome:        tr.Outcome,
			Frequency:      tr.Frequency,
			ResultType:     qca.ResultType(tr.ResultType),
		}
		if err := json.Unmarshal([]byte(tr.Configuration), &rec.Configuration); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal configuration")
		}
		if err := json.Unmarshal([]byte(tr.Cases), &rec.Cases); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal cases")
		}
		run.Rows = append(run.Rows, rec)
	}

	var solutions []solutionRow
	if err := r.db.SelectContext(ctx, &solutions, r.db.Rebind(`SELECT
		type, expression, prime_implicants, coverage, consistency, complexity,
		degenerate_to_parsimonious
	FROM solutions WHERE run_id = ?`), string(id)); err != nil {
		return nil, errors.DatabaseError("failed to query solutions", err)
	}
	for _, sr := range solutions {
		rec := qca.SolutionRecord{
			Type:        qca.SolutionType(sr.Type),
			Expression:  sr.Expression,
			Coverage:    sr.Coverage,
			Consistency: sr.Consistency,
			Complexity:  sr.Complexity,

			DegenerateToParsimonious: sr.Degenerate,
		}
		if err := json.Unmarshal([]byte(sr.PrimeImplicants), &rec.PrimeImplicants); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal prime implicants")
		}
		run.Solutions = append(run.Solutions, rec)
	}
	sortSolutions(run.Solutions)

	return run, nil
}

// ListRuns returns run summaries, newest first
func (r *runRepository) ListRuns(ctx context.Context, filters ports.RunFilters) ([]qca.RunSummary, error) {
	var query strings.Builder
	query.WriteString(`SELECT
		id, name, outcome, conditions, inclusion_threshold, table_hash, params_hash, quality, created_at
	FROM analysis_runs`)

	var args []interface{}
	if filters.Outcome != "" {
		query.WriteString(" WHERE outcome = ?")
		args = append(args, filters.Outcome)
	}
	query.WriteString(" ORDER BY created_at DESC, id DESC")
	if filters.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filters.Limit, filters.Offset)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query.String()), args...); err != nil {
		return nil, errors.DatabaseError("failed to query analysis runs", err)
	}

	summaries := make([]qca.RunSummary, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, qca.RunSummary{
			ID:         run.ID,
			Name:       run.Name,
			Outcome:    run.Outcome,
			Conditions: len(run.Conditions),
			TableHash:  run.TableHash,
			Quality:    run.Quality,
			CreatedAt:  run.CreatedAt,
		})
	}
	return summaries, nil
}

// DeleteRun removes a run and everything stored under it
func (r *runRepository) DeleteRun(ctx context.Context, id core.RunID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"solutions", "truth_table_rows"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE run_id = ?`), string(id)); err != nil {
			return errors.DatabaseError("failed to delete from "+table, err)
		}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM analysis_runs WHERE id = ?`), string(id))
	if err != nil {
		return errors.DatabaseError("failed to delete analysis run", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to get rows affected", err)
	}
	if affected == 0 {
		return errors.NotFound("analysis run " + string(id))
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit delete", err)
	}
	return nil
}

func (row runRow) toRun() (*qca.AnalysisRun, error) {
	run := &qca.AnalysisRun{
		ID:                 core.RunID(row.ID),
		Name:               row.Name,
		Outcome:            row.Outcome,
		InclusionThreshold: row.InclusionThreshold,
		TableHash:          core.Hash(row.TableHash),
		ParamsHash:         core.Hash(row.ParamsHash),
	}
	if err := json.Unmarshal([]byte(row.Conditions), &run.Conditions); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal conditions")
	}
	if err := json.Unmarshal([]byte(row.Quality), &run.Quality); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal quality")
	}
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse created_at")
	}
	run.CreatedAt = core.NewTimestamp(created)
	return run, nil
}

// formatTime renders timestamps in UTC so TEXT ordering matches time ordering
func formatTime(ts core.Timestamp) string {
	return ts.Time().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var solutionOrder = map[qca.SolutionType]int{
	qca.SolutionComplex:      0,
	qca.SolutionParsimonious: 1,
	qca.SolutionIntermediate: 2,
}

func sortSolutions(recs []qca.SolutionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return solutionOrder[recs[i].Type] < solutionOrder[recs[j].Type]
	})
}
