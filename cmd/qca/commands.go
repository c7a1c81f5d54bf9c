package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"goqca/adapters/sqlstore"
	"goqca/app"
	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal/errors"
	"goqca/internal/minimize"
	"goqca/ports"
)

// loadRequest reads the analysis file and its cases
func (e *env) loadRequest(ctx context.Context, path string) (app.AnalysisRequest, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return app.AnalysisRequest{}, err
	}
	req, err := def.Request(e.cfg.Analysis)
	if err != nil {
		return req, err
	}
	source, err := def.Source(e.logger)
	if err != nil {
		return req, err
	}
	req.Cases, err = source.ReadCases(ctx, def.Layout())
	if err != nil {
		return req, errors.Wrap(err, "failed to read cases")
	}
	return req, nil
}

func addFileFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "file", "f", "", "Analysis definition (YAML)")
	_ = cmd.MarkFlagRequired("file")
}

func newCalibrateCmd(e *env) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate case values and print memberships",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := e.loadRequest(cmd.Context(), path)
			if err != nil {
				return err
			}
			svc, closer, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closer()
			out, err := svc.Calibrate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	addFileFlag(cmd, &path)
	return cmd
}

func newTruthTableCmd(e *env) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "truth-table",
		Short: "Build the truth table and print it in export form",
		Long: `Build the truth table for an analysis file.

The output can be fed back to "qca minimize --table".

Example: qca truth-table -f analysis.yaml > table.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := e.loadRequest(cmd.Context(), path)
			if err != nil {
				return err
			}
			svc, closer, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closer()
			_, tt, err := svc.BuildTable(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				qca.TruthTableExport
				Quality qca.Quality `json:"quality"`
			}{tt.Export(), tt.Quality})
		},
	}
	addFileFlag(cmd, &path)
	return cmd
}

func newMinimizeCmd(e *env) *cobra.Command {
	var tablePath, defPath string
	var incl, pri float64
	var noRemainders bool

	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Minimize an exported truth table",
		Long: `Minimize a truth table previously written by "qca truth-table".

Expectations for the intermediate solution are taken from --file when given.

Example: qca minimize --table table.json --incl 0.85`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(tablePath)
			if err != nil {
				if os.IsNotExist(err) {
					return errors.NotFound("truth table file " + tablePath)
				}
				return errors.Wrap(err, "failed to read truth table")
			}
			var exp qca.TruthTableExport
			if err := json.Unmarshal(data, &exp); err != nil {
				return &errors.AppError{Code: errors.CodeInvalidInput, Message: "invalid truth table file", Cause: err}
			}
			tt, err := qca.TruthTableFromRecords(exp)
			if err != nil {
				return &errors.AppError{Code: errors.CodeInvalidInput, Message: "invalid truth table rows", Cause: err}
			}

			opts := minimize.Options{
				InclusionThreshold: e.cfg.Analysis.InclusionThreshold,
				PRIThreshold:       e.cfg.Analysis.PRIThreshold,
				IncludeRemainders:  e.cfg.Analysis.IncludeRemainders && !noRemainders,
			}
			if exp.InclusionThreshold > 0 {
				opts.InclusionThreshold = exp.InclusionThreshold
			}
			if cmd.Flags().Changed("incl") {
				opts.InclusionThreshold = incl
			}
			if cmd.Flags().Changed("pri") {
				opts.PRIThreshold = pri
			}
			if defPath != "" {
				def, err := LoadDefinition(defPath)
				if err != nil {
					return err
				}
				opts.Expectations, err = qca.ParseExpectations(def.Expectations, tt.Conditions)
				if err != nil {
					return errors.Wrap(core.NewInvalidCalibrationSpecError("expectations", err.Error()), "invalid expectations")
				}
			}

			svc, closer, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closer()
			solutions, _, err := svc.Minimize(cmd.Context(), tt, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), solutions)
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "Truth table export (JSON)")
	cmd.Flags().StringVarP(&defPath, "file", "f", "", "Analysis definition supplying expectations")
	cmd.Flags().Float64Var(&incl, "incl", 0.8, "Inclusion (consistency) threshold")
	cmd.Flags().Float64Var(&pri, "pri", 0.51, "PRI threshold")
	cmd.Flags().BoolVar(&noRemainders, "no-remainders", false, "Only produce the complex solution")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var path string
	var store bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run calibration, truth table and minimization end to end",
		Long: `Run a complete analysis and print the truth table, solutions and
condition scores. With --store the run is saved to the configured store.

Example: QCA_STORE_DSN=runs.db qca analyze -f analysis.yaml --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := e.loadRequest(cmd.Context(), path)
			if err != nil {
				return err
			}
			req.Store = store
			svc, closer, err := e.service(cmd.Context(), store)
			if err != nil {
				return err
			}
			defer closer()
			res, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				RunID      core.RunID           `json:"run_id,omitempty"`
				TruthTable qca.TruthTableExport `json:"truth_table"`
				Quality    qca.Quality          `json:"quality"`
				Solutions  []qca.Solution       `json:"solutions"`
				Essential  []qca.ConditionScore `json:"essential_conditions"`
			}{res.RunID, res.TruthTable.Export(), res.TruthTable.Quality, res.Solutions, res.Essential})
		},
	}
	addFileFlag(cmd, &path)
	cmd.Flags().BoolVar(&store, "store", false, "Save the run to the configured store")
	return cmd
}

func newNecessityCmd(e *env) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "necessity",
		Short: "Report necessity consistency and coverage per condition",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := e.loadRequest(cmd.Context(), path)
			if err != nil {
				return err
			}
			svc, closer, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closer()
			results, err := svc.Necessity(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	addFileFlag(cmd, &path)
	return cmd
}

func newRunsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored analysis runs",
	}

	var outcome string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd.Context(), func(store ports.RunStore) error {
				runs, err := store.ListRuns(cmd.Context(), ports.RunFilters{Outcome: outcome, Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			})
		},
	}
	list.Flags().StringVar(&outcome, "outcome", "", "Only runs for this outcome")
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 for all)")
	list.Flags().IntVar(&offset, "offset", 0, "Runs to skip")

	show := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return errors.InvalidInput(err.Error())
			}
			return e.withStore(cmd.Context(), func(store ports.RunStore) error {
				run, err := store.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), run)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return errors.InvalidInput(err.Error())
			}
			return e.withStore(cmd.Context(), func(store ports.RunStore) error {
				return store.DeleteRun(cmd.Context(), id)
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func (e *env) withStore(ctx context.Context, fn func(ports.RunStore) error) error {
	db, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(sqlstore.NewRunRepository(db))
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(e.cfg); err != nil {
				return errors.Wrap(err, "failed to encode config")
			}
			return enc.Close()
		},
	})
	return cmd
}
