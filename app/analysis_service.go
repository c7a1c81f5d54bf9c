// Package app wires calibration, truth-table construction and minimization
// into complete analyses.
package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"goqca/domain/core"
	"goqca/domain/qca"
	"goqca/internal"
	"goqca/internal/cache"
	"goqca/internal/calibration"
	"goqca/internal/capability"
	"goqca/internal/config"
	"goqca/internal/errors"
	"goqca/internal/minimize"
	"goqca/internal/setmetrics"
	"goqca/internal/truthtable"
	"goqca/ports"
)

// AnalysisRequest describes one analysis over a case set
type AnalysisRequest struct {
	Name       string          `json:"name,omitempty" yaml:"name"`
	Cases      []qca.Case      `json:"-" yaml:"-"`
	Conditions []qca.Condition `json:"conditions" yaml:"conditions"`
	Outcome    qca.Condition   `json:"outcome" yaml:"outcome"`

	// Contradictions is empty when contradictory rows are left as they are
	Contradictions truthtable.ContradictionMethod `json:"contradictions,omitempty" yaml:"contradictions"`
	Options        minimize.Options               `json:"options" yaml:"options"`

	// Store persists the run when the service has a run store
	Store bool `json:"store,omitempty" yaml:"store"`
}

// NewRequest returns a request carrying the configured analysis defaults
func NewRequest(cfg config.AnalysisConfig) AnalysisRequest {
	return AnalysisRequest{
		Contradictions: truthtable.ContradictionMethod(cfg.Contradictions),
		Options: minimize.Options{
			InclusionThreshold: cfg.InclusionThreshold,
			PRIThreshold:       cfg.PRIThreshold,
			IncludeRemainders:  cfg.IncludeRemainders,
		},
	}
}

// AnalysisResult is everything one analysis produces
type AnalysisResult struct {
	RunID       core.RunID           `json:"run_id,omitempty"`
	Calibration *calibration.Output  `json:"calibration"`
	TruthTable  *qca.TruthTable      `json:"truth_table"`
	Solutions   []qca.Solution       `json:"solutions"`
	Essential   []qca.ConditionScore `json:"essential_conditions"`
	Cached      bool                 `json:"cached,omitempty"`
}

// NecessityResult is the necessity fit of one condition literal
type NecessityResult struct {
	Condition string `json:"condition"`
	Literal   string `json:"literal"`
	setmetrics.Fit
}

// BatchResult pairs a batch entry with its outcome
type BatchResult struct {
	Index  int             `json:"index"`
	Result *AnalysisResult `json:"result,omitempty"`
	Err    error           `json:"-"`
}

// AnalysisService runs the calibrate, build, minimize pipeline
type AnalysisService struct {
	calibrator  *calibration.Calibrator
	builder     *truthtable.Builder
	minimizer   *minimize.Minimizer
	cache       ports.SolutionCache
	store       ports.RunStore
	logger      *internal.Logger
	parallelism int
}

// NewAnalysisService creates a service. cache and store may be nil.
func NewAnalysisService(caps capability.Capabilities, solutions ports.SolutionCache, store ports.RunStore, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &AnalysisService{
		calibrator:  calibration.NewCalibrator(caps, logger),
		builder:     truthtable.NewBuilder(caps, logger),
		minimizer:   minimize.NewMinimizer(caps, logger),
		cache:       solutions,
		store:       store,
		logger:      logger.With("component", "analysis"),
		parallelism: 1,
	}
}

// WithParallelism bounds the number of analyses RunBatch runs at once
func (s *AnalysisService) WithParallelism(n int) *AnalysisService {
	if n < 1 {
		n = 1
	}
	s.parallelism = n
	return s
}

// Calibrate calibrates the request's cases without building a table
func (s *AnalysisService) Calibrate(ctx context.Context, req AnalysisRequest) (*calibration.Output, error) {
	return s.calibrator.CalibrateAll(ctx, req.Cases, req.conditions(), req.Outcome)
}

// conditions returns the request's conditions with an unset domain read as fuzzy
func (r AnalysisRequest) conditions() []qca.Condition {
	out := make([]qca.Condition, len(r.Conditions))
	for i, c := range r.Conditions {
		c.Domain = c.Kind()
		out[i] = c
	}
	return out
}

// BuildTable calibrates the cases and builds the truth table, resolving
// contradictions when the request names a method.
func (s *AnalysisService) BuildTable(ctx context.Context, req AnalysisRequest) (*calibration.Output, *qca.TruthTable, error) {
	out, err := s.Calibrate(ctx, req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "calibration failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tt, err := s.builder.Build(out.Cases, req.conditions(), out.Outcome.Condition, req.Options.InclusionThreshold)
	if err != nil {
		return nil, nil, errors.Wrap(err, "truth table construction failed")
	}
	if req.Contradictions != "" {
		tt, err = s.builder.HandleContradictions(tt, req.Contradictions)
		if err != nil {
			return nil, nil, errors.Wrap(err, "contradiction handling failed")
		}
	}
	return out, tt, nil
}

// Minimize minimizes a truth table, consulting the solution cache first.
// The boolean reports a cache hit.
func (s *AnalysisService) Minimize(ctx context.Context, tt *qca.TruthTable, opts minimize.Options) ([]qca.Solution, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key := cache.Key(tt, optionParams(opts))
	if s.cache != nil {
		if solutions, ok := s.cache.Get(key); ok {
			s.logger.Debug("[AnalysisService] solution cache hit for %s", key.Short())
			return solutions, true, nil
		}
	}

	solutions, err := s.minimizer.Minimize(tt, opts)
	if err != nil {
		return nil, false, errors.Wrap(err, "minimization failed")
	}
	if s.cache != nil {
		s.cache.Set(key, solutions)
	}
	return solutions, false, nil
}

// Run executes the full pipeline for one request
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()

	out, tt, err := s.BuildTable(ctx, req)
	if err != nil {
		return nil, err
	}
	solutions, cached, err := s.Minimize(ctx, tt, req.Options)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		Calibration: out,
		TruthTable:  tt,
		Solutions:   solutions,
		Essential:   minimize.EssentialConditions(solutions, tt.Conditions),
		Cached:      cached,
	}

	if req.Store {
		if s.store == nil {
			return nil, errors.ConfigInvalid("run storage requested but no store is configured")
		}
		run := &qca.AnalysisRun{
			ID:                 core.NewRunID(),
			Name:               req.Name,
			Outcome:            tt.Outcome,
			Conditions:         tt.Conditions,
			InclusionThreshold: tt.InclusionThreshold,
			TableHash:          tt.Hash(),
			ParamsHash:         core.ComputeParamsHash(optionParams(req.Options)),
			Quality:            tt.Quality,
			Rows:               tt.Records(),
			Solutions:          qca.SolutionRecords(solutions),
			CreatedAt:          core.Now(),
		}
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, errors.Wrap(err, "failed to store analysis run")
		}
		result.RunID = run.ID
	}

	s.logger.With(
		"conditions", len(tt.Conditions),
		"rows", len(tt.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	).Info("[AnalysisService] analysis %q complete (%d solutions)", req.Name, len(solutions))
	return result, nil
}

// RunBatch runs independent analyses concurrently, at most parallelism at a
// time. Results keep the order of reqs; a failed entry carries its error.
func (s *AnalysisService) RunBatch(ctx context.Context, reqs []AnalysisRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	sem := semaphore.NewWeighted(int64(s.parallelism))

	var wg sync.WaitGroup
	for i, req := range reqs {
		i, req := i, req
		results[i].Index = i
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(reqs); j++ {
				results[j] = BatchResult{Index: j, Err: err}
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			res, err := s.Run(ctx, req)
			results[i].Result = res
			results[i].Err = err
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("[AnalysisService] %d of %d batch analyses failed", failed, len(reqs))
	}
	return results
}

// Necessity calibrates the cases and reports how necessary each condition
// literal is for the outcome: presence and absence for two-level
// conditions, every level for multi-value ones.
func (s *AnalysisService) Necessity(ctx context.Context, req AnalysisRequest) ([]NecessityResult, error) {
	out, err := s.Calibrate(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "calibration failed")
	}
	if len(out.Cases) == 0 {
		return nil, core.NewInsufficientDataError(len(req.Conditions), 0)
	}

	y := make([]float64, len(out.Cases))
	for i, cc := range out.Cases {
		y[i] = cc.Outcome
	}

	infos := qca.Infos(req.conditions())
	var results []NecessityResult
	for p, info := range infos {
		levels := []int{1, 0}
		if info.Levels > 2 {
			levels = make([]int, info.Levels)
			for l := range levels {
				levels[l] = l
			}
		}
		for _, level := range levels {
			term := qca.Implicant{Key: make([]int, len(infos))}
			for q := range term.Key {
				term.Key[q] = qca.DontCare
			}
			term.Key[p] = level

			x := make([]float64, len(out.Cases))
			for i, cc := range out.Cases {
				x[i] = minimize.TermMembership(term, cc, infos)
			}
			results = append(results, NecessityResult{
				Condition: info.Name,
				Literal:   qca.Literal(info, level),
				Fit:       setmetrics.Necessity(x, y),
			})
		}
	}
	return results, nil
}

func optionParams(opts minimize.Options) map[string]interface{} {
	return map[string]interface{}{
		"inclusion_threshold": opts.InclusionThreshold,
		"pri_threshold":       opts.PRIThreshold,
		"include_remainders":  opts.IncludeRemainders,
		"expectations":        opts.Expectations,
	}
}
