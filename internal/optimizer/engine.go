package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hybrid-sizing/internal/analysis"
	"hybrid-sizing/internal/formulation"
	"hybrid-sizing/internal/lp"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/network"
	"hybrid-sizing/internal/series"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Failure is a combination that was skipped and why.
type Failure struct {
	Key model.CombinationID
	Err error
}

// Ranking is the outcome of one Evaluate call.
type Ranking struct {
	Results   []model.OptimizationResult // ascending per-unit cost
	Attempted int
	Failures  []Failure
}

// Engine evaluates combinations. The zero value is not usable; call New.
type Engine struct {
	Solver lp.Solver
	Logger *zap.Logger

	// Workers bounds how many combinations are solved at once.
	Workers int
	// MaxCombinations caps the number evaluated per request (0 = all).
	MaxCombinations int
	// CombinationTimeout is the wall-clock budget of one solve (0 = none).
	CombinationTimeout time.Duration
	// Halve aggregates every series to two-hour snapshots before building.
	Halve bool
}

func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Solver: lp.NewInteriorPoint(), Logger: logger, Workers: 1}
}

// Evaluate runs every enumerated combination and ranks the successful ones.
// A run where nothing succeeded returns the Ranking together with ErrDemandCannotBeMet.
func (e *Engine) Evaluate(ctx context.Context, owners []model.OwnerAssets, demand model.TimeSeries, scenario model.ScenarioParameters) (*Ranking, error) {
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	combos := Enumerate(owners)
	if len(combos) == 0 {
		return nil, model.ErrNoCombinations
	}
	if e.MaxCombinations > 0 && len(combos) > e.MaxCombinations {
		e.logger().Warn("combination cap reached",
			zap.Int("enumerated", len(combos)),
			zap.Int("evaluated", e.MaxCombinations),
		)
		combos = combos[:e.MaxCombinations]
	}

	results := make([]*model.OptimizationResult, len(combos))
	errs := make([]error, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range combos {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = e.Run(gctx, combos[i], demand, scenario)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranking := &Ranking{Attempted: len(combos)}
	ok := make([]model.OptimizationResult, 0, len(combos))
	for i, c := range combos {
		if errs[i] != nil {
			ranking.Failures = append(ranking.Failures, Failure{Key: c.ID, Err: errs[i]})
			continue
		}
		ok = append(ok, *results[i])
	}
	ranking.Results = analysis.RankByPerUnitCost(ok)

	e.logger().Info("evaluation complete",
		zap.Int("attempted", ranking.Attempted),
		zap.Int("succeeded", len(ranking.Results)),
		zap.Int("failed", len(ranking.Failures)),
	)
	if len(ranking.Results) == 0 {
		return ranking, model.ErrDemandCannotBeMet
	}
	return ranking, nil
}

// Run builds, solves and analyzes a single combination.
func (e *Engine) Run(ctx context.Context, c model.Combination, demand model.TimeSeries, scenario model.ScenarioParameters) (*model.OptimizationResult, error) {
	key := c.ID.String()
	log := e.logger().With(zap.String("combination", key))
	started := time.Now()

	res, err := e.run(ctx, c, demand, scenario, log)
	if err != nil {
		level := log.Warn
		if errors.Is(err, model.ErrInfeasible) {
			level = log.Info
		}
		level("combination skipped", zap.Error(err))
		return nil, err
	}
	log.Debug("combination solved",
		zap.Float64("per_unit_cost", res.PerUnitCost),
		zap.Float64("demand_offset_pct", res.DemandOffsetPct),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, c model.Combination, demand model.TimeSeries, scenario model.ScenarioParameters, log *zap.Logger) (*model.OptimizationResult, error) {
	prepared, err := series.Prepare(demand, e.Halve, c.Solar, c.Wind, c.Storage)
	if err != nil {
		return nil, err
	}
	net, err := network.Build(prepared.Demand, prepared.Solar, prepared.Wind, prepared.Storage, scenario)
	if err != nil {
		return nil, err
	}
	if _, err := formulation.Apply(net, scenario, log); err != nil {
		return nil, err
	}

	if e.CombinationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.CombinationTimeout)
		defer cancel()
	}
	solver := e.Solver
	if solver == nil {
		solver = lp.NewInteriorPoint()
	}
	sol, err := solver.Solve(ctx, net.Problem)
	if err != nil {
		return nil, err
	}

	res := extract(net, sol, scenario)
	res.Key = c.ID
	return &res, nil
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
