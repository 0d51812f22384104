package optimizer

import (
	"math"

	"hybrid-sizing/internal/analysis"
	"hybrid-sizing/internal/lp"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/network"
)

// solverNoise is the magnitude below which primal values are reported as zero.
const solverNoise = 1e-6

func clean(xs []float64) []float64 {
	for i, x := range xs {
		if math.Abs(x) < solverNoise {
			xs[i] = 0
		}
	}
	return xs
}

func value(sol *lp.Solution, v lp.Var) float64 {
	x := sol.Value(v)
	if math.Abs(x) < solverNoise {
		return 0
	}
	return x
}

// extract maps the primal solution back onto capacities and traces and runs the analyzer.
func extract(net *network.Network, sol *lp.Solution, scenario model.ScenarioParameters) model.OptimizationResult {
	d := analysis.Dispatch{
		Demand: net.Demand,
		Unmet:  clean(sol.Values(net.Unmet.Dispatch)),
	}
	for _, g := range net.Generators {
		gd := &analysis.GeneratorDispatch{
			Name:             g.Name,
			CapacityMW:       value(sol, g.Capacity),
			Profile:          g.Profile,
			Allocation:       clean(sol.Values(g.Dispatch)),
			MarginalCost:     g.MarginalCost,
			CapitalCostPerMW: g.CapitalCost,
		}
		switch g.Tech {
		case model.TechSolar:
			d.Solar = gd
		case model.TechWind:
			d.Wind = gd
		}
	}
	if s := net.Storage; s != nil {
		d.Storage = &analysis.StorageDispatch{
			Name:             s.Name,
			CapacityMW:       value(sol, s.Capacity),
			MaxHours:         s.MaxHours,
			Charge:           clean(sol.Values(s.Store)),
			Discharge:        clean(sol.Values(s.Dispatch)),
			SOC:              clean(sol.Values(s.SOC)),
			MarginalCost:     s.MarginalCost,
			CapitalCostPerMW: s.CapitalCost,
		}
	}

	res := analysis.Analyze(d, scenario)
	res.SolverObjective = sol.Objective
	return res
}
