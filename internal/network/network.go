// Package network builds the decision-variable topology of one combination:
// a single bus with its load, the candidate generators and storage unit, and
// the unmet-demand slack generator.
package network

import (
	"fmt"
	"math"

	"hybrid-sizing/internal/lp"
	"hybrid-sizing/internal/model"
)

const (
	BusName   = "Main_Bus"
	LoadName  = "Demand"
	SlackName = "Unmet_Demand"
)

// Generator is a capacity-extendable variable generator bound to an availability profile.
type Generator struct {
	Tech         model.Tech
	Name         string
	Profile      []float64
	MaxCapacity  float64
	MarginalCost float64
	CapitalCost  float64

	Capacity lp.Var
	Dispatch []lp.Var
	// Curtailment is filled in by the constraint builder.
	Curtailment []lp.Var
	// CurtailmentCost is the objective weight of one curtailment variable,
	// Δh·(marginal cost − resale price). Set by the constraint builder.
	CurtailmentCost float64
}

// StorageUnit is a capacity-extendable storage unit.
type StorageUnit struct {
	Name               string
	StoreEfficiency    float64
	DispatchEfficiency float64
	DepthOfDischarge   float64
	MaxHours           float64
	EnergyLimited      bool
	MarginalCost       float64
	CapitalCost        float64

	Capacity lp.Var
	Store    []lp.Var
	Dispatch []lp.Var
	SOC      []lp.Var
}

// Slack is the always-available unmet-demand generator. Its dispatch is the shortfall.
type Slack struct {
	Name         string
	CapacityMW   float64
	MarginalCost float64
	Dispatch     []lp.Var
}

// Network is the optimisation instance for one combination. It is built fresh per
// combination and discarded after results are extracted.
type Network struct {
	Problem   *lp.Problem
	Bus       string
	Demand    model.TimeSeries
	StepHours float64

	// Generators lists the present variable generators in a fixed order (solar, wind).
	Generators []*Generator
	Storage    *StorageUnit
	Unmet      Slack
}

// Snapshots is the number of timesteps in the horizon.
func (n *Network) Snapshots() int { return n.Demand.Len() }

func (n *Network) HasStorage() bool { return n.Storage != nil }

// Generator returns the generator of the given technology, or nil when absent.
func (n *Network) Generator(tech model.Tech) *Generator {
	for _, g := range n.Generators {
		if g.Tech == tech {
			return g
		}
	}
	return nil
}

// Build creates the bus, load, generators, storage and slack for one combination.
// Profiles must already be aligned to demand.
func Build(demand model.TimeSeries, solar, wind, storage *model.CandidateAsset, scenario model.ScenarioParameters) (*Network, error) {
	n := demand.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty demand series", model.ErrDataAlignment)
	}
	scenario = scenario.WithDefaults()

	net := &Network{
		Problem:   lp.NewProblem(),
		Bus:       BusName,
		Demand:    demand,
		StepHours: demand.StepHours(),
	}
	p := net.Problem

	for _, a := range []*model.CandidateAsset{solar, wind} {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s asset %q: %w", a.Tech, a.Name, err)
		}
		if len(a.Profile) != n {
			return nil, fmt.Errorf("%w: %s profile has %d values for %d snapshots", model.ErrDataAlignment, a.Name, len(a.Profile), n)
		}
		prefix := string(a.Tech)
		g := &Generator{
			Tech:         a.Tech,
			Name:         a.Name,
			Profile:      a.Profile,
			MaxCapacity:  a.MaxCapacityMW,
			MarginalCost: a.MarginalCostPerMWh,
			CapitalCost:  a.CapitalCostPerMW,
			Capacity:     p.AddVar(prefix+"_capacity", a.MaxCapacityMW),
			Dispatch:     p.AddVars(prefix+"_dispatch", n, math.Inf(1)),
		}
		net.Generators = append(net.Generators, g)
	}

	if storage != nil {
		if err := storage.Validate(); err != nil {
			return nil, fmt.Errorf("storage asset %q: %w", storage.Name, err)
		}
		net.Storage = buildStorage(p, storage, scenario, n, net.StepHours)
	}

	net.Unmet = Slack{
		Name:         SlackName,
		CapacityMW:   scenario.UnmetDemandCapacityMW,
		MarginalCost: scenario.UnmetDemandCost,
	}
	slackUpper := math.Inf(1)
	// Unmet demand never exceeds demand, so only a cap below the peak can bind.
	if scenario.UnmetDemandCapacityMW < demand.Max() {
		slackUpper = scenario.UnmetDemandCapacityMW
	}
	net.Unmet.Dispatch = p.AddVars("unmet_demand", n, slackUpper)

	for t := 0; t < n; t++ {
		terms := []lp.Term{lp.T(net.Unmet.Dispatch[t], 1)}
		for _, g := range net.Generators {
			terms = append(terms, lp.T(g.Dispatch[t], 1))
		}
		if s := net.Storage; s != nil {
			terms = append(terms, lp.T(s.Dispatch[t], 1), lp.T(s.Store[t], -1))
		}
		p.AddConstraint(fmt.Sprintf("balance[%d]", t), lp.EQ, demand.Values[t], terms...)
	}
	return net, nil
}

func buildStorage(p *lp.Problem, a *model.CandidateAsset, scenario model.ScenarioParameters, n int, dt float64) *StorageUnit {
	upper := math.Inf(1)
	if a.MaxCapacityMW > 0 {
		upper = a.MaxCapacityMW
	}
	dod := a.DepthOfDischarge
	if dod == 0 {
		dod = scenario.DepthOfDischarge
	}
	s := &StorageUnit{
		Name:               a.Name,
		StoreEfficiency:    a.StoreEfficiency,
		DispatchEfficiency: a.DispatchEfficiency,
		DepthOfDischarge:   dod,
		MaxHours:           a.MaxHours,
		EnergyLimited:      a.MaxHours > 0 && scenario.StorageEnergyLimit == model.EnergyLimitHard,
		MarginalCost:       a.MarginalCostPerMWh,
		CapitalCost:        a.CapitalCostPerMW,
		Capacity:           p.AddVar("storage_capacity", upper),
		Store:              p.AddVars("storage_store", n, math.Inf(1)),
		Dispatch:           p.AddVars("storage_dispatch", n, math.Inf(1)),
		SOC:                p.AddVars("storage_soc", n, math.Inf(1)),
	}

	for t := 0; t < n; t++ {
		p.AddConstraint(fmt.Sprintf("storage_store_limit[%d]", t), lp.LE, 0,
			lp.T(s.Store[t], 1), lp.T(s.Capacity, -1))
		p.AddConstraint(fmt.Sprintf("storage_dispatch_limit[%d]", t), lp.LE, 0,
			lp.T(s.Dispatch[t], 1), lp.T(s.Capacity, -1))

		// soc[t] = soc[t-1] + ηs·store·Δh − dispatch·Δh/ηd, starting empty.
		terms := []lp.Term{
			lp.T(s.SOC[t], 1),
			lp.T(s.Store[t], -s.StoreEfficiency*dt),
			lp.T(s.Dispatch[t], dt/s.DispatchEfficiency),
		}
		if t > 0 {
			terms = append(terms, lp.T(s.SOC[t-1], -1))
		}
		p.AddConstraint(fmt.Sprintf("soc_dynamics[%d]", t), lp.EQ, 0, terms...)

		if s.EnergyLimited {
			p.AddConstraint(fmt.Sprintf("soc_energy_limit[%d]", t), lp.LE, 0,
				lp.T(s.SOC[t], 1), lp.T(s.Capacity, -s.MaxHours))
		}
	}
	return s
}
