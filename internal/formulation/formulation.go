// Package formulation turns a network into a solvable program: it adds the
// curtailment, reliability, storage and transmission constraints and
// assembles the objective.
package formulation

import (
	"fmt"
	"math"
	"time"

	"hybrid-sizing/internal/lp"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/network"

	"go.uber.org/zap"
)

// Constraint block names, in the order they are applied.
const (
	BlockCurtailment       = "curtailment_definition"
	BlockDemandOffset      = "demand_offset"
	BlockPeakHours         = "peak_hours"
	BlockMonthly           = "monthly_availability"
	BlockStorageFloor      = "storage_floor"
	BlockTransmission      = "transmission_capacity"
	BlockStorageChargeReal = "storage_charge_from_generation"
	BlockCurtailmentCost   = "curtailment_cost"
	BlockAnnualCurtailment = "annual_curtailment_limit"
)

// Skip records a block that was not added and why.
type Skip struct {
	Block  string
	Reason string
}

// Report describes what Apply added. Warnings carry ErrConfiguration for
// malformed optional parameters that were ignored.
type Report struct {
	Applied  []string
	Skipped  []Skip
	Warnings []error
}

func (r *Report) applied(block string) { r.Applied = append(r.Applied, block) }

func (r *Report) skip(block, reason string) {
	r.Skipped = append(r.Skipped, Skip{Block: block, Reason: reason})
}

// Has reports whether block was applied.
func (r Report) Has(block string) bool {
	for _, b := range r.Applied {
		if b == block {
			return true
		}
	}
	return false
}

// Apply adds every constraint block and the objective to net.Problem.
// Each block is guarded by the presence of the technologies it references.
func Apply(net *network.Network, scenario model.ScenarioParameters, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if net == nil || net.Problem == nil {
		return Report{}, fmt.Errorf("network is nil")
	}
	scenario = scenario.WithDefaults()
	b := &builder{net: net, p: net.Problem, sc: scenario, log: logger, n: net.Snapshots()}

	b.curtailmentDefinition()
	b.demandOffset()
	b.peakHours()
	b.monthlyAvailability()
	b.storageFloor()
	b.transmissionCap()
	b.storageChargeFromGeneration()
	b.curtailmentCost()
	b.annualCurtailmentLimit()
	b.objective()

	for _, w := range b.report.Warnings {
		logger.Warn("ignoring malformed scenario parameter", zap.Error(w))
	}
	logger.Debug("formulation complete",
		zap.Strings("applied", b.report.Applied),
		zap.Int("skipped", len(b.report.Skipped)),
		zap.Int("variables", b.p.NumVars()),
		zap.Int("rows", b.p.NumRows()),
	)
	return b.report, nil
}

type builder struct {
	net    *network.Network
	p      *lp.Problem
	sc     model.ScenarioParameters
	log    *zap.Logger
	n      int
	report Report

	peakSnapshots []int
}

func (b *builder) curtailmentDefinition() {
	if len(b.net.Generators) == 0 {
		b.report.skip(BlockCurtailment, "no generators")
		return
	}
	for _, g := range b.net.Generators {
		g.Curtailment = b.p.AddVars(string(g.Tech)+"_curtailment", b.n, math.Inf(1))
		for t := 0; t < b.n; t++ {
			// cap·P[t] − p[t] − curt[t] = 0
			b.p.AddConstraint(fmt.Sprintf("%s_curtailment_def[%d]", g.Tech, t), lp.EQ, 0,
				lp.T(g.Capacity, g.Profile[t]),
				lp.T(g.Dispatch[t], -1),
				lp.T(g.Curtailment[t], -1),
			)
		}
	}
	b.report.applied(BlockCurtailment)
}

func (b *builder) unmetBound(name string, idx []int, target float64) {
	terms := make([]lp.Term, 0, len(idx))
	demand := 0.0
	for _, t := range idx {
		terms = append(terms, lp.T(b.net.Unmet.Dispatch[t], 1))
		demand += b.net.Demand.Values[t]
	}
	b.p.AddConstraint(name, lp.LE, (1-target)*demand, terms...)
}

func (b *builder) demandOffset() {
	all := make([]int, b.n)
	for t := range all {
		all[t] = t
	}
	b.unmetBound(BlockDemandOffset, all, b.sc.OffsetTarget)
	b.report.applied(BlockDemandOffset)
}

func (b *builder) peakHours() {
	if !b.sc.HasPeakConstraint() {
		b.report.skip(BlockPeakHours, "no peak target configured")
		return
	}
	target, err := model.NormalizeFraction(b.sc.PeakTarget)
	if err != nil {
		b.report.Warnings = append(b.report.Warnings, fmt.Errorf("peak target: %w", err))
		b.report.skip(BlockPeakHours, err.Error())
		return
	}
	for t, ts := range b.net.Demand.Timestamps {
		if b.sc.IsPeakHour(ts.Hour()) {
			b.peakSnapshots = append(b.peakSnapshots, t)
		}
	}
	if len(b.peakSnapshots) == 0 {
		b.report.skip(BlockPeakHours, "no snapshots fall in peak hours")
		return
	}
	b.unmetBound(BlockPeakHours, b.peakSnapshots, target)
	b.report.applied(BlockPeakHours)
}

func (b *builder) monthlyAvailability() {
	if len(b.sc.MonthlyTargets) == 0 {
		b.report.skip(BlockMonthly, "no monthly targets configured")
		return
	}
	targets, err := b.sc.MonthlyTargetsByMonth()
	if err != nil {
		b.report.Warnings = append(b.report.Warnings, fmt.Errorf("monthly targets: %w", err))
		b.report.skip(BlockMonthly, err.Error())
		return
	}
	byMonth := make(map[time.Month][]int)
	for t, ts := range b.net.Demand.Timestamps {
		byMonth[ts.Month()] = append(byMonth[ts.Month()], t)
	}
	added := 0
	for m := time.January; m <= time.December; m++ {
		idx, ok := byMonth[m]
		if !ok || targets[m-1] <= 0 {
			continue
		}
		b.unmetBound(fmt.Sprintf("%s[%s]", BlockMonthly, m), idx, targets[m-1])
		added++
	}
	if added == 0 {
		b.report.skip(BlockMonthly, "no month with data has a positive target")
		return
	}
	b.report.applied(BlockMonthly)
}

func (b *builder) storageFloor() {
	s := b.net.Storage
	if s == nil {
		b.report.skip(BlockStorageFloor, "no storage")
		return
	}
	floor := 1 - s.DepthOfDischarge
	for t := 1; t < b.n; t++ {
		// soc[t] ≥ (1−DoD)·capacity
		b.p.AddConstraint(fmt.Sprintf("%s[%d]", BlockStorageFloor, t), lp.GE, 0,
			lp.T(s.SOC[t], 1), lp.T(s.Capacity, -floor))
	}
	b.report.applied(BlockStorageFloor)
}

// injectionTerms is Σ p_gen[t] plus net storage discharge.
func (b *builder) injectionTerms(t int) []lp.Term {
	terms := make([]lp.Term, 0, len(b.net.Generators)+2)
	for _, g := range b.net.Generators {
		terms = append(terms, lp.T(g.Dispatch[t], 1))
	}
	if s := b.net.Storage; s != nil {
		terms = append(terms, lp.T(s.Dispatch[t], 1), lp.T(s.Store[t], -1))
	}
	return terms
}

func (b *builder) transmissionCap() {
	limit := b.sc.TransmissionCapacityMW
	if limit <= 0 {
		b.report.skip(BlockTransmission, "no transmission cap configured")
		return
	}
	if len(b.net.Generators) == 0 && b.net.Storage == nil {
		b.report.skip(BlockTransmission, "no dispatchable assets")
		return
	}
	for t := 0; t < b.n; t++ {
		b.p.AddConstraint(fmt.Sprintf("%s[%d]", BlockTransmission, t), lp.LE, limit, b.injectionTerms(t)...)
	}
	b.report.applied(BlockTransmission)
}

func (b *builder) storageChargeFromGeneration() {
	s := b.net.Storage
	if s == nil {
		b.report.skip(BlockStorageChargeReal, "no storage")
		return
	}
	for t := 0; t < b.n; t++ {
		// store[t] ≤ Σ p_gen[t]; with no generator this pins store[t] to zero.
		terms := []lp.Term{lp.T(s.Store[t], 1)}
		for _, g := range b.net.Generators {
			terms = append(terms, lp.T(g.Dispatch[t], -1))
		}
		b.p.AddConstraint(fmt.Sprintf("%s[%d]", BlockStorageChargeReal, t), lp.LE, 0, terms...)
	}
	b.report.applied(BlockStorageChargeReal)
}

func (b *builder) curtailmentCost() {
	if len(b.net.Generators) == 0 {
		b.report.skip(BlockCurtailmentCost, "no generators")
		return
	}
	resale := b.sc.CurtailmentResaleFraction * b.sc.CurtailmentResalePrice
	for _, g := range b.net.Generators {
		// Σ_t Δh·(mc − f·price)·curt[t] enters the objective directly.
		g.CurtailmentCost = b.net.StepHours * (g.MarginalCost - resale)
	}
	b.report.applied(BlockCurtailmentCost)
}

func (b *builder) annualCurtailmentLimit() {
	if b.sc.CurtailmentPolicy != model.PolicyAggregated {
		b.report.skip(BlockAnnualCurtailment, "curtailment is reported, not capped, under the sizing policy")
		return
	}
	if len(b.net.Generators) == 0 {
		b.report.skip(BlockAnnualCurtailment, "no generators")
		return
	}
	var terms []lp.Term
	for _, g := range b.net.Generators {
		available := 0.0
		for t := 0; t < b.n; t++ {
			terms = append(terms, lp.T(g.Curtailment[t], 1))
			available += g.Profile[t]
		}
		terms = append(terms, lp.T(g.Capacity, -b.sc.AnnualCurtailmentLimit*available))
	}
	b.p.AddConstraint(BlockAnnualCurtailment, lp.LE, 0, terms...)
	b.report.applied(BlockAnnualCurtailment)
}

func (b *builder) objective() {
	for _, g := range b.net.Generators {
		if g.CurtailmentCost == 0 {
			continue
		}
		for _, c := range g.Curtailment {
			b.p.AddObjective(c, g.CurtailmentCost)
		}
	}
	if b.report.Has(BlockPeakHours) {
		for _, t := range b.peakSnapshots {
			b.p.AddObjective(b.net.Unmet.Dispatch[t], b.sc.PeakPenalty*b.net.StepHours)
		}
	}
	if c := b.net.Unmet.MarginalCost; c != 0 {
		for _, u := range b.net.Unmet.Dispatch {
			b.p.AddObjective(u, c*b.net.StepHours)
		}
	}
	b.tieBreak()
}

// tieBreakWeight is the tie-break cost relative to the largest per-snapshot
// energy price in the objective.
const tieBreakWeight = 1e-5

// tieBreak prices built capacity and storage throughput at a small fraction
// of the energy prices, so that among equally cheap plans the smallest plant
// without idle store/dispatch cycling is returned.
func (b *builder) tieBreak() {
	dt := b.net.StepHours
	scale := math.Max(1, math.Abs(b.net.Unmet.MarginalCost*dt))
	for _, g := range b.net.Generators {
		scale = math.Max(scale, math.Abs(g.CurtailmentCost))
	}
	eps := tieBreakWeight * scale
	for _, g := range b.net.Generators {
		b.p.AddObjective(g.Capacity, eps)
	}
	if s := b.net.Storage; s != nil {
		b.p.AddObjective(s.Capacity, eps)
		for t := 0; t < b.n; t++ {
			b.p.AddObjective(s.Store[t], eps*dt)
			b.p.AddObjective(s.Dispatch[t], eps*dt)
		}
	}
}
