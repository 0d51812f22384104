package analysis

import (
	"math"
	"time"

	"hybrid-sizing/internal/model"
)

// GeneratorDispatch is the solved schedule of one variable generator.
type GeneratorDispatch struct {
	Name             string
	CapacityMW       float64
	Profile          []float64 // per-unit availability
	Allocation       []float64 // MW delivered to the bus
	MarginalCost     float64   // currency/MWh
	CapitalCostPerMW float64   // currency/MW-year
}

// StorageDispatch is the solved schedule of the storage unit.
type StorageDispatch struct {
	Name             string
	CapacityMW       float64
	MaxHours         float64
	Charge           []float64
	Discharge        []float64
	SOC              []float64 // MWh
	MarginalCost     float64   // currency/MWh of throughput
	CapitalCostPerMW float64
}

// Dispatch is everything the analyzer needs from a solved combination.
// Absent technologies are nil.
type Dispatch struct {
	Demand  model.TimeSeries
	Solar   *GeneratorDispatch
	Wind    *GeneratorDispatch
	Storage *StorageDispatch
	Unmet   []float64
}

func at(xs []float64, t int) float64 {
	if t < len(xs) {
		return xs[t]
	}
	return 0
}

func (g *GeneratorDispatch) available(t int) float64 {
	if g == nil {
		return 0
	}
	return g.CapacityMW * at(g.Profile, t)
}

func (g *GeneratorDispatch) allocation(t int) float64 {
	if g == nil {
		return 0
	}
	return at(g.Allocation, t)
}

// Analyze derives costs and reliability metrics from a solved dispatch.
// Every technology access is guarded, so partial combinations yield zero contributions.
func Analyze(d Dispatch, scenario model.ScenarioParameters) model.OptimizationResult {
	n := d.Demand.Len()
	dt := d.Demand.StepHours()
	gens := []*GeneratorDispatch{d.Solar, d.Wind}
	resale := scenario.CurtailmentResaleFraction * scenario.CurtailmentResalePrice

	r := model.OptimizationResult{}
	r.Traces = model.Traces{
		Timestamps:  append([]time.Time(nil), d.Demand.Timestamps...),
		Demand:      d.Demand.ValuesCopy(),
		Curtailment: make([]float64, n),
		UnmetDemand: make([]float64, n),
	}
	if d.Solar != nil {
		r.Capacities.SolarMW = d.Solar.CapacityMW
		r.Traces.SolarAllocation = append([]float64(nil), d.Solar.Allocation...)
	}
	if d.Wind != nil {
		r.Capacities.WindMW = d.Wind.CapacityMW
		r.Traces.WindAllocation = append([]float64(nil), d.Wind.Allocation...)
	}
	if s := d.Storage; s != nil {
		r.Capacities.StorageMW = s.CapacityMW
		r.Capacities.StorageMWh = storageEnergy(s)
		r.Traces.StorageCharge = append([]float64(nil), s.Charge...)
		r.Traces.StorageDischarge = append([]float64(nil), s.Discharge...)
		r.Traces.SOC = append([]float64(nil), s.SOC...)
	}

	met := make([]float64, n)
	sellable := 0.0
	for t := 0; t < n; t++ {
		demand := d.Demand.Values[t]
		allocated := 0.0
		for _, g := range gens {
			if g == nil {
				continue
			}
			alloc := g.allocation(t)
			avail := g.available(t)
			allocated += alloc
			curt := math.Max(0, avail-alloc)
			r.Traces.Curtailment[t] += curt
			r.AvailableGenMWh += avail * dt
			r.Costs.Marginal += g.MarginalCost * alloc * dt
			r.Costs.Curtailment += g.MarginalCost * curt * dt
		}

		injected := allocated
		if s := d.Storage; s != nil {
			charge, discharge := at(s.Charge, t), at(s.Discharge, t)
			injected += discharge - charge
			r.Costs.StorageThroughput += s.MarginalCost * (charge + discharge) * dt
		}
		transmitted := injected
		if limit := scenario.TransmissionCapacityMW; limit > 0 && injected > limit {
			r.Traces.Curtailment[t] += injected - limit
			transmitted = limit
		}
		transmitted = math.Max(0, transmitted)
		sellable += math.Max(0, transmitted-demand) * dt

		met[t] = math.Min(demand, transmitted)
		r.Traces.UnmetDemand[t] = at(d.Unmet, t)
		r.TotalDemandMWh += demand * dt
		r.DemandMetMWh += met[t] * dt
		r.UnmetDemandMWh += r.Traces.UnmetDemand[t] * dt
		r.CurtailmentMWh += r.Traces.Curtailment[t] * dt
	}

	r.Costs.ResaleRevenue = resale * (r.CurtailmentMWh + sellable)
	r.Costs.Capital = capitalCost(d, d.Demand.HorizonHours())
	r.TotalCost = r.Costs.Capital + r.Costs.Marginal + r.Costs.StorageThroughput + r.Costs.NetCurtailment()

	r.PerUnitCost = perUnitCost(r.TotalCost, r.DemandMetMWh, r.TotalDemandMWh)
	r.LandedCost = r.PerUnitCost + scenario.FixedCostAdder
	r.DemandOffsetPct = percent(r.TotalDemandMWh-r.UnmetDemandMWh, r.TotalDemandMWh, 100)
	r.CurtailmentPct = percent(r.CurtailmentMWh, r.AvailableGenMWh, 0)
	r.PeakFulfillmentPct = peakFulfillment(d.Demand, met, scenario)
	if len(scenario.MonthlyTargets) > 0 {
		r.Monthly = MonthlyBreakdown(d.Demand, met, scenario)
	}
	return r
}

// storageEnergy is the energy rating: power × MaxHours, or the peak state of charge
// when no duration is configured.
func storageEnergy(s *StorageDispatch) float64 {
	if s.MaxHours > 0 {
		return s.CapacityMW * s.MaxHours
	}
	peak := 0.0
	for _, v := range s.SOC {
		peak = math.Max(peak, v)
	}
	return peak
}

// capitalCost annualises per-MW capital cost over the horizon.
func capitalCost(d Dispatch, horizonHours float64) float64 {
	share := horizonHours / 8760
	total := 0.0
	for _, g := range []*GeneratorDispatch{d.Solar, d.Wind} {
		if g != nil {
			total += g.CapitalCostPerMW * g.CapacityMW * share
		}
	}
	if s := d.Storage; s != nil {
		total += s.CapitalCostPerMW * s.CapacityMW * share
	}
	return total
}

func perUnitCost(total, met, demand float64) float64 {
	if demand <= 0 {
		return 0
	}
	if met <= 0 {
		return math.Inf(1)
	}
	return total / met
}

func percent(num, den, fallback float64) float64 {
	if den <= 0 {
		return fallback
	}
	return 100 * num / den
}

func peakFulfillment(demand model.TimeSeries, met []float64, scenario model.ScenarioParameters) float64 {
	if len(scenario.PeakHours) == 0 {
		return 0
	}
	var d, m float64
	for t, ts := range demand.Timestamps {
		if scenario.IsPeakHour(ts.Hour()) {
			d += demand.Values[t]
			m += met[t]
		}
	}
	return percent(m, d, 100)
}

// MonthlyBreakdown reports met versus target per calendar month with data, pooling
// repeated years. Malformed targets yield no breakdown.
func MonthlyBreakdown(demand model.TimeSeries, met []float64, scenario model.ScenarioParameters) []model.MonthlyFulfillment {
	targets, err := scenario.MonthlyTargetsByMonth()
	if err != nil {
		return nil
	}
	dt := demand.StepHours()
	var byMonth [12]model.MonthlyFulfillment
	var seen [12]bool
	for t, ts := range demand.Timestamps {
		m := ts.Month() - 1
		seen[m] = true
		byMonth[m].DemandMWh += demand.Values[t] * dt
		byMonth[m].MetMWh += at(met, t) * dt
	}
	out := make([]model.MonthlyFulfillment, 0, 12)
	for m := range byMonth {
		if !seen[m] {
			continue
		}
		row := byMonth[m]
		row.Month = time.Month(m + 1)
		row.FulfillmentPct = percent(row.MetMWh, row.DemandMWh, 100)
		row.TargetPct = 100 * targets[m]
		row.TargetMet = row.FulfillmentPct+1e-6 >= row.TargetPct
		out = append(out, row)
	}
	return out
}
