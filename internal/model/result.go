package model

import (
	"math"
	"time"
)

// Capacities are the optimal installed sizes of one combination.
type Capacities struct {
	SolarMW    float64
	WindMW     float64
	StorageMW  float64
	StorageMWh float64
}

// CostBreakdown splits TotalCost into its components (currency over the horizon).
type CostBreakdown struct {
	Capital           float64
	Marginal          float64
	StorageThroughput float64
	Curtailment       float64 // marginal cost carried by curtailed energy
	ResaleRevenue     float64
}

// NetCurtailment is the curtailment cost after resale revenue.
func (c CostBreakdown) NetCurtailment() float64 {
	return c.Curtailment - c.ResaleRevenue
}

// MonthlyFulfillment is met demand versus target for one calendar month,
// aggregated across every year in the horizon.
type MonthlyFulfillment struct {
	Month          time.Month
	DemandMWh      float64
	MetMWh         float64
	FulfillmentPct float64
	TargetPct      float64
	TargetMet      bool
}

// Traces are the per-snapshot dispatch records kept for audit and plotting.
type Traces struct {
	Timestamps       []time.Time
	Demand           []float64
	SolarAllocation  []float64
	WindAllocation   []float64
	StorageCharge    []float64
	StorageDischarge []float64
	SOC              []float64
	Curtailment      []float64
	UnmetDemand      []float64
}

// OptimizationResult is the immutable outcome of one successfully solved combination.
type OptimizationResult struct {
	Key        CombinationID
	Capacities Capacities

	PerUnitCost float64 // currency/MWh of demand met, +Inf when nothing was met
	TotalCost   float64
	LandedCost  float64 // PerUnitCost + FixedCostAdder
	Costs       CostBreakdown

	TotalDemandMWh     float64
	DemandMetMWh       float64
	UnmetDemandMWh     float64
	CurtailmentMWh     float64
	AvailableGenMWh    float64
	DemandOffsetPct    float64
	CurtailmentPct     float64
	PeakFulfillmentPct float64
	Monthly            []MonthlyFulfillment
	SolverObjective    float64

	Traces Traces
}

// Comparable reports whether PerUnitCost is finite.
func (r OptimizationResult) Comparable() bool {
	return !math.IsInf(r.PerUnitCost, 0) && !math.IsNaN(r.PerUnitCost)
}
