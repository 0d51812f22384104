package models

import (
	"math"
	"time"
)

// OptimizeResponse represents the response from an optimization run.
type OptimizeResponse struct {
	ID        string          `json:"id,omitempty"`
	Status    string          `json:"status"`
	Attempted int             `json:"attempted"`
	Results   []RankedResult  `json:"results"`
	Failures  []FailureDetail `json:"failures,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// RankedResult is one successfully solved combination.
type RankedResult struct {
	Rank        int             `json:"rank"`
	Combination CombinationInfo `json:"combination"`
	Capacities  Capacities      `json:"capacities"`

	// PerUnitCost and LandedCost are null when no demand was met.
	PerUnitCost *float64      `json:"per_unit_cost"`
	LandedCost  *float64      `json:"landed_cost"`
	TotalCost   float64       `json:"total_cost"`
	Costs       CostBreakdown `json:"costs"`

	TotalDemandMWh     float64 `json:"total_demand_mwh"`
	DemandMetMWh       float64 `json:"demand_met_mwh"`
	UnmetDemandMWh     float64 `json:"unmet_demand_mwh"`
	CurtailmentMWh     float64 `json:"curtailment_mwh"`
	DemandOffsetPct    float64 `json:"demand_offset_pct"`
	CurtailmentPct     float64 `json:"curtailment_pct"`
	PeakFulfillmentPct float64 `json:"peak_fulfillment_pct"`

	Monthly []MonthlyRow `json:"monthly,omitempty"`
	Traces  []TraceRow   `json:"traces,omitempty"`
}

type Capacities struct {
	SolarMW    float64 `json:"solar_mw"`
	WindMW     float64 `json:"wind_mw"`
	StorageMW  float64 `json:"storage_mw"`
	StorageMWh float64 `json:"storage_mwh"`
}

type CostBreakdown struct {
	Capital           float64 `json:"capital"`
	Marginal          float64 `json:"marginal"`
	StorageThroughput float64 `json:"storage_throughput"`
	Curtailment       float64 `json:"curtailment"`
	ResaleRevenue     float64 `json:"resale_revenue"`
}

type MonthlyRow struct {
	Month          string  `json:"month"`
	DemandMWh      float64 `json:"demand_mwh"`
	MetMWh         float64 `json:"met_mwh"`
	FulfillmentPct float64 `json:"fulfillment_pct"`
	TargetPct      float64 `json:"target_pct"`
	TargetMet      bool    `json:"target_met"`
}

// TraceRow represents one snapshot of a solved dispatch.
type TraceRow struct {
	Index              int       `json:"index"`
	Timestamp          time.Time `json:"timestamp"`
	DemandMW           float64   `json:"demand_mw"`
	SolarMW            float64   `json:"solar_mw"`
	WindMW             float64   `json:"wind_mw"`
	Action             string    `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	StorageChargeMW    float64   `json:"storage_charge_mw"`
	StorageDischargeMW float64   `json:"storage_discharge_mw"`
	SOCMWh             float64   `json:"soc_mwh"`
	CurtailmentMW      float64   `json:"curtailment_mw"`
	UnmetMW            float64   `json:"unmet_mw"`
}

// FailureDetail is a combination that was skipped.
type FailureDetail struct {
	Combination string `json:"combination"`
	Reason      string `json:"reason"`
}

// CombinationsResponse previews the combinations a request would evaluate.
type CombinationsResponse struct {
	Count        int               `json:"count"`
	Combinations []CombinationInfo `json:"combinations"`
}

type CombinationInfo struct {
	Key     string `json:"key"`
	Owner   string `json:"owner"`
	Solar   string `json:"solar,omitempty"`
	Wind    string `json:"wind,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// StoragePresetInfo represents information about a storage preset file.
type StoragePresetInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs StorageSpecs `json:"specs"`
}

type StorageSpecs struct {
	RoundTripEfficiency float64 `json:"round_trip_efficiency,omitempty"`
	StoreEfficiency     float64 `json:"store_efficiency,omitempty"`
	DispatchEfficiency  float64 `json:"dispatch_efficiency,omitempty"`
	DepthOfDischarge    float64 `json:"depth_of_discharge,omitempty"`
	MaxHours            float64 `json:"max_hours,omitempty"`
}

// ParameterInfo describes a scenario parameter.
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int[]", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Finite returns nil for ±Inf and NaN so JSON renders them as null.
func Finite(x float64) *float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return nil
	}
	return &x
}
