package models

// OptimizeRequest is the request body for POST /api/v1/optimize.
type OptimizeRequest struct {
	Demand   DemandInput     `json:"demand"`
	Owners   []OwnerInput    `json:"owners" binding:"required,min=1,dive"`
	Scenario ScenarioInput   `json:"scenario,omitempty"`
	Options  OptimizeOptions `json:"options,omitempty"`
}

// DemandInput selects exactly one of FlatMW or Values.
type DemandInput struct {
	FlatMW float64   `json:"flat_mw,omitempty"`
	Hours  int       `json:"hours,omitempty"` // flat demand horizon, default 24
	Values []float64 `json:"values,omitempty"`
	Start  string    `json:"start,omitempty"` // RFC3339 or YYYY-MM-DD
}

type OwnerInput struct {
	Name   string       `json:"name" binding:"required"`
	Assets []AssetInput `json:"assets" binding:"dive"`
}

// AssetInput describes one candidate project. Preset names a storage preset whose
// parameters are used for fields left at zero.
type AssetInput struct {
	Tech   string `json:"tech" binding:"required,oneof=solar wind storage"`
	Name   string `json:"name" binding:"required"`
	Preset string `json:"preset,omitempty"`

	Profile            []float64 `json:"profile,omitempty"`
	MaxCapacityMW      float64   `json:"max_capacity_mw"`
	CapitalCostPerMW   float64   `json:"capital_cost_per_mw,omitempty"`
	MarginalCostPerMWh float64   `json:"marginal_cost_per_mwh,omitempty"`

	RoundTripEfficiency float64 `json:"round_trip_efficiency,omitempty"`
	StoreEfficiency     float64 `json:"store_efficiency,omitempty"`
	DispatchEfficiency  float64 `json:"dispatch_efficiency,omitempty"`
	DepthOfDischarge    float64 `json:"depth_of_discharge,omitempty"`
	MaxHours            float64 `json:"max_hours,omitempty"`
}

// ScenarioInput mirrors the scenario parameters; omitted fields keep their defaults.
type ScenarioInput struct {
	OffsetTarget              *float64 `json:"offset_target,omitempty"`
	DepthOfDischarge          *float64 `json:"depth_of_discharge,omitempty"`
	CurtailmentResaleFraction *float64 `json:"curtailment_resale_fraction,omitempty"`
	CurtailmentResalePrice    *float64 `json:"curtailment_resale_price,omitempty"`
	AnnualCurtailmentLimit    *float64 `json:"annual_curtailment_limit,omitempty"`
	PeakTarget                *float64 `json:"peak_target,omitempty"`
	PeakHours                 []int    `json:"peak_hours,omitempty"`
	PeakPenalty               *float64 `json:"peak_penalty,omitempty"`
	MonthlyTargets            []any    `json:"monthly_targets,omitempty"`
	TransmissionCapacityMW    *float64 `json:"transmission_capacity_mw,omitempty"`
	FixedCostAdder            *float64 `json:"fixed_cost_adder,omitempty"`
	CurtailmentPolicy         string   `json:"curtailment_policy,omitempty"`
	StorageEnergyLimit        string   `json:"storage_energy_limit,omitempty"`
	UnmetDemandCost           *float64 `json:"unmet_demand_cost,omitempty"`
	UnmetDemandCapacityMW     *float64 `json:"unmet_demand_capacity_mw,omitempty"`
}

// OptimizeOptions contains optional run parameters.
type OptimizeOptions struct {
	Top           int  `json:"top,omitempty"`            // 0 = all
	IncludeTraces bool `json:"include_traces,omitempty"` // default: false
	Halve         bool `json:"halve,omitempty"`          // two-hour snapshots
}

// CombinationsRequest is the request body for POST /api/v1/combinations.
type CombinationsRequest struct {
	Owners []OwnerInput `json:"owners" binding:"required,dive"`
}
