package model

// OptimizationInputs is the canonical "inputs to the system" object consumed by the engine:
// a demand series, the candidate assets per owner, and scenario parameters.
type OptimizationInputs struct {
	Demand   TimeSeries
	Owners   []OwnerAssets
	Scenario ScenarioParameters
}
