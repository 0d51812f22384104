package model

import (
	"fmt"
)

// CurtailmentPolicy selects how curtailment is treated in the program.
type CurtailmentPolicy string

const (
	// PolicySizing reports curtailment as an output metric only.
	PolicySizing CurtailmentPolicy = "sizing"
	// PolicyAggregated enforces the annual curtailment upper limit as a hard constraint.
	PolicyAggregated CurtailmentPolicy = "aggregated"
)

// StorageEnergyLimit selects whether MaxHours bounds state of charge.
type StorageEnergyLimit string

const (
	EnergyLimitHard          StorageEnergyLimit = "hard"
	EnergyLimitInformational StorageEnergyLimit = "informational"
)

// Documented defaults for absent scenario parameters.
const (
	DefaultOffsetTarget              = 0.65
	DefaultDepthOfDischarge          = 0.8
	DefaultCurtailmentResaleFraction = 0.5
	DefaultCurtailmentResalePrice    = 3000.0
	DefaultAnnualCurtailmentLimit    = 0.30
	DefaultPeakPenalty               = 1e5
	DefaultUnmetDemandCapacityMW     = 1e6
)

// ScenarioParameters are the global economic and regulatory knobs of a run.
// Fractions are 0..1; PeakTarget and MonthlyTargets additionally accept 0..100.
type ScenarioParameters struct {
	OffsetTarget              float64
	DepthOfDischarge          float64
	CurtailmentResaleFraction float64
	CurtailmentResalePrice    float64 // currency/MWh
	AnnualCurtailmentLimit    float64

	PeakTarget  float64
	PeakHours   []int
	PeakPenalty float64 // currency/MWh of unmet peak demand, objective only

	MonthlyTargets []float64

	TransmissionCapacityMW float64 // 0 = no cap
	FixedCostAdder         float64 // currency/MWh added to the per-unit cost

	CurtailmentPolicy     CurtailmentPolicy
	StorageEnergyLimit    StorageEnergyLimit
	UnmetDemandCost       float64
	UnmetDemandCapacityMW float64
}

// DefaultScenario returns the parameters used when a request supplies none.
func DefaultScenario() ScenarioParameters {
	return ScenarioParameters{
		OffsetTarget:              DefaultOffsetTarget,
		DepthOfDischarge:          DefaultDepthOfDischarge,
		CurtailmentResaleFraction: DefaultCurtailmentResaleFraction,
		CurtailmentResalePrice:    DefaultCurtailmentResalePrice,
		AnnualCurtailmentLimit:    DefaultAnnualCurtailmentLimit,
		PeakPenalty:               DefaultPeakPenalty,
		CurtailmentPolicy:         PolicySizing,
		StorageEnergyLimit:        EnergyLimitHard,
		UnmetDemandCapacityMW:     DefaultUnmetDemandCapacityMW,
	}
}

// WithDefaults fills fields whose zero value is never meaningful.
func (s ScenarioParameters) WithDefaults() ScenarioParameters {
	if s.PeakPenalty <= 0 {
		s.PeakPenalty = DefaultPeakPenalty
	}
	if s.CurtailmentPolicy == "" {
		s.CurtailmentPolicy = PolicySizing
	}
	if s.StorageEnergyLimit == "" {
		s.StorageEnergyLimit = EnergyLimitHard
	}
	if s.UnmetDemandCapacityMW <= 0 {
		s.UnmetDemandCapacityMW = DefaultUnmetDemandCapacityMW
	}
	return s
}

func (s ScenarioParameters) Validate() error {
	if s.OffsetTarget < 0 || s.OffsetTarget > 1 {
		return fmt.Errorf("offset target must be in [0, 1], got %g", s.OffsetTarget)
	}
	if s.DepthOfDischarge < 0 || s.DepthOfDischarge > 1 {
		return fmt.Errorf("depth of discharge must be in [0, 1], got %g", s.DepthOfDischarge)
	}
	if s.CurtailmentResaleFraction < 0 || s.CurtailmentResaleFraction > 1 {
		return fmt.Errorf("curtailment resale fraction must be in [0, 1], got %g", s.CurtailmentResaleFraction)
	}
	if s.AnnualCurtailmentLimit < 0 || s.AnnualCurtailmentLimit > 1 {
		return fmt.Errorf("annual curtailment limit must be in [0, 1], got %g", s.AnnualCurtailmentLimit)
	}
	if s.TransmissionCapacityMW < 0 {
		return fmt.Errorf("transmission capacity must be >= 0, got %g", s.TransmissionCapacityMW)
	}
	switch s.CurtailmentPolicy {
	case "", PolicySizing, PolicyAggregated:
	default:
		return fmt.Errorf("unknown curtailment policy %q", s.CurtailmentPolicy)
	}
	switch s.StorageEnergyLimit {
	case "", EnergyLimitHard, EnergyLimitInformational:
	default:
		return fmt.Errorf("unknown storage energy limit %q", s.StorageEnergyLimit)
	}
	return nil
}

// NormalizeFraction accepts a 0..1 fraction or a 0..100 percentage.
func NormalizeFraction(v float64) (float64, error) {
	switch {
	case v < 0 || v > 100:
		return 0, fmt.Errorf("%w: target %g outside [0, 100]", ErrConfiguration, v)
	case v > 1:
		return v / 100, nil
	default:
		return v, nil
	}
}

// HasPeakConstraint reports whether the peak-hour block should be added.
func (s ScenarioParameters) HasPeakConstraint() bool {
	return len(s.PeakHours) > 0 && s.PeakTarget > 0
}

// IsPeakHour reports whether hour-of-day h is configured as peak.
func (s ScenarioParameters) IsPeakHour(h int) bool {
	for _, p := range s.PeakHours {
		if p == h {
			return true
		}
	}
	return false
}

// MonthlyTargetsByMonth expands MonthlyTargets to one 0..1 fraction per calendar month
// (index 0 = January). A single value is broadcast. If any value exceeds 1 the whole
// list is read as percentages. Any other length is a configuration error.
func (s ScenarioParameters) MonthlyTargetsByMonth() ([12]float64, error) {
	var out [12]float64
	raw := s.MonthlyTargets
	if len(raw) != 1 && len(raw) != 12 {
		return out, fmt.Errorf("%w: monthly targets need 1 or 12 values, got %d", ErrConfiguration, len(raw))
	}
	percent := false
	for _, v := range raw {
		if v < 0 || v > 100 {
			return out, fmt.Errorf("%w: monthly target %g outside [0, 100]", ErrConfiguration, v)
		}
		if v > 1 {
			percent = true
		}
	}
	for m := range out {
		v := raw[0]
		if len(raw) == 12 {
			v = raw[m]
		}
		if percent {
			v /= 100
		}
		out[m] = v
	}
	return out, nil
}
