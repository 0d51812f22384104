package model

import (
	"errors"
	"fmt"
)

// Tech identifies the technology of a candidate asset.
type Tech string

const (
	TechSolar   Tech = "solar"
	TechWind    Tech = "wind"
	TechStorage Tech = "storage"
)

// ParseTech normalises a user supplied technology tag.
func ParseTech(s string) (Tech, error) {
	switch Tech(s) {
	case TechSolar, TechWind, TechStorage:
		return Tech(s), nil
	}
	return "", fmt.Errorf("unknown technology %q", s)
}

// CandidateAsset is one project offered by an asset owner.
// Units:
// - MaxCapacityMW: MW (0 = unbounded, storage only)
// - CapitalCostPerMW: currency per MW-year of installed capacity
// - MarginalCostPerMWh: currency per MWh generated (solar/wind) or per MWh of throughput (storage)
// - Profile: per-unit availability in [0,1], one value per snapshot (solar/wind)
// - Efficiencies, DepthOfDischarge: fractions in (0,1]
// - MaxHours: energy-to-power ratio in hours (storage, 0 = unspecified)
//
// Assets are read-only inputs for a run.
type CandidateAsset struct {
	Tech  Tech
	Name  string
	Owner string

	Profile            []float64
	MaxCapacityMW      float64
	CapitalCostPerMW   float64
	MarginalCostPerMWh float64

	StoreEfficiency    float64
	DispatchEfficiency float64
	DepthOfDischarge   float64
	MaxHours           float64
}

func (a *CandidateAsset) Validate() error {
	if a == nil {
		return errors.New("asset is nil")
	}
	if a.Name == "" {
		return errors.New("asset name is required")
	}
	if a.CapitalCostPerMW < 0 {
		return errors.New("CapitalCostPerMW must be >= 0")
	}
	if a.MarginalCostPerMWh < 0 {
		return errors.New("MarginalCostPerMWh must be >= 0")
	}
	if a.MaxCapacityMW < 0 {
		return errors.New("MaxCapacityMW must be >= 0")
	}
	switch a.Tech {
	case TechSolar, TechWind:
		if a.MaxCapacityMW <= 0 {
			return errors.New("MaxCapacityMW must be > 0")
		}
		if len(a.Profile) == 0 {
			return errors.New("generation profile is required")
		}
	case TechStorage:
		if a.StoreEfficiency <= 0 || a.StoreEfficiency > 1 {
			return errors.New("StoreEfficiency must be in (0, 1]")
		}
		if a.DispatchEfficiency <= 0 || a.DispatchEfficiency > 1 {
			return errors.New("DispatchEfficiency must be in (0, 1]")
		}
		if a.DepthOfDischarge < 0 || a.DepthOfDischarge > 1 {
			return errors.New("DepthOfDischarge must be in [0, 1]")
		}
		if a.MaxHours < 0 {
			return errors.New("MaxHours must be >= 0")
		}
	default:
		return fmt.Errorf("unknown technology %q", a.Tech)
	}
	return nil
}

// OwnerAssets groups the candidate projects of one asset owner by technology.
type OwnerAssets struct {
	Owner   string
	Solar   []CandidateAsset
	Wind    []CandidateAsset
	Storage []CandidateAsset
}

// Add files an asset under its technology.
func (o *OwnerAssets) Add(a CandidateAsset) error {
	a.Owner = o.Owner
	switch a.Tech {
	case TechSolar:
		o.Solar = append(o.Solar, a)
	case TechWind:
		o.Wind = append(o.Wind, a)
	case TechStorage:
		o.Storage = append(o.Storage, a)
	default:
		return fmt.Errorf("unknown technology %q", a.Tech)
	}
	return nil
}
