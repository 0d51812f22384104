package handlers

import (
	"hybrid-sizing/internal/api/models"
	"hybrid-sizing/internal/config"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/optimizer"
)

// defaultFlatHours is the flat-demand horizon when a request omits hours.
const defaultFlatHours = 24

// buildConfig maps a request onto the run configuration so both entry points share
// validation and input assembly.
func buildConfig(demand models.DemandInput, owners []models.OwnerInput, scenario models.ScenarioInput, presets *PresetHandler) (*config.Config, error) {
	cfg := &config.Config{
		Demand: config.DemandConfig{
			FlatMW: demand.FlatMW,
			Hours:  demand.Hours,
			Values: demand.Values,
			Start:  demand.Start,
		},
		Scenario: config.ScenarioConfig{
			OffsetTarget:              scenario.OffsetTarget,
			DepthOfDischarge:          scenario.DepthOfDischarge,
			CurtailmentResaleFraction: scenario.CurtailmentResaleFraction,
			CurtailmentResalePrice:    scenario.CurtailmentResalePrice,
			AnnualCurtailmentLimit:    scenario.AnnualCurtailmentLimit,
			PeakTarget:                scenario.PeakTarget,
			PeakHours:                 scenario.PeakHours,
			PeakPenalty:               scenario.PeakPenalty,
			MonthlyTargets:            scenario.MonthlyTargets,
			TransmissionCapacityMW:    scenario.TransmissionCapacityMW,
			FixedCostAdder:            scenario.FixedCostAdder,
			CurtailmentPolicy:         scenario.CurtailmentPolicy,
			StorageEnergyLimit:        scenario.StorageEnergyLimit,
			UnmetDemandCost:           scenario.UnmetDemandCost,
			UnmetDemandCapacityMW:     scenario.UnmetDemandCapacityMW,
		},
	}
	if cfg.Demand.FlatMW > 0 && cfg.Demand.Hours == 0 {
		cfg.Demand.Hours = defaultFlatHours
	}

	for _, o := range owners {
		oc := config.OwnerConfig{Name: o.Name}
		for _, a := range o.Assets {
			ac := config.AssetConfig{
				Tech:               a.Tech,
				Name:               a.Name,
				Profile:            a.Profile,
				MaxCapacityMW:      a.MaxCapacityMW,
				CapitalCostPerMW:   a.CapitalCostPerMW,
				MarginalCostPerMWh: a.MarginalCostPerMWh,
				StorageConfig: config.StorageConfig{
					RoundTripEfficiency: a.RoundTripEfficiency,
					StoreEfficiency:     a.StoreEfficiency,
					DispatchEfficiency:  a.DispatchEfficiency,
					DepthOfDischarge:    a.DepthOfDischarge,
					MaxHours:            a.MaxHours,
				},
			}
			if a.Preset != "" && presets != nil {
				base, err := presets.Lookup(a.Preset)
				if err != nil {
					return nil, err
				}
				ac.StorageConfig = config.MergeStorage(base, ac.StorageConfig)
			}
			oc.Assets = append(oc.Assets, ac)
		}
		cfg.Owners = append(cfg.Owners, oc)
	}
	return cfg, nil
}

func combinationInfo(id model.CombinationID) models.CombinationInfo {
	return models.CombinationInfo{
		Key:     id.String(),
		Owner:   id.Owner,
		Solar:   id.Solar,
		Wind:    id.Wind,
		Storage: id.Storage,
	}
}

func rankedResult(rank int, r model.OptimizationResult, includeTraces bool) models.RankedResult {
	out := models.RankedResult{
		Rank:        rank,
		Combination: combinationInfo(r.Key),
		Capacities: models.Capacities{
			SolarMW:    r.Capacities.SolarMW,
			WindMW:     r.Capacities.WindMW,
			StorageMW:  r.Capacities.StorageMW,
			StorageMWh: r.Capacities.StorageMWh,
		},
		PerUnitCost: models.Finite(r.PerUnitCost),
		LandedCost:  models.Finite(r.LandedCost),
		TotalCost:   r.TotalCost,
		Costs: models.CostBreakdown{
			Capital:           r.Costs.Capital,
			Marginal:          r.Costs.Marginal,
			StorageThroughput: r.Costs.StorageThroughput,
			Curtailment:       r.Costs.Curtailment,
			ResaleRevenue:     r.Costs.ResaleRevenue,
		},
		TotalDemandMWh:     r.TotalDemandMWh,
		DemandMetMWh:       r.DemandMetMWh,
		UnmetDemandMWh:     r.UnmetDemandMWh,
		CurtailmentMWh:     r.CurtailmentMWh,
		DemandOffsetPct:    r.DemandOffsetPct,
		CurtailmentPct:     r.CurtailmentPct,
		PeakFulfillmentPct: r.PeakFulfillmentPct,
	}
	for _, m := range r.Monthly {
		out.Monthly = append(out.Monthly, models.MonthlyRow{
			Month:          m.Month.String(),
			DemandMWh:      m.DemandMWh,
			MetMWh:         m.MetMWh,
			FulfillmentPct: m.FulfillmentPct,
			TargetPct:      m.TargetPct,
			TargetMet:      m.TargetMet,
		})
	}
	if includeTraces {
		for _, row := range optimizer.Ledger(r) {
			out.Traces = append(out.Traces, models.TraceRow{
				Index:              row.Index,
				Timestamp:          row.Timestamp,
				DemandMW:           row.DemandMW,
				SolarMW:            row.SolarMW,
				WindMW:             row.WindMW,
				Action:             string(row.Action),
				StorageChargeMW:    row.StorageChargeMW,
				StorageDischargeMW: row.StorageDischargeMW,
				SOCMWh:             row.SOCMWh,
				CurtailmentMW:      row.CurtailmentMW,
				UnmetMW:            row.UnmetMW,
			})
		}
	}
	return out
}
