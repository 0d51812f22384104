package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"hybrid-sizing/internal/config"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/optimizer"
	"hybrid-sizing/internal/series"
)

// Demo:
// - Build a flat 100 MW day of demand and a daylight solar profile
// - Size one solar candidate at the requested offset
// - Print the result and the hour-by-hour ledger
func main() {
	offset := flag.Float64("offset", 0.45, "Offset target (share of demand met by renewables)")
	solarMW := flag.Float64("solar-max", 150, "Maximum solar capacity in MW")
	withStorage := flag.Bool("storage", false, "Add a 4h storage candidate")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := config.NewLogger(config.LoggingConfig{Format: "console"}, level)
	if err != nil {
		panic(err)
	}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	demand := series.FlatDay(100, start)

	profile := make([]float64, 24)
	for h := 6; h < 18; h++ {
		profile[h] = 1
	}
	owner := model.OwnerAssets{Owner: "demo"}
	_ = owner.Add(model.CandidateAsset{
		Tech:             model.TechSolar,
		Name:             "sunfield",
		Profile:          profile,
		MaxCapacityMW:    *solarMW,
		CapitalCostPerMW: 1000,
	})
	if *withStorage {
		_ = owner.Add(model.CandidateAsset{
			Tech:               model.TechStorage,
			Name:               "lfp",
			MaxCapacityMW:      50,
			StoreEfficiency:    0.95,
			DispatchEfficiency: 0.95,
			MaxHours:           4,
		})
	}

	scenario := model.DefaultScenario()
	scenario.OffsetTarget = *offset

	engine := optimizer.New(logger)
	ranking, err := engine.Evaluate(context.Background(), []model.OwnerAssets{owner}, demand, scenario)
	if err != nil {
		fmt.Printf("no feasible combination: %v\n", err)
		if ranking != nil {
			for _, f := range ranking.Failures {
				fmt.Printf("  %s: %v\n", f.Key, f.Err)
			}
		}
		return
	}

	for _, r := range ranking.Results {
		fmt.Printf("%s: solar=%.1fMW storage=%.1fMW/%.1fMWh offset=%.1f%% curtailment=%.1f%% cost=$%.2f/MWh\n",
			r.Key, r.Capacities.SolarMW, r.Capacities.StorageMW, r.Capacities.StorageMWh,
			r.DemandOffsetPct, r.CurtailmentPct, r.PerUnitCost)
	}

	best := ranking.Results[0]
	fmt.Printf("\n%-5s %-10s %-10s %-12s %-10s %-10s %-10s\n", "hour", "demand", "solar", "action", "soc", "curtail", "unmet")
	for _, row := range optimizer.Ledger(best) {
		fmt.Printf("%-5d %-10.1f %-10.1f %-12s %-10.1f %-10.1f %-10.1f\n",
			row.Timestamp.Hour(), row.DemandMW, row.SolarMW, row.Action, row.SOCMWh, row.CurtailmentMW, row.UnmetMW)
	}
}
