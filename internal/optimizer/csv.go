package optimizer

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"time"

	"hybrid-sizing/internal/model"
)

// WriteTraceCSV writes the per-snapshot ledger of one result.
func WriteTraceCSV(path string, r model.OptimizationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"timestamp",
		"demand_mw",
		"solar_mw",
		"wind_mw",
		"action",
		"storage_charge_mw",
		"storage_discharge_mw",
		"soc_mwh",
		"curtailment_mw",
		"unmet_mw",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range Ledger(r) {
		rec := []string{
			strconv.Itoa(row.Index),
			fmtTime(row.Timestamp),
			fmtFloat(row.DemandMW),
			fmtFloat(row.SolarMW),
			fmtFloat(row.WindMW),
			string(row.Action),
			fmtFloat(row.StorageChargeMW),
			fmtFloat(row.StorageDischargeMW),
			fmtFloat(row.SOCMWh),
			fmtFloat(row.CurtailmentMW),
			fmtFloat(row.UnmetMW),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	return w.Error()
}

// WriteSummaryCSV writes one row per ranked result.
func WriteSummaryCSV(path string, results []model.OptimizationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"rank",
		"combination",
		"solar_mw",
		"wind_mw",
		"storage_mw",
		"storage_mwh",
		"per_unit_cost",
		"landed_cost",
		"total_cost",
		"demand_offset_pct",
		"curtailment_pct",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, r := range results {
		rec := []string{
			strconv.Itoa(i + 1),
			r.Key.String(),
			fmtFloat(r.Capacities.SolarMW),
			fmtFloat(r.Capacities.WindMW),
			fmtFloat(r.Capacities.StorageMW),
			fmtFloat(r.Capacities.StorageMWh),
			fmtFloat(r.PerUnitCost),
			fmtFloat(r.LandedCost),
			fmtFloat(r.TotalCost),
			fmtFloat(r.DemandOffsetPct),
			fmtFloat(r.CurtailmentPct),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
