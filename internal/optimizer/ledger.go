package optimizer

import (
	"time"

	"hybrid-sizing/internal/model"
)

// TraceRow is one snapshot of a solved combination.
// This is the primary artifact for "what happened" in a dispatch.
type TraceRow struct {
	Index     int
	Timestamp time.Time

	DemandMW float64

	SolarMW float64
	WindMW  float64

	Action             model.Action
	StorageChargeMW    float64
	StorageDischargeMW float64
	SOCMWh             float64

	CurtailmentMW float64
	UnmetMW       float64
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

// Ledger flattens a result's traces into rows. Absent technologies read as zero.
func Ledger(r model.OptimizationResult) []TraceRow {
	tr := r.Traces
	rows := make([]TraceRow, 0, len(tr.Demand))
	for i := range tr.Demand {
		row := TraceRow{
			Index:              i,
			DemandMW:           tr.Demand[i],
			SolarMW:            at(tr.SolarAllocation, i),
			WindMW:             at(tr.WindAllocation, i),
			StorageChargeMW:    at(tr.StorageCharge, i),
			StorageDischargeMW: at(tr.StorageDischarge, i),
			SOCMWh:             at(tr.SOC, i),
			CurtailmentMW:      at(tr.Curtailment, i),
			UnmetMW:            at(tr.UnmetDemand, i),
		}
		if i < len(tr.Timestamps) {
			row.Timestamp = tr.Timestamps[i]
		}
		row.Action = model.ActionFromStorage(row.StorageChargeMW, row.StorageDischargeMW)
		rows = append(rows, row)
	}
	return rows
}
