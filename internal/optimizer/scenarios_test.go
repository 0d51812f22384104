package optimizer

import (
	"context"
	"runtime"
	"testing"
	"time"

	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steadyWind(name string, maxMW, factor float64) model.CandidateAsset {
	profile := make([]float64, 24)
	for i := range profile {
		profile[i] = factor
	}
	return model.CandidateAsset{Tech: model.TechWind, Name: name, MaxCapacityMW: maxMW, Profile: profile}
}

// fullDepth stores at 90% each way, holds four hours and may be fully emptied.
func fullDepth(name string) model.CandidateAsset {
	return model.CandidateAsset{
		Tech: model.TechStorage, Name: name,
		StoreEfficiency: 0.9, DispatchEfficiency: 0.9,
		MaxHours: 4, DepthOfDischarge: 1,
	}
}

func flatDays(v float64, days int) model.TimeSeries {
	values := make([]float64, 24*days)
	for i := range values {
		values[i] = v
	}
	return model.NewTimeSeries(day, time.Hour, values)
}

func evaluateOne(t *testing.T, owners []model.OwnerAssets, demand model.TimeSeries, sc model.ScenarioParameters) model.OptimizationResult {
	t.Helper()
	ranking, err := New(nil).Evaluate(context.Background(), owners, demand, sc)
	require.NoError(t, err)
	require.Len(t, ranking.Results, 1)
	return ranking.Results[0]
}

func sumOf(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func assertBalanced(t *testing.T, r model.OptimizationResult) {
	t.Helper()
	tr := r.Traces
	for i := range tr.Demand {
		supplied := at(tr.SolarAllocation, i) + at(tr.WindAllocation, i) +
			at(tr.StorageDischarge, i) - at(tr.StorageCharge, i) + tr.UnmetDemand[i]
		if !assert.InDelta(t, tr.Demand[i], supplied, tol, "%s balance at %d", r.Key, i) {
			return
		}
		assert.LessOrEqual(t, at(tr.StorageCharge, i), at(tr.SolarAllocation, i)+at(tr.WindAllocation, i)+tol)
	}
}

func TestEvaluateWindOnly(t *testing.T) {
	owners := []model.OwnerAssets{{Owner: "acme", Wind: []model.CandidateAsset{steadyWind("ridge", 150, 0.5)}}}

	r := evaluateOne(t, owners, flatDemand(100), scenario(0.6))
	assert.Equal(t, "acme-ridge", r.Key.String())
	// 75 MW is available every hour; resale pushes capacity to its bound and
	// the offset row binds.
	assert.InDelta(t, 150, r.Capacities.WindMW, tol)
	assert.Zero(t, r.Capacities.SolarMW)
	assert.InDelta(t, 960, r.UnmetDemandMWh, tol)
	assert.InDelta(t, 360, r.CurtailmentMWh, tol)
	assert.InDelta(t, 60, r.DemandOffsetPct, tol)
	for _, p := range r.Traces.WindAllocation {
		assert.LessOrEqual(t, p, 75+tol)
	}
	assertBalanced(t, r)

	_, err := New(nil).Evaluate(context.Background(), owners, flatDemand(100), scenario(0.8))
	assert.ErrorIs(t, err, model.ErrDemandCannotBeMet)
}

func TestEvaluateSolarAndWind(t *testing.T) {
	owners := []model.OwnerAssets{{
		Owner: "acme",
		Solar: []model.CandidateAsset{solar("sunfield")},
		Wind:  []model.CandidateAsset{steadyWind("ridge", 100, 0.5)},
	}}
	ranking, err := New(nil).Evaluate(context.Background(), owners, flatDemand(100), scenario(0.7))
	require.NoError(t, err)
	assert.Equal(t, 3, ranking.Attempted)
	// Neither technology reaches 70% alone: solar is dark half the day and
	// wind tops out at 50%.
	require.Len(t, ranking.Results, 1)
	require.Len(t, ranking.Failures, 2)
	r := ranking.Results[0]
	assert.Equal(t, "acme-sunfield-ridge", r.Key.String())

	assert.InDelta(t, 150, r.Capacities.SolarMW, tol)
	assert.InDelta(t, 100, r.Capacities.WindMW, tol)
	// At night only 50 MW of wind is available, so at least 600 MWh goes
	// unmet; the offset row binds at 720 MWh.
	assert.InDelta(t, 720, r.UnmetDemandMWh, tol)
	assert.InDelta(t, 150*12+50*24-(2400-720), r.CurtailmentMWh, tol)
	for _, h := range []int{0, 5, 18, 23} {
		assert.GreaterOrEqual(t, r.Traces.UnmetDemand[h], 50-tol, "hour %d", h)
		assert.LessOrEqual(t, r.Traces.WindAllocation[h], 50+tol, "hour %d", h)
	}
	assertBalanced(t, r)
}

func TestEvaluatePeakHours(t *testing.T) {
	sc := scenario(0.45)
	sc.PeakHours = []int{10, 11, 12, 13}
	sc.PeakTarget = 100

	r := evaluateOne(t, solarOnly(), flatDemand(100), sc)
	for _, h := range sc.PeakHours {
		assert.InDelta(t, 0, r.Traces.UnmetDemand[h], tol, "hour %d", h)
	}
	assert.InDelta(t, 100, r.PeakFulfillmentPct, tol)
	assert.InDelta(t, 1320, r.UnmetDemandMWh, tol)
	assertBalanced(t, r)

	// Evening peaks cannot be served by solar alone.
	sc.PeakHours = []int{20, 21}
	sc.PeakTarget = 50
	ranking, err := New(nil).Evaluate(context.Background(), solarOnly(), flatDemand(100), sc)
	assert.ErrorIs(t, err, model.ErrDemandCannotBeMet)
	require.Len(t, ranking.Failures, 1)
	assert.ErrorIs(t, ranking.Failures[0].Err, model.ErrInfeasible)
}

func TestEvaluateTransmissionCap(t *testing.T) {
	sc := scenario(0.3)
	sc.TransmissionCapacityMW = 80

	r := evaluateOne(t, solarOnly(), flatDemand(100), sc)
	for i, p := range r.Traces.SolarAllocation {
		assert.LessOrEqual(t, p, 80+tol, "hour %d", i)
	}
	assert.InDelta(t, 1680, r.UnmetDemandMWh, tol)
	assert.InDelta(t, 30, r.DemandOffsetPct, tol)
	assertBalanced(t, r)

	// Twelve daylight hours at 80 MW cover at most 40% of demand.
	sc.OffsetTarget = 0.45
	_, err := New(nil).Evaluate(context.Background(), solarOnly(), flatDemand(100), sc)
	assert.ErrorIs(t, err, model.ErrDemandCannotBeMet)
}

func TestEvaluateStorageShiftsSolarIntoTheEvening(t *testing.T) {
	owners := []model.OwnerAssets{{
		Owner:   "acme",
		Solar:   []model.CandidateAsset{solar("sunfield")},
		Storage: []model.CandidateAsset{fullDepth("lfp")},
	}}
	ranking, err := New(nil).Evaluate(context.Background(), owners, flatDemand(100), scenario(0.65))
	require.NoError(t, err)
	// Solar alone stops at 50%; storage alone never charges.
	require.Len(t, ranking.Results, 1)
	r := ranking.Results[0]
	assert.Equal(t, "acme-sunfield-lfp", r.Key.String())

	tr := r.Traces
	// The battery starts empty, so hours 0-5 stay unmet and hours 18-23 must
	// receive 360 MWh. Delivering that takes 400 MWh of charge in the battery
	// at 17:00, i.e. 444.4 MWh stored, and four hours of energy means 100 MW.
	assert.InDelta(t, 840, r.UnmetDemandMWh, tol)
	assert.InDelta(t, 65, r.DemandOffsetPct, tol)
	assert.InDelta(t, 360, sumOf(tr.StorageDischarge), tol)
	assert.InDelta(t, 400/0.9, sumOf(tr.StorageCharge), tol)
	assert.InDelta(t, 400, tr.SOC[17], tol)
	assert.InDelta(t, 100, r.Capacities.StorageMW, tol)
	assert.InDelta(t, 400, r.Capacities.StorageMWh, tol)
	assert.InDelta(t, 150, r.Capacities.SolarMW, tol)

	for h := 0; h < 6; h++ {
		assert.InDelta(t, 100, tr.UnmetDemand[h], tol, "hour %d", h)
		assert.InDelta(t, 0, tr.StorageDischarge[h], tol, "hour %d", h)
	}
	for h := 6; h < 18; h++ {
		assert.InDelta(t, 0, tr.UnmetDemand[h], tol, "hour %d", h)
		assert.InDelta(t, 0, tr.StorageDischarge[h], tol, "hour %d", h)
	}
	for h := range tr.SOC {
		assert.LessOrEqual(t, tr.SOC[h], 400+tol)
		assert.GreaterOrEqual(t, tr.SOC[h], -tol)
	}
	assertBalanced(t, r)

	discharging := 0
	for _, row := range Ledger(r) {
		if row.Action == model.ActionDischarging {
			discharging++
		}
	}
	assert.Greater(t, discharging, 0)
}

func TestEvaluateMultiWeekHorizon(t *testing.T) {
	const days = 28
	owners := []model.OwnerAssets{{
		Owner:   "acme",
		Solar:   []model.CandidateAsset{solar("sunfield")},
		Storage: []model.CandidateAsset{fullDepth("lfp")},
	}}
	e := New(nil)
	e.Workers = 2
	ranking, err := e.Evaluate(context.Background(), owners, flatDays(100, days), scenario(0.65))
	require.NoError(t, err)
	require.Len(t, ranking.Results, 1)
	r := ranking.Results[0]

	require.Len(t, r.Traces.Demand, 24*days)
	assert.InDelta(t, 2400*days, r.TotalDemandMWh, 1e-6)
	assert.InDelta(t, 65, r.DemandOffsetPct, tol)
	// Nights need 360 MWh each on average; spreading it evenly across the
	// nights keeps the battery at 100 MW.
	assert.InDelta(t, 360*days, sumOf(r.Traces.StorageDischarge), 1e-2)
	assert.InDelta(t, 100, r.Capacities.StorageMW, 1e-2)
	for h := 0; h < 6; h++ {
		assert.InDelta(t, 100, r.Traces.UnmetDemand[h], tol, "hour %d", h)
	}
	assertBalanced(t, r)
}

func TestEvaluateFullYearHorizon(t *testing.T) {
	if testing.Short() {
		t.Skip("full-year horizon")
	}
	demand, err := series.FlatDemand(100, 1, day)
	require.NoError(t, err)
	owners := []model.OwnerAssets{{
		Owner:   "acme",
		Solar:   []model.CandidateAsset{solar("sunfield")},
		Storage: []model.CandidateAsset{fullDepth("lfp")},
	}}
	sc := scenario(0.65)
	sc.MonthlyTargets = []float64{60}

	e := New(nil)
	e.Workers = 3
	ranking, err := e.Evaluate(context.Background(), owners, demand, sc)
	require.NoError(t, err)
	require.Len(t, ranking.Results, 1)
	r := ranking.Results[0]

	require.Len(t, r.Traces.Demand, series.HoursPerYear)
	assert.InDelta(t, 65, r.DemandOffsetPct, tol)
	assert.InDelta(t, 100, r.Capacities.StorageMW, 1e-2)
	assert.InDelta(t, 360*365, sumOf(r.Traces.StorageDischarge), 1)
	require.Len(t, r.Monthly, 12)
	for _, m := range r.Monthly {
		assert.True(t, m.TargetMet, "%s", m.Month)
	}
	assertBalanced(t, r)
}

func TestEvaluateTimeoutReleasesGoroutines(t *testing.T) {
	owners := []model.OwnerAssets{{
		Owner:   "acme",
		Solar:   []model.CandidateAsset{solar("s1"), solar("s2")},
		Storage: []model.CandidateAsset{fullDepth("b1")},
	}}
	baseline := runtime.NumGoroutine()

	e := New(nil)
	e.Workers = 4
	e.CombinationTimeout = time.Nanosecond
	ranking, err := e.Evaluate(context.Background(), owners, flatDays(100, 7), scenario(0.3))
	if err != nil {
		assert.ErrorIs(t, err, model.ErrDemandCannotBeMet)
	}
	require.NotNil(t, ranking)
	assert.Equal(t, 5, ranking.Attempted)
	for _, f := range ranking.Failures {
		if f.Key.String() != "acme-b1" {
			assert.ErrorIs(t, f.Err, model.ErrSolver, "%s", f.Key)
		}
	}

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= baseline }, 2*time.Second, 10*time.Millisecond)
}
