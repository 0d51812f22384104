package formulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"hybrid-sizing/internal/lp"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// eps is the accepted distance of solver values from their exact optimum.
const eps = 1e-4

// daylight is 1.0 from 06:00 to 17:00 and 0 otherwise.
func daylight() []float64 {
	out := make([]float64, 24)
	for h := 6; h < 18; h++ {
		out[h] = 1
	}
	return out
}

func flatDemand(v float64) model.TimeSeries {
	values := make([]float64, 24)
	for i := range values {
		values[i] = v
	}
	return model.NewTimeSeries(day, time.Hour, values)
}

func solarAsset() *model.CandidateAsset {
	return &model.CandidateAsset{Tech: model.TechSolar, Name: "s1", MaxCapacityMW: 150, Profile: daylight()}
}

func storageAsset() *model.CandidateAsset {
	return &model.CandidateAsset{Tech: model.TechStorage, Name: "b1", StoreEfficiency: 0.9, DispatchEfficiency: 0.9, MaxHours: 4}
}

func build(t *testing.T, sc model.ScenarioParameters, solar, storage *model.CandidateAsset) (*network.Network, Report) {
	t.Helper()
	net, err := network.Build(flatDemand(100), solar, nil, storage, sc)
	require.NoError(t, err)
	report, err := Apply(net, sc, zap.NewNop())
	require.NoError(t, err)
	return net, report
}

func solve(t *testing.T, net *network.Network) *lp.Solution {
	t.Helper()
	sol, err := lp.NewInteriorPoint().Solve(context.Background(), net.Problem)
	require.NoError(t, err)
	return sol
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func TestApplySolarOnlyBlocks(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	net, report := build(t, sc, solarAsset(), nil)

	assert.Equal(t, []string{BlockCurtailment, BlockDemandOffset, BlockCurtailmentCost}, report.Applied)
	assert.Empty(t, report.Warnings)
	assert.Len(t, report.Skipped, 6)
	assert.Equal(t, 24, net.Problem.RowsWithPrefix("solar_curtailment_def["))
	assert.Equal(t, 1, net.Problem.RowsWithPrefix(BlockDemandOffset))
	g := net.Generators[0]
	assert.Len(t, g.Curtailment, 24)
	// Δh·(0 − 0.5·3000)
	assert.Equal(t, -1500.0, g.CurtailmentCost)
	assert.Equal(t, -1500.0, net.Problem.ObjectiveCoef(g.Curtailment[0]))
	assert.InDelta(t, 1500*tieBreakWeight, net.Problem.ObjectiveCoef(g.Capacity), 1e-12)
}

func TestApplySolvesSolarOnly(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	net, _ := build(t, sc, solarAsset(), nil)
	sol := solve(t, net)

	g := net.Generators[0]
	// Resale makes curtailment profitable: capacity goes to its bound and the
	// offset row binds.
	assert.InDelta(t, 150, sol.Value(g.Capacity), eps)
	assert.InDelta(t, 960, sum(sol.Values(g.Dispatch)), eps)
	assert.InDelta(t, 840, sum(sol.Values(g.Curtailment)), eps)
	assert.InDelta(t, 1440, sum(sol.Values(net.Unmet.Dispatch)), eps)
	assert.InDelta(t, -1500*840.0+1500*tieBreakWeight*150, sol.Objective, 1e-2)
}

func TestApplyAggregatedCurtailmentLimit(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	sc.CurtailmentPolicy = model.PolicyAggregated
	net, report := build(t, sc, solarAsset(), nil)
	require.True(t, report.Has(BlockAnnualCurtailment))

	sol := solve(t, net)
	g := net.Generators[0]
	// 12·(cap − 100) ≤ 0.3·12·cap
	assert.InDelta(t, 100/0.7, sol.Value(g.Capacity), eps)
	curtailed := sum(sol.Values(g.Curtailment))
	assert.InDelta(t, 0.3*12*sol.Value(g.Capacity), curtailed, eps)
}

func TestApplyTransmissionCap(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.3
	sc.TransmissionCapacityMW = 80
	net, report := build(t, sc, solarAsset(), nil)
	require.True(t, report.Has(BlockTransmission))

	sol := solve(t, net)
	for _, p := range sol.Values(net.Generators[0].Dispatch) {
		assert.LessOrEqual(t, p, 80+eps)
	}
	assert.InDelta(t, 1680, sum(sol.Values(net.Unmet.Dispatch)), eps)
}

func TestApplyStorageBlocks(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	net, report := build(t, sc, solarAsset(), storageAsset())

	assert.True(t, report.Has(BlockStorageFloor))
	assert.True(t, report.Has(BlockStorageChargeReal))
	assert.Equal(t, 23, net.Problem.RowsWithPrefix(BlockStorageFloor+"["))
	assert.Equal(t, 24, net.Problem.RowsWithPrefix(BlockStorageChargeReal+"["))

	sol := solve(t, net)
	s := net.Storage
	gen := sol.Values(net.Generators[0].Dispatch)
	for i, store := range sol.Values(s.Store) {
		assert.LessOrEqual(t, store, gen[i]+eps)
	}
}

func TestApplyStorageWithoutGeneratorCannotCharge(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0
	net, report := build(t, sc, nil, storageAsset())

	assert.False(t, report.Has(BlockCurtailment))
	assert.False(t, report.Has(BlockCurtailmentCost))
	assert.True(t, report.Has(BlockStorageChargeReal))

	sol := solve(t, net)
	assert.InDelta(t, 0, sum(sol.Values(net.Storage.Store)), eps)
	assert.InDelta(t, 2400, sum(sol.Values(net.Unmet.Dispatch)), eps)
	assert.InDelta(t, 0, sol.Value(net.Storage.Capacity), eps)
}

func TestApplyPeakHours(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	sc.PeakTarget = 90
	sc.PeakHours = []int{10, 11}
	net, report := build(t, sc, solarAsset(), nil)

	require.True(t, report.Has(BlockPeakHours))
	assert.Equal(t, model.DefaultPeakPenalty, net.Problem.ObjectiveCoef(net.Unmet.Dispatch[10]))
	assert.Equal(t, 0.0, net.Problem.ObjectiveCoef(net.Unmet.Dispatch[3]))

	sol := solve(t, net)
	assert.InDelta(t, 0, sol.Value(net.Unmet.Dispatch[10])+sol.Value(net.Unmet.Dispatch[11]), eps)
}

func TestApplyMonthlyBroadcast(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0
	sc.MonthlyTargets = []float64{40}
	net, report := build(t, sc, solarAsset(), nil)

	require.True(t, report.Has(BlockMonthly))
	// Only January has data.
	assert.Equal(t, 1, net.Problem.RowsWithPrefix(BlockMonthly+"["))

	sol := solve(t, net)
	assert.LessOrEqual(t, sum(sol.Values(net.Unmet.Dispatch)), 0.6*2400+eps)
}

func TestApplyMonthlyMalformedIsSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sc := model.DefaultScenario()
	sc.MonthlyTargets = []float64{0.5, 0.5}

	net, err := network.Build(flatDemand(100), solarAsset(), nil, nil, sc)
	require.NoError(t, err)
	report, err := Apply(net, sc, zap.New(core))
	require.NoError(t, err)

	assert.False(t, report.Has(BlockMonthly))
	require.Len(t, report.Warnings, 1)
	assert.True(t, errors.Is(report.Warnings[0], model.ErrConfiguration))
	assert.Equal(t, 0, net.Problem.RowsWithPrefix(BlockMonthly))
	assert.Equal(t, 1, logs.Len())
}

func TestApplyUnmetDemandCost(t *testing.T) {
	sc := model.DefaultScenario()
	sc.UnmetDemandCost = 50
	net, _ := build(t, sc, solarAsset(), nil)
	assert.Equal(t, 50.0, net.Problem.ObjectiveCoef(net.Unmet.Dispatch[0]))
}

func TestApplyRejectsNilNetwork(t *testing.T) {
	_, err := Apply(nil, model.DefaultScenario(), nil)
	assert.Error(t, err)
}

func TestApplyStorageTieBreak(t *testing.T) {
	sc := model.DefaultScenario()
	sc.OffsetTarget = 0.4
	net, _ := build(t, sc, solarAsset(), storageAsset())

	weight := 1500 * tieBreakWeight
	s := net.Storage
	assert.InDelta(t, weight, net.Problem.ObjectiveCoef(s.Capacity), 1e-12)
	assert.InDelta(t, weight, net.Problem.ObjectiveCoef(s.Store[5]), 1e-12)
	assert.InDelta(t, weight, net.Problem.ObjectiveCoef(s.Dispatch[5]), 1e-12)

	// A 20% depth-of-discharge floor from the second hour on, while the first
	// six hours are dark, leaves no room for any storage.
	sol := solve(t, net)
	assert.InDelta(t, 0, sol.Value(s.Capacity), eps)
	assert.InDelta(t, 0, sum(sol.Values(s.Dispatch)), eps)
}
