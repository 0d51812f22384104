package network

import (
	"testing"
	"time"

	"hybrid-sizing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func demandOf(n int, v float64) model.TimeSeries {
	return model.NewTimeSeries(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour, flat(n, v))
}

func TestBuildSolarOnly(t *testing.T) {
	solar := &model.CandidateAsset{Tech: model.TechSolar, Name: "s1", MaxCapacityMW: 150, Profile: flat(24, 0.5)}
	net, err := Build(demandOf(24, 100), solar, nil, nil, model.DefaultScenario())
	require.NoError(t, err)

	assert.Equal(t, BusName, net.Bus)
	require.Len(t, net.Generators, 1)
	assert.Equal(t, model.TechSolar, net.Generators[0].Tech)
	assert.Nil(t, net.Generator(model.TechWind))
	assert.False(t, net.HasStorage())
	assert.Equal(t, SlackName, net.Unmet.Name)
	assert.Len(t, net.Unmet.Dispatch, 24)
	assert.Equal(t, 24, net.Problem.RowsWithPrefix("balance["))
	// capacity + 24 dispatch + 24 unmet
	assert.Equal(t, 49, net.Problem.NumVars())
}

func TestBuildAllTechnologies(t *testing.T) {
	solar := &model.CandidateAsset{Tech: model.TechSolar, Name: "s1", MaxCapacityMW: 50, Profile: flat(6, 1)}
	wind := &model.CandidateAsset{Tech: model.TechWind, Name: "w1", MaxCapacityMW: 50, Profile: flat(6, 0.3)}
	storage := &model.CandidateAsset{Tech: model.TechStorage, Name: "b1", StoreEfficiency: 0.9, DispatchEfficiency: 0.9, MaxHours: 4}

	net, err := Build(demandOf(6, 10), solar, wind, storage, model.DefaultScenario())
	require.NoError(t, err)

	require.Len(t, net.Generators, 2)
	assert.Equal(t, model.TechWind, net.Generators[1].Tech)
	require.True(t, net.HasStorage())
	assert.True(t, net.Storage.EnergyLimited)
	assert.Equal(t, model.DefaultDepthOfDischarge, net.Storage.DepthOfDischarge)
	assert.Equal(t, 6, net.Problem.RowsWithPrefix("soc_dynamics["))
	assert.Equal(t, 6, net.Problem.RowsWithPrefix("soc_energy_limit["))
	assert.Equal(t, 6, net.Problem.RowsWithPrefix("storage_store_limit["))

	// Balance row carries every injection and the storage withdrawal.
	row := net.Problem.Rows()[len(net.Problem.Rows())-1]
	assert.Equal(t, "balance[5]", row.Name)
	assert.Len(t, row.Terms, 5)
	assert.Equal(t, 10.0, row.RHS)
}

func TestBuildInformationalEnergyLimit(t *testing.T) {
	storage := &model.CandidateAsset{Tech: model.TechStorage, Name: "b1", StoreEfficiency: 0.9, DispatchEfficiency: 0.9, MaxHours: 4, DepthOfDischarge: 0.5}
	sc := model.DefaultScenario()
	sc.StorageEnergyLimit = model.EnergyLimitInformational

	net, err := Build(demandOf(4, 10), nil, nil, storage, sc)
	require.NoError(t, err)
	assert.False(t, net.Storage.EnergyLimited)
	assert.Equal(t, 0.5, net.Storage.DepthOfDischarge)
	assert.Equal(t, 0, net.Problem.RowsWithPrefix("soc_energy_limit"))
}

func TestBuildRejectsMisalignedProfile(t *testing.T) {
	solar := &model.CandidateAsset{Tech: model.TechSolar, Name: "s1", MaxCapacityMW: 10, Profile: flat(5, 1)}
	_, err := Build(demandOf(6, 10), solar, nil, nil, model.DefaultScenario())
	assert.ErrorIs(t, err, model.ErrDataAlignment)

	_, err = Build(model.TimeSeries{}, nil, nil, nil, model.DefaultScenario())
	assert.ErrorIs(t, err, model.ErrDataAlignment)
}
