package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCombinationIDString(t *testing.T) {
	tests := []struct {
		id   CombinationID
		want string
	}{
		{CombinationID{Owner: "acme", Solar: "s1"}, "acme-s1"},
		{CombinationID{Owner: "acme", Solar: "s1", Wind: "w1", Storage: "b1"}, "acme-s1-w1-b1"},
		{CombinationID{Owner: "acme", Wind: "w1", Storage: "b1"}, "acme-w1-b1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.id.String())
	}
	assert.True(t, CombinationID{Owner: "acme"}.Empty())
	assert.False(t, CombinationID{Owner: "acme", Storage: "b"}.Empty())
}

func TestActionFromStorage(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromStorage(5, 0))
	assert.Equal(t, ActionDischarging, ActionFromStorage(0, 5))
	assert.Equal(t, ActionIdle, ActionFromStorage(1e-9, 0))
}

func TestAssetValidate(t *testing.T) {
	solar := CandidateAsset{Tech: TechSolar, Name: "s", MaxCapacityMW: 10, Profile: []float64{0.5}}
	assert.NoError(t, solar.Validate())

	solar.Profile = nil
	assert.Error(t, solar.Validate())

	storage := CandidateAsset{Tech: TechStorage, Name: "b", StoreEfficiency: 0.95, DispatchEfficiency: 0.95, DepthOfDischarge: 0.8}
	assert.NoError(t, storage.Validate())

	storage.StoreEfficiency = 1.2
	assert.Error(t, storage.Validate())

	owner := OwnerAssets{Owner: "acme"}
	assert.NoError(t, owner.Add(CandidateAsset{Tech: TechWind, Name: "w"}))
	assert.Equal(t, "acme", owner.Wind[0].Owner)
	assert.Error(t, owner.Add(CandidateAsset{Tech: "hydro", Name: "h"}))
}

func TestTimeSeriesValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTimeSeries(start, time.Hour, []float64{1, 2, 3})
	assert.NoError(t, s.Validate())
	assert.Equal(t, 6.0, s.Sum())
	assert.Equal(t, 3.0, s.Max())
	assert.Equal(t, 3.0, s.HorizonHours())

	s.Timestamps[2] = s.Timestamps[1]
	assert.ErrorIs(t, s.Validate(), ErrDataAlignment)
}
