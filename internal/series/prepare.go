// Package series prepares demand and availability profiles into aligned,
// equal-length series over a shared snapshot index.
package series

import (
	"fmt"
	"math"
	"time"

	"hybrid-sizing/internal/model"
)

const (
	HoursPerDay  = 24
	HoursPerYear = 8760

	profileTolerance = 1e-9
)

// FlatDemand replicates a constant MW value across 24 hours and tiles it to the horizon.
func FlatDemand(valueMW float64, years int, start time.Time) (model.TimeSeries, error) {
	if valueMW < 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: flat demand must be >= 0, got %g", model.ErrDataAlignment, valueMW)
	}
	if years <= 0 {
		years = 1
	}
	day := make([]float64, HoursPerDay)
	for i := range day {
		day[i] = valueMW
	}
	vals, err := Tile(day, years*HoursPerYear)
	if err != nil {
		return model.TimeSeries{}, err
	}
	return model.NewTimeSeries(start, time.Hour, vals), nil
}

// FlatDay is a single 24 hour flat demand day, used for quick what-if runs.
func FlatDay(valueMW float64, start time.Time) model.TimeSeries {
	day := make([]float64, HoursPerDay)
	for i := range day {
		day[i] = valueMW
	}
	return model.NewTimeSeries(start, time.Hour, day)
}

// HourlyDemand builds an hourly series from explicit values.
func HourlyDemand(values []float64, start time.Time) (model.TimeSeries, error) {
	if len(values) == 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: demand series is empty", model.ErrDataAlignment)
	}
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.TimeSeries{}, fmt.Errorf("%w: demand value %g at index %d", model.ErrDataAlignment, v, i)
		}
	}
	return model.NewTimeSeries(start, time.Hour, values), nil
}

// Tile repeats or truncates values to exactly n entries. A 24 value daily profile
// is first expanded to a full year. Lengths that neither cover n nor divide it fail.
func Tile(values []float64, n int) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty profile", model.ErrDataAlignment)
	}
	src := values
	if len(src) == HoursPerDay && n > HoursPerDay {
		src = repeat(src, HoursPerYear)
	}
	switch {
	case len(src) >= n:
		out := make([]float64, n)
		copy(out, src[:n])
		return out, nil
	case n%len(src) == 0:
		return repeat(src, n), nil
	default:
		return nil, fmt.Errorf("%w: profile of length %d cannot be tiled to %d snapshots", model.ErrDataAlignment, len(values), n)
	}
}

func repeat(src []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}

// AggregatePairs averages consecutive pairs, halving the resolution.
func AggregatePairs(s model.TimeSeries) (model.TimeSeries, error) {
	vals, err := pairMeans(s.Values)
	if err != nil {
		return model.TimeSeries{}, err
	}
	start := time.Time{}
	if len(s.Timestamps) > 0 {
		start = s.Timestamps[0]
	}
	return model.NewTimeSeries(start, 2*s.Step, vals), nil
}

func pairMeans(values []float64) ([]float64, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("%w: cannot aggregate odd length %d into pairs", model.ErrDataAlignment, len(values))
	}
	out := make([]float64, len(values)/2)
	for i := range out {
		out[i] = (values[2*i] + values[2*i+1]) / 2
	}
	return out, nil
}

// Prepared is an aligned demand series plus asset copies whose profiles match it.
type Prepared struct {
	Demand  model.TimeSeries
	Solar   *model.CandidateAsset
	Wind    *model.CandidateAsset
	Storage *model.CandidateAsset
}

// Prepare aligns the profiles of a combination to demand and optionally halves the
// resolution of everything. Inputs are never mutated; returned assets are copies.
func Prepare(demand model.TimeSeries, halve bool, solar, wind, storage *model.CandidateAsset) (Prepared, error) {
	if err := demand.Validate(); err != nil {
		return Prepared{}, err
	}
	if demand.Len() == 0 {
		return Prepared{}, fmt.Errorf("%w: demand series is empty", model.ErrDataAlignment)
	}
	out := Prepared{Demand: demand}
	var err error
	if out.Solar, err = alignAsset(solar, demand.Len(), halve); err != nil {
		return Prepared{}, err
	}
	if out.Wind, err = alignAsset(wind, demand.Len(), halve); err != nil {
		return Prepared{}, err
	}
	if storage != nil {
		cp := *storage
		out.Storage = &cp
	}
	if halve {
		if out.Demand, err = AggregatePairs(demand); err != nil {
			return Prepared{}, err
		}
	} else {
		out.Demand = model.NewTimeSeries(demand.Timestamps[0], demand.Step, demand.Values)
	}
	return out, nil
}

func alignAsset(a *model.CandidateAsset, n int, halve bool) (*model.CandidateAsset, error) {
	if a == nil {
		return nil, nil
	}
	if len(a.Profile) == 0 {
		return nil, fmt.Errorf("%w: %s asset %q has no generation profile", model.ErrDataAlignment, a.Tech, a.Name)
	}
	for i, v := range a.Profile {
		if v < -profileTolerance || v > 1+profileTolerance || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %s profile value %g at index %d outside [0, 1]", model.ErrDataAlignment, a.Name, v, i)
		}
	}
	vals, err := Tile(a.Profile, n)
	if err != nil {
		return nil, fmt.Errorf("%s asset %q: %w", a.Tech, a.Name, err)
	}
	if halve {
		if vals, err = pairMeans(vals); err != nil {
			return nil, err
		}
	}
	for i, v := range vals {
		vals[i] = math.Min(1, math.Max(0, v))
	}
	cp := *a
	cp.Profile = vals
	return &cp, nil
}
