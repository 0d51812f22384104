package model

import (
	"fmt"
	"time"
)

// TimeSeries is an ordered sequence of values on a fixed cadence.
// Values are MW (demand) or per-unit availability (profiles).
//
// A TimeSeries is treated as immutable once handed to the network builder;
// accessors return copies.
type TimeSeries struct {
	Timestamps []time.Time
	Values     []float64
	Step       time.Duration
}

// NewTimeSeries builds a series starting at start with the given cadence.
func NewTimeSeries(start time.Time, step time.Duration, values []float64) TimeSeries {
	ts := make([]time.Time, len(values))
	for i := range values {
		ts[i] = start.Add(time.Duration(i) * step)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return TimeSeries{Timestamps: ts, Values: vals, Step: step}
}

func (s TimeSeries) Len() int { return len(s.Values) }

// StepHours is the snapshot length in hours.
func (s TimeSeries) StepHours() float64 {
	if s.Step <= 0 {
		return 1
	}
	return s.Step.Hours()
}

// HorizonHours is the total modelled duration in hours.
func (s TimeSeries) HorizonHours() float64 {
	return float64(s.Len()) * s.StepHours()
}

// Sum returns the total of all values.
func (s TimeSeries) Sum() float64 {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return total
}

// Max returns the largest value, or 0 for an empty series.
func (s TimeSeries) Max() float64 {
	out := 0.0
	for i, v := range s.Values {
		if i == 0 || v > out {
			out = v
		}
	}
	return out
}

// ValuesCopy returns a defensive copy of the values.
func (s TimeSeries) ValuesCopy() []float64 {
	out := make([]float64, len(s.Values))
	copy(out, s.Values)
	return out
}

// Validate checks the shape invariants: equal lengths and strictly increasing timestamps.
func (s TimeSeries) Validate() error {
	if len(s.Timestamps) != len(s.Values) {
		return fmt.Errorf("%w: %d timestamps for %d values", ErrDataAlignment, len(s.Timestamps), len(s.Values))
	}
	for i := 1; i < len(s.Timestamps); i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrDataAlignment, i)
		}
	}
	return nil
}
