package domain

import "time"

// Sample is a single reading emitted by a measurement source.
//
// Value is meaningful only when HasValue is true and is always zero otherwise.
type Sample struct {
	Timestamp time.Time
	HasValue  bool
	Value     float64
}

// NewSample builds a sample from an evaluation outcome, zeroing the value of
// failed evaluations.
func NewSample(ts time.Time, value float64, ok bool) Sample {
	if !ok {
		value = 0
	}
	return Sample{Timestamp: ts.UTC(), HasValue: ok, Value: value}
}
