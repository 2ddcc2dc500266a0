package domain

import (
	"context"
	"iter"
)

// MeasurementSource produces an unbounded, ordered sequence of samples until
// the provided context is cancelled or the consumer stops ranging.
type MeasurementSource interface {
	Samples(ctx context.Context) iter.Seq[Sample]
}
