package generator

import (
	"context"
	"fmt"
	"iter"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"measurement-simulator/internal/domain"
)

// Accepted construction ranges, all inclusive.
const (
	MinSampleRateHz      = 1.0
	MaxSampleRateHz      = 100.0
	MinVariationPercent  = 0.0
	MaxVariationPercent  = 100.0
	MinSignalFrequencyHz = 0.1
	MaxSignalFrequencyHz = 10.0
)

// Option customises a Generator.
type Option func(*Generator)

// WithRandSource sets the factory used to create the random source owned by
// each stream. Passing a factory returning identically seeded sources makes
// variation reproducible.
func WithRandSource(newSource func() rand.Source) Option {
	return func(g *Generator) {
		if newSource != nil {
			g.newSource = newSource
		}
	}
}

// Generator simulates a periodic measurement instrument. It is immutable after
// construction; every call to Samples starts an independent stream.
type Generator struct {
	sampleRateHz     float64
	variationPercent float64
	eval             Evaluator
	newSource        func() rand.Source
}

// New creates a generator emitting sampleRateHz samples per second of signal,
// perturbed by up to ±variationPercent percent.
func New(sampleRateHz float64, signal SignalFunc, variationPercent float64, opts ...Option) (*Generator, error) {
	if !inRange(sampleRateHz, MinSampleRateHz, MaxSampleRateHz) {
		return nil, fmt.Errorf("%w: sampleRateHz must be in range 1..100, got %v", domain.ErrOutOfRange, sampleRateHz)
	}
	if !inRange(variationPercent, MinVariationPercent, MaxVariationPercent) {
		return nil, fmt.Errorf("%w: variationPercent must be in range 0..100, got %v", domain.ErrOutOfRange, variationPercent)
	}
	if signal == nil {
		return nil, fmt.Errorf("%w: signal function is required", domain.ErrMissingArgument)
	}

	g := &Generator{
		sampleRateHz:     sampleRateHz,
		variationPercent: variationPercent,
		eval:             NewEvaluator(signal, variationPercent),
		newSource:        seededSource,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SampleRateHz reports the configured number of ticks per second.
func (g *Generator) SampleRateHz() float64 {
	return g.sampleRateHz
}

// VariationPercent reports the configured variation half-width.
func (g *Generator) VariationPercent() float64 {
	return g.variationPercent
}

// Interval is the logical time between two ticks.
func (g *Generator) Interval() time.Duration {
	return g.dueOffset(1)
}

// Evaluate computes a single value at t seconds using the given randomness.
// A nil rnd draws from a freshly seeded source.
func (g *Generator) Evaluate(t float64, rnd Float64Source) (float64, bool) {
	return g.eval.Evaluate(t, rnd)
}

// EvaluateWithDraw computes a single value at t seconds with a fixed draw.
func (g *Generator) EvaluateWithDraw(t, u float64) (float64, bool) {
	return g.eval.EvaluateWithDraw(t, u)
}

// Samples returns a lazy, infinite sequence of samples. Ranging over it starts
// a fresh stream with its own start instant and random source. Due times are
// computed from that start instant and the tick index, so a slow consumer
// makes ticks bunch up instead of shifting the whole stream. The sequence ends
// only when ctx is cancelled or the consumer stops ranging; a cancellation
// observed while waiting for the next tick emits nothing further.
func (g *Generator) Samples(ctx context.Context) iter.Seq[domain.Sample] {
	return func(yield func(domain.Sample) bool) {
		if ctx.Err() != nil {
			return
		}

		rnd := rand.New(g.newSource())
		start := time.Now()

		for i := int64(0); ; i++ {
			if ctx.Err() != nil {
				return
			}

			t := time.Since(start).Seconds()
			value, ok := g.eval.Evaluate(t, rnd)
			if !yield(domain.NewSample(time.Now(), value, ok)) {
				return
			}

			remaining := g.dueOffset(i+1) - time.Since(start)
			if remaining <= 0 {
				continue
			}
			if !wait(ctx, remaining) {
				return
			}
		}
	}
}

func (g *Generator) dueOffset(index int64) time.Duration {
	return time.Duration(float64(index) / g.sampleRateHz * float64(time.Second))
}

// wait blocks for d or until ctx is done, reporting whether the full duration elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

var streamSeq atomic.Int64

func seededSource() rand.Source {
	return rand.NewSource(time.Now().UnixNano() + streamSeq.Add(1))
}

var _ domain.MeasurementSource = (*Generator)(nil)
