package generator

import (
	"math"
	"math/rand"
)

// SignalFunc computes the raw signal value t seconds after a stream started.
// A returned error (or a panic) marks the tick as having no value.
type SignalFunc func(t float64) (float64, error)

// Func adapts a closed-form function that cannot fail into a SignalFunc.
func Func(f func(t float64) float64) SignalFunc {
	if f == nil {
		return nil
	}
	return func(t float64) (float64, error) {
		return f(t), nil
	}
}

// Float64Source supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// Evaluator turns a time offset into a finite value or an explicit failure,
// applying bounded symmetric multiplicative variation.
type Evaluator struct {
	signal       SignalFunc
	maxVariation float64
}

// NewEvaluator returns an evaluator for signal with a variation half-width of
// variationPercent percent of the raw value. Ranges are checked by New.
func NewEvaluator(signal SignalFunc, variationPercent float64) Evaluator {
	return Evaluator{signal: signal, maxVariation: variationPercent / 100.0}
}

// Evaluate computes the value at t, drawing exactly one number from rnd when
// variation is enabled and none otherwise. A nil rnd draws from a freshly
// seeded source.
func (e Evaluator) Evaluate(t float64, rnd Float64Source) (float64, bool) {
	raw, ok := e.raw(t)
	if !ok {
		return 0, false
	}
	if e.maxVariation == 0 {
		return raw, true
	}
	if rnd == nil {
		rnd = rand.New(seededSource())
	}
	return e.vary(raw, rnd.Float64())
}

// EvaluateWithDraw is Evaluate with a fixed draw u in [0, 1].
func (e Evaluator) EvaluateWithDraw(t, u float64) (float64, bool) {
	raw, ok := e.raw(t)
	if !ok {
		return 0, false
	}
	if e.maxVariation == 0 {
		return raw, true
	}
	return e.vary(raw, u)
}

func (e Evaluator) raw(t float64) (value float64, ok bool) {
	if e.signal == nil {
		return 0, false
	}

	defer func() {
		if recover() != nil {
			value, ok = 0, false
		}
	}()

	v, err := e.signal(t)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

func (e Evaluator) vary(raw, u float64) (float64, bool) {
	r := (u*2.0 - 1.0) * e.maxVariation
	varied := raw * (1.0 + r)
	if !isFinite(varied) {
		return 0, false
	}
	return varied, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
