package generator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingSource struct {
	value float64
	calls int
}

func (s *countingSource) Float64() float64 {
	s.calls++
	return s.value
}

func constant(v float64) SignalFunc {
	return Func(func(float64) float64 { return v })
}

func TestEvaluateZeroVariationReturnsRawWithoutDraw(t *testing.T) {
	eval := NewEvaluator(Func(func(t float64) float64 { return t * 3 }), 0)
	src := &countingSource{value: 0.9}

	for _, at := range []float64{0, 0.1, 1, 12.5} {
		v, ok := eval.Evaluate(at, src)
		assert.True(t, ok)
		assert.Equal(t, at*3, v)
	}
	assert.Zero(t, src.calls)
}

func TestEvaluateWithVariationDrawsExactlyOnce(t *testing.T) {
	eval := NewEvaluator(constant(10), 50)
	src := &countingSource{value: 0.5}

	v, ok := eval.Evaluate(0, src)

	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, 1, src.calls)
}

func TestEvaluateLinearFunctionIncreases(t *testing.T) {
	eval := NewEvaluator(Func(func(t float64) float64 { return t }), 0)

	v0, ok0 := eval.EvaluateWithDraw(0.1, 0)
	v1, ok1 := eval.EvaluateWithDraw(0.2, 0)

	assert.True(t, ok0)
	assert.True(t, ok1)
	assert.Greater(t, v1, v0)
}

func TestEvaluateNonFiniteResultReportsNoValue(t *testing.T) {
	for _, invalid := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		eval := NewEvaluator(constant(invalid), 0)

		v, ok := eval.EvaluateWithDraw(0, 0.5)
		assert.False(t, ok)
		assert.Zero(t, v)
	}
}

func TestEvaluateErrorReportsNoValue(t *testing.T) {
	eval := NewEvaluator(func(float64) (float64, error) { return 1, errors.New("boom") }, 0)

	_, ok := eval.EvaluateWithDraw(0, 0)
	assert.False(t, ok)
	_, ok = eval.EvaluateWithDraw(1, 0)
	assert.False(t, ok)
}

func TestEvaluatePanicReportsNoValue(t *testing.T) {
	eval := NewEvaluator(Func(func(float64) float64 { panic("boom") }), 10)

	assert.NotPanics(t, func() {
		v, ok := eval.EvaluateWithDraw(0, 1)
		assert.False(t, ok)
		assert.Zero(t, v)
	})
}

func TestEvaluateFailureDoesNotPoisonLaterCalls(t *testing.T) {
	calls := 0
	eval := NewEvaluator(func(float64) (float64, error) {
		calls++
		if calls == 2 {
			panic("transient")
		}
		return 1, nil
	}, 0)

	v, ok := eval.EvaluateWithDraw(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = eval.EvaluateWithDraw(0.1, 0)
	assert.False(t, ok)

	v, ok = eval.EvaluateWithDraw(0.2, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestEvaluateFunctionFailingAfterSomeCalls(t *testing.T) {
	calls := 0
	eval := NewEvaluator(func(float64) (float64, error) {
		calls++
		if calls <= 2 {
			return 1, nil
		}
		return 0, errors.New("boom")
	}, 0)

	for i, want := range []bool{true, true, false, false} {
		_, ok := eval.EvaluateWithDraw(float64(i)/10, 0)
		assert.Equal(t, want, ok, "call %d", i)
	}
}

func TestVariationBounds(t *testing.T) {
	cases := []struct {
		variation float64
		min, max  float64
	}{
		{variation: 20, min: 8, max: 12},
		{variation: 100, min: 0, max: 20},
	}

	for _, tc := range cases {
		eval := NewEvaluator(constant(10), tc.variation)

		vMin, ok := eval.EvaluateWithDraw(0, 0)
		assert.True(t, ok)
		assert.InDelta(t, tc.min, vMin, 1e-12)

		vMax, ok := eval.EvaluateWithDraw(0, 1)
		assert.True(t, ok)
		assert.InDelta(t, tc.max, vMax, 1e-12)
	}
}

func TestVariationIsDeterministicForFixedDraw(t *testing.T) {
	eval := NewEvaluator(Func(math.Sin), 35)

	for _, u := range []float64{0, 0.1, 0.5, 0.77, 1} {
		a, okA := eval.EvaluateWithDraw(0.3, u)
		b, okB := eval.EvaluateWithDraw(0.3, u)
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	}
}

func TestVariationActuallyVaries(t *testing.T) {
	eval := NewEvaluator(constant(10), 50)

	v0, _ := eval.EvaluateWithDraw(0, 0.1)
	v1, _ := eval.EvaluateWithDraw(0, 0.9)

	assert.NotEqual(t, v0, v1)
}

func TestVariationOverflowReportsNoValue(t *testing.T) {
	eval := NewEvaluator(constant(math.MaxFloat64), 100)

	v, ok := eval.EvaluateWithDraw(0, 1)

	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestEvaluateNeverReturnsNonFiniteValue(t *testing.T) {
	signals := []SignalFunc{
		constant(math.MaxFloat64),
		constant(-math.MaxFloat64),
		constant(math.NaN()),
		Func(math.Sin),
		Func(func(t float64) float64 { return 1 / t }),
	}

	for _, signal := range signals {
		eval := NewEvaluator(signal, 100)
		for _, u := range []float64{0, 0.25, 0.5, 0.75, 1} {
			for _, at := range []float64{0, 0.5, 1} {
				v, ok := eval.EvaluateWithDraw(at, u)
				if ok {
					assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
				}
			}
		}
	}
}
