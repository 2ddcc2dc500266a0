package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"measurement-simulator/internal/domain"
)

type waveFactory func(sampleRateHz, signalFrequencyHz, variationPercent float64, opts ...Option) (*Generator, error)

var waveFactories = map[string]waveFactory{
	"sine":   NewSine,
	"cosine": NewCosine,
}

func TestWaveFactoriesRejectSignalFrequencyOutOfRange(t *testing.T) {
	for name, create := range waveFactories {
		for _, f := range []float64{0.0999, 0, -1, 10.0001, 11} {
			_, err := create(10, f, 0)
			assert.True(t, errors.Is(err, domain.ErrOutOfRange), "%s f=%v", name, f)
		}
	}
}

func TestWaveFactoriesAcceptSignalFrequencyBoundaries(t *testing.T) {
	for name, create := range waveFactories {
		for _, f := range []float64{0.1, 10} {
			gen, err := create(10, f, 0)
			assert.NoError(t, err, "%s f=%v", name, f)
			assert.NotNil(t, gen)
		}
	}
}

func TestWaveFactoriesValidateSampleRate(t *testing.T) {
	for name, create := range waveFactories {
		_, err := create(0.5, 1, 0)
		assert.ErrorIs(t, err, domain.ErrOutOfRange, name)
	}
}

func TestWaveValueAtTime(t *testing.T) {
	cases := []struct {
		name      string
		create    waveFactory
		frequency float64
		at        float64
		want      float64
		tolerance float64
	}{
		{"sine at zero", NewSine, 1, 0, 0, 1e-12},
		{"cosine at zero", NewCosine, 1, 0, 1, 1e-6},
		{"sine quarter period", NewSine, 2, 0.125, 1, 1e-6},
		{"cosine quarter period", NewCosine, 2, 0.125, 0, 1e-6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen, err := tc.create(10, tc.frequency, 0)
			require.NoError(t, err)

			v, ok := gen.EvaluateWithDraw(tc.at, 0)
			require.True(t, ok)
			assert.InDelta(t, tc.want, v, tc.tolerance)
		})
	}
}

func TestWaveCompletesFullCycle(t *testing.T) {
	const frequency = 1.5
	for name, create := range waveFactories {
		gen, err := create(10, frequency, 0)
		require.NoError(t, err)

		v0, ok0 := gen.EvaluateWithDraw(0, 0)
		v1, ok1 := gen.EvaluateWithDraw(1/frequency, 0)

		assert.True(t, ok0)
		assert.True(t, ok1)
		assert.InDelta(t, v0, v1, 1e-10, name)
	}
}

func TestParseWaveform(t *testing.T) {
	w, ok := ParseWaveform("SINE")
	assert.True(t, ok)
	assert.Equal(t, WaveformSine, w)

	w, ok = ParseWaveform(" Cosine ")
	assert.True(t, ok)
	assert.Equal(t, WaveformCosine, w)

	_, ok = ParseWaveform("square")
	assert.False(t, ok)
}

func TestNewWaveDispatches(t *testing.T) {
	gen, err := NewWave(WaveformCosine, 10, 1, 0)
	require.NoError(t, err)
	v, ok := gen.EvaluateWithDraw(0, 0)
	assert.True(t, ok)
	assert.InDelta(t, 1, v, 1e-12)

	_, err = NewWave(Waveform("square"), 10, 1, 0)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}
