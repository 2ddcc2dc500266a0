package generator

import (
	"fmt"
	"math"
	"strings"

	"measurement-simulator/internal/domain"
)

// Waveform names a closed-form periodic signal.
type Waveform string

const (
	WaveformSine   Waveform = "sine"
	WaveformCosine Waveform = "cosine"
)

// ParseWaveform resolves a waveform name case-insensitively.
func ParseWaveform(name string) (Waveform, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(WaveformSine):
		return WaveformSine, true
	case string(WaveformCosine):
		return WaveformCosine, true
	default:
		return "", false
	}
}

// SineSignal returns sin(2π·f·t).
func SineSignal(signalFrequencyHz float64) SignalFunc {
	omega := 2.0 * math.Pi * signalFrequencyHz
	return Func(func(t float64) float64 { return math.Sin(omega * t) })
}

// CosineSignal returns cos(2π·f·t).
func CosineSignal(signalFrequencyHz float64) SignalFunc {
	omega := 2.0 * math.Pi * signalFrequencyHz
	return Func(func(t float64) float64 { return math.Cos(omega * t) })
}

// NewSine creates a generator following a sine wave of signalFrequencyHz.
func NewSine(sampleRateHz, signalFrequencyHz, variationPercent float64, opts ...Option) (*Generator, error) {
	if err := validateSignalFrequency(signalFrequencyHz); err != nil {
		return nil, err
	}
	return New(sampleRateHz, SineSignal(signalFrequencyHz), variationPercent, opts...)
}

// NewCosine creates a generator following a cosine wave of signalFrequencyHz.
func NewCosine(sampleRateHz, signalFrequencyHz, variationPercent float64, opts ...Option) (*Generator, error) {
	if err := validateSignalFrequency(signalFrequencyHz); err != nil {
		return nil, err
	}
	return New(sampleRateHz, CosineSignal(signalFrequencyHz), variationPercent, opts...)
}

// NewWave dispatches to NewSine or NewCosine.
func NewWave(waveform Waveform, sampleRateHz, signalFrequencyHz, variationPercent float64, opts ...Option) (*Generator, error) {
	switch waveform {
	case WaveformSine:
		return NewSine(sampleRateHz, signalFrequencyHz, variationPercent, opts...)
	case WaveformCosine:
		return NewCosine(sampleRateHz, signalFrequencyHz, variationPercent, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown waveform %q", domain.ErrOutOfRange, waveform)
	}
}

func validateSignalFrequency(signalFrequencyHz float64) error {
	if !inRange(signalFrequencyHz, MinSignalFrequencyHz, MaxSignalFrequencyHz) {
		return fmt.Errorf("%w: signalFrequencyHz must be in range 0.1..10, got %v", domain.ErrOutOfRange, signalFrequencyHz)
	}
	return nil
}
