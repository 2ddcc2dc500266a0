package streaming

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"measurement-simulator/internal/application/generator"
)

// Request parameter names shared by every transport.
const (
	ParamMeasurementFrequencyHz = "measurementFrequencyHz"
	ParamSignal                 = "signal"
	ParamSignalFrequencyHz      = "signalFrequencyHz"
	ParamVariationPercent       = "variationPercent"
)

// Params describes a requested simulated measurement stream.
type Params struct {
	MeasurementFrequencyHz float64
	Signal                 string
	SignalFrequencyHz      float64
	VariationPercent       float64
}

// ValidationErrors maps a parameter name to the messages describing why it was rejected.
type ValidationErrors map[string][]string

func (v ValidationErrors) add(field, message string) {
	v[field] = append(v[field], message)
}

// Fields returns the rejected parameter names in a stable order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, field := range v.Fields() {
		parts = append(parts, strings.Join(v[field], " "))
	}
	return strings.Join(parts, " ")
}

// Lookup returns a raw parameter value and whether it was supplied.
type Lookup func(name string) (string, bool)

// Parse fills absent parameters from defaults and records unparsable ones.
func Parse(lookup Lookup, defaults Params) (Params, ValidationErrors) {
	errs := ValidationErrors{}
	p := defaults

	readFloat := func(name string, dst *float64) {
		raw, ok := lookup(name)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			errs.add(name, "The value '"+raw+"' is not valid for "+name+".")
			return
		}
		*dst = v
	}

	readFloat(ParamMeasurementFrequencyHz, &p.MeasurementFrequencyHz)
	readFloat(ParamSignalFrequencyHz, &p.SignalFrequencyHz)
	readFloat(ParamVariationPercent, &p.VariationPercent)

	if raw, ok := lookup(ParamSignal); ok && strings.TrimSpace(raw) != "" {
		p.Signal = raw
	}

	return p, errs
}

// Validate checks every parameter against the ranges accepted by the generator.
func (p Params) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if !isFiniteInRange(p.MeasurementFrequencyHz, generator.MinSampleRateHz, generator.MaxSampleRateHz) {
		errs.add(ParamMeasurementFrequencyHz, "measurementFrequencyHz must be in range 1.0..100.0.")
	}
	if !isFiniteInRange(p.SignalFrequencyHz, generator.MinSignalFrequencyHz, generator.MaxSignalFrequencyHz) {
		errs.add(ParamSignalFrequencyHz, "signalFrequencyHz must be in range 0.1..10.0.")
	}
	if !isFiniteInRange(p.VariationPercent, generator.MinVariationPercent, generator.MaxVariationPercent) {
		errs.add(ParamVariationPercent, "variationPercent must be in range 0.0..100.0.")
	}
	if _, ok := generator.ParseWaveform(p.Signal); !ok {
		errs.add(ParamSignal, "signal must be either 'sine' or 'cosine'.")
	}

	return errs
}

func isFiniteInRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= lo && v <= hi
}
