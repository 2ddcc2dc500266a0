package streaming

import (
	"measurement-simulator/internal/application/generator"
	"measurement-simulator/internal/domain"
	"measurement-simulator/internal/infra"
)

// Factory turns request parameters into measurement sources.
type Factory struct {
	defaults Params
	opts     []generator.Option
}

// NewFactory builds a factory whose absent parameters fall back to defaults.
func NewFactory(defaults infra.StreamDefaults, opts ...generator.Option) *Factory {
	return &Factory{
		defaults: Params{
			MeasurementFrequencyHz: defaults.MeasurementFrequencyHz,
			Signal:                 defaults.Signal,
			SignalFrequencyHz:      defaults.SignalFrequencyHz,
			VariationPercent:       defaults.VariationPercent,
		},
		opts: opts,
	}
}

// Defaults returns the parameters used when a request omits them.
func (f *Factory) Defaults() Params {
	return f.defaults
}

// Resolve parses, defaults and validates raw request parameters.
func (f *Factory) Resolve(lookup Lookup) (Params, ValidationErrors) {
	p, errs := Parse(lookup, f.defaults)
	for field, messages := range p.Validate() {
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = messages
	}
	if len(errs) > 0 {
		return Params{}, errs
	}
	return p, nil
}

// Source builds the generator for already validated parameters.
func (f *Factory) Source(p Params) (domain.MeasurementSource, error) {
	waveform, ok := generator.ParseWaveform(p.Signal)
	if !ok {
		return nil, ValidationErrors{ParamSignal: {"signal must be either 'sine' or 'cosine'."}}
	}
	return generator.NewWave(waveform, p.MeasurementFrequencyHz, p.SignalFrequencyHz, p.VariationPercent, f.opts...)
}
