// Package units contains the unit types of atomsynth: envelopes, oscillators,
// noise, amplifiers and transforms.
package units

import "github.com/atomsynth/atomsynth"

// Factories lists the unit types of this package. Debug units are only
// included when debug is true.
func Factories(debug bool) []atomsynth.Factory {
	ret := []atomsynth.Factory{
		{Category: "Generation", Name: "Envelope", Description: "delay, attack, hold, sustain, release envelope", New: func() atomsynth.Blueprint { return NewEnvelope() }},
		{Category: "Generation", Name: "Noise", Description: "white noise with a shaped distribution", New: func() atomsynth.Blueprint { return NewNoise() }},
		{Category: "Generation", Name: "Oscillator", Description: "sine, saw, square and triangle oscillator", New: func() atomsynth.Blueprint { return NewOscillator() }},
		{Category: "Processing", Name: "Amplifier", Description: "scales the input by a gain", New: func() atomsynth.Blueprint { return NewAmplifier() }},
		{Category: "Transforms", Name: "Remap", Description: "converts between linear and frequency domains", New: func() atomsynth.Blueprint { return NewRemap() }},
	}
	if debug {
		ret = append(ret, atomsynth.Factory{Category: "Debug", Name: "Multiply", Description: "multiplies the input by two knobs", New: func() atomsynth.Blueprint { return NewMultiply() }})
	}
	return ret
}

// NewRegistry returns a registry with all the units of this package.
func NewRegistry(debug bool) *atomsynth.Registry {
	r := atomsynth.NewRegistry()
	for _, f := range Factories(debug) {
		r.MustRegister(f)
	}
	return r
}

// DefaultRegistry returns a registry with all the non-debug units.
func DefaultRegistry() *atomsynth.Registry { return NewRegistry(false) }
