//go:build cgo

package cmd

import (
	"github.com/atomsynth/atomsynth/gomidi"
)

// OpenMIDI opens the MIDI input whose name starts with prefix and feeds it to
// ctx. It returns the name of the opened device and a function closing it.
func OpenMIDI(ctx *gomidi.Context, prefix string) (name string, closer func(), err error) {
	in, err := gomidi.Open(ctx, prefix)
	if err != nil {
		return "", nil, err
	}
	return in.String(), in.Close, nil
}

func MIDIInputs() ([]string, error) {
	return gomidi.Inputs()
}
