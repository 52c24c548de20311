//go:build !cgo

package cmd

import (
	"errors"

	"github.com/atomsynth/atomsynth/gomidi"
)

var errNoCgo = errors.New("MIDI input is not available: built without cgo")

// OpenMIDI fails, as the rtmidi driver needs cgo.
func OpenMIDI(ctx *gomidi.Context, prefix string) (name string, closer func(), err error) {
	return "", nil, errNoCgo
}

func MIDIInputs() ([]string, error) {
	return nil, errNoCgo
}
