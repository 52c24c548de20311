//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Input listens to one MIDI input device through rtmidi and feeds its
// messages to a Context.
type Input struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
}

var errNoDevice = errors.New("no MIDI input device found")

// Inputs lists the names of the MIDI input devices.
func Inputs() ([]string, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open rtmidi driver: %w", err)
	}
	defer driver.Close()
	ins, err := driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret, nil
}

// Open opens the first input device whose name starts with namePrefix; an
// empty prefix takes the first device. The messages are passed to ctx.
func Open(ctx *Context, namePrefix string) (*Input, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open rtmidi driver: %w", err)
	}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		if err := in.Open(); err != nil {
			driver.Close()
			return nil, fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, ctx.HandleMessage)
		if err != nil {
			in.Close()
			driver.Close()
			return nil, fmt.Errorf("cannot listen to MIDI input: %w", err)
		}
		return &Input{driver: driver, in: in, stop: stop}, nil
	}
	driver.Close()
	if namePrefix == "" {
		return nil, errNoDevice
	}
	return nil, fmt.Errorf("%w starting with %q", errNoDevice, namePrefix)
}

func (i *Input) String() string { return i.in.String() }

func (i *Input) Close() {
	i.stop()
	if i.in.IsOpen() {
		i.in.Close()
	}
	i.driver.Close()
}
