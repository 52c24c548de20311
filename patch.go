package atomsynth

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Patch is simply a list of instruments used in a song
	Patch []Instrument

	// Instrument includes a list of units consisting of the instrument, and
	// the number of polyphonic voices for this instrument. The units form a
	// serial chain: each unit gets the output of the previous one as its input.
	Instrument struct {
		Name      string `yaml:",omitempty" json:",omitempty"`
		Comment   string `yaml:",omitempty" json:",omitempty"`
		NumVoices int
		Units     []Unit
		Mute      bool `yaml:",omitempty" json:",omitempty"` // Mute is only used in the player, not exported
	}

	// Unit is e.g. an envelope or an oscillator and its configuration.
	Unit struct {
		// Category and Name identify the unit type in a Registry, e.g.
		// "Generation" and "Envelope".
		Category string
		Name     string

		// Config is the snapshot of the blueprint. Missing keys get their
		// default values when the patch is loaded.
		Config *Config `yaml:",omitempty" json:",omitempty"`

		// Disabled units are bypassed: their input is passed through as is.
		Disabled bool `yaml:",omitempty" json:",omitempty"`

		// Comment is a free-form comment about the unit.
		Comment string `yaml:",omitempty" json:",omitempty"`
	}

	// LoadError is returned by Patch.Blueprints when some of the units are not
	// found in the registry. The rest of the patch is still loaded; the
	// missing units are left nil and are bypassed by the engine.
	LoadError struct {
		Missing []MissingUnit
	}

	// MissingUnit identifies a unit that could not be created.
	MissingUnit struct {
		Instrument, Unit int
		Category, Name   string
	}
)

// Copy makes a deep copy of a unit.
func (u *Unit) Copy() Unit {
	ret := *u
	ret.Config = u.Config.Copy()
	return ret
}

// Copy makes a deep copy of an Instrument
func (instr *Instrument) Copy() Instrument {
	units := make([]Unit, len(instr.Units))
	for i, u := range instr.Units {
		units[i] = u.Copy()
	}
	ret := *instr
	ret.Units = units
	return ret
}

// Copy makes a deep copy of a Patch.
func (p Patch) Copy() Patch {
	instruments := make([]Instrument, len(p))
	for i, instr := range p {
		instruments[i] = instr.Copy()
	}
	return instruments
}

// NumVoices returns the total number of voices used in the patch; summing the
// voices of every instrument
func (p Patch) NumVoices() int {
	ret := 0
	for _, i := range p {
		ret += i.NumVoices
	}
	return ret
}

// FirstVoiceForInstrument returns the index of the first voice of given
// instrument. For example, if the Patch has three instruments (0, 1 and 2),
// with 1, 3, 2 voices, respectively, then FirstVoiceForInstrument(0) returns 0,
// FirstVoiceForInstrument(1) returns 1 and FirstVoiceForInstrument(2) returns
// 4. Essentially computes just the cumulative sum.
func (p Patch) FirstVoiceForInstrument(instrIndex int) int {
	if instrIndex < 0 {
		return 0
	}
	instrIndex = min(instrIndex, len(p))
	ret := 0
	for _, t := range p[:instrIndex] {
		ret += t.NumVoices
	}
	return ret
}

// InstrumentForVoice returns the instrument number for the given voice index.
// For example, if the Patch has three instruments (0, 1 and 2), with 1, 3, 2
// voices, respectively, then InstrumentForVoice(0) returns 0,
// InstrumentForVoice(1) returns 1 and InstrumentForVoice(3) returns 1.
func (p Patch) InstrumentForVoice(voice int) (int, error) {
	if voice < 0 {
		return 0, errors.New("voice cannot be negative")
	}
	for i, instr := range p {
		if voice < instr.NumVoices {
			return i, nil
		}
		voice -= instr.NumVoices
	}
	return 0, errors.New("voice number is beyond the total voices of an instrument")
}

// Blueprints creates and restores a blueprint for every unit of the patch.
// ret[i][j] is the blueprint of p[i].Units[j]. Units whose type is not in reg
// are left nil and reported in a *LoadError; all other units are still
// created.
func (p Patch) Blueprints(reg *Registry) ([][]Blueprint, error) {
	ret := make([][]Blueprint, len(p))
	var loadErr LoadError
	for i, instr := range p {
		ret[i] = make([]Blueprint, len(instr.Units))
		for j, u := range instr.Units {
			bp, err := reg.Lookup(u.Category, u.Name)
			if err != nil {
				loadErr.Missing = append(loadErr.Missing, MissingUnit{Instrument: i, Unit: j, Category: u.Category, Name: u.Name})
				continue
			}
			bp.Restore(u.Config)
			ret[i][j] = bp
		}
	}
	if len(loadErr.Missing) > 0 {
		return ret, &loadErr
	}
	return ret, nil
}

// Capture stores the current snapshot of every blueprint into the Config of
// the corresponding unit, e.g. before saving the patch. bps should have been
// returned by Blueprints for the same patch; nil blueprints keep their old
// Config.
func (p Patch) Capture(bps [][]Blueprint) {
	for i := range p {
		if i >= len(bps) {
			return
		}
		for j := range p[i].Units {
			if j < len(bps[i]) && bps[i][j] != nil {
				p[i].Units[j].Config = bps[i][j].Snapshot()
			}
		}
	}
}

// SameLayout reports whether p and o have the same instruments, voice counts
// and unit types in the same order, i.e. whether the blueprints and instances
// built for one can be reused for the other.
func (p Patch) SameLayout(o Patch) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i].NumVoices != o[i].NumVoices || len(p[i].Units) != len(o[i].Units) {
			return false
		}
		for j := range p[i].Units {
			a, b := p[i].Units[j], o[i].Units[j]
			if a.Category != b.Category || a.Name != b.Name {
				return false
			}
		}
	}
	return true
}

func (e *LoadError) Error() string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = fmt.Sprintf("instrument %d unit %d (%v/%v)", m.Instrument, m.Unit, m.Category, m.Name)
	}
	return fmt.Sprintf("%v: %v", ErrUnknownUnit, strings.Join(names, ", "))
}

func (e *LoadError) Unwrap() error { return ErrUnknownUnit }
