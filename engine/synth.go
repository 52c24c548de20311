// Package engine renders patches: it chains the units of every instrument,
// keeps the per-voice instances in an arena, allocates voices for notes and
// passes messages between the audio thread and the rest of the program.
package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/units"
	"github.com/viterin/vek/vek32"
)

// MaxVoices is the maximum number of voices a patch can use.
const MaxVoices = 32

type (
	// Synther builds Synths from patches, looking up the unit types in
	// Registry, or in units.DefaultRegistry if Registry is nil.
	Synther struct {
		Registry *atomsynth.Registry
		// Strict makes patches with unknown units fail to load. Otherwise,
		// unknown units are logged and bypassed.
		Strict bool
	}

	// Synth renders a patch as serial chains of units. The instances of all
	// voices are allocated once, when the synth is built, so triggering and
	// releasing voices never allocates.
	Synth struct {
		registry   *atomsynth.Registry
		strict     bool
		patch      atomsynth.Patch
		ctx        atomsynth.Context
		blockSize  int
		blueprints [][]atomsynth.Blueprint
		voices     []voiceChain // indexed by voice
		scratch    [2][]float32
		mix        []float32
		missing    []atomsynth.MissingUnit
	}

	voiceChain struct {
		instrument int
		active     bool // triggered at least once since built
		units      []atomsynth.Instance
	}
)

var errTooManyVoices = fmt.Errorf("patch uses more than %d voices", MaxVoices)

func (s Synther) Name() string { return "Go" }

func (s Synther) Synth(patch atomsynth.Patch, ctx atomsynth.Context, blockSize int) (atomsynth.Synth, error) {
	ret := &Synth{registry: s.registry(), strict: s.Strict}
	if err := ret.build(patch, ctx, blockSize); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s Synther) registry() *atomsynth.Registry {
	if s.Registry == nil {
		return units.DefaultRegistry()
	}
	return s.Registry
}

// build creates the blueprints and the voice arena. Unknown units are an
// error only in strict mode.
func (s *Synth) build(patch atomsynth.Patch, ctx atomsynth.Context, blockSize int) error {
	if patch.NumVoices() > MaxVoices {
		return errTooManyVoices
	}
	if blockSize <= 0 {
		blockSize = atomsynth.DefaultBlockSize
	}
	bps, err := patch.Blueprints(s.registry)
	var loadErr *atomsynth.LoadError
	if err != nil {
		if s.strict || !errors.As(err, &loadErr) {
			return err
		}
		log.Printf("engine: bypassing units: %v", err)
	}
	s.patch = patch.Copy()
	s.ctx = ctx
	s.blockSize = blockSize
	s.blueprints = bps
	s.voices = make([]voiceChain, 0, patch.NumVoices())
	for i, instr := range patch {
		for v := 0; v < instr.NumVoices; v++ {
			voice := len(s.voices)
			chain := voiceChain{instrument: i, units: make([]atomsynth.Instance, len(bps[i]))}
			for j, bp := range bps[i] {
				if bp != nil {
					chain.units[j] = bp.NewInstance(voice)
				}
			}
			s.voices = append(s.voices, chain)
		}
	}
	s.scratch = [2][]float32{make([]float32, blockSize), make([]float32, blockSize)}
	s.mix = make([]float32, blockSize)
	s.missing = nil
	if loadErr != nil {
		s.missing = loadErr.Missing
	}
	return nil
}

// Missing lists the units that were bypassed because their type is unknown.
func (s *Synth) Missing() []atomsynth.MissingUnit { return s.missing }

// Blueprints returns the blueprints of the patch, indexed by instrument and
// unit. Unknown units are nil.
func (s *Synth) Blueprints() [][]atomsynth.Blueprint { return s.blueprints }

func (s *Synth) BlockSize() int { return s.blockSize }

func (s *Synth) Knob(instrument, unit int, name string) (*atomsynth.Knob, bool) {
	if instrument < 0 || instrument >= len(s.blueprints) || unit < 0 || unit >= len(s.blueprints[instrument]) {
		return nil, false
	}
	bp := s.blueprints[instrument][unit]
	if bp == nil {
		return nil, false
	}
	return bp.Knob(name)
}

// Update restores the configurations of patch into the existing blueprints
// when the patch has the same instruments and unit types as before, so that
// playing voices continue uninterrupted. Otherwise, the synth is rebuilt.
func (s *Synth) Update(patch atomsynth.Patch, ctx atomsynth.Context) error {
	s.ctx = ctx
	if !patch.SameLayout(s.patch) {
		return s.build(patch, ctx, s.blockSize)
	}
	for i, instr := range patch {
		for j, u := range instr.Units {
			if bp := s.blueprints[i][j]; bp != nil {
				bp.Restore(u.Config)
			}
		}
	}
	s.patch = patch.Copy()
	return nil
}

// Trigger resets all the units of a voice and starts a note on it.
func (s *Synth) Trigger(voice int, key byte) {
	if voice < 0 || voice >= len(s.voices) {
		return
	}
	chain := &s.voices[voice]
	chain.active = true
	for _, inst := range chain.units {
		if inst == nil {
			continue
		}
		inst.Reset()
		if g, ok := inst.(atomsynth.Gated); ok {
			g.NoteOn(key)
		}
	}
}

// Release releases the note playing on a voice.
func (s *Synth) Release(voice int) {
	if voice < 0 || voice >= len(s.voices) {
		return
	}
	for _, inst := range s.voices[voice].units {
		if g, ok := inst.(atomsynth.Gated); ok {
			g.NoteOff()
		}
	}
}

// Render renders at most one block. Every voice that has been triggered runs
// its chain: each enabled unit gets the output of the previous enabled unit as
// input; disabled and unknown units are bypassed. The voices are mixed and
// written to both channels.
func (s *Synth) Render(buffer atomsynth.AudioBuffer) (frames int, renderError error) {
	defer func() {
		if err := recover(); err != nil {
			renderError = fmt.Errorf("render panicked: %v", err)
		}
	}()
	n := min(len(buffer), s.blockSize)
	mix := vek32.Zeros_Into(s.mix, n)
	bufs := [2][]float32{s.scratch[0][:n], s.scratch[1][:n]}
	for v := range s.voices {
		chain := &s.voices[v]
		if !chain.active || s.patch[chain.instrument].Mute {
			continue
		}
		var in []float32
		cur := 0
		for j, inst := range chain.units {
			if inst == nil || s.patch[chain.instrument].Units[j].Disabled {
				continue
			}
			out := bufs[cur]
			inst.Execute(&s.ctx, in, out)
			in = out
			cur ^= 1
		}
		if in != nil {
			vek32.Add_Inplace(mix, in)
		}
	}
	for i := range buffer[:n] {
		buffer[i] = [2]float32{mix[i], mix[i]}
	}
	return n, nil
}
