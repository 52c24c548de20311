package atomsynth_test

import (
	"errors"
	"testing"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/units"
	"gopkg.in/yaml.v3"
)

const patchYaml = `
- name: bass
  numvoices: 1
  units:
    - category: Generation
      name: Oscillator
      config: {waveform: 1, gain: 0.25}
    - category: Effects
      name: Chorus
      config: {depth: 0.5}
- name: lead
  numvoices: 3
  units:
    - category: Generation
      name: Envelope
`

func TestPatchVoices(t *testing.T) {
	patch := atomsynth.Patch{{NumVoices: 1}, {NumVoices: 3}, {NumVoices: 2}}
	if patch.NumVoices() != 6 {
		t.Fatalf("expected 6 voices, got %d", patch.NumVoices())
	}
	for i, want := range []int{0, 1, 4, 6} {
		if got := patch.FirstVoiceForInstrument(i); got != want {
			t.Fatalf("FirstVoiceForInstrument(%d): expected %d, got %d", i, want, got)
		}
	}
	for voice, want := range []int{0, 1, 1, 1, 2, 2} {
		if got, err := patch.InstrumentForVoice(voice); err != nil || got != want {
			t.Fatalf("InstrumentForVoice(%d): expected %d, got %d, %v", voice, want, got, err)
		}
	}
	if _, err := patch.InstrumentForVoice(6); err == nil {
		t.Fatalf("expected an error for a voice beyond the patch")
	}
	if _, err := patch.InstrumentForVoice(-1); err == nil {
		t.Fatalf("expected an error for a negative voice")
	}
}

func TestBlueprintsReportsMissingUnits(t *testing.T) {
	var patch atomsynth.Patch
	if err := yaml.Unmarshal([]byte(patchYaml), &patch); err != nil {
		t.Fatalf("cannot unmarshal patch: %v", err)
	}
	bps, err := patch.Blueprints(units.DefaultRegistry())
	if !errors.Is(err, atomsynth.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	var loadErr *atomsynth.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected a *LoadError, got %T", err)
	}
	expected := atomsynth.MissingUnit{Instrument: 0, Unit: 1, Category: "Effects", Name: "Chorus"}
	if len(loadErr.Missing) != 1 || loadErr.Missing[0] != expected {
		t.Fatalf("expected %v to be missing, got %v", expected, loadErr.Missing)
	}
	if bps[0][0] == nil || bps[0][1] != nil || bps[1][0] == nil {
		t.Fatalf("known units should be created and unknown ones left nil")
	}
	gain, _ := bps[0][0].Knob("gain")
	if gain.Value() != 0.25 {
		t.Fatalf("expected the config to be restored, got gain %v", gain.Value())
	}
	gain.Set(0.75, true)
	patch.Capture(bps)
	if patch[0].Units[0].Config.Float("gain", 0) != 0.75 {
		t.Fatalf("Capture should store the current values")
	}
	if patch[0].Units[1].Config.Float("depth", 0) != 0.5 {
		t.Fatalf("Capture should keep the config of missing units")
	}
	if patch[1].Units[0].Config.Float("sustainLevel", 0) != 0.7 {
		t.Fatalf("Capture should fill in the defaults of units without config")
	}
}

func TestSameLayout(t *testing.T) {
	a := atomsynth.Patch{{NumVoices: 2, Units: []atomsynth.Unit{{Category: "Generation", Name: "Envelope"}}}}
	b := a.Copy()
	b[0].Units[0].Config = atomsynth.NewConfig().SetFloat("sustainLevel", 0.1)
	if !a.SameLayout(b) {
		t.Fatalf("configs should not affect the layout")
	}
	b[0].NumVoices = 3
	if a.SameLayout(b) {
		t.Fatalf("voice counts are part of the layout")
	}
	c := a.Copy()
	c[0].Units[0].Name = "Oscillator"
	if a.SameLayout(c) || a[0].Units[0].Name != "Envelope" {
		t.Fatalf("unit types are part of the layout and Copy should be deep")
	}
}

func TestRegistry(t *testing.T) {
	reg := atomsynth.NewRegistry()
	f := atomsynth.Factory{Category: "Generation", Name: "Envelope", New: func() atomsynth.Blueprint { return units.NewEnvelope() }}
	if err := reg.Register(f); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(f); !errors.Is(err, atomsynth.ErrDuplicateUnit) {
		t.Fatalf("expected ErrDuplicateUnit, got %v", err)
	}
	if err := reg.Register(atomsynth.Factory{Category: "X", Name: "Y"}); err == nil {
		t.Fatalf("expected an error for a factory without constructor")
	}
	a, err := reg.Lookup("Generation", "Envelope")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	b, _ := reg.Lookup("Generation", "Envelope")
	ka, _ := a.Knob("sustainLevel")
	kb, _ := b.Knob("sustainLevel")
	if ka == kb {
		t.Fatalf("every lookup should create a new blueprint")
	}
	if _, err := reg.Lookup("Generation", "Theremin"); !errors.Is(err, atomsynth.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	m := reg.Manifest()
	if len(m) != 1 || m[0].Name != "Envelope" || len(m[0].Controls) == 0 {
		t.Fatalf("unexpected manifest %v", m)
	}
}
