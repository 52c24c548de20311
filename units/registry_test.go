package units_test

import (
	"errors"
	"math"
	"testing"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/units"
	"gopkg.in/yaml.v3"
)

type controlled interface {
	atomsynth.Blueprint
	ControlNames() []string
	Selector(name string) (*atomsynth.Selector, bool)
	Tempo(name string) (*atomsynth.TempoControl, bool)
}

// scramble moves every control of bp away from its default.
func scramble(t *testing.T, bp atomsynth.Blueprint) {
	t.Helper()
	c, ok := bp.(controlled)
	if !ok {
		t.Fatalf("%v does not expose its controls", bp.Name())
	}
	for i, name := range c.ControlNames() {
		if k, ok := c.Knob(name); ok {
			k.Set(k.Min()+(k.Max()-k.Min())*float64(i+1)/float64(i+3), true)
		} else if s, ok := c.Selector(name); ok {
			s.Set(len(s.Labels())-1-s.Default(), true)
		} else if tc, ok := c.Tempo(name); ok {
			tc.SetFraction(float64(i+2), float64(2*i+3), true)
		} else {
			t.Fatalf("%v: control %q has unknown type", bp.Name(), name)
		}
	}
}

func TestRoundTripAllUnits(t *testing.T) {
	for _, f := range units.Factories(true) {
		t.Run(f.Category+"/"+f.Name, func(t *testing.T) {
			bp := f.New()
			if bp.Category() != f.Category || bp.Name() != f.Name {
				t.Fatalf("factory %v/%v created %v/%v", f.Category, f.Name, bp.Category(), bp.Name())
			}
			defaults := bp.Snapshot()
			scramble(t, bp)
			snap := bp.Snapshot()
			if snap.Equal(defaults) {
				t.Fatalf("scrambling did not change the configuration")
			}
			fresh := f.New()
			fresh.Restore(snap)
			if got := fresh.Snapshot(); !got.Equal(snap) {
				t.Fatalf("restore(snapshot()) differs:\ngot  %v\nwant %v", got, snap)
			}
			fresh.Restore(fresh.Snapshot())
			fresh.Restore(fresh.Snapshot())
			if got := fresh.Snapshot(); !got.Equal(snap) {
				t.Fatalf("repeated snapshot/restore cycles do not converge")
			}
			out, err := yaml.Marshal(snap)
			if err != nil {
				t.Fatalf("yaml.Marshal failed: %v", err)
			}
			var decoded atomsynth.Config
			if err := yaml.Unmarshal(out, &decoded); err != nil {
				t.Fatalf("yaml.Unmarshal failed: %v", err)
			}
			viaYAML := f.New()
			viaYAML.Restore(&decoded)
			if got := viaYAML.Snapshot(); !got.Equal(snap) {
				t.Fatalf("restore through yaml differs:\n%s", out)
			}
			fresh.Restore(nil)
			if got := fresh.Snapshot(); !got.Equal(defaults) {
				t.Fatalf("restoring an empty config should reset to defaults")
			}
		})
	}
}

func TestRestoreIgnoresMistypedKeys(t *testing.T) {
	e := units.NewEnvelope()
	cfg := atomsynth.NewConfig().
		SetText("attackLevel", "loud").
		SetFloat("sustainLevel", 0.25).
		SetBool("holdLevel", true).
		SetFloat("attackTime", 3).
		SetFloat("unknown", 1)
	e.Restore(cfg)
	if k, _ := e.Knob("attackLevel"); k.Value() != k.Default() {
		t.Fatalf("mistyped key should reset to default %v, got %v", k.Default(), k.Value())
	}
	if k, _ := e.Knob("sustainLevel"); k.Value() != 0.25 {
		t.Fatalf("expected sustainLevel 0.25, got %v", k.Value())
	}
	if tc, _ := e.Tempo("attackTime"); tc.Ratio() != tc.Default() {
		t.Fatalf("mistyped tempo should reset to default %v, got %v", tc.Default(), tc.Ratio())
	}
}

func TestRegistry(t *testing.T) {
	reg := units.DefaultRegistry()
	if _, err := reg.Lookup("Debug", "Multiply"); !errors.Is(err, atomsynth.ErrUnknownUnit) {
		t.Fatalf("debug units should not be in the default registry, got %v", err)
	}
	bp, err := units.NewRegistry(true).Lookup("Debug", "Multiply")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if bp.Category() != "Debug" {
		t.Fatalf("expected a debug unit, got %v", bp.Category())
	}
	manifest := reg.Manifest()
	expected := []string{"Generation/Envelope", "Generation/Noise", "Generation/Oscillator", "Processing/Amplifier", "Transforms/Remap"}
	if len(manifest) != len(expected) {
		t.Fatalf("expected %d manifest entries, got %d", len(expected), len(manifest))
	}
	for i, m := range manifest {
		if got := m.Category + "/" + m.Name; got != expected[i] {
			t.Fatalf("manifest entry %d: expected %v, got %v", i, expected[i], got)
		}
		if len(m.Controls) == 0 {
			t.Fatalf("manifest entry %v lists no controls", expected[i])
		}
	}
}

func TestMultiply(t *testing.T) {
	m := units.NewMultiply()
	setKnob(t, m, "fac11", -0.5)
	setKnob(t, m, "fac01", 0.5)
	in := []float32{1, 2, -4}
	out := make([]float32, 3)
	m.NewInstance(0).Execute(&testContext, in, out)
	for i := range in {
		if out[i] != in[i]*-0.25 {
			t.Fatalf("expected %v, got %v", in[i]*-0.25, out[i])
		}
	}
}

func TestOscillator(t *testing.T) {
	if f := units.NoteFrequency(69, 0); f != 440 {
		t.Fatalf("expected A4 to be 440 Hz, got %v", f)
	}
	if f := units.NoteFrequency(69, 12); math.Abs(f-880) > 1e-9 {
		t.Fatalf("expected an octave up to be 880 Hz, got %v", f)
	}
	o := units.NewOscillator()
	setKnob(t, o, "gain", 1)
	w, _ := o.Selector("waveform")
	w.Set(int(units.Square), false)
	v := o.NewInstance(0)
	v.(atomsynth.Gated).NoteOn(69)
	// 440 Hz at 44100 Hz is ~100.2 frames per cycle
	out := make([]float32, 100)
	v.Execute(&atomsynth.Context{SampleRate: 44100, BPM: 120}, nil, out)
	if out[0] != 1 || out[49] != 1 || out[51] != -1 || out[99] != -1 {
		t.Fatalf("unexpected square wave: %v", out)
	}
	v.Reset()
	out2 := make([]float32, 100)
	v.Execute(&atomsynth.Context{SampleRate: 44100, BPM: 120}, nil, out2)
	if out2[0] != 1 {
		t.Fatalf("reset should restart the phase")
	}
	for _, wf := range []units.Waveform{units.Sine, units.Saw, units.Square, units.Triangle} {
		for i := 0; i < 100; i++ {
			if s := units.Wave(wf, float64(i)/100); s < -1 || s > 1 {
				t.Fatalf("waveform %v out of range at phase %v: %v", wf, float64(i)/100, s)
			}
		}
	}
}
