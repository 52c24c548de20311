package unitdoc_test

import (
	"strings"
	"testing"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/units"
	"github.com/atomsynth/atomsynth/unitdoc"
	"gopkg.in/yaml.v3"
)

func TestMake(t *testing.T) {
	doc, err := unitdoc.Make(units.NewRegistry(true))
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	var names []string
	for _, c := range doc.Categories {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "Debug,Generation,Processing,Transforms" {
		t.Fatalf("expected the categories in order, got %v", names)
	}
	env := doc.Categories[1].Units[0]
	if env.Name != "Envelope" {
		t.Fatalf("expected the envelope first in Generation, got %v", env.Name)
	}
	var found bool
	for _, c := range env.Controls {
		if c.Key == "sustainLevel" {
			found = true
			if c.Label != "Sustain Level" || c.Default != "0.7" {
				t.Fatalf("unexpected control %+v", c)
			}
		}
	}
	if !found {
		t.Fatalf("envelope has no sustainLevel control")
	}
}

func TestRender(t *testing.T) {
	doc, err := unitdoc.Make(units.DefaultRegistry())
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	text, err := doc.Render("text")
	if err != nil {
		t.Fatalf("Render text failed: %v", err)
	}
	if !strings.Contains(string(text), "GENERATION\n==========") || !strings.Contains(string(text), "Remap:") {
		t.Fatalf("unexpected text output:\n%s", text)
	}
	md, err := doc.Render("markdown")
	if err != nil {
		t.Fatalf("Render markdown failed: %v", err)
	}
	if !strings.Contains(string(md), "### Oscillator") || !strings.Contains(string(md), "| Waveform | `waveform` | 0 |") {
		t.Fatalf("unexpected markdown output:\n%s", md)
	}
	if _, err := doc.Render("html"); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}

func TestRenderYAMLLoadsAsUnits(t *testing.T) {
	doc, err := unitdoc.Make(units.DefaultRegistry())
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	b, err := doc.Render("yaml")
	if err != nil {
		t.Fatalf("Render yaml failed: %v", err)
	}
	var unitList []atomsynth.Unit
	if err := yaml.Unmarshal(b, &unitList); err != nil {
		t.Fatalf("cannot unmarshal the yaml output: %v", err)
	}
	patch := atomsynth.Patch{{NumVoices: 1, Units: unitList}}
	bps, err := patch.Blueprints(units.DefaultRegistry())
	if err != nil {
		t.Fatalf("the listed units should all be known: %v", err)
	}
	for i, u := range unitList {
		if !bps[0][i].Snapshot().Equal(u.Config) {
			t.Fatalf("unit %v: the listed config differs from a fresh snapshot", u.Name)
		}
	}
}
