package atomsynth_test

import (
	"math"
	"testing"

	"github.com/atomsynth/atomsynth"
)

func TestTempoRatio(t *testing.T) {
	r := atomsynth.NewTempoRatio(1, 4)
	if r.Fraction() != 0.25 {
		t.Fatalf("expected fraction 0.25, got %v", r.Fraction())
	}
	if s := r.Seconds(120); s != 0.125 {
		t.Fatalf("a sixteenth at 120 BPM should last 0.125 s, got %v", s)
	}
	if h := r.Hertz(120); h != 8 {
		t.Fatalf("expected 8 Hz, got %v", h)
	}
	if s := r.Seconds(0); s != r.Seconds(atomsynth.DefaultBPM) {
		t.Fatalf("a non-positive tempo should fall back to the default")
	}
	if f := atomsynth.NewTempoRatio(3.7, 2.9).Fraction(); f != 1.5 {
		t.Fatalf("the terms should be floored, got %v", f)
	}
}

func TestTempoRatioBounds(t *testing.T) {
	for _, c := range []struct {
		num, den         float64
		wantNum, wantDen float64
	}{
		{-5, 0, 0, 1},
		{1000, 5000, atomsynth.MaxTempoValue, atomsynth.MaxTempoValue},
		{math.NaN(), math.NaN(), 0, 1},
		{math.Inf(1), math.Inf(-1), atomsynth.MaxTempoValue, 1},
	} {
		r := atomsynth.NewTempoRatio(c.num, c.den)
		if r.Numerator != c.wantNum || r.Denominator != c.wantDen {
			t.Fatalf("NewTempoRatio(%v, %v): expected %v/%v, got %v/%v", c.num, c.den, c.wantNum, c.wantDen, r.Numerator, r.Denominator)
		}
	}
}

func TestHertzIsAlwaysFinite(t *testing.T) {
	for _, r := range []atomsynth.TempoRatio{{}, {Numerator: 0.5, Denominator: 1}, {Numerator: 0, Denominator: 999}} {
		if h := r.Hertz(120); h != atomsynth.MinHertz {
			t.Fatalf("%v: expected MinHertz for a zero numerator, got %v", r, h)
		}
	}
	ratios := []atomsynth.TempoRatio{{Numerator: 999, Denominator: 1}, {Numerator: 1, Denominator: 999}}
	for _, r := range ratios {
		for _, bpm := range []float64{1e-9, 5e-324, math.Inf(1), math.Inf(-1), math.NaN(), math.MaxFloat64, 0} {
			h := r.Hertz(bpm)
			if math.IsInf(h, 0) || math.IsNaN(h) || !(h > 0) {
				t.Fatalf("%v at %v BPM: expected a finite positive frequency, got %v", r, bpm, h)
			}
		}
	}
	if bpm := (&atomsynth.Context{BPM: math.Inf(1)}).Tempo(); bpm != atomsynth.MaxBPM {
		t.Fatalf("expected an infinite tempo to clamp to MaxBPM, got %v", bpm)
	}
	if bpm := atomsynth.ClampBPM(5e-324); bpm != atomsynth.MinBPM {
		t.Fatalf("expected a tiny tempo to clamp to MinBPM, got %v", bpm)
	}
}

func TestTempoControl(t *testing.T) {
	c := atomsynth.NewControls("Test", "Tempo")
	tc := c.NewTempo("rate", 1, 4)
	var changes []atomsynth.Change
	c.Subscribe(func(ch atomsynth.Change) { changes = append(changes, ch) })
	tc.SetNumerator(3, true)
	tc.OffsetDenominator(-10, false)
	if r := tc.Ratio(); r.Numerator != 3 || r.Denominator != 1 {
		t.Fatalf("expected 3/1, got %v", r)
	}
	tc.SetFraction(2000, 2, true)
	tc.OffsetFraction(-1, 1, true)
	if r := tc.Ratio(); r.Numerator != 998 || r.Denominator != 3 {
		t.Fatalf("expected 998/3, got %v", r)
	}
	tc.SetDenominator(8, false)
	tc.OffsetNumerator(-1000, false)
	if r := tc.Ratio(); r.Numerator != 0 || r.Denominator != 8 {
		t.Fatalf("expected 0/8, got %v", r)
	}
	if len(changes) != 6 || !changes[0].ByUser || changes[1].ByUser || changes[0].Control != "rate" {
		t.Fatalf("unexpected change notifications %v", changes)
	}
	if d := tc.Default(); d.Numerator != 1 || d.Denominator != 4 {
		t.Fatalf("the default should not change, got %v", d)
	}
}
