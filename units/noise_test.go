package units_test

import (
	"math"
	"testing"

	"github.com/atomsynth/atomsynth/units"
)

func TestNoise(t *testing.T) {
	n := units.NewNoise()
	setKnob(t, n, "gain", 1)
	v := n.NewInstance(0)
	out := make([]float32, 1000)
	v.Execute(&testContext, nil, out)
	var sum, energy float64
	for i, s := range out {
		if s < -1 || s > 1 || math.IsNaN(float64(s)) {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
		sum += float64(s)
		energy += float64(s) * float64(s)
	}
	if mean := sum / 1000; math.Abs(mean) > 0.1 {
		t.Fatalf("expected zero mean noise, got mean %v", mean)
	}
	if rms := math.Sqrt(energy / 1000); rms < 0.4 || rms > 0.75 {
		t.Fatalf("expected the RMS of flat noise to be about 0.58, got %v", rms)
	}
	v.Reset()
	again := make([]float32, 1000)
	v.Execute(&testContext, nil, again)
	for i := range out {
		if out[i] != again[i] {
			t.Fatalf("reset should restart the sequence, frame %d differs", i)
		}
	}
	other := make([]float32, 1000)
	n.NewInstance(1).Execute(&testContext, nil, other)
	same := 0
	for i := range out {
		if out[i] == other[i] {
			same++
		}
	}
	if same > 10 {
		t.Fatalf("voices should run different sequences, %d samples are equal", same)
	}
}

func TestNoiseShape(t *testing.T) {
	rms := func(shape float64) float64 {
		n := units.NewNoise()
		setKnob(t, n, "gain", 1)
		setKnob(t, n, "shape", shape)
		out := make([]float32, 1000)
		n.NewInstance(0).Execute(&testContext, nil, out)
		var e float64
		for _, s := range out {
			e += float64(s) * float64(s)
		}
		return math.Sqrt(e / 1000)
	}
	if soft, flat, hard := rms(0.2), rms(0.5), rms(0.8); !(soft < flat && flat < hard) {
		t.Fatalf("expected the RMS to grow with the shape, got %v, %v, %v", soft, flat, hard)
	}
	n := units.NewNoise()
	setKnob(t, n, "gain", 0)
	in := []float32{0.25, -0.5}
	out := make([]float32, 2)
	n.NewInstance(0).Execute(&testContext, in, out)
	if out[0] != 0.25 || out[1] != -0.5 {
		t.Fatalf("silent noise should pass the input through, got %v", out)
	}
}
