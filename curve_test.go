package atomsynth_test

import (
	"testing"

	"github.com/atomsynth/atomsynth"
)

func TestCursorHoldsLastValue(t *testing.T) {
	c := atomsynth.CurveCursor([]float64{0.1, 0.2, 0.3}, 1)
	if !c.Automated() || c.Remaining() != 3 {
		t.Fatalf("expected an automated cursor with 3 values left")
	}
	expected := []float64{0.1, 0.2, 0.3, 0.3, 0.3}
	for i, want := range expected {
		if got := c.Next(); got != want {
			t.Fatalf("tick %d: expected %v, got %v", i, want, got)
		}
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected the curve to be consumed, %d left", c.Remaining())
	}
}

func TestCursorWithoutCurve(t *testing.T) {
	for _, c := range []atomsynth.Cursor{atomsynth.ConstantCursor(0.5), atomsynth.CurveCursor(nil, 0.5)} {
		if c.Automated() {
			t.Fatalf("a cursor without a curve should not be automated")
		}
		for i := 0; i < 3; i++ {
			if v := c.Next(); v != 0.5 {
				t.Fatalf("expected the constant 0.5, got %v", v)
			}
		}
	}
}
