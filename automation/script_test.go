package automation_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomsynth/atomsynth"
	"github.com/atomsynth/atomsynth/automation"
)

const sweep = `
function curve(t)
  return math.min(t / 4, 1)
end

function tempo(t)
  return bpm
end

function broken(t)
  return "loud"
end
`

func TestScriptEval(t *testing.T) {
	s, err := automation.Compile(sweep, "")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer s.Close()
	for _, c := range []struct{ beat, want float64 }{{0, 0}, {1, 0.25}, {2, 0.5}, {8, 1}} {
		v, err := s.Eval(c.beat)
		if err != nil {
			t.Fatalf("Eval(%v) failed: %v", c.beat, err)
		}
		if v != c.want {
			t.Fatalf("Eval(%v): expected %v, got %v", c.beat, c.want, v)
		}
	}
}

func TestScriptRender(t *testing.T) {
	s, err := automation.Compile(sweep, "curve")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer s.Close()
	ctx := atomsynth.Context{SampleRate: 4, BPM: 60}
	dst := make([]float64, 4)
	s.Render(dst, 4, &ctx)
	expected := []float64{0.25, 0.3125, 0.375, 0.4375}
	for i := range dst {
		if math.Abs(dst[i]-expected[i]) > 1e-12 {
			t.Fatalf("frame %d: expected %v, got %v", i, expected[i], dst[i])
		}
	}
	if s.Err() != nil {
		t.Fatalf("unexpected error: %v", s.Err())
	}
}

func TestScriptSeesTempo(t *testing.T) {
	s, err := automation.Compile(sweep, "tempo")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer s.Close()
	dst := make([]float64, 2)
	s.Render(dst, 0, &atomsynth.Context{SampleRate: 100, BPM: 140})
	if dst[0] != 140 || dst[1] != 140 {
		t.Fatalf("expected the script to see bpm 140, got %v", dst)
	}
}

func TestScriptErrors(t *testing.T) {
	if _, err := automation.Compile("function curve(t", ""); err == nil {
		t.Fatalf("expected a syntax error")
	}
	if _, err := automation.Compile(sweep, "missing"); err == nil {
		t.Fatalf("expected an error for a missing function")
	}
	s, err := automation.Compile(sweep, "broken")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, err := s.Eval(0); err == nil {
		t.Fatalf("expected an error when the function does not return a number")
	}
	dst := []float64{1, 1}
	s.Render(dst, 0, &atomsynth.Context{})
	if !math.IsNaN(dst[0]) || !math.IsNaN(dst[1]) || s.Err() == nil {
		t.Fatalf("a failing script should render NaNs and keep the error, got %v, %v", dst, s.Err())
	}
	s.Close()
	if _, err := s.Eval(0); err == nil {
		t.Fatalf("expected an error from a closed script")
	}
}

func TestScriptLane(t *testing.T) {
	s, err := automation.Compile(sweep, "")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer s.Close()
	lane, err := s.Lane(1, 2, "gain", 4, 1, 120)
	if err != nil {
		t.Fatalf("Lane failed: %v", err)
	}
	if lane.Instrument != 1 || lane.Unit != 2 || lane.Knob != "gain" || len(lane.Points) != 5 {
		t.Fatalf("unexpected lane %+v", lane)
	}
	if err := lane.Validate(); err != nil {
		t.Fatalf("baked lane is not valid: %v", err)
	}
	if v := lane.ValueAt(2.5, 0); v != 0.625 {
		t.Fatalf("expected 0.625 at beat 2.5, got %v", v)
	}
	if _, err := s.Lane(0, 0, "gain", 4, 0, 120); err == nil {
		t.Fatalf("expected an error for a zero step")
	}
	for _, length := range []float64{math.NaN(), math.Inf(1), -1} {
		if _, err := s.Lane(0, 0, "gain", length, 1, 120); err == nil {
			t.Fatalf("expected an error for length %v", length)
		}
	}
	if lane, err := s.Lane(0, 0, "gain", 0, 1, 120); err != nil || len(lane.Points) != 1 {
		t.Fatalf("a zero length should give one point, got %+v, %v", lane, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.lua")
	if err := os.WriteFile(path, []byte(sweep), 0o644); err != nil {
		t.Fatalf("cannot write script: %v", err)
	}
	s, err := automation.Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Close()
	if _, err := automation.Load(filepath.Join(t.TempDir(), "missing.lua"), ""); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
