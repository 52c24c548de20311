// Package automation provides curve sources for knob automation: Lua scripts
// evaluated as a function of the song position and simple linear ramps. Both
// can be baked into an atomsynth.Lane. Ramps render without allocating, so they
// can also be bound to a playing knob with engine.AutomationMsg; scripts are
// baked first.
package automation

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/atomsynth/atomsynth"
	lua "github.com/yuin/gopher-lua"
)

// DefaultFunction is the name of the global Lua function called by a Script
// when no other name is given.
const DefaultFunction = "curve"

// Script evaluates a Lua function of the song position, in beats, to get the
// value of a knob. The Lua state is not safe for concurrent use, so all calls
// are serialized.
//
// The script sees the tempo of the song being rendered in the global "bpm".
type Script struct {
	mu    sync.Mutex
	state *lua.LState
	fn    lua.LValue
	bpm   float64
	err   error // first evaluation error, reported by Err
}

var errNotNumber = errors.New("automation function did not return a number")

// Compile runs the Lua source and looks up the global function with the
// given name. An empty name means DefaultFunction.
func Compile(source, function string) (*Script, error) {
	if function == "" {
		function = DefaultFunction
	}
	L := lua.NewState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua: %w", err)
	}
	fn := L.GetGlobal(function)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("lua: global %q is not a function", function)
	}
	return &Script{state: L, fn: fn}, nil
}

// Load reads a Lua file and compiles it.
func Load(path, function string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("automation: %w", err)
	}
	return Compile(string(b), function)
}

// Eval calls the function with the position in beats.
func (s *Script) Eval(beat float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eval(beat)
}

func (s *Script) eval(beat float64) (float64, error) {
	if s.state == nil {
		return 0, errors.New("automation: script is closed")
	}
	if err := s.state.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, lua.LNumber(beat)); err != nil {
		return 0, fmt.Errorf("lua: %w", err)
	}
	ret := s.state.Get(-1)
	s.state.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%w: got %s at beat %v", errNotNumber, ret.Type(), beat)
	}
	return float64(n), nil
}

func (s *Script) setTempo(bpm float64) {
	if bpm != s.bpm && s.state != nil {
		s.bpm = bpm
		s.state.SetGlobal("bpm", lua.LNumber(bpm))
	}
}

// Render evaluates the function once per frame. If the function fails, the
// rest of dst is filled with NaN, which knobs replace with their default, and
// the error is kept for Err. The Lua VM allocates, so Render belongs to the
// control thread.
func (s *Script) Render(dst []float64, frame int, ctx *atomsynth.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTempo(ctx.Tempo())
	perFrame := ctx.Tempo() / 60 / ctx.Rate()
	for i := range dst {
		v, err := s.eval(float64(frame+i) * perFrame)
		if err != nil {
			if s.err == nil {
				s.err = err
			}
			for j := i; j < len(dst); j++ {
				dst[j] = math.NaN()
			}
			return
		}
		dst[i] = v
	}
}

// Err returns the first error that happened during Render.
func (s *Script) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Lane samples the function every step beats from 0 to length (inclusive)
// and returns the samples as the points of a lane targeting the given knob.
func (s *Script) Lane(instrument, unit int, knob string, length, step, bpm float64) (atomsynth.Lane, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return atomsynth.Lane{}, fmt.Errorf("automation: step should be finite and > 0, got %v", step)
	}
	if !(length >= 0) || math.IsInf(length, 0) {
		return atomsynth.Lane{}, fmt.Errorf("automation: length should be finite and >= 0, got %v", length)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTempo((&atomsynth.Context{BPM: bpm}).Tempo())
	ret := atomsynth.Lane{Instrument: instrument, Unit: unit, Knob: knob}
	for i := 0; ; i++ {
		beat := float64(i) * step
		if beat > length {
			break
		}
		v, err := s.eval(beat)
		if err != nil {
			return atomsynth.Lane{}, err
		}
		ret.Points = append(ret.Points, atomsynth.Point{Beat: beat, Value: v})
	}
	return ret, nil
}

// Close releases the Lua state. The script cannot be used afterwards.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}
