package atomsynth

import (
	"math"
	"sync/atomic"
)

type (
	// Knob is a named scalar input of a unit, shared by every voice of the
	// unit. Its value is either a constant or, for the duration of a block, an
	// automation curve. The (value, curve) pair is swapped atomically, so a
	// block that bound a Cursor keeps reading the state it started with even
	// if a new one is published meanwhile.
	//
	// Set, Automate and ClearAutomation are for the control thread: they
	// allocate and notify listeners. Publish is for the goroutine that renders
	// the blocks: it reuses two buffers owned by the knob and notifies nobody.
	Knob struct {
		name               string
		min, max, defValue float64
		state              atomic.Pointer[knobState]
		owner              *Controls
		blocks             [2]knobState
	}

	knobState struct {
		value float64
		curve []float64
	}
)

func (k *Knob) Name() string     { return k.name }
func (k *Knob) Min() float64     { return k.min }
func (k *Knob) Max() float64     { return k.max }
func (k *Knob) Default() float64 { return k.defValue }

// Value returns the constant value of the knob. While an automation curve is
// published, Value still returns the last constant.
func (k *Knob) Value() float64 {
	return k.load().value
}

// Automated reports whether a curve is currently published.
func (k *Knob) Automated() bool {
	return len(k.load().curve) > 0
}

// Set publishes a constant value, clamped into [Min, Max], dropping any
// automation curve. Listeners are told whether the change came from the user.
func (k *Knob) Set(value float64, byUser bool) {
	k.state.Store(&knobState{value: k.clamp(value)})
	k.owner.notify(k.name, byUser)
}

// Automate publishes a copy of curve as the automation for the next block.
// Curve values are clamped into [Min, Max]. This is a control rate operation:
// it allocates.
func (k *Knob) Automate(curve []float64) {
	c := make([]float64, len(curve))
	for i, v := range curve {
		c[i] = k.clamp(v)
	}
	k.state.Store(&knobState{value: k.load().value, curve: c})
	k.owner.notify(k.name, false)
}

// ClearAutomation drops the automation curve and returns to the constant.
func (k *Knob) ClearAutomation() {
	s := k.load()
	if len(s.curve) == 0 {
		return
	}
	k.state.Store(&knobState{value: s.value})
	k.owner.notify(k.name, false)
}

// Publish copies curve into the spare one of the knob's two block buffers and
// makes it the published state. Values are clamped as in Automate and an empty
// curve publishes the constant alone. Publish does not allocate once the
// buffers have grown to the block size, and it notifies no listeners.
//
// A state published by Publish is overwritten by the next-but-one Publish, so
// a Cursor bound to it must be used up before then. The engine calls Publish
// once before every block, from the goroutine rendering the blocks, and
// cursors never outlive their block.
func (k *Knob) Publish(curve []float64) {
	for {
		cur := k.state.Load()
		next := &k.blocks[0]
		if cur == next {
			next = &k.blocks[1]
		}
		next.value = k.defValue
		if cur != nil {
			next.value = cur.value
		}
		c := next.curve[:0]
		if cap(c) < len(curve) {
			c = make([]float64, 0, len(curve))
		}
		for _, v := range curve {
			c = append(c, k.clamp(v))
		}
		next.curve = c
		if k.state.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Cursor binds a cursor to the currently published state. It is safe to call
// from the audio thread: it only performs one atomic load.
func (k *Knob) Cursor() Cursor {
	s := k.load()
	return CurveCursor(s.curve, s.value)
}

func (k *Knob) load() *knobState {
	if s := k.state.Load(); s != nil {
		return s
	}
	return &knobState{value: k.defValue}
}

func (k *Knob) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return k.defValue
	}
	return math.Min(math.Max(v, k.min), k.max)
}
