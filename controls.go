package atomsynth

import (
	"fmt"
	"sync"
)

type (
	// Controls is the parameter block of a Blueprint: its identity, the knobs,
	// selectors and tempo controls it declares, and the table of change
	// listeners. Blueprints embed a *Controls and get Category, Name,
	// Snapshot, Restore, Subscribe and Knob from it.
	//
	// Declaring controls is done once, while constructing the blueprint.
	// Snapshot and Restore must not run concurrently on the same blueprint.
	Controls struct {
		category, name string
		controls       []control
		byName         map[string]control
		listeners      listeners
	}

	// control is one of *Knob, *Selector or *TempoControl.
	control interface {
		Name() string
	}

	// Change describes a control that changed value. ByUser is true when the
	// change originated from a user gesture, false when it came from
	// automation, patch loading or other code.
	Change struct {
		Unit    string
		Control string
		ByUser  bool
	}

	// ChangeFunc is called on the control thread after a control changed.
	ChangeFunc func(Change)

	listeners struct {
		mu    sync.Mutex
		next  int
		funcs map[int]ChangeFunc
	}
)

// NewControls returns an empty parameter block for a unit type.
func NewControls(category, name string) *Controls {
	return &Controls{category: category, name: name, byName: make(map[string]control)}
}

func (c *Controls) Category() string { return c.category }
func (c *Controls) Name() string     { return c.name }

// Knob declares a new knob. Panics if the name is already taken, as that can
// only be a programming error in the unit.
func (c *Controls) NewKnob(name string, min, max, def float64) *Knob {
	k := &Knob{name: name, min: min, max: max, defValue: def, owner: c}
	k.state.Store(&knobState{value: k.clamp(def)})
	c.declare(k)
	return k
}

// NewSelector declares a new selector with the given labels.
func (c *Controls) NewSelector(name string, def int, labels ...string) *Selector {
	s := &Selector{name: name, labels: labels, owner: c}
	s.def = s.clamp(def)
	s.selected.Store(int32(s.def))
	c.declare(s)
	return s
}

// NewTempo declares a new tempo-synced duration control.
func (c *Controls) NewTempo(name string, numerator, denominator float64) *TempoControl {
	t := &TempoControl{name: name, def: NewTempoRatio(numerator, denominator), owner: c}
	r := t.def
	t.ratio.Store(&r)
	c.declare(t)
	return t
}

func (c *Controls) declare(ctrl control) {
	if _, ok := c.byName[ctrl.Name()]; ok {
		panic(fmt.Sprintf("unit %v/%v declares control %q twice", c.category, c.name, ctrl.Name()))
	}
	c.byName[ctrl.Name()] = ctrl
	c.controls = append(c.controls, ctrl)
}

// Knob finds a knob by name.
func (c *Controls) Knob(name string) (*Knob, bool) {
	k, ok := c.byName[name].(*Knob)
	return k, ok
}

// Selector finds a selector by name.
func (c *Controls) Selector(name string) (*Selector, bool) {
	s, ok := c.byName[name].(*Selector)
	return s, ok
}

// Tempo finds a tempo control by name.
func (c *Controls) Tempo(name string) (*TempoControl, bool) {
	t, ok := c.byName[name].(*TempoControl)
	return t, ok
}

// ControlNames returns the names of all controls in declaration order.
func (c *Controls) ControlNames() []string {
	ret := make([]string, len(c.controls))
	for i, ctrl := range c.controls {
		ret[i] = ctrl.Name()
	}
	return ret
}

// Snapshot captures the value of every knob, the index of every selector and
// both terms of every tempo control, in declaration order.
func (c *Controls) Snapshot() *Config {
	ret := NewConfig()
	for _, ctrl := range c.controls {
		switch v := ctrl.(type) {
		case *Knob:
			ret.SetFloat(v.name, v.Value())
		case *Selector:
			ret.SetInt(v.name, v.Selected())
		case *TempoControl:
			ret.SetChild(v.name, v.snapshot())
		}
	}
	return ret
}

// Restore applies cfg. Keys that are missing or hold a value of the wrong type
// reset the control to its default; unknown keys are ignored. Restore never
// fails, and drops any automation curve that was published.
func (c *Controls) Restore(cfg *Config) {
	for _, ctrl := range c.controls {
		switch v := ctrl.(type) {
		case *Knob:
			v.state.Store(&knobState{value: v.clamp(cfg.Float(v.name, v.defValue))})
		case *Selector:
			v.selected.Store(int32(v.clamp(cfg.Int(v.name, v.def))))
		case *TempoControl:
			v.restore(cfg.Child(v.name))
		}
	}
	for _, ctrl := range c.controls {
		c.notify(ctrl.Name(), false)
	}
}

// Subscribe adds f to the listeners of this unit. The returned function
// removes it again.
func (c *Controls) Subscribe(f ChangeFunc) (cancel func()) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	if c.listeners.funcs == nil {
		c.listeners.funcs = make(map[int]ChangeFunc)
	}
	id := c.listeners.next
	c.listeners.next++
	c.listeners.funcs[id] = f
	return func() {
		c.listeners.mu.Lock()
		defer c.listeners.mu.Unlock()
		delete(c.listeners.funcs, id)
	}
}

func (c *Controls) notify(control string, byUser bool) {
	if c == nil {
		return
	}
	c.listeners.mu.Lock()
	funcs := make([]ChangeFunc, 0, len(c.listeners.funcs))
	for _, f := range c.listeners.funcs {
		funcs = append(funcs, f)
	}
	c.listeners.mu.Unlock()
	ch := Change{Unit: c.category + "/" + c.name, Control: control, ByUser: byUser}
	for _, f := range funcs {
		f(ch)
	}
}
