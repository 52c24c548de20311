package atomsynth

type (
	// Blueprint is a unit type: it declares the identity of the unit, owns
	// the parameters shared by all voices and creates the per-voice instances.
	// Blueprints usually embed a *Controls, which implements everything except
	// NewInstance.
	Blueprint interface {
		Category() string
		Name() string
		// NewInstance creates the runtime state for one voice. It never fails
		// and the instance starts in its reset state.
		NewInstance(voice int) Instance
		// Snapshot captures the current configuration; Restore applies one.
		// Restore(Snapshot()) leaves the blueprint observationally unchanged.
		Snapshot() *Config
		Restore(cfg *Config)
		// Subscribe registers a listener for control changes.
		Subscribe(f ChangeFunc) (cancel func())
		Knob(name string) (*Knob, bool)
	}

	// Instance is the runtime state of a unit for one voice. It never copies
	// parameter values but reads them from its blueprint at the start of every
	// block.
	Instance interface {
		Voice() int
		// Execute renders len(out) frames. in is the output of the previous
		// unit in the chain, or nil for the first unit; when not nil, it has
		// the same length as out. Execute runs on the audio thread and must not
		// allocate, lock, block or panic.
		Execute(ctx *Context, in, out []float32)
		// Reset returns the instance to its initial state. It is never called
		// concurrently with Execute.
		Reset()
	}

	// Gated is implemented by instances that react to notes, e.g. envelopes
	// and oscillators. NoteOn is called right after the voice was reset.
	Gated interface {
		NoteOn(key byte)
		NoteOff()
	}
)
