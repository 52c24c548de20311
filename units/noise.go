package units

import "github.com/atomsynth/atomsynth"

type (
	// Noise generates white noise. Every voice runs its own pseudo random
	// sequence, seeded by the voice index, so a render is repeatable. The shape
	// knob bends the distribution: 0.5 leaves it flat, lower values push the
	// samples towards zero and higher values towards the extremes. When the
	// unit gets an input, the noise is added to it.
	Noise struct {
		*atomsynth.Controls
		shape, gain *atomsynth.Knob
	}

	noiseVoice struct {
		parent *Noise
		voice  int
		seed   uint32
	}
)

func NewNoise() *Noise {
	c := atomsynth.NewControls("Generation", "Noise")
	return &Noise{
		Controls: c,
		shape:    c.NewKnob("shape", 0, 1, 0.5),
		gain:     c.NewKnob("gain", 0, 1, 0.5),
	}
}

func (n *Noise) NewInstance(voice int) atomsynth.Instance {
	v := &noiseVoice{parent: n, voice: voice}
	v.Reset()
	return v
}

func (v *noiseVoice) Voice() int { return v.voice }

// Reset restarts the sequence of the voice. The seed has to be odd for the
// multiplicative generator to have a full period.
func (v *noiseVoice) Reset() { v.seed = 2*uint32(v.voice) + 1 }

// rand returns a value in [-1, 1).
func (v *noiseVoice) rand() float32 {
	v.seed *= 16007
	return float32(int32(v.seed)) / -2147483648.0
}

// waveshape maps [-1, 1] onto itself; amount 0.5 is the identity.
func waveshape(value, amount float32) float32 {
	absVal := value
	if absVal < 0 {
		absVal = -absVal
	}
	d := 1 - amount + (2*amount-1)*absVal
	if d == 0 {
		return value
	}
	return value * amount / d
}

func (v *noiseVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	shape, gain := v.parent.shape.Cursor(), v.parent.gain.Cursor()
	for i := range out {
		s := waveshape(v.rand(), float32(shape.Next())) * float32(gain.Next())
		if in != nil {
			out[i] = in[i] + s
		} else {
			out[i] = s
		}
	}
}
