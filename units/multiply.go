package units

import "github.com/atomsynth/atomsynth"

// Multiply scales its input by two knobs, one bipolar and one unipolar. It is
// mostly useful for testing automation.
type Multiply struct {
	*atomsynth.Controls
	fac11, fac01 *atomsynth.Knob
}

type multiplyVoice struct {
	parent *Multiply
	voice  int
}

func NewMultiply() *Multiply {
	c := atomsynth.NewControls("Debug", "Multiply")
	return &Multiply{
		Controls: c,
		fac11:    c.NewKnob("fac11", -1, 1, 1),
		fac01:    c.NewKnob("fac01", 0, 1, 1),
	}
}

func (m *Multiply) NewInstance(voice int) atomsynth.Instance {
	return &multiplyVoice{parent: m, voice: voice}
}

func (v *multiplyVoice) Voice() int { return v.voice }
func (v *multiplyVoice) Reset()     {}

// Execute writes in * fac11 * fac01; without an input, just the product of the
// knobs.
func (v *multiplyVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	fac11, fac01 := v.parent.fac11.Cursor(), v.parent.fac01.Cursor()
	for i := range out {
		f := float32(fac11.Next() * fac01.Next())
		if in != nil {
			out[i] = in[i] * f
		} else {
			out[i] = f
		}
	}
}
