package units

import (
	"math"

	"github.com/atomsynth/atomsynth"
)

// Amplifier scales its input. The gain knob is linear; the boost knob adds
// up to 24 dB on top of it, for signals that need more than unity gain.
type Amplifier struct {
	*atomsynth.Controls
	gain, boost *atomsynth.Knob
}

type amplifierVoice struct {
	parent *Amplifier
	voice  int
}

func NewAmplifier() *Amplifier {
	c := atomsynth.NewControls("Processing", "Amplifier")
	return &Amplifier{
		Controls: c,
		gain:     c.NewKnob("gain", 0, 1, 1),
		boost:    c.NewKnob("boost", 0, 24, 0),
	}
}

func (a *Amplifier) NewInstance(voice int) atomsynth.Instance {
	return &amplifierVoice{parent: a, voice: voice}
}

func (v *amplifierVoice) Voice() int { return v.voice }
func (v *amplifierVoice) Reset()     {}

// Execute writes in * gain * 10^(boost/20). Without an input there is nothing
// to amplify and the output is silent.
func (v *amplifierVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	gain, boost := v.parent.gain.Cursor(), v.parent.boost.Cursor()
	for i := range out {
		g, b := gain.Next(), boost.Next()
		if in == nil {
			out[i] = 0
			continue
		}
		if b != 0 {
			g *= math.Pow(10, b/20)
		}
		out[i] = in[i] * float32(g)
	}
}
