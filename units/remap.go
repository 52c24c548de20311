package units

import (
	"math"

	"github.com/atomsynth/atomsynth"
)

type (
	// Remap converts a signal from one value domain into another, e.g. a
	// normalized 0..1 modulation signal into a frequency in Hz. Both domains
	// are chosen with a selector; the signal goes through the normalized
	// 0..1 range in between.
	Remap struct {
		*atomsynth.Controls
		inType, outType *atomsynth.Selector
	}

	remapVoice struct {
		parent *Remap
		voice  int
	}

	// Domain is the value domain of a Remap input or output.
	Domain int
)

const (
	// Linear values are already normalized.
	Linear Domain = iota
	// Frequency values are in Hz, mapped logarithmically so that 0 is 1 Hz
	// and 1 is 20 kHz.
	Frequency
)

// LogMax is log2(20000), the log2 of the highest frequency.
const LogMax = 14.287712379549449

var domainLabels = []string{"Linear", "Frequency"}

func (d Domain) String() string {
	if d < 0 || int(d) >= len(domainLabels) {
		return "Unknown"
	}
	return domainLabels[d]
}

// Normalize maps x from domain d into the normalized range. Frequencies below
// 1 Hz are treated as 1 Hz.
func Normalize(d Domain, x float64) float64 {
	if d == Frequency {
		return math.Log2(math.Max(x, 1)) / LogMax
	}
	return x
}

// Denormalize maps a normalized x into domain d. It is the inverse of
// Normalize.
func Denormalize(d Domain, x float64) float64 {
	if d == Frequency {
		return math.Exp2(x * LogMax)
	}
	return x
}

func NewRemap() *Remap {
	c := atomsynth.NewControls("Transforms", "Remap")
	return &Remap{
		Controls: c,
		inType:   c.NewSelector("inType", int(Linear), domainLabels...),
		outType:  c.NewSelector("outType", int(Linear), domainLabels...),
	}
}

// Map applies the current transform to a single value.
func (r *Remap) Map(x float64) float64 {
	return Denormalize(Domain(r.outType.Selected()), Normalize(Domain(r.inType.Selected()), x))
}

func (r *Remap) NewInstance(voice int) atomsynth.Instance {
	return &remapVoice{parent: r, voice: voice}
}

func (v *remapVoice) Voice() int { return v.voice }
func (v *remapVoice) Reset()     {}

func (v *remapVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	inType, outType := Domain(v.parent.inType.Selected()), Domain(v.parent.outType.Selected())
	for i := range out {
		var x float64
		if in != nil {
			x = float64(in[i])
		}
		out[i] = float32(Denormalize(outType, Normalize(inType, x)))
	}
}
