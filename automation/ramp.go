package automation

import "github.com/atomsynth/atomsynth"

// Ramp goes linearly from From to To in Beats beats, starting at Start, and
// then stays at To. Before Start, the value is From.
type Ramp struct {
	From, To     float64
	Start, Beats float64
}

// ValueAt returns the value of the ramp at a position in beats.
func (r Ramp) ValueAt(beat float64) float64 {
	switch {
	case beat <= r.Start:
		return r.From
	case beat >= r.Start+r.Beats:
		return r.To
	}
	return r.From + (r.To-r.From)*(beat-r.Start)/r.Beats
}

func (r Ramp) Render(dst []float64, frame int, ctx *atomsynth.Context) {
	perFrame := ctx.Tempo() / 60 / ctx.Rate()
	for i := range dst {
		dst[i] = r.ValueAt(float64(frame+i) * perFrame)
	}
}

// Lane returns the ramp as a two point lane.
func (r Ramp) Lane(instrument, unit int, knob string) atomsynth.Lane {
	return atomsynth.Lane{Instrument: instrument, Unit: unit, Knob: knob, Points: []atomsynth.Point{
		{Beat: r.Start, Value: r.From},
		{Beat: r.Start + max(r.Beats, 0), Value: r.To},
	}}
}
