package units

import (
	"math"

	"github.com/atomsynth/atomsynth"
)

type (
	// Oscillator generates a periodic waveform. Its frequency either follows
	// the note played on the voice, transposed by a knob, or the tempo, in
	// which case it works as a tempo synced LFO. When the oscillator gets an
	// input, the waveform is added to it.
	Oscillator struct {
		*atomsynth.Controls
		waveform, tracking *atomsynth.Selector
		transpose, gain    *atomsynth.Knob
		rate               *atomsynth.TempoControl
	}

	oscillatorVoice struct {
		parent *Oscillator
		voice  int
		phase  float64
		key    byte
	}

	Waveform int
)

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
)

const (
	TrackNote = iota
	TrackTempo
)

const defaultKey = 69 // A4, 440 Hz

var waveformLabels = []string{"Sine", "Saw", "Square", "Triangle"}

func NewOscillator() *Oscillator {
	c := atomsynth.NewControls("Generation", "Oscillator")
	return &Oscillator{
		Controls:  c,
		waveform:  c.NewSelector("waveform", int(Sine), waveformLabels...),
		tracking:  c.NewSelector("tracking", TrackNote, "Note", "Tempo"),
		transpose: c.NewKnob("transpose", -24, 24, 0),
		gain:      c.NewKnob("gain", 0, 1, 0.5),
		rate:      c.NewTempo("rate", 1, 1),
	}
}

func (o *Oscillator) NewInstance(voice int) atomsynth.Instance {
	return &oscillatorVoice{parent: o, voice: voice, key: defaultKey}
}

// NoteFrequency returns the frequency of a MIDI key transposed by the given
// number of semitones.
func NoteFrequency(key byte, transpose float64) float64 {
	return 440 * math.Exp2((float64(key)-69+transpose)/12)
}

// Wave returns the value of a waveform at phase in [0, 1).
func Wave(w Waveform, phase float64) float64 {
	switch w {
	case Saw:
		return 2*phase - 1
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		return 4*math.Abs(phase-0.5) - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func (v *oscillatorVoice) Voice() int { return v.voice }

func (v *oscillatorVoice) Reset() {
	v.phase = 0
	v.key = defaultKey
}

func (v *oscillatorVoice) NoteOn(key byte) { v.key = key }
func (v *oscillatorVoice) NoteOff()        {}

func (v *oscillatorVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	o := v.parent
	wave := Waveform(o.waveform.Selected())
	byTempo := o.tracking.Selected() == TrackTempo
	lfo := o.rate.Ratio().Hertz(ctx.Tempo())
	rate := ctx.Rate()
	transpose, gain := o.transpose.Cursor(), o.gain.Cursor()
	for i := range out {
		f := lfo
		if t := transpose.Next(); !byTempo {
			f = NoteFrequency(v.key, t)
		}
		s := float32(Wave(wave, v.phase) * gain.Next())
		v.phase += f / rate
		v.phase -= math.Floor(v.phase)
		if in != nil {
			out[i] = in[i] + s
		} else {
			out[i] = s
		}
	}
}
