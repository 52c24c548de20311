package units

import (
	"github.com/atomsynth/atomsynth"
)

type (
	// Envelope generates a level that goes through the stages Delay, Attack,
	// Hold, Sustain and Release. The duration of every stage except Sustain is
	// a tempo ratio times a multiplier knob; Sustain lasts until the note is
	// released, its duration only sets how long it takes to settle from the
	// hold level to the sustain level.
	//
	// When the envelope gets an input, it multiplies the input with the level,
	// so it can be used as a VCA after an oscillator.
	Envelope struct {
		*atomsynth.Controls

		delayTime, attackTime, holdTime, sustainTime, releaseTime *atomsynth.TempoControl
		delayMult, attackMult, holdMult, sustainMult, releaseMult *atomsynth.Knob

		attackLevel, holdLevel, sustainLevel    *atomsynth.Knob
		attackShape, sustainShape, releaseShape *atomsynth.Knob
	}

	// EnvelopeVoice is the state of an Envelope for one voice.
	EnvelopeVoice struct {
		parent       *Envelope
		voice        int
		stage        EnvelopeStage
		elapsed      float64 // frames spent in the current stage
		level        float64
		releaseStart float64
		releasing    bool
	}

	EnvelopeStage int
)

const (
	StageDelay EnvelopeStage = iota
	StageAttack
	StageHold
	StageSustain
	StageRelease
	StageIdle
)

var stageNames = [...]string{"Delay", "Attack", "Hold", "Sustain", "Release", "Idle"}

func (s EnvelopeStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

func NewEnvelope() *Envelope {
	c := atomsynth.NewControls("Generation", "Envelope")
	return &Envelope{
		Controls:     c,
		delayTime:    c.NewTempo("delayTime", 0, 1),
		attackTime:   c.NewTempo("attackTime", 1, 4),
		holdTime:     c.NewTempo("holdTime", 1, 4),
		sustainTime:  c.NewTempo("sustainTime", 1, 2),
		releaseTime:  c.NewTempo("releaseTime", 1, 2),
		delayMult:    c.NewKnob("delayMult", 0, 4, 1),
		attackMult:   c.NewKnob("attackMult", 0, 4, 1),
		holdMult:     c.NewKnob("holdMult", 0, 4, 1),
		sustainMult:  c.NewKnob("sustainMult", 0, 4, 1),
		releaseMult:  c.NewKnob("releaseMult", 0, 4, 1),
		attackLevel:  c.NewKnob("attackLevel", 0, 1, 1),
		holdLevel:    c.NewKnob("holdLevel", 0, 1, 1),
		sustainLevel: c.NewKnob("sustainLevel", 0, 1, 0.7),
		attackShape:  c.NewKnob("attackShape", -1, 1, 0),
		sustainShape: c.NewKnob("sustainShape", -1, 1, 0),
		releaseShape: c.NewKnob("releaseShape", -1, 1, 0),
	}
}

func (e *Envelope) NewInstance(voice int) atomsynth.Instance {
	return &EnvelopeVoice{parent: e, voice: voice, stage: StageIdle}
}

func (v *EnvelopeVoice) Voice() int { return v.voice }

// Stage returns the current stage.
func (v *EnvelopeVoice) Stage() EnvelopeStage { return v.stage }

// Level returns the level of the last rendered frame.
func (v *EnvelopeVoice) Level() float64 { return v.level }

// Releasing reports whether the voice is in its release stage.
func (v *EnvelopeVoice) Releasing() bool { return v.releasing }

// ReleaseStart returns the level at which the last release started.
func (v *EnvelopeVoice) ReleaseStart() float64 { return v.releaseStart }

func (v *EnvelopeVoice) Reset() {
	v.stage = StageIdle
	v.elapsed = 0
	v.level = 0
	v.releaseStart = 0
	v.releasing = false
}

// NoteOn starts the envelope from the delay stage.
func (v *EnvelopeVoice) NoteOn(key byte) {
	v.stage = StageDelay
	v.elapsed = 0
	v.level = 0
	v.releasing = false
}

// NoteOff moves to the release stage, starting from the level the envelope is
// at right now.
func (v *EnvelopeVoice) NoteOff() {
	if v.stage == StageIdle || v.stage == StageRelease {
		return
	}
	v.releaseStart = v.level
	v.stage = StageRelease
	v.elapsed = 0
	v.releasing = true
}

// envelopeParams holds the knob values of one frame.
type envelopeParams struct {
	frames                                  [StageIdle]float64 // stage durations
	attackLevel, holdLevel, sustainLevel    float64
	attackShape, sustainShape, releaseShape float64
}

func (v *EnvelopeVoice) Execute(ctx *atomsynth.Context, in, out []float32) {
	e := v.parent
	bpm, rate := ctx.Tempo(), ctx.Rate()
	var base [StageIdle]float64
	for i, t := range [StageIdle]*atomsynth.TempoControl{e.delayTime, e.attackTime, e.holdTime, e.sustainTime, e.releaseTime} {
		base[i] = t.Ratio().Seconds(bpm) * rate
	}
	mults := [StageIdle]atomsynth.Cursor{e.delayMult.Cursor(), e.attackMult.Cursor(), e.holdMult.Cursor(), e.sustainMult.Cursor(), e.releaseMult.Cursor()}
	attackLevel, holdLevel, sustainLevel := e.attackLevel.Cursor(), e.holdLevel.Cursor(), e.sustainLevel.Cursor()
	attackShape, sustainShape, releaseShape := e.attackShape.Cursor(), e.sustainShape.Cursor(), e.releaseShape.Cursor()
	var p envelopeParams
	for i := range out {
		for s := range mults {
			p.frames[s] = base[s] * mults[s].Next()
		}
		p.attackLevel, p.holdLevel, p.sustainLevel = attackLevel.Next(), holdLevel.Next(), sustainLevel.Next()
		p.attackShape, p.sustainShape, p.releaseShape = attackShape.Next(), sustainShape.Next(), releaseShape.Next()
		level := float32(v.tick(&p))
		if in != nil {
			out[i] = in[i] * level
		} else {
			out[i] = level
		}
	}
}

// tick advances the state machine by one frame and returns the level of that
// frame. Stages whose duration has already elapsed are skipped within the same
// frame, so zero length stages take no time at all.
func (v *EnvelopeVoice) tick(p *envelopeParams) float64 {
	for {
		var dur float64
		if v.stage < StageIdle {
			dur = p.frames[v.stage]
		}
		t := 1.0
		if dur > 0 {
			t = v.elapsed / dur
		}
		done := v.elapsed >= dur
		switch v.stage {
		case StageIdle:
			v.level = 0
			return 0
		case StageDelay:
			if done {
				v.next(StageAttack)
				continue
			}
			v.level = 0
		case StageAttack:
			if done {
				v.next(StageHold)
				continue
			}
			v.level = Interpolate(0, p.attackLevel, t, p.attackShape)
		case StageHold:
			if done {
				v.next(StageSustain)
				continue
			}
			v.level = Interpolate(p.attackLevel, p.holdLevel, t, 0)
		case StageSustain:
			if done {
				v.level = p.sustainLevel
			} else {
				v.level = Interpolate(p.holdLevel, p.sustainLevel, t, p.sustainShape)
			}
		case StageRelease:
			if done {
				v.next(StageIdle)
				v.releasing = false
				continue
			}
			v.level = Interpolate(v.releaseStart, 0, t, p.releaseShape)
		}
		v.elapsed++
		return v.level
	}
}

func (v *EnvelopeVoice) next(stage EnvelopeStage) {
	v.stage = stage
	v.elapsed = 0
}
