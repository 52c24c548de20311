package atomsynth

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

type (
	// Synth represents a state of a synthesizer, compiled from a Patch.
	Synth interface {
		// Render tries to fill a buffer, but renders at most BlockSize frames
		// at once. It returns the number of frames rendered; all the knob
		// cursors advance by the same amount. Automation curves published
		// before the call should therefore not be shorter than
		// min(len(buffer), BlockSize()).
		Render(buffer AudioBuffer) (frames int, err error)

		// Update recompiles a patch, but should maintain as much as possible
		// of its state as reasonable. For example, a restored knob should
		// affect the voices that are playing without restarting them.
		Update(patch Patch, ctx Context) error

		// Trigger resets a voice and starts a new note on it.
		Trigger(voice int, key byte)

		// Release releases the currently playing note for a given voice.
		Release(voice int)

		// BlockSize is the largest number of frames Render processes at once.
		BlockSize() int

		// Knob finds a knob of a unit, for publishing automation.
		Knob(instrument, unit int, name string) (*Knob, bool)
	}

	// Synther compiles a given Patch into a Synth, throwing errors if the
	// Patch is malformed.
	Synther interface {
		Name() string // Name of the synther, e.g. "Go"
		Synth(patch Patch, ctx Context, blockSize int) (Synth, error)
	}

	// Event starts (On) or releases a note of the score at a frame. Note is
	// the index of the note in Score.Notes.
	Event struct {
		Frame int
		On    bool
		Note  int
	}
)

// Play plays the Song by first compiling the patch with the given Synther,
// returning the stereo audio buffer and a possible error. Notes trigger the
// voices of their instrument round robin and the automation lanes are
// published to their knobs before every rendered block.
func Play(synther Synther, song Song) (AudioBuffer, error) {
	if err := song.Validate(); err != nil {
		return nil, err
	}
	ctx := song.Context()
	synth, err := synther.Synth(song.Patch, ctx, song.BlockLength())
	if err != nil {
		return nil, fmt.Errorf("synther.Synth failed: %w", err)
	}
	knobs := make([]*Knob, len(song.Lanes))
	curves := make([][]float64, len(song.Lanes))
	for i, l := range song.Lanes {
		k, ok := synth.Knob(l.Instrument, l.Unit, l.Knob)
		if !ok {
			return nil, fmt.Errorf("lane %d: unit %d of instrument %d has no knob %q", i, l.Unit, l.Instrument, l.Knob)
		}
		knobs[i] = k
		curves[i] = make([]float64, synth.BlockSize())
	}
	events := song.Events(&ctx)
	total := song.LengthInFrames()
	buffer := make(AudioBuffer, total)
	nextVoice := make([]int, len(song.Patch))
	voiceNote := make([]int, song.Patch.NumVoices())
	for i := range voiceNote {
		voiceNote[i] = -1
	}
	for pos := 0; pos < total; {
		for len(events) > 0 && events[0].Frame <= pos {
			e := events[0]
			events = events[1:]
			n := song.Score.Notes[e.Note]
			first := song.Patch.FirstVoiceForInstrument(n.Instrument)
			if !e.On {
				for v, owner := range voiceNote {
					if owner == e.Note {
						synth.Release(v)
						voiceNote[v] = -1
					}
				}
				continue
			}
			voice := first + nextVoice[n.Instrument]
			nextVoice[n.Instrument] = (nextVoice[n.Instrument] + 1) % song.Patch[n.Instrument].NumVoices
			voiceNote[voice] = e.Note
			synth.Trigger(voice, n.Key)
		}
		length := min(total-pos, synth.BlockSize())
		if len(events) > 0 {
			length = min(length, events[0].Frame-pos)
		}
		for i, l := range song.Lanes {
			c := curves[i][:length]
			l.Render(c, pos, &ctx)
			knobs[i].Publish(c)
		}
		rendered, err := synth.Render(buffer[pos : pos+length])
		if err != nil {
			return nil, fmt.Errorf("synth.Render failed at frame %d: %w", pos, err)
		}
		if rendered == 0 {
			return nil, errors.New("synth.Render did not advance")
		}
		pos += rendered
	}
	return buffer, nil
}

// Events returns the note on and note off events of the score, sorted by
// frame. At the same frame, note offs come before note ons. Every note lasts
// at least one frame.
func (s *Song) Events(ctx *Context) []Event {
	ret := make([]Event, 0, len(s.Score.Notes)*2)
	for i, n := range s.Score.Notes {
		on := int(math.Round(ctx.BeatFrames(n.Start)))
		off := int(math.Round(ctx.BeatFrames(n.Start + n.Length)))
		ret = append(ret, Event{Frame: on, On: true, Note: i}, Event{Frame: max(off, on+1), Note: i})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].Frame != ret[j].Frame {
			return ret[i].Frame < ret[j].Frame
		}
		return !ret[i].On && ret[j].On
	})
	return ret
}
