package atomsynth

import (
	"errors"
	"fmt"
	"math"
)

type (
	// Song includes a Score (the notes of the song), a Patch (the list of one
	// or more instruments) and automation Lanes. BPM and SampleRate set how
	// fast the song is played and rendered; BlockSize sets how many frames are
	// rendered between two updates of the automation. Zero values mean
	// defaults.
	Song struct {
		BPM        float64
		SampleRate int `yaml:",omitempty" json:",omitempty"`
		BlockSize  int `yaml:",omitempty" json:",omitempty"`
		Patch      Patch
		Score      Score
		Lanes      []Lane `yaml:",omitempty" json:",omitempty"`
	}

	// Score is the list of notes in a song. Length is the length of the song in
	// beats; if it is shorter than the end of the last note, the song ends
	// when the last note ends.
	Score struct {
		Length float64 `yaml:",omitempty" json:",omitempty"`
		Notes  []Note
	}

	// Note triggers a voice of an instrument. Start and Length are in beats.
	// The voices of an instrument are triggered round robin.
	Note struct {
		Instrument int
		Key        byte
		Start      float64
		Length     float64
	}
)

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	ret := *s
	ret.Patch = s.Patch.Copy()
	ret.Score = s.Score.Copy()
	ret.Lanes = make([]Lane, len(s.Lanes))
	for i, l := range s.Lanes {
		l.Points = append([]Point(nil), l.Points...)
		ret.Lanes[i] = l
	}
	return ret
}

// Copy makes a deep copy of a Score.
func (s Score) Copy() Score {
	s.Notes = append([]Note(nil), s.Notes...)
	return s
}

// End returns the position in beats where the song ends.
func (s Score) End() float64 {
	ret := s.Length
	for _, n := range s.Notes {
		ret = math.Max(ret, n.Start+n.Length)
	}
	return ret
}

// Context returns the rendering context of the song, with defaults filled in.
func (s *Song) Context() Context {
	ret := Context{SampleRate: float64(s.SampleRate), BPM: s.BPM}
	ret.SampleRate, ret.BPM = ret.Rate(), ret.Tempo()
	return ret
}

// BlockLength returns the block size, falling back to DefaultBlockSize.
func (s *Song) BlockLength() int {
	if s.BlockSize > 0 {
		return s.BlockSize
	}
	return DefaultBlockSize
}

// LengthInFrames returns the length of the rendered song.
func (s *Song) LengthInFrames() int {
	ctx := s.Context()
	return int(math.Ceil(ctx.BeatFrames(s.Score.End())))
}

// Validate checks if the Song looks like a valid song: BPM > 0, every note
// targets an existing instrument that has voices, and the automation lanes
// point to existing units.
func (s *Song) Validate() error {
	if !(s.BPM > 0) || math.IsInf(s.BPM, 0) {
		return errors.New("BPM should be finite and > 0")
	}
	if s.SampleRate < 0 || s.BlockSize < 0 {
		return errors.New("sample rate and block size cannot be negative")
	}
	if !finite(s.Score.Length) || s.Score.Length < 0 {
		return errors.New("score length should be finite and non-negative")
	}
	for i, n := range s.Score.Notes {
		if n.Instrument < 0 || n.Instrument >= len(s.Patch) {
			return fmt.Errorf("note %d: instrument %d does not exist", i, n.Instrument)
		}
		if s.Patch[n.Instrument].NumVoices <= 0 {
			return fmt.Errorf("note %d: instrument %d has no voices", i, n.Instrument)
		}
		if !finite(n.Start) || !finite(n.Length) {
			return fmt.Errorf("note %d: start and length should be finite", i)
		}
		if n.Start < 0 || n.Length < 0 {
			return fmt.Errorf("note %d: start and length cannot be negative", i)
		}
	}
	for i, l := range s.Lanes {
		if l.Instrument < 0 || l.Instrument >= len(s.Patch) || l.Unit < 0 || l.Unit >= len(s.Patch[l.Instrument].Units) {
			return fmt.Errorf("lane %d: unit %d of instrument %d does not exist", i, l.Unit, l.Instrument)
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("lane %d: %w", i, err)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
