package atomsynth

const (
	// DefaultSampleRate is used whenever a Context or Song leaves the sample
	// rate unset.
	DefaultSampleRate = 44100
	// DefaultBPM is used whenever a Context or Song leaves the tempo unset or
	// non-positive.
	DefaultBPM = 120
	// DefaultBlockSize is the number of frames rendered per block when nothing
	// else is configured.
	DefaultBlockSize = 256
	// MinBPM and MaxBPM bound the tempo, so that every tempo-synced duration
	// and frequency stays finite and positive.
	MinBPM = 1e-3
	MaxBPM = 1e6
)

// Context carries the per-block information every Instance needs but does not
// own: the sample rate of the output and the current tempo. It is passed into
// Instance.Execute instead of living in a process-wide global.
type Context struct {
	SampleRate float64
	BPM        float64
}

// Rate returns the sample rate, falling back to DefaultSampleRate.
func (c *Context) Rate() float64 {
	if c == nil || c.SampleRate <= 0 {
		return DefaultSampleRate
	}
	return c.SampleRate
}

// Tempo returns the BPM clamped with ClampBPM.
func (c *Context) Tempo() float64 {
	if c == nil {
		return DefaultBPM
	}
	return ClampBPM(c.BPM)
}

// ClampBPM returns DefaultBPM for a NaN or non-positive bpm and otherwise
// clamps it into [MinBPM, MaxBPM].
func ClampBPM(bpm float64) float64 {
	if !(bpm > 0) {
		return DefaultBPM
	}
	return min(max(bpm, MinBPM), MaxBPM)
}

// Frames converts a duration in seconds into a (fractional) number of frames.
func (c *Context) Frames(seconds float64) float64 {
	return seconds * c.Rate()
}

// BeatFrames converts a duration in beats into a (fractional) number of
// frames.
func (c *Context) BeatFrames(beats float64) float64 {
	return beats * 60 / c.Tempo() * c.Rate()
}
