package atomsynth

import (
	"math"
	"sync/atomic"
)

const (
	// MaxTempoValue is the largest numerator or denominator a TempoRatio can
	// hold.
	MaxTempoValue = 999
	// MinHertz is what Hertz returns for a ratio with a zero numerator, so that
	// a disabled duration never turns into an infinite frequency.
	MinHertz = 0.0001
)

// TempoRatio expresses a duration as a fraction of a beat, e.g. 1/4 is a
// sixteenth note in 4/4. Numerator and Denominator are kept inside [0, 999];
// the denominator never drops below 1.
type TempoRatio struct {
	Numerator   float64
	Denominator float64
}

// NewTempoRatio returns a clamped ratio.
func NewTempoRatio(numerator, denominator float64) TempoRatio {
	return TempoRatio{Numerator: numerator, Denominator: denominator}.Clamp()
}

// Clamp returns r with both terms moved inside their valid ranges. NaN terms
// are treated as zero.
func (r TempoRatio) Clamp() TempoRatio {
	r.Numerator = clampTempo(r.Numerator, 0)
	r.Denominator = clampTempo(r.Denominator, 1)
	return r
}

func clampTempo(v, min float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > MaxTempoValue {
		return MaxTempoValue
	}
	return v
}

// Fraction returns floor(numerator) / floor(denominator).
func (r TempoRatio) Fraction() float64 {
	r = r.Clamp()
	return math.Floor(r.Numerator) / math.Floor(r.Denominator)
}

// Seconds returns how long one cycle of the ratio lasts at the given tempo.
// bpm goes through ClampBPM first.
func (r TempoRatio) Seconds(bpm float64) float64 {
	return r.Fraction() * 60 / ClampBPM(bpm)
}

// Hertz returns 1 / Seconds, or MinHertz when the numerator is zero.
func (r TempoRatio) Hertz(bpm float64) float64 {
	if math.Floor(r.Clamp().Numerator) == 0 {
		return MinHertz
	}
	return 1 / r.Seconds(bpm)
}

// TempoControl is a shared, tempo-synced duration control of a Blueprint. The
// ratio is published atomically, so the audio thread always reads a consistent
// pair while the control thread edits it.
type TempoControl struct {
	name  string
	ratio atomic.Pointer[TempoRatio]
	def   TempoRatio
	owner *Controls
}

func (t *TempoControl) Name() string { return t.name }

// Ratio returns the current ratio.
func (t *TempoControl) Ratio() TempoRatio {
	if r := t.ratio.Load(); r != nil {
		return *r
	}
	return t.def
}

// Default returns the ratio the control was declared with.
func (t *TempoControl) Default() TempoRatio { return t.def }

func (t *TempoControl) SetNumerator(numerator float64, byUser bool) {
	r := t.Ratio()
	r.Numerator = numerator
	t.publish(r, byUser)
}

func (t *TempoControl) SetDenominator(denominator float64, byUser bool) {
	r := t.Ratio()
	r.Denominator = denominator
	t.publish(r, byUser)
}

func (t *TempoControl) SetFraction(numerator, denominator float64, byUser bool) {
	t.publish(TempoRatio{Numerator: numerator, Denominator: denominator}, byUser)
}

func (t *TempoControl) OffsetNumerator(delta float64, byUser bool) {
	r := t.Ratio()
	r.Numerator += delta
	t.publish(r, byUser)
}

func (t *TempoControl) OffsetDenominator(delta float64, byUser bool) {
	r := t.Ratio()
	r.Denominator += delta
	t.publish(r, byUser)
}

func (t *TempoControl) OffsetFraction(numDelta, denDelta float64, byUser bool) {
	r := t.Ratio()
	r.Numerator += numDelta
	r.Denominator += denDelta
	t.publish(r, byUser)
}

func (t *TempoControl) publish(r TempoRatio, byUser bool) {
	r = r.Clamp()
	t.ratio.Store(&r)
	t.owner.notify(t.name, byUser)
}

func (t *TempoControl) snapshot() *Config {
	r := t.Ratio()
	return NewConfig().
		SetFloat("numerator", r.Numerator).
		SetFloat("denominator", r.Denominator)
}

func (t *TempoControl) restore(c *Config) {
	r := TempoRatio{
		Numerator:   c.Float("numerator", t.def.Numerator),
		Denominator: c.Float("denominator", t.def.Denominator),
	}.Clamp()
	t.ratio.Store(&r)
}
