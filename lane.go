package atomsynth

import (
	"errors"
	"sort"
)

type (
	// Lane automates one knob of a song with breakpoints. Between two points
	// the value is interpolated linearly; before the first point and after the
	// last one the value of the nearest point is held.
	Lane struct {
		Instrument int
		Unit       int
		Knob       string
		Points     []Point `yaml:",flow"`
	}

	// Point is a breakpoint of a Lane. Beat is the position in beats from the
	// start of the song.
	Point struct {
		Beat  float64
		Value float64
	}
)

var (
	errEmptyLane    = errors.New("lane has no points")
	errUnsortedLane = errors.New("lane points are not sorted by beat")
	errInvalidPoint = errors.New("lane points should be finite")
)

// Validate checks that the lane has points, that they are finite and that they
// are sorted by beat.
func (l *Lane) Validate() error {
	if len(l.Points) == 0 {
		return errEmptyLane
	}
	for _, p := range l.Points {
		if !finite(p.Beat) || !finite(p.Value) {
			return errInvalidPoint
		}
	}
	if !sort.SliceIsSorted(l.Points, func(i, j int) bool { return l.Points[i].Beat < l.Points[j].Beat }) {
		return errUnsortedLane
	}
	return nil
}

// ValueAt returns the value of the lane at the given position in beats. A
// lane without points returns def.
func (l *Lane) ValueAt(beat, def float64) float64 {
	n := len(l.Points)
	if n == 0 {
		return def
	}
	i := sort.Search(n, func(i int) bool { return l.Points[i].Beat > beat })
	if i == 0 {
		return l.Points[0].Value
	}
	if i == n {
		return l.Points[n-1].Value
	}
	a, b := l.Points[i-1], l.Points[i]
	if b.Beat == a.Beat {
		return b.Value
	}
	t := (beat - a.Beat) / (b.Beat - a.Beat)
	return a.Value + (b.Value-a.Value)*t
}

// Render fills dst with the value of the lane for frames frame,
// frame+1, ..., frame+len(dst)-1 of the song.
func (l *Lane) Render(dst []float64, frame int, ctx *Context) {
	perFrame := ctx.Tempo() / 60 / ctx.Rate()
	for i := range dst {
		dst[i] = l.ValueAt(float64(frame+i)*perFrame, 0)
	}
}
