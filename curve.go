package atomsynth

// Cursor walks the automation curve of one knob for exactly one block, one
// element per call to Next. Cursors are plain values: binding one never
// allocates, and every voice binds its own, so they are never shared.
//
// When the curve runs out before the block ends, the cursor keeps returning the
// last element it produced. A cursor without a curve returns the constant value
// it was bound with on every tick.
type Cursor struct {
	curve []float64
	pos   int
	value float64
}

// ConstantCursor returns a cursor that yields value on every tick.
func ConstantCursor(value float64) Cursor {
	return Cursor{value: value}
}

// CurveCursor returns a cursor over curve. If curve is empty, the cursor
// behaves like ConstantCursor(fallback).
func CurveCursor(curve []float64, fallback float64) Cursor {
	return Cursor{curve: curve, value: fallback}
}

// Next returns the value for the current tick and advances the cursor.
func (c *Cursor) Next() float64 {
	if c.pos < len(c.curve) {
		c.value = c.curve[c.pos]
		c.pos++
	}
	return c.value
}

// Automated reports whether the cursor was bound to a non-empty curve.
func (c Cursor) Automated() bool { return len(c.curve) > 0 }

// Remaining returns the number of curve elements not yet consumed.
func (c Cursor) Remaining() int { return len(c.curve) - c.pos }
