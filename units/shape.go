package units

import "math"

// Shape bends a ramp x in [0, 1] into a curve. shape is in [-1, 1]: 0 is a
// straight line, positive values rise fast and settle slowly, negative values
// start slowly. The result is x^(2^(-3*shape)), so it is monotonic in x and
// always passes through (0, 0) and (1, 1).
func Shape(x, shape float64) float64 {
	x = math.Min(math.Max(x, 0), 1)
	if shape == 0 {
		return x
	}
	return math.Pow(x, math.Exp2(-3*math.Min(math.Max(shape, -1), 1)))
}

// Interpolate moves from a to b as t goes from 0 to 1, bent by shape.
func Interpolate(a, b, t, shape float64) float64 {
	return a + (b-a)*Shape(t, shape)
}
