// Package escape implements the escape-time evaluation of the Mandelbrot recurrence.
package escape

// Radius2 is the squared escape radius. A point whose orbit leaves the disk of
// radius 2 is known to diverge.
const Radius2 = 4.0

// Iterate runs the recurrence for c = cReal + cImag·i starting at z₀ = c.
//
// It returns the number of iterations remaining in the budget when the orbit
// escaped, so divergent points yield a value in (0, maxIter]. Points which do
// not escape within maxIter iterations return 0.
func Iterate(cReal, cImag float64, maxIter int) int {
	re := cReal
	im := cImag

	for n := maxIter; n > 0; n-- {
		re2 := re * re
		im2 := im * im
		if re2+im2 > Radius2 {
			return n
		}

		im = 2*re*im + cImag
		re = re2 - im2 + cReal
	}

	return 0
}

// Iterate32 is Iterate in single precision. It mirrors the accelerator kernel,
// so it may disagree with Iterate near the boundary of the set.
func Iterate32(cReal, cImag float32, maxIter int) int {
	re := cReal
	im := cImag

	for n := maxIter; n > 0; n-- {
		re2 := re * re
		im2 := im * im
		if re2+im2 > Radius2 {
			return n
		}

		im = 2*re*im + cImag
		re = re2 - im2 + cReal
	}

	return 0
}

// Color packs an iteration count as 0xRRGGBB using iter | iter<<8.
//
// For counts below 256 green and blue both carry the count and red is zero.
// Larger counts spill into the higher channels exactly as the packed formula
// dictates. Zero is black.
func Color(iter int) uint32 {
	v := uint32(iter) //nolint:gosec // iteration counts are never negative
	return (v | v<<8) & 0xffffff
}
