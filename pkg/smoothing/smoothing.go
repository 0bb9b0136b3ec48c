// Package smoothing provides Gaussian smoothing for circular numeric series.
// The hue axis has no boundary, so the convolution wraps instead of
// truncating at the edges. The smoother is generic over any closed-ring
// series, not just hue histograms.
package smoothing

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SmoothCircular convolves values, treated as a closed ring, with a
// normalized discrete Gaussian of the given sigma. The kernel spans
// ceil(6*sigma) taps forced odd, capped at len(values). The result has the
// same length and (up to floating error) the same total mass. A sigma <= 0
// or a series too short to smooth returns an unmodified copy.
func SmoothCircular(values []float64, sigma float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	out := make([]float64, n)
	if sigma <= 0 || n < 2 {
		copy(out, values)
		return out
	}

	kernel := gaussianKernel(sigma, n)
	half := len(kernel) / 2

	for i := 0; i < n; i++ {
		var sum float64
		for k, kv := range kernel {
			j := i + k - half
			// Circular index; j can be negative by at most n.
			j = ((j % n) + n) % n
			sum += values[j] * kv
		}
		out[i] = sum
	}
	return out
}

// gaussianKernel returns a discrete Gaussian with taps summing to 1.
func gaussianKernel(sigma float64, maxSize int) []float64 {
	size := int(math.Ceil(6 * sigma))
	if size%2 == 0 {
		size++
	}
	if size > maxSize {
		size = maxSize
	}
	if size < 1 {
		size = 1
	}

	kernel := make([]float64, size)
	half := size / 2
	twoSigmaSq := 2 * sigma * sigma
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / twoSigmaSq)
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}
