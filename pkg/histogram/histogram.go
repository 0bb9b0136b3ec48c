// Package histogram builds weighted circular hue histograms from raw RGBA
// pixel buffers. Pixels vote for their hue bin with a weight favoring
// saturated, mid-lightness colors; near-transparent and near-gray pixels are
// excluded because they carry no usable hue information.
package histogram

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/croome/hue-analyzer/pkg/colorspace"
)

// Classification thresholds for a pixel to contribute hue information.
const (
	// MinAlpha is the minimum 8-bit alpha for a pixel to count at all.
	MinAlpha = 200
	// MinSaturation excludes near-gray pixels (percent).
	MinSaturation = 10
	// MinLightness and MaxLightness exclude near-black and near-white
	// pixels (percent).
	MinLightness = 5
	MaxLightness = 95
)

// bytesPerPixel is the stride of the flat RGBA input buffer.
const bytesPerPixel = 4

// Data holds a circular hue histogram as three parallel arrays indexed by hue
// bin. Weights accumulates per-pixel perceptual weight; SaturationSums and
// LightnessSums accumulate weight-scaled saturation and lightness so a
// weighted-average appearance can be recovered per bin. The index space is
// circular: bin len(Weights) wraps to bin 0.
type Data struct {
	Weights        []float64
	SaturationSums []float64
	LightnessSums  []float64
}

// NewData returns a zeroed histogram with the given bin count.
func NewData(bins int) Data {
	return Data{
		Weights:        make([]float64, bins),
		SaturationSums: make([]float64, bins),
		LightnessSums:  make([]float64, bins),
	}
}

// Bins returns the histogram resolution.
func (d Data) Bins() int {
	return len(d.Weights)
}

// TotalWeight returns the summed weight across all bins.
func (d Data) TotalWeight() float64 {
	return floats.Sum(d.Weights)
}

// Validate checks the parallel-array invariant. A histogram whose arrays
// disagree in length would produce silently wrong clusters downstream, so
// this fails fast instead.
func (d Data) Validate() error {
	if len(d.SaturationSums) != len(d.Weights) || len(d.LightnessSums) != len(d.Weights) {
		return fmt.Errorf("histogram: mismatched array lengths: weights=%d saturation=%d lightness=%d",
			len(d.Weights), len(d.SaturationSums), len(d.LightnessSums))
	}
	return nil
}

// add merges other into d by element-wise addition. Both histograms must
// share the same bin count.
func (d Data) add(other Data) {
	floats.Add(d.Weights, other.Weights)
	floats.Add(d.SaturationSums, other.SaturationSums)
	floats.Add(d.LightnessSums, other.LightnessSums)
}

// Extract builds a hue histogram from a flat RGBA byte buffer. bins must be
// at least 1. Trailing bytes that do not form a complete RGBA quad are
// ignored. The output arrays are unnormalized.
func Extract(pixels []byte, bins int) (Data, error) {
	if bins < 1 {
		return Data{}, fmt.Errorf("histogram: bin count must be >= 1, got %d", bins)
	}

	data := NewData(bins)
	accumulate(data, pixels, bins)
	return data, nil
}

// ExtractParallel builds the same histogram as Extract using the given number
// of workers, each accumulating a private partial histogram over a pixel
// range; partials are combined by element-wise addition. workers < 1 falls
// back to 1.
func ExtractParallel(pixels []byte, bins, workers int) (Data, error) {
	if bins < 1 {
		return Data{}, fmt.Errorf("histogram: bin count must be >= 1, got %d", bins)
	}

	pixelCount := len(pixels) / bytesPerPixel
	if workers < 1 {
		workers = 1
	}
	if workers > pixelCount {
		workers = pixelCount
	}
	if workers <= 1 {
		data := NewData(bins)
		accumulate(data, pixels, bins)
		return data, nil
	}

	partials := make([]Data, workers)
	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		start, end := splitRange(pixelCount, workers, worker)
		wg.Add(1)
		go func(index, start, end int) {
			defer wg.Done()
			local := NewData(bins)
			accumulate(local, pixels[start*bytesPerPixel:end*bytesPerPixel], bins)
			partials[index] = local
		}(worker, start, end)
	}
	wg.Wait()

	data := NewData(bins)
	for _, partial := range partials {
		data.add(partial)
	}
	return data, nil
}

// accumulate classifies each pixel of the buffer into data.
func accumulate(data Data, pixels []byte, bins int) {
	binWidth := 360.0 / float64(bins)
	pixelCount := len(pixels) / bytesPerPixel

	for i := 0; i < pixelCount; i++ {
		offset := i * bytesPerPixel
		a := pixels[offset+3]
		if a < MinAlpha {
			continue
		}

		r := int(pixels[offset])
		g := int(pixels[offset+1])
		b := int(pixels[offset+2])

		h, s, l := colorspace.RGBToHSL(r, g, b)
		if s < MinSaturation || l < MinLightness || l > MaxLightness {
			continue
		}

		// Saturated mid-lightness pixels dominate.
		weight := (float64(s) / 100.0) * (1 - math.Abs(float64(l)-50)/50)

		bin := int(float64(h)/binWidth) % bins
		data.Weights[bin] += weight
		data.SaturationSums[bin] += float64(s) * weight
		data.LightnessSums[bin] += float64(l) * weight
	}
}

// splitRange divides length items into workers near-equal chunks and returns
// the half-open range of chunk workerIndex.
func splitRange(length, workers, workerIndex int) (int, int) {
	chunk := length / workers
	remainder := length % workers
	start := workerIndex*chunk + min(workerIndex, remainder)
	end := start + chunk
	if workerIndex < remainder {
		end++
	}
	return start, end
}
