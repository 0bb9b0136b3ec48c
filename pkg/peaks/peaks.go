// Package peaks turns a smoothed circular hue histogram into a small set of
// perceptually distinct color clusters. Extraction runs in sequential stages:
// local-maxima detection, valley assignment, score-driven adjacent merging
// under a peak budget, arc aggregation, CIEDE2000-gated perceptual fusion,
// and a low-weight filter.
//
// Inputs are expected to be smoothed first (see pkg/smoothing); raw
// histograms over-produce spurious single-bin maxima.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"github.com/croome/hue-analyzer/pkg/colorspace"
	"github.com/croome/hue-analyzer/pkg/histogram"
)

// HuePeak is one extracted color cluster: a circular arc of the hue axis with
// its aggregate weight and representative appearance. Bins index the source
// histogram; an arc wrapping past bin 0 is signaled by EndBin < StartBin.
// AvgSaturation and AvgLightness are weighted averages in [0,100].
type HuePeak struct {
	StartBin      int
	EndBin        int
	PeakBin       int
	PeakValue     float64
	TotalWeight   float64
	AvgSaturation float64
	AvgLightness  float64
}

// Config holds the thresholds steering cluster fusion and filtering.
type Config struct {
	// MaxHueGap is the largest circular hue distance, in degrees, at which
	// two clusters are considered for perceptual fusion.
	MaxHueGap float64
	// MaxDeltaE is the CIEDE2000 distance below which hue-adjacent
	// clusters fuse.
	MaxDeltaE float64
	// MinWeightRatio drops clusters lighter than this fraction of the
	// summed surviving weight.
	MinWeightRatio float64
}

// DefaultConfig returns the standard fusion and filtering thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHueGap:      30,
		MaxDeltaE:      10,
		MinWeightRatio: 0.01,
	}
}

// Extractor extracts color clusters from hue histograms.
type Extractor struct {
	config Config
}

// New creates an Extractor with the default configuration.
func New() *Extractor {
	return &Extractor{config: DefaultConfig()}
}

// NewWithConfig creates an Extractor with a custom configuration.
func NewWithConfig(config Config) *Extractor {
	return &Extractor{config: config}
}

// Extract runs the default extractor, see Extractor.Extract.
func Extract(data histogram.Data, maxPeaks int) ([]HuePeak, error) {
	return New().Extract(data, maxPeaks)
}

// localPeak is the transient working state of one detected maximum: its bin
// and the bins of its bounding valleys. Valley indices are circular and lie
// between the peak and its neighbor peaks, except in the single-peak case
// where the pair spans the whole ring.
type localPeak struct {
	index       int
	leftValley  int
	rightValley int
}

// Extract turns a (smoothed) histogram into at most maxPeaks clusters,
// ordered by total weight descending. Fusion and filtering may return fewer
// clusters, never more. An empty histogram yields an empty list; a malformed
// one (mismatched array lengths) or maxPeaks < 1 is an error.
func (e *Extractor) Extract(data histogram.Data, maxPeaks int) ([]HuePeak, error) {
	if maxPeaks < 1 {
		return nil, fmt.Errorf("peaks: maxPeaks must be >= 1, got %d", maxPeaks)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.Bins() == 0 {
		return []HuePeak{}, nil
	}

	found := findLocalMaxima(data.Weights)
	if len(found) == 0 {
		// Flat histogram: a single degenerate peak at the global maximum
		// claims the whole circle.
		found = []localPeak{{index: globalMaximum(data.Weights)}}
	}

	assignValleys(found, data.Weights)
	found = mergeUnderCap(found, data.Weights, maxPeaks)

	clusters := aggregate(found, data)
	clusters = e.fuse(clusters, data.Bins())
	clusters = e.filterLowWeight(clusters)
	return clusters, nil
}

// findLocalMaxima scans the ring for bins at least as high as both neighbors
// and strictly higher than one of them. The asymmetric rule accepts the first
// qualifying bin of a flat plateau without double-counting the rest.
func findLocalMaxima(weights []float64) []localPeak {
	n := len(weights)
	if n == 1 {
		if weights[0] > 0 {
			return []localPeak{{index: 0}}
		}
		return nil
	}

	var found []localPeak
	for i := 0; i < n; i++ {
		prev := weights[(i-1+n)%n]
		curr := weights[i]
		next := weights[(i+1)%n]
		if (curr > prev && curr >= next) || (curr >= prev && curr > next) {
			found = append(found, localPeak{index: i})
			// Consume the rest of a flat run so a plateau counts once,
			// with its first qualifying bin as the peak.
			for i+1 < n && weights[i+1] == curr {
				i++
			}
		}
	}
	return found
}

func globalMaximum(weights []float64) int {
	best := 0
	for i, v := range weights {
		if v > weights[best] {
			best = i
		}
	}
	return best
}

// assignValleys finds, for each peak, the minimum-valued bin strictly between
// it and its circular neighbor peaks. A lone peak owns the entire ring.
func assignValleys(found []localPeak, weights []float64) {
	n := len(weights)
	if len(found) == 1 {
		found[0].leftValley = (found[0].index + 1) % n
		found[0].rightValley = found[0].index
		return
	}

	for k := range found {
		peak := found[k].index
		prevPeak := found[(k-1+len(found))%len(found)].index
		nextPeak := found[(k+1)%len(found)].index

		// Walk backward toward the predecessor.
		left := (peak - 1 + n) % n
		for j := (peak - 1 + n) % n; j != prevPeak; j = (j - 1 + n) % n {
			if weights[j] < weights[left] {
				left = j
			}
		}

		// Walk forward toward the successor.
		right := (peak + 1) % n
		for j := (peak + 1) % n; j != nextPeak; j = (j + 1) % n {
			if weights[j] < weights[right] {
				right = j
			}
		}

		found[k].leftValley = left
		found[k].rightValley = right
	}
}

// mergeUnderCap greedily merges cyclically-adjacent peak pairs until the peak
// count fits maxPeaks. The score favors pairs separated by a shallow valley
// relative to the weaker peak, biased toward hue-close pairs. Zero-height
// peaks cannot be scored and are skipped.
func mergeUnderCap(found []localPeak, weights []float64, maxPeaks int) []localPeak {
	n := len(weights)
	halfRing := float64(n) / 2

	for len(found) > maxPeaks {
		bestScore := math.Inf(-1)
		bestIdx := -1

		for i := range found {
			j := (i + 1) % len(found)
			heightI := weights[found[i].index]
			heightJ := weights[found[j].index]
			lower := math.Min(heightI, heightJ)
			if lower <= 0 {
				continue
			}

			valley := weights[found[i].rightValley]
			dist := circularDistance(found[i].index, found[j].index, n)
			score := (valley / lower) * (0.5 + 0.5*(1-dist/halfRing))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}

		i := bestIdx
		j := (bestIdx + 1) % len(found)
		if weights[found[i].index] >= weights[found[j].index] {
			// The left peak survives and absorbs the right one's range.
			found[i].rightValley = found[j].rightValley
			found = removePeak(found, j)
		} else {
			found[j].leftValley = found[i].leftValley
			found = removePeak(found, i)
		}
	}
	return found
}

func removePeak(found []localPeak, idx int) []localPeak {
	return append(found[:idx], found[idx+1:]...)
}

func circularDistance(a, b, n int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if n-d < d {
		d = n - d
	}
	return float64(d)
}

// aggregate converts surviving local peaks into clusters by summing the
// histogram arrays over each peak's valley-to-valley arc. Zero-weight arcs
// get the neutral 50/50 appearance instead of dividing by zero.
func aggregate(found []localPeak, data histogram.Data) []HuePeak {
	n := data.Bins()
	clusters := make([]HuePeak, 0, len(found))

	for _, peak := range found {
		var weight, satSum, lightSum float64
		for j := peak.leftValley; ; j = (j + 1) % n {
			weight += data.Weights[j]
			satSum += data.SaturationSums[j]
			lightSum += data.LightnessSums[j]
			if j == peak.rightValley {
				break
			}
		}

		avgSat, avgLight := 50.0, 50.0
		if weight > 0 {
			avgSat = satSum / weight
			avgLight = lightSum / weight
		}

		clusters = append(clusters, HuePeak{
			StartBin:      peak.leftValley,
			EndBin:        peak.rightValley,
			PeakBin:       peak.index,
			PeakValue:     data.Weights[peak.index],
			TotalWeight:   weight,
			AvgSaturation: avgSat,
			AvgLightness:  avgLight,
		})
	}
	return clusters
}

// fuse greedily folds each cluster, in peak-height order, into the first
// already-accepted cluster that is both hue-close and perceptually close
// under CIEDE2000. The descent order is a stable total order (ties keep the
// original peak order) so fusion results are reproducible.
func (e *Extractor) fuse(clusters []HuePeak, bins int) []HuePeak {
	if len(clusters) <= 1 {
		return clusters
	}

	degPerBin := 360.0 / float64(bins)
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].PeakValue > clusters[j].PeakValue
	})

	accepted := make([]HuePeak, 0, len(clusters))
	for _, candidate := range clusters {
		merged := false
		for i := range accepted {
			if !e.shouldFuse(accepted[i], candidate, degPerBin) {
				continue
			}
			accepted[i] = fold(accepted[i], candidate, bins)
			merged = true
			break
		}
		if !merged {
			accepted = append(accepted, candidate)
		}
	}
	return accepted
}

func (e *Extractor) shouldFuse(a, b HuePeak, degPerBin float64) bool {
	hueGap := circularHueDistance(float64(a.PeakBin)*degPerBin, float64(b.PeakBin)*degPerBin)
	if hueGap > e.config.MaxHueGap {
		return false
	}
	return colorspace.DeltaE2000(clusterLab(a, degPerBin), clusterLab(b, degPerBin)) < e.config.MaxDeltaE
}

// clusterLab reconstructs the cluster's representative color from its peak
// hue plus average saturation and lightness, in Lab space.
func clusterLab(p HuePeak, degPerBin float64) colorspace.Lab {
	hue := int(math.Round(float64(p.PeakBin)*degPerBin)) % 360
	r, g, b := colorspace.HSLToRGB(hue, int(math.Round(p.AvgSaturation)), int(math.Round(p.AvgLightness)))
	return colorspace.RGBToLab(r, g, b)
}

func circularHueDistance(h1, h2 float64) float64 {
	d := math.Abs(h1 - h2)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// fold merges cluster b into a: appearance is weight-averaged, identity
// follows the larger peak value, and the hue arcs are unioned by the
// shorter-span rule.
func fold(a, b HuePeak, bins int) HuePeak {
	total := a.TotalWeight + b.TotalWeight
	if total > 0 {
		a.AvgSaturation = (a.AvgSaturation*a.TotalWeight + b.AvgSaturation*b.TotalWeight) / total
		a.AvgLightness = (a.AvgLightness*a.TotalWeight + b.AvgLightness*b.TotalWeight) / total
	}

	if b.PeakValue > a.PeakValue {
		a.PeakBin = b.PeakBin
		a.PeakValue = b.PeakValue
	}

	a.StartBin, a.EndBin = unionArcs(a.StartBin, a.EndBin, b.StartBin, b.EndBin, bins)
	a.TotalWeight = total
	return a
}

// unionArcs joins two circular arcs. If one arc already contains both
// endpoints of the other, the container wins; otherwise the join direction
// with the shorter circular span wins.
func unionArcs(start1, end1, start2, end2, bins int) (int, int) {
	if arcContains(start1, end1, start2, bins) && arcContains(start1, end1, end2, bins) {
		return start1, end1
	}
	if arcContains(start2, end2, start1, bins) && arcContains(start2, end2, end1, bins) {
		return start2, end2
	}

	if arcSpan(start1, end2, bins) <= arcSpan(start2, end1, bins) {
		return start1, end2
	}
	return start2, end1
}

// arcSpan is the inclusive bin count of the circular arc from start to end.
func arcSpan(start, end, bins int) int {
	return ((end-start+bins)%bins + 1)
}

func arcContains(start, end, bin, bins int) bool {
	if start <= end {
		return bin >= start && bin <= end
	}
	return bin >= start || bin <= end
}

// filterLowWeight drops clusters below the configured fraction of the summed
// surviving weight and re-sorts the remainder by weight descending.
func (e *Extractor) filterLowWeight(clusters []HuePeak) []HuePeak {
	if len(clusters) == 0 {
		return clusters
	}

	var total float64
	for _, c := range clusters {
		total += c.TotalWeight
	}
	threshold := total * e.config.MinWeightRatio

	kept := clusters[:0]
	for _, c := range clusters {
		if c.TotalWeight >= threshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].TotalWeight > kept[j].TotalWeight
	})
	return kept
}
