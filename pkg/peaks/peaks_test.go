package peaks

import (
	"math"
	"testing"

	"github.com/croome/hue-analyzer/pkg/histogram"
)

// makeData builds a histogram where each listed bin carries the given weight
// with a fixed 80/50 saturation/lightness appearance.
func makeData(bins int, weights map[int]float64) histogram.Data {
	data := histogram.NewData(bins)
	for bin, w := range weights {
		data.Weights[bin] = w
		data.SaturationSums[bin] = 80 * w
		data.LightnessSums[bin] = 50 * w
	}
	return data
}

func TestExtractRejectsInvalidMaxPeaks(t *testing.T) {
	data := makeData(360, map[int]float64{10: 1})
	for _, maxPeaks := range []int{0, -1} {
		if _, err := Extract(data, maxPeaks); err == nil {
			t.Errorf("maxPeaks=%d: expected error", maxPeaks)
		}
	}
}

func TestExtractRejectsMismatchedArrays(t *testing.T) {
	data := histogram.Data{
		Weights:        make([]float64, 360),
		SaturationSums: make([]float64, 100),
		LightnessSums:  make([]float64, 360),
	}
	if _, err := Extract(data, 5); err == nil {
		t.Error("expected error for mismatched histogram arrays")
	}
}

func TestExtractEmptyHistogram(t *testing.T) {
	clusters, err := Extract(histogram.Data{}, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("expected empty cluster list, got %d", len(clusters))
	}
}

func TestTwoWellSeparatedPeaks(t *testing.T) {
	data := makeData(360, map[int]float64{10: 100, 200: 100})

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	peaks := map[int]bool{}
	for _, c := range clusters {
		peaks[c.PeakBin] = true
		if math.Abs(c.TotalWeight-100) > 1e-9 {
			t.Errorf("cluster at bin %d: expected weight 100, got %f", c.PeakBin, c.TotalWeight)
		}
	}
	if !peaks[10] || !peaks[200] {
		t.Errorf("expected peaks at bins 10 and 200, got %v", peaks)
	}
}

func TestAdjacentPeaksMergeUnderCap(t *testing.T) {
	// Two close peaks with a shallow valley between them; a budget of one
	// forces them into a single cluster spanning both.
	weights := map[int]float64{10: 100, 15: 100}
	for bin := 11; bin <= 14; bin++ {
		weights[bin] = 90
	}
	data := makeData(360, weights)

	clusters, err := Extract(data, 1)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster after merging, got %d", len(clusters))
	}

	c := clusters[0]
	if math.Abs(c.TotalWeight-560) > 1e-9 {
		t.Errorf("expected merged weight 560, got %f", c.TotalWeight)
	}
	if !binInArc(c, 10, 360) || !binInArc(c, 15, 360) {
		t.Errorf("merged arc [%d..%d] must span both original peaks", c.StartBin, c.EndBin)
	}
}

func TestMaxPeaksCapRespected(t *testing.T) {
	// A comb of well-separated sharp peaks, far more than the budget.
	weights := map[int]float64{}
	for bin := 0; bin < 360; bin += 24 {
		weights[bin] = 50 + float64(bin)
	}
	data := makeData(360, weights)

	for _, maxPeaks := range []int{1, 2, 3, 5, 8} {
		clusters, err := Extract(data, maxPeaks)
		if err != nil {
			t.Fatalf("Extract(maxPeaks=%d) failed: %v", maxPeaks, err)
		}
		if len(clusters) > maxPeaks {
			t.Errorf("maxPeaks=%d: got %d clusters", maxPeaks, len(clusters))
		}

		var sum float64
		for _, c := range clusters {
			sum += c.TotalWeight
		}
		if sum > data.TotalWeight()+1e-9 {
			t.Errorf("maxPeaks=%d: cluster weight %f exceeds histogram total %f",
				maxPeaks, sum, data.TotalWeight())
		}
	}
}

func TestUniformHistogramSingleWholeCircleCluster(t *testing.T) {
	data := histogram.NewData(360)
	for bin := range data.Weights {
		data.Weights[bin] = 1
		data.SaturationSums[bin] = 80
		data.LightnessSums[bin] = 50
	}

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected a single cluster for a flat histogram, got %d", len(clusters))
	}

	c := clusters[0]
	if math.Abs(c.TotalWeight-360) > 1e-9 {
		t.Errorf("expected the whole histogram mass 360, got %f", c.TotalWeight)
	}
	if span := arcSpan(c.StartBin, c.EndBin, 360); span != 360 {
		t.Errorf("expected the arc to span the whole circle, got %d bins", span)
	}
}

func TestAllZeroHistogram(t *testing.T) {
	clusters, err := Extract(histogram.NewData(360), 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected one degenerate cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.TotalWeight != 0 {
		t.Errorf("expected zero weight, got %f", c.TotalWeight)
	}
	if c.AvgSaturation != 50 || c.AvgLightness != 50 {
		t.Errorf("zero-weight cluster must default to 50/50, got %f/%f",
			c.AvgSaturation, c.AvgLightness)
	}
}

func TestPerceptualFusionAcrossWrap(t *testing.T) {
	// Two hue-adjacent reds straddling the 0/360 boundary with the same
	// appearance: CIEDE2000 fusion folds them into one cluster whose arc
	// wraps past bin 0.
	data := makeData(360, map[int]float64{0: 100, 350: 80})

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected the wrap-adjacent peaks to fuse, got %d clusters", len(clusters))
	}

	c := clusters[0]
	if math.Abs(c.TotalWeight-180) > 1e-9 {
		t.Errorf("expected fused weight 180, got %f", c.TotalWeight)
	}
	if c.PeakBin != 0 {
		t.Errorf("identity must follow the taller peak, got bin %d", c.PeakBin)
	}
	if c.StartBin <= c.EndBin {
		t.Errorf("expected a wrapping arc (end < start), got [%d..%d]", c.StartBin, c.EndBin)
	}
	if !binInArc(c, 350, 360) || !binInArc(c, 0, 360) {
		t.Errorf("fused arc [%d..%d] must cover both peaks", c.StartBin, c.EndBin)
	}
}

func TestFusionSkipsDistantHues(t *testing.T) {
	// Same appearance but 120 degrees apart: no fusion regardless of the
	// Lab distance of the reconstructed colors.
	data := makeData(360, map[int]float64{10: 100, 130: 90})

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Errorf("expected 2 clusters for distant hues, got %d", len(clusters))
	}
}

func TestLowWeightClustersDropped(t *testing.T) {
	// A dominant peak plus a speck under one percent of the total.
	data := makeData(360, map[int]float64{10: 1000, 200: 3})

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected the speck to be filtered, got %d clusters", len(clusters))
	}
	if clusters[0].PeakBin != 10 {
		t.Errorf("expected the dominant cluster to survive, got bin %d", clusters[0].PeakBin)
	}
}

func TestClustersOrderedByWeight(t *testing.T) {
	data := makeData(360, map[int]float64{10: 50, 130: 200, 250: 120})

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i := 1; i < len(clusters); i++ {
		if clusters[i].TotalWeight > clusters[i-1].TotalWeight {
			t.Errorf("clusters not ordered by weight: %f before %f",
				clusters[i-1].TotalWeight, clusters[i].TotalWeight)
		}
	}
}

func TestAggregateAppearanceAverages(t *testing.T) {
	data := histogram.NewData(360)
	data.Weights[100] = 4
	data.SaturationSums[100] = 4 * 60 // avg saturation 60
	data.LightnessSums[100] = 4 * 40  // avg lightness 40

	clusters, err := Extract(data, 5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if math.Abs(c.AvgSaturation-60) > 1e-9 || math.Abs(c.AvgLightness-40) > 1e-9 {
		t.Errorf("expected 60/40 appearance, got %f/%f", c.AvgSaturation, c.AvgLightness)
	}
}

func TestPlateauCountedOnce(t *testing.T) {
	// A flat three-bin plateau surrounded by a lower shelf must produce
	// exactly one peak, at the first qualifying bin.
	weights := map[int]float64{49: 20, 53: 20}
	for bin := 50; bin <= 52; bin++ {
		weights[bin] = 100
	}
	data := makeData(360, weights)

	found := findLocalMaxima(data.Weights)
	if len(found) != 1 {
		t.Fatalf("expected one plateau peak, got %d", len(found))
	}
	if found[0].index != 50 {
		t.Errorf("expected the plateau's first bin 50, got %d", found[0].index)
	}
}

func binInArc(c HuePeak, bin, bins int) bool {
	return arcContains(c.StartBin, c.EndBin, bin, bins)
}

func BenchmarkExtract(b *testing.B) {
	data := histogram.NewData(360)
	for bin := range data.Weights {
		w := 10 + 5*math.Sin(float64(bin)/15) + float64(bin%7)
		data.Weights[bin] = w
		data.SaturationSums[bin] = 70 * w
		data.LightnessSums[bin] = 50 * w
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Extract(data, 6)
	}
}
