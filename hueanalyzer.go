// Package hueanalyzer provides dominant hue analysis for raster images.
//
// This package builds a circular hue histogram from image pixels,
// smooths it with a wrap-around Gaussian, and extracts the dominant
// hue clusters through peak detection and perceptual fusion.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		hueanalyzer "github.com/croome/hue-analyzer"
//	)
//
//	func main() {
//		analyzer := hueanalyzer.New()
//
//		result, err := analyzer.AnalyzeFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, cluster := range result.Clusters {
//			fmt.Printf("%s hue %.0f° share %.1f%%\n", cluster.Hex, cluster.Hue, cluster.Share*100)
//		}
//	}
//
// The package consists of five main components:
//
// 1. Sampler (pkg/sampler): Image loading, downsampling, and pixel extraction
// 2. Histogram (pkg/histogram): Weighted circular hue histogram construction
// 3. Smoothing (pkg/smoothing): Circular Gaussian smoothing for ring-shaped series
// 4. Peaks (pkg/peaks): Peak detection, merging, and perceptual cluster fusion
// 5. Palette (pkg/palette): Clustering-based palette extraction alternatives
//
// The histogram weights each pixel by saturation and mid-lightness so
// vivid colors dominate washed-out ones. Peak extraction then finds
// local maxima on the smoothed ring, merges neighbors under a budget,
// and fuses perceptually similar clusters using CIEDE2000 distance.
package hueanalyzer

import (
	"fmt"
	"image"
	"io"
	"math"
	"runtime"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/croome/hue-analyzer/pkg/colorspace"
	"github.com/croome/hue-analyzer/pkg/histogram"
	"github.com/croome/hue-analyzer/pkg/palette"
	"github.com/croome/hue-analyzer/pkg/peaks"
	"github.com/croome/hue-analyzer/pkg/sampler"
	"github.com/croome/hue-analyzer/pkg/smoothing"
)

// Version of the hue analyzer library
const Version = "1.0.0"

// Config controls the full analysis pipeline
type Config struct {
	// Bins is the hue histogram resolution (360 gives one-degree bins)
	Bins int `json:"bins"`
	// Sigma is the circular Gaussian smoothing width, in bins
	Sigma float64 `json:"sigma"`
	// MaxPeaks caps the number of clusters before fusion and filtering
	MaxPeaks int `json:"max_peaks"`
	// Workers sets histogram extraction parallelism; zero means NumCPU
	Workers int `json:"workers"`

	Sampler sampler.Config `json:"sampler"`
	Peaks   peaks.Config   `json:"peaks"`
	Palette palette.Config `json:"palette"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Bins:     360,
		Sigma:    5,
		MaxPeaks: 5,
		Workers:  0,
		Sampler:  sampler.DefaultConfig(),
		Peaks:    peaks.DefaultConfig(),
		Palette:  palette.DefaultConfig(),
	}
}

// Validate checks the configuration for usable values
func (c Config) Validate() error {
	if c.Bins < 1 {
		return fmt.Errorf("bins must be at least 1, got %d", c.Bins)
	}
	if c.MaxPeaks < 1 {
		return fmt.Errorf("max peaks must be at least 1, got %d", c.MaxPeaks)
	}
	if c.Sigma < 0 {
		return fmt.Errorf("sigma must not be negative, got %g", c.Sigma)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ColorCluster is one dominant hue cluster in presentation form
type ColorCluster struct {
	// Hue is the peak hue in degrees [0, 360)
	Hue float64 `json:"hue"`
	// StartHue and EndHue bound the cluster's circular hue arc in
	// degrees; EndHue may be numerically below StartHue when the arc
	// wraps past 0°.
	StartHue float64 `json:"start_hue"`
	EndHue   float64 `json:"end_hue"`
	// Saturation and Lightness are weighted averages in [0, 100]
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
	// Weight is the cluster's accumulated histogram mass
	Weight float64 `json:"weight"`
	// Share is the cluster's fraction of all returned cluster weight
	Share float64 `json:"share"`
	// R, G, B is the representative color reconstructed from the peak
	// hue and average saturation/lightness
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	// Hex is the representative color as #rrggbb
	Hex string `json:"hex"`
}

// Result holds the outcome of analyzing one image
type Result struct {
	// Source identifies the analyzed input when known (path or URL)
	Source string `json:"source,omitempty"`
	// Width and Height are the dimensions actually analyzed, after
	// downsampling
	Width  int `json:"width"`
	Height int `json:"height"`
	// Bins is the histogram resolution used
	Bins int `json:"bins"`
	// TotalWeight is the full histogram mass before clustering
	TotalWeight float64 `json:"total_weight"`
	// Clusters are the dominant hue clusters, strongest first
	Clusters []ColorCluster `json:"clusters"`
}

// Analyzer runs the dominant hue analysis pipeline
type Analyzer struct {
	config    Config
	loader    *sampler.Loader
	extractor *peaks.Extractor
	palettes  *palette.Extractor
}

// New creates an analyzer with default configuration
func New() *Analyzer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{
		config:    config,
		loader:    sampler.NewWithConfig(config.Sampler),
		extractor: peaks.NewWithConfig(config.Peaks),
		palettes:  palette.NewWithConfig(config.Palette),
	}
}

// Config returns a copy of the analyzer's configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// AnalyzeFile loads an image from a file path and analyzes it
func (a *Analyzer) AnalyzeFile(path string) (Result, error) {
	img, err := a.loader.LoadImage(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load image: %w", err)
	}
	result, err := a.AnalyzeImage(img)
	if err != nil {
		return Result{}, err
	}
	result.Source = path
	return result, nil
}

// AnalyzeReader decodes an image from a stream and analyzes it
func (a *Analyzer) AnalyzeReader(r io.Reader) (Result, error) {
	img, err := a.loader.LoadImageFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return a.AnalyzeImage(img)
}

// AnalyzeSource analyzes an image from either a file path or URL
func (a *Analyzer) AnalyzeSource(source string) (Result, error) {
	img, err := a.loader.LoadImageSmart(source)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load image: %w", err)
	}
	result, err := a.AnalyzeImage(img)
	if err != nil {
		return Result{}, err
	}
	result.Source = source
	return result, nil
}

// AnalyzeImage runs the pipeline on an already decoded image
func (a *Analyzer) AnalyzeImage(img image.Image) (Result, error) {
	if err := a.config.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	img = a.loader.Downsample(img)
	b := img.Bounds()

	result, err := a.AnalyzePixels(sampler.Pixels(img))
	if err != nil {
		return Result{}, err
	}
	result.Width = b.Dx()
	result.Height = b.Dy()
	return result, nil
}

// AnalyzePixels runs histogram construction, smoothing, and peak
// extraction on a flat RGBA pixel buffer.
func (a *Analyzer) AnalyzePixels(pixels []byte) (Result, error) {
	if err := a.config.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	workers := a.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	data, err := histogram.ExtractParallel(pixels, a.config.Bins, workers)
	if err != nil {
		return Result{}, fmt.Errorf("histogram extraction failed: %w", err)
	}
	totalWeight := data.TotalWeight()

	// All three arrays get the same smoothing so the weighted
	// saturation/lightness averages stay consistent with the weights.
	smoothed := histogram.Data{
		Weights:        smoothing.SmoothCircular(data.Weights, a.config.Sigma),
		SaturationSums: smoothing.SmoothCircular(data.SaturationSums, a.config.Sigma),
		LightnessSums:  smoothing.SmoothCircular(data.LightnessSums, a.config.Sigma),
	}

	clusters, err := a.extractor.Extract(smoothed, a.config.MaxPeaks)
	if err != nil {
		return Result{}, fmt.Errorf("peak extraction failed: %w", err)
	}

	return Result{
		Bins:        a.config.Bins,
		TotalWeight: totalWeight,
		Clusters:    a.present(clusters),
	}, nil
}

// SaveImage writes an image to disk in the given format
func (a *Analyzer) SaveImage(img image.Image, path, format string, quality int) error {
	return a.loader.SaveSwatch(img, path, format, quality)
}

// ExtractPalette extracts a k-color palette from an image using the
// requested method. The histogram method runs the full hue pipeline
// and returns each cluster's representative color; the clustering
// methods work directly on RGB pixel values. Fusion and filtering may
// return fewer than k colors for the histogram method.
func (a *Analyzer) ExtractPalette(img image.Image, k int, method palette.Method) ([]colorful.Color, error) {
	if method == palette.MethodHueHistogram {
		return a.histogramPalette(img, k)
	}
	return a.palettes.Extract(a.loader.Downsample(img), k, method)
}

func (a *Analyzer) histogramPalette(img image.Image, k int) ([]colorful.Color, error) {
	if k < 1 {
		return nil, fmt.Errorf("palette size must be positive, got %d", k)
	}

	config := a.config
	config.MaxPeaks = k
	result, err := NewWithConfig(config).AnalyzeImage(img)
	if err != nil {
		return nil, err
	}

	colors := make([]colorful.Color, 0, len(result.Clusters))
	for _, c := range result.Clusters {
		colors = append(colors, colorful.Color{
			R: float64(c.R) / 255.0,
			G: float64(c.G) / 255.0,
			B: float64(c.B) / 255.0,
		})
	}
	return colors, nil
}

// present converts bin-space hue clusters into presentation form,
// reconstructing a representative RGB color for each.
func (a *Analyzer) present(hueClusters []peaks.HuePeak) []ColorCluster {
	binWidth := 360.0 / float64(a.config.Bins)

	var total float64
	for _, hc := range hueClusters {
		total += hc.TotalWeight
	}

	out := make([]ColorCluster, 0, len(hueClusters))
	for _, hc := range hueClusters {
		hue := float64(hc.PeakBin) * binWidth
		r, g, b := colorspace.HSLToRGB(
			int(math.Round(hue))%360,
			int(math.Round(hc.AvgSaturation)),
			int(math.Round(hc.AvgLightness)),
		)
		hex := colorful.Color{
			R: float64(r) / 255.0,
			G: float64(g) / 255.0,
			B: float64(b) / 255.0,
		}.Hex()

		share := 0.0
		if total > 0 {
			share = hc.TotalWeight / total
		}

		out = append(out, ColorCluster{
			Hue:        hue,
			StartHue:   float64(hc.StartBin) * binWidth,
			EndHue:     float64(hc.EndBin) * binWidth,
			Saturation: hc.AvgSaturation,
			Lightness:  hc.AvgLightness,
			Weight:     hc.TotalWeight,
			Share:      share,
			R:          r,
			G:          g,
			B:          b,
			Hex:        hex,
		})
	}
	return out
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
