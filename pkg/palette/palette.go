// Package palette extracts representative color palettes from images
// using pixel clustering, complementing the histogram-based hue
// analysis with methods that work on full RGB values.
package palette

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/cenkalti/dominantcolor"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Method selects the palette extraction algorithm
type Method string

const (
	// MethodHueHistogram derives the palette from the dominant hue
	// clusters of the full analysis pipeline. It is dispatched by the
	// top-level Analyzer, not by this package.
	MethodHueHistogram Method = "histogram"
	// MethodKMeans clusters subsampled pixels in RGB space
	MethodKMeans Method = "kmeans"
	// MethodDominant uses weighted dominant color detection
	MethodDominant Method = "dominant"
)

// Config controls palette extraction behavior
type Config struct {
	// MaxSamples caps the number of pixels fed to kmeans
	MaxSamples int `json:"max_samples"`
	// CandidateFactor multiplies the requested palette size to get
	// the candidate pool before diversity selection
	CandidateFactor int `json:"candidate_factor"`
}

// DefaultConfig returns palette extraction defaults
func DefaultConfig() Config {
	return Config{
		MaxSamples:      12000,
		CandidateFactor: 4,
	}
}

// Extractor produces color palettes from images
type Extractor struct {
	config Config
}

// New creates a palette extractor with default configuration
func New() *Extractor {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a palette extractor with the given configuration
func NewWithConfig(config Config) *Extractor {
	if config.MaxSamples <= 0 {
		config.MaxSamples = 12000
	}
	if config.CandidateFactor <= 0 {
		config.CandidateFactor = 4
	}
	return &Extractor{config: config}
}

// Weighted pairs a color with its relative importance
type Weighted struct {
	Color  colorful.Color
	Weight float64
}

// Extract runs the requested method, falling back from kmeans to
// dominant color detection when clustering yields nothing.
func (e *Extractor) Extract(img image.Image, k int, method Method) ([]colorful.Color, error) {
	switch method {
	case MethodKMeans:
		p, err := e.ExtractKMeans(img, k)
		if err == nil && len(p) > 0 {
			return p, nil
		}
		return e.ExtractDominant(img, k)
	case MethodDominant, "":
		return e.ExtractDominant(img, k)
	case MethodHueHistogram:
		return nil, fmt.Errorf("the %s method runs the full hue pipeline and must be dispatched through the analyzer", method)
	default:
		return nil, fmt.Errorf("unknown palette method: %s", method)
	}
}

// ExtractDominant builds a palette from weighted dominant color candidates
func (e *Extractor) ExtractDominant(img image.Image, k int) ([]colorful.Color, error) {
	if k <= 0 {
		return nil, fmt.Errorf("palette size must be positive, got %d", k)
	}

	nCandidates := k * e.config.CandidateFactor
	if nCandidates < 24 {
		nCandidates = 24
	}
	candidates := dominantcolor.FindWeight(img, nCandidates)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no color candidates found")
	}

	weighted := make([]Weighted, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, Weighted{Color: col.Clamped(), Weight: w})
	}
	return SelectDiverse(weighted, k), nil
}

// ExtractKMeans clusters subsampled pixels and builds a palette from
// the cluster centers weighted by population.
func (e *Extractor) ExtractKMeans(img image.Image, k int) ([]colorful.Color, error) {
	if k <= 0 {
		return nil, fmt.Errorf("palette size must be positive, got %d", k)
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty image")
	}

	// Subsample to keep kmeans tractable on large images
	step := 1
	if width*height > e.config.MaxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(e.config.MaxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, e.config.MaxSamples)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil, fmt.Errorf("no opaque pixels to cluster")
	}

	workK := k * e.config.CandidateFactor
	if workK < k+2 {
		workK = k + 2
	}
	if workK > len(dataset) {
		workK = len(dataset)
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, workK)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition failed: %w", err)
	}
	if len(cc) == 0 {
		return nil, fmt.Errorf("kmeans produced no clusters")
	}

	weighted := make([]Weighted, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		w := float64(len(c.Observations))
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, Weighted{Color: col, Weight: w})
	}
	return SelectDiverse(weighted, k), nil
}

// SelectDiverse picks k colors from the candidate pool, balancing
// candidate weight against Lab-space distance to already selected
// colors. The strongest candidate always seeds the selection.
func SelectDiverse(cands []Weighted, k int) []colorful.Color {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	if k > len(cands) {
		k = len(cands)
	}

	type item struct {
		col colorful.Color
		lab [3]float64
		w   float64
	}
	items := make([]item, 0, len(cands))
	maxW := 0.0
	for _, c := range cands {
		col := c.Color.Clamped()
		l, a, b := col.Lab()
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		if w > maxW {
			maxW = w
		}
		items = append(items, item{col: col, lab: [3]float64{l, a, b}, w: w})
	}
	if maxW <= 0 {
		maxW = 1.0
	}

	selectedIdx := make([]int, 0, k)
	selected := make([]bool, len(items))

	seed := 0
	for i := 1; i < len(items); i++ {
		if items[i].w > items[seed].w {
			seed = i
		}
	}
	selectedIdx = append(selectedIdx, seed)
	selected[seed] = true

	for len(selectedIdx) < k {
		bestIdx := -1
		bestScore := -1.0
		for i := range items {
			if selected[i] {
				continue
			}
			minD2 := math.MaxFloat64
			for _, s := range selectedIdx {
				d0 := items[i].lab[0] - items[s].lab[0]
				d1 := items[i].lab[1] - items[s].lab[1]
				d2 := items[i].lab[2] - items[s].lab[2]
				d := d0*d0 + d1*d1 + d2*d2
				if d < minD2 {
					minD2 = d
				}
			}
			normW := items[i].w / maxW
			score := math.Sqrt(minD2) * (0.55 + 0.45*math.Sqrt(normW))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected[bestIdx] = true
		selectedIdx = append(selectedIdx, bestIdx)
	}

	out := make([]colorful.Color, 0, len(selectedIdx))
	for _, idx := range selectedIdx {
		out = append(out, items[idx].col)
	}
	return out
}

// SortByBrightness orders colors from darkest to brightest using
// linear luminance.
func SortByBrightness(palette []colorful.Color) {
	sort.SliceStable(palette, func(i, j int) bool {
		return luminance(palette[i]) < luminance(palette[j])
	})
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// RenderSwatch renders a palette as a horizontal strip of color tiles
func RenderSwatch(palette []colorful.Color, tileSize int) (*image.NRGBA, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	img := image.NewNRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		tile := color.NRGBA{R: r, G: g, B: b, A: 255}
		x0 := i * tileSize
		for y := 0; y < tileSize; y++ {
			for x := x0; x < x0+tileSize; x++ {
				img.SetNRGBA(x, y, tile)
			}
		}
	}
	return img, nil
}
