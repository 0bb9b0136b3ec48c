package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	hueanalyzer "github.com/croome/hue-analyzer"
	"github.com/croome/hue-analyzer/internal/config"
	"github.com/croome/hue-analyzer/internal/utils"
	"github.com/croome/hue-analyzer/pkg/palette"
	"github.com/croome/hue-analyzer/pkg/peaks"
	"github.com/croome/hue-analyzer/pkg/sampler"
)

func main() {
	var in, outDir, configPath string
	var bins, maxPeaks, maxDim, workers int
	var sigma float64
	var paletteSize int
	var method string
	var swatch bool
	var swatchFmt string
	var tile, quality int

	flag.StringVar(&in, "in", "", "input image path, directory, or URL")
	flag.StringVar(&outDir, "out", "", "output directory for JSON results and swatches (empty = stdout only)")
	flag.StringVar(&configPath, "config", "", "configuration file path (JSON)")

	flag.IntVar(&bins, "bins", 0, "hue histogram resolution (0 = config default)")
	flag.Float64Var(&sigma, "sigma", -1, "circular smoothing sigma in bins (-1 = config default)")
	flag.IntVar(&maxPeaks, "maxpeaks", 0, "maximum hue clusters before fusion (0 = config default)")
	flag.IntVar(&maxDim, "maxdim", -1, "downsample long side to this many pixels (-1 = config default, 0 = off)")
	flag.IntVar(&workers, "workers", 0, "histogram worker count (0 = all CPUs)")

	flag.IntVar(&paletteSize, "palette", 0, "also extract a clustered palette of this size (0 = off)")
	flag.StringVar(&method, "method", "", "palette method: histogram|kmeans|dominant")

	flag.BoolVar(&swatch, "swatch", false, "render a swatch image of the dominant hues")
	flag.StringVar(&swatchFmt, "swatchfmt", "", "swatch format: png|jpg|webp")
	flag.IntVar(&tile, "tile", 0, "swatch tile size in pixels (0 = config default)")
	flag.IntVar(&quality, "quality", 0, "jpg/webp output quality 1-100 (0 = config default)")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in input.jpg|dir|URL [-out outdir] [-bins 360] [-sigma 5] [-maxpeaks 5] [-swatch] [-palette 5 -method kmeans]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Command line flags override the config file
	if bins > 0 {
		cfg.Analysis.Bins = bins
	}
	if sigma >= 0 {
		cfg.Analysis.Sigma = sigma
	}
	if maxPeaks > 0 {
		cfg.Analysis.MaxPeaks = maxPeaks
	}
	if maxDim >= 0 {
		cfg.Sampler.MaxDimension = maxDim
	}
	if workers > 0 {
		cfg.Analysis.Workers = workers
	}
	if method != "" {
		cfg.Palette.Method = method
	}
	if paletteSize > 0 {
		cfg.Palette.Size = paletteSize
	}
	if swatchFmt != "" {
		cfg.Output.SwatchFormat = swatchFmt
	}
	if tile > 0 {
		cfg.Output.SwatchTile = tile
	}
	if quality > 0 {
		cfg.Output.Quality = quality
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	analyzer := hueanalyzer.NewWithConfig(analyzerConfig(cfg))

	if outDir != "" {
		if err := utils.EnsureDir(outDir); err != nil {
			log.Fatal(err)
		}
	}
	swatch = resolveSwatch(swatch, outDir)

	sources := []string{in}
	if utils.DirExists(in) {
		files, err := utils.ListImageFiles(in)
		if err != nil {
			log.Fatal(err)
		}
		if len(files) == 0 {
			log.Fatalf("no image files found in %s", in)
		}
		sources = files
	}

	failed := 0
	for _, source := range sources {
		if err := processSource(analyzer, cfg, source, outDir, paletteSize > 0, swatch); err != nil {
			log.Printf("%s: %v", source, err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d inputs failed", failed, len(sources))
	}
}

// resolveSwatch disables swatch rendering when there is no output
// directory to write it to, warning instead of skipping silently.
func resolveSwatch(swatch bool, outDir string) bool {
	if swatch && outDir == "" {
		log.Printf("swatch rendering requires -out, skipping -swatch")
		return false
	}
	return swatch
}

func processSource(analyzer *hueanalyzer.Analyzer, cfg *config.Config, source, outDir string, wantPalette, wantSwatch bool) error {
	start := time.Now()
	result, err := analyzer.AnalyzeSource(source)
	if err != nil {
		return err
	}

	log.Printf("%s: %dx%d, %d clusters in %v", source, result.Width, result.Height, len(result.Clusters), time.Since(start).Round(time.Millisecond))
	for _, c := range result.Clusters {
		log.Printf("  %s hue=%.0f° sat=%.0f light=%.0f share=%.1f%%", c.Hex, c.Hue, c.Saturation, c.Lightness, c.Share*100)
	}

	out := struct {
		hueanalyzer.Result
		Palette []string `json:"palette,omitempty"`
	}{Result: result}

	if wantPalette {
		img, err := sampler.NewWithConfig(samplerConfig(cfg)).LoadImageSmart(source)
		if err != nil {
			return err
		}
		colors, err := analyzer.ExtractPalette(img, cfg.Palette.Size, palette.Method(cfg.Palette.Method))
		if err != nil {
			return fmt.Errorf("palette extraction failed: %w", err)
		}
		palette.SortByBrightness(colors)
		for _, c := range colors {
			out.Palette = append(out.Palette, c.Hex())
		}
		log.Printf("  palette: %s", strings.Join(out.Palette, " "))
	}

	js, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	if outDir == "" {
		fmt.Println(string(js))
		return nil
	}

	jsonPath := utils.OutputPath(source, outDir, "_hues", "json")
	if err := os.WriteFile(jsonPath, js, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s", jsonPath)

	if wantSwatch && len(result.Clusters) > 0 {
		colors := make([]colorful.Color, 0, len(result.Clusters))
		for _, c := range result.Clusters {
			colors = append(colors, colorful.Color{
				R: float64(c.R) / 255.0,
				G: float64(c.G) / 255.0,
				B: float64(c.B) / 255.0,
			})
		}
		img, err := palette.RenderSwatch(colors, cfg.Output.SwatchTile)
		if err != nil {
			return err
		}
		swatchPath := utils.OutputPath(source, outDir, "_swatch", strings.ToLower(cfg.Output.SwatchFormat))
		if err := analyzer.SaveImage(img, swatchPath, cfg.Output.SwatchFormat, cfg.Output.Quality); err != nil {
			return err
		}
		log.Printf("wrote %s", swatchPath)
	}
	return nil
}

func analyzerConfig(cfg *config.Config) hueanalyzer.Config {
	return hueanalyzer.Config{
		Bins:     cfg.Analysis.Bins,
		Sigma:    cfg.Analysis.Sigma,
		MaxPeaks: cfg.Analysis.MaxPeaks,
		Workers:  cfg.Analysis.Workers,
		Sampler:  samplerConfig(cfg),
		Peaks: peaks.Config{
			MaxHueGap:      cfg.Peaks.MaxHueGap,
			MaxDeltaE:      cfg.Peaks.MaxDeltaE,
			MinWeightRatio: cfg.Peaks.MinWeightRatio,
		},
		Palette: palette.Config{
			MaxSamples:      cfg.Palette.MaxSamples,
			CandidateFactor: cfg.Palette.CandidateFactor,
		},
	}
}

func samplerConfig(cfg *config.Config) sampler.Config {
	return sampler.Config{
		MaxDimension:     cfg.Sampler.MaxDimension,
		MinImageSize:     cfg.Sampler.MinImageSize,
		HTTPTimeout:      time.Duration(cfg.Sampler.HTTPTimeoutSecs) * time.Second,
		SupportedFormats: cfg.Sampler.SupportedFormats,
	}
}
