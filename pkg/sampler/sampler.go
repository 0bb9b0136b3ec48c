// Package sampler loads raster images and prepares flat RGBA pixel
// buffers for histogram extraction. Large images are downsampled so
// analysis cost stays bounded regardless of source resolution.
package sampler

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Config controls image loading and downsampling behavior
type Config struct {
	// MaxDimension caps the longer image side before analysis.
	// Zero disables downsampling.
	MaxDimension int `json:"max_dimension"`
	// MinImageSize rejects images smaller than this on either side
	MinImageSize int `json:"min_image_size"`
	// HTTPTimeout bounds remote image downloads
	HTTPTimeout time.Duration `json:"http_timeout"`
	// SupportedFormats lists accepted file extensions (lowercase, with dot)
	SupportedFormats []string `json:"supported_formats"`
}

// DefaultConfig returns loader defaults suitable for dominant hue analysis
func DefaultConfig() Config {
	return Config{
		MaxDimension:     256,
		MinImageSize:     1,
		HTTPTimeout:      30 * time.Second,
		SupportedFormats: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp"},
	}
}

// Loader loads and downsamples images from files, readers, and URLs
type Loader struct {
	config Config
	client *http.Client
}

// New creates a loader with default configuration
func New() *Loader {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a loader with the given configuration
func NewWithConfig(config Config) *Loader {
	timeout := config.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// LoadImage loads an image from a file path with WebP support
func (l *Loader) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return l.validate(img)
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return l.validate(img)
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return l.validate(img)
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageFromReader decodes an image from a stream with WebP support
func (l *Loader) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return l.decodeBytes(data)
}

// LoadImageFromURL downloads and loads an image from a URL
func (l *Loader) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Hue-Analyzer/1.0 (+https://github.com/croome/hue-analyzer)")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return l.decodeBytes(imageData)
}

// LoadImageSmart loads an image from either a file path or URL
func (l *Loader) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.LoadImageFromURL(source)
	}
	return l.LoadImage(source)
}

// IsSupportedFile reports whether the path has a supported image extension
func (l *Loader) IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range l.config.SupportedFormats {
		if ext == supported {
			return true
		}
	}
	return false
}

// Downsample scales an image so its longer side does not exceed
// MaxDimension. Images already within bounds are returned unchanged.
func (l *Loader) Downsample(img image.Image) image.Image {
	maxDim := l.config.MaxDimension
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// Pixels flattens an image into a non-premultiplied RGBA byte buffer,
// four bytes per pixel in row-major order.
func Pixels(img image.Image) []byte {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	if nrgba.Stride == w*4 {
		return nrgba.Pix
	}
	// Strided clone, repack row by row
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
	}
	return out
}

// SaveSwatch writes an image to disk in the requested format
func (l *Loader) SaveSwatch(img image.Image, path, format string, quality int) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

func (l *Loader) decodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return l.validate(img)
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return l.validate(img)
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

func (l *Loader) validate(img image.Image) (image.Image, error) {
	min := l.config.MinImageSize
	if min <= 0 {
		return img, nil
	}
	b := img.Bounds()
	if b.Dx() < min || b.Dy() < min {
		return nil, fmt.Errorf("image too small: %dx%d (minimum %dx%d)", b.Dx(), b.Dy(), min, min)
	}
	return img, nil
}
