package colorspace

import (
	"math"
	"testing"
)

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestRGBToHSLKnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b int
		h, s, l int
	}{
		{"red", 255, 0, 0, 0, 100, 50},
		{"green", 0, 255, 0, 120, 100, 50},
		{"blue", 0, 0, 255, 240, 100, 50},
		{"yellow", 255, 255, 0, 60, 100, 50},
		{"cyan", 0, 255, 255, 180, 100, 50},
		{"magenta", 255, 0, 255, 300, 100, 50},
		{"white", 255, 255, 255, 0, 0, 100},
		{"black", 0, 0, 0, 0, 0, 0},
		{"gray", 128, 128, 128, 0, 0, 50},
	}

	for _, tt := range tests {
		h, s, l := RGBToHSL(tt.r, tt.g, tt.b)
		if h != tt.h || s != tt.s || l != tt.l {
			t.Errorf("%s: RGBToHSL(%d,%d,%d) = (%d,%d,%d), want (%d,%d,%d)",
				tt.name, tt.r, tt.g, tt.b, h, s, l, tt.h, tt.s, tt.l)
		}
	}
}

func TestRGBToHSLAchromatic(t *testing.T) {
	for v := 0; v <= 255; v += 17 {
		h, s, _ := RGBToHSL(v, v, v)
		if h != 0 || s != 0 {
			t.Errorf("gray %d: expected hue 0 and saturation 0, got h=%d s=%d", v, h, s)
		}
	}
}

func TestHSLRoundTrip(t *testing.T) {
	// Sample the RGB cube; rounding through integer HSL may shift each
	// channel by at most one step.
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				h, s, l := RGBToHSL(r, g, b)
				r2, g2, b2 := HSLToRGB(h, s, l)
				if absInt(r-r2) > 2 || absInt(g-g2) > 2 || absInt(b-b2) > 2 {
					t.Fatalf("round trip (%d,%d,%d) -> (%d,%d,%d) via h=%d s=%d l=%d",
						r, g, b, r2, g2, b2, h, s, l)
				}
			}
		}
	}
}

func TestHSLToRGBKnownColors(t *testing.T) {
	tests := []struct {
		h, s, l int
		r, g, b int
	}{
		{0, 100, 50, 255, 0, 0},
		{120, 100, 50, 0, 255, 0},
		{240, 100, 50, 0, 0, 255},
		{0, 0, 100, 255, 255, 255},
		{0, 0, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		r, g, b := HSLToRGB(tt.h, tt.s, tt.l)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("HSLToRGB(%d,%d,%d) = (%d,%d,%d), want (%d,%d,%d)",
				tt.h, tt.s, tt.l, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestRGBToLabReferencePoints(t *testing.T) {
	white := RGBToLab(255, 255, 255)
	if math.Abs(white.L-100) > 0.1 || math.Abs(white.A) > 0.1 || math.Abs(white.B) > 0.1 {
		t.Errorf("white: expected Lab near (100,0,0), got (%f,%f,%f)", white.L, white.A, white.B)
	}

	black := RGBToLab(0, 0, 0)
	if math.Abs(black.L) > 0.1 {
		t.Errorf("black: expected L near 0, got %f", black.L)
	}

	red := RGBToLab(255, 0, 0)
	if red.A <= 0 {
		t.Errorf("red: expected positive a*, got %f", red.A)
	}
	blue := RGBToLab(0, 0, 255)
	if blue.B >= 0 {
		t.Errorf("blue: expected negative b*, got %f", blue.B)
	}
}

func TestDeltaE2000Identity(t *testing.T) {
	labs := []Lab{
		{50, 2.6772, -79.7751},
		{0, 0, 0},
		{100, 0, 0},
		{61.2, 30.5, -12.7},
	}
	for _, lab := range labs {
		if d := DeltaE2000(lab, lab); d != 0 {
			t.Errorf("DeltaE2000(lab, lab) = %f, want 0 for %+v", d, lab)
		}
	}
}

func TestDeltaE2000Symmetry(t *testing.T) {
	pairs := [][2]Lab{
		{{50, 2.6772, -79.7751}, {50, 0, -82.7485}},
		{{50, 2.5, 0}, {73, 25, -18}},
		{{22.7233, 20.0904, -46.694}, {23.0331, 14.973, -42.5619}},
		{{50, 2.5, 0}, {50, -1, 2}},
	}
	for _, pair := range pairs {
		ab := DeltaE2000(pair[0], pair[1])
		ba := DeltaE2000(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-12 {
			t.Errorf("asymmetric distance: %f vs %f for %+v", ab, ba, pair)
		}
		if ab < 0 {
			t.Errorf("negative distance %f for %+v", ab, pair)
		}
	}
}

// Reference pairs from the CIEDE2000 supplementary test data (Sharma,
// Wu & Dalal 2005), covering the hue-prime averaging branches.
func TestDeltaE2000ReferenceValues(t *testing.T) {
	tests := []struct {
		lab1, lab2 Lab
		want       float64
	}{
		{Lab{50, 2.6772, -79.7751}, Lab{50, 0, -82.7485}, 2.0425},
		{Lab{50, 3.1571, -77.2803}, Lab{50, 0, -82.7485}, 2.8615},
		{Lab{50, 2.8361, -74.02}, Lab{50, 0, -82.7485}, 3.4412},
		{Lab{50, 2.5, 0}, Lab{50, -1, 2}, 4.3065},
		{Lab{50, 2.5, 0}, Lab{73, 25, -18}, 27.1492},
		{Lab{50, 2.5, 0}, Lab{61, -5, 29}, 22.8977},
		{Lab{50, 2.5, 0}, Lab{50, 3.2592, 0.335}, 1.0},
	}

	for _, tt := range tests {
		got := DeltaE2000(tt.lab1, tt.lab2)
		if math.Abs(got-tt.want) > 0.0005 {
			t.Errorf("DeltaE2000(%+v, %+v) = %.4f, want %.4f", tt.lab1, tt.lab2, got, tt.want)
		}
	}
}

func BenchmarkDeltaE2000(b *testing.B) {
	lab1 := RGBToLab(200, 30, 60)
	lab2 := RGBToLab(180, 50, 90)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DeltaE2000(lab1, lab2)
	}
}
