// Package colorspace provides the color conversions used by the hue analysis
// pipeline: RGB/HSL round trips for histogram classification, and RGB to CIE
// Lab together with the CIEDE2000 perceptual distance for cluster fusion
// decisions.
//
// All functions are pure and safe for concurrent use.
package colorspace

import "math"

// D65 reference white used for the XYZ to Lab transform.
const (
	refWhiteX = 95.047
	refWhiteY = 100.000
	refWhiteZ = 108.883
)

// Lab is a color in CIE L*a*b* space (D65 illuminant, 2 degree observer).
type Lab struct {
	L float64
	A float64
	B float64
}

// RGBToHSL converts 8-bit RGB channels to integer HSL. Hue is in [0,360),
// saturation and lightness in [0,100], each rounded to the nearest integer.
// Achromatic input (max == min) yields hue 0 and saturation 0.
func RGBToHSL(r, g, b int) (h, s, l int) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	lf := (maxC + minC) / 2

	if maxC == minC {
		return 0, 0, int(math.Round(lf * 100))
	}

	d := maxC - minC
	var sf float64
	if lf > 0.5 {
		sf = d / (2 - maxC - minC)
	} else {
		sf = d / (maxC + minC)
	}

	var hf float64
	switch maxC {
	case rf:
		hf = (gf - bf) / d
		if gf < bf {
			hf += 6
		}
	case gf:
		hf = (bf-rf)/d + 2
	default:
		hf = (rf-gf)/d + 4
	}
	hf *= 60

	h = int(math.Round(hf)) % 360
	s = int(math.Round(sf * 100))
	l = int(math.Round(lf * 100))
	return h, s, l
}

// HSLToRGB converts integer HSL (hue [0,360), saturation and lightness
// [0,100]) back to 8-bit RGB channels, rounded to the nearest integer.
func HSLToRGB(h, s, l int) (r, g, b int) {
	hf := math.Mod(float64(h), 360)
	if hf < 0 {
		hf += 360
	}
	sf := float64(s) / 100.0
	lf := float64(l) / 100.0

	c := (1 - math.Abs(2*lf-1)) * sf
	x := c * (1 - math.Abs(math.Mod(hf/60, 2)-1))
	m := lf - c/2

	var rf, gf, bf float64
	switch {
	case hf < 60:
		rf, gf, bf = c, x, 0
	case hf < 120:
		rf, gf, bf = x, c, 0
	case hf < 180:
		rf, gf, bf = 0, c, x
	case hf < 240:
		rf, gf, bf = 0, x, c
	case hf < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	r = int(math.Round((rf + m) * 255))
	g = int(math.Round((gf + m) * 255))
	b = int(math.Round((bf + m) * 255))
	return r, g, b
}

// RGBToLab converts 8-bit RGB channels to CIE Lab via sRGB gamma decoding and
// the D65 XYZ intermediate.
func RGBToLab(r, g, b int) Lab {
	rl := srgbToLinear(float64(r) / 255.0)
	gl := srgbToLinear(float64(g) / 255.0)
	bl := srgbToLinear(float64(b) / 255.0)

	rl *= 100
	gl *= 100
	bl *= 100

	x := rl*0.4124 + gl*0.3576 + bl*0.1805
	y := rl*0.2126 + gl*0.7152 + bl*0.0722
	z := rl*0.0193 + gl*0.1192 + bl*0.9505

	fx := labForward(x / refWhiteX)
	fy := labForward(y / refWhiteY)
	fz := labForward(z / refWhiteZ)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

func srgbToLinear(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

func labForward(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

// DeltaE2000 computes the CIEDE2000 color difference between two Lab colors
// with the parametric weighting factors kL = kC = kH = 1. The result gates
// peak-merging decisions, so the full formula is implemented: the G rotation
// term, the SL/SC/SH weighting functions, hue-prime averaging with all
// wraparound branches, and the RT interaction term.
func DeltaE2000(lab1, lab2 Lab) float64 {
	const pow25To7 = 6103515625.0 // 25^7
	deg360 := deg2Rad(360)
	deg180 := deg2Rad(180)

	c1 := math.Sqrt(lab1.A*lab1.A + lab1.B*lab1.B)
	c2 := math.Sqrt(lab2.A*lab2.A + lab2.B*lab2.B)
	barC := (c1 + c2) / 2

	g := 0.5 * (1 - math.Sqrt(math.Pow(barC, 7)/(math.Pow(barC, 7)+pow25To7)))
	a1p := (1 + g) * lab1.A
	a2p := (1 + g) * lab2.A

	c1p := math.Sqrt(a1p*a1p + lab1.B*lab1.B)
	c2p := math.Sqrt(a2p*a2p + lab2.B*lab2.B)

	h1p := huePrime(lab1.B, a1p, deg360)
	h2p := huePrime(lab2.B, a2p, deg360)

	deltaLp := lab2.L - lab1.L
	deltaCp := c2p - c1p

	cProduct := c1p * c2p
	var deltahp float64
	if cProduct != 0 {
		deltahp = h2p - h1p
		if deltahp < -deg180 {
			deltahp += deg360
		} else if deltahp > deg180 {
			deltahp -= deg360
		}
	}
	deltaHp := 2 * math.Sqrt(cProduct) * math.Sin(deltahp/2)

	barLp := (lab1.L + lab2.L) / 2
	barCp := (c1p + c2p) / 2

	hSum := h1p + h2p
	var barhp float64
	switch {
	case cProduct == 0:
		barhp = hSum
	case math.Abs(h1p-h2p) <= deg180:
		barhp = hSum / 2
	case hSum < deg360:
		barhp = (hSum + deg360) / 2
	default:
		barhp = (hSum - deg360) / 2
	}

	t := 1 -
		0.17*math.Cos(barhp-deg2Rad(30)) +
		0.24*math.Cos(2*barhp) +
		0.32*math.Cos(3*barhp+deg2Rad(6)) -
		0.20*math.Cos(4*barhp-deg2Rad(63))

	deltaTheta := deg2Rad(30) * math.Exp(-math.Pow((barhp-deg2Rad(275))/deg2Rad(25), 2))
	rc := 2 * math.Sqrt(math.Pow(barCp, 7)/(math.Pow(barCp, 7)+pow25To7))

	sl := 1 + 0.015*math.Pow(barLp-50, 2)/math.Sqrt(20+math.Pow(barLp-50, 2))
	sc := 1 + 0.045*barCp
	sh := 1 + 0.015*barCp*t
	rt := -math.Sin(2*deltaTheta) * rc

	return math.Sqrt(
		math.Pow(deltaLp/sl, 2) +
			math.Pow(deltaCp/sc, 2) +
			math.Pow(deltaHp/sh, 2) +
			rt*(deltaCp/sc)*(deltaHp/sh))
}

// huePrime returns the hue angle of (a', b) in radians within [0, 2pi), with
// the zero-chroma convention of the CIEDE2000 definition.
func huePrime(b, ap, deg360 float64) float64 {
	if b == 0 && ap == 0 {
		return 0
	}
	h := math.Atan2(b, ap)
	if h < 0 {
		h += deg360
	}
	return h
}

func deg2Rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
