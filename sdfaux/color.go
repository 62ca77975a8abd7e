package sdfaux

import (
	"image"
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var red = color.RGBA{R: 255, A: 255}

// ColorConversionInigoQuilez creates a new color conversion using [Inigo Quilez]'s style.
// A good value for characteristic distance is the bounding box diagonal divided by 3. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1. / characteristicDistance
	outside := ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	inside := ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		d *= inv
		c := inside
		if d > 0 {
			c = outside
		}
		ad := math.Abs(d)
		// Exponential falloff with distance bands.
		c = ms3.Scale((1-math.Exp(-6*ad))*(0.8+0.2*math.Cos(150*d)), c)
		// White contour on the surface.
		edge := 1 - smoothstep(0, 0.01, ad)
		c = ms3.Add(c, ms3.Scale(edge, ms3.Sub(ms3.Vec{X: 1, Y: 1, Z: 1}, c)))
		return rgb8(c.X, c.Y, c.Z)
	}
}

// ColorConversionLinearGradient returns a conversion blending c0 into c1 in RGB space
// over a gradient of length gradientLength centered at d=0.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32) color.Color {
	rgba0 := color.RGBAModel.Convert(c0).(color.RGBA)
	rgba1 := color.RGBAModel.Convert(c1).(color.RGBA)
	return func(d float32) color.Color {
		t := d/gradientLength + 0.5
		if gradientLength == 0 || t <= 0 {
			return c0
		} else if t >= 1 {
			return c1
		}
		return color.RGBA{
			R: lerp8(rgba0.R, rgba1.R, t),
			G: lerp8(rgba0.G, rgba1.G, t),
			B: lerp8(rgba0.B, rgba1.B, t),
			A: lerp8(rgba0.A, rgba1.A, t),
		}
	}
}

// NodeColor returns a color identifying the node with the given ID. Consecutive IDs
// get well separated hues. Negative IDs, which mark rays that hit nothing, are black.
func NodeColor(id int32) color.RGBA {
	if id < 0 {
		return color.RGBA{A: 255}
	}
	const goldenRatioConjugate = 0.618033988749895
	hue := math.Mod(float32(id)*goldenRatioConjugate, 1)
	// Alternate brightness so neighboring hues on large trees stay distinguishable.
	v := 0.95 - 0.25*float32(id%2)
	r, g, b := hueToRGB(hue)
	return rgb8(v*r, v*g, v*b)
}

// IDImage colors the node IDs hit by camera rays, stored row by row starting at
// the top, with [NodeColor].
func IDImage(ids []int32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			img.SetRGBA(i, j, NodeColor(ids[j*width+i]))
		}
	}
	return img
}

// hueToRGB returns the fully saturated color of hue in [0, 1).
func hueToRGB(hue float32) (r, g, b float32) {
	channel := func(offset float32) float32 {
		k := math.Mod(offset+hue*6, 6)
		return 1 - max(0, min(k, 4-k, 1))
	}
	return channel(5), channel(3), channel(1)
}

func rgb8(r, g, b float32) color.RGBA {
	return color.RGBA{R: uint8(clamp01(r) * 255), G: uint8(clamp01(g) * 255), B: uint8(clamp01(b) * 255), A: 255}
}

func lerp8(a, b uint8, t float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*t + 0.5)
}

func clamp01(v float32) float32 { return min(max(v, 0), 1) }

func smoothstep(edge0, edge1, x float32) float32 {
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
