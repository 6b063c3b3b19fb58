// Package postprocess holds the linear downscale filters used as a baseline
// for the perceptual method.
package postprocess

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Method names a downscale filter.
type Method string

const (
	Perceptual Method = "perceptual"
	Box        Method = "box"
	BiLinear   Method = "bilinear"
	CatmullRom Method = "catmullrom"
)

// Methods lists every supported method, default first.
var Methods = []Method{Perceptual, Box, BiLinear, CatmullRom}

// ParseMethod maps a method name to a Method.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(name))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("postprocess: unknown method %q", name)
}

// boxKernel weights every source pixel of an s x s block equally once
// draw.Kernel widens its support by the scale factor.
var boxKernel = &draw.Kernel{
	Support: 0.5,
	At:      func(float64) float64 { return 1 },
}

func (m Method) interpolator() draw.Interpolator {
	switch m {
	case Box:
		return boxKernel
	case BiLinear:
		return draw.BiLinear
	case CatmullRom:
		return draw.CatmullRom
	}
	return nil
}

// Linear reduces img by factor s with a linear filter, premultiplying alpha
// first so transparent pixels do not bleed dark halos into their neighbors.
// img must have sides that are multiples of s.
func Linear(img *image.NRGBA, s int, m Method) (*image.NRGBA, error) {
	b := img.Bounds()
	w2, h2 := b.Dx()/s, b.Dy()/s

	q := m.interpolator()
	if q == nil {
		return nil, fmt.Errorf("postprocess: %q is not a linear method", string(m))
	}

	premul := premultiply(img)
	dst := image.NewRGBA(image.Rect(0, 0, w2, h2))
	q.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	return unpremultiply(dst), nil
}

func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	premul := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}
	return premul
}

func unpremultiply(src *image.RGBA) *image.NRGBA {
	b := src.Bounds()
	result := image.NewNRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := src.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(src.Pix[si+3])
			if a > 0 {
				inv := 255.0 / a
				result.Pix[di] = clamp8(float64(src.Pix[si]) * inv)
				result.Pix[di+1] = clamp8(float64(src.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp8(float64(src.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = src.Pix[si+3]
		}
	}
	return result
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
