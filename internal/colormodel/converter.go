// Package colormodel converts RGBA images to and from four independent
// normalized planes: luma, blue-difference chroma, red-difference chroma and alpha.
package colormodel

import (
	"errors"
	"image"

	"perc-downscale/internal/plane"
)

// Plane order inside a channel set.
const (
	Luma = iota
	Cb
	Cr
	Alpha

	NumChannels
)

// ErrMismatch is returned by Inverse when the planes disagree in size.
var ErrMismatch = errors.New("colormodel: planes differ in size")

// Converter maps 8-bit RGBA pixels to YCbCrA samples in [0, 1] and back.
// Chroma is stored biased by +0.5.
type Converter struct {
	gammaCorrect bool
	table        *Table
}

// NewConverter returns a converter. With gammaCorrect set, RGB is linearized
// through table before the YCbCr transform and re-encoded on the way back.
// A nil table is built on demand.
func NewConverter(gammaCorrect bool, table *Table) *Converter {
	if gammaCorrect && table == nil {
		table = NewTable()
	}
	return &Converter{gammaCorrect: gammaCorrect, table: table}
}

// GammaCorrect reports whether the converter works in linear light.
func (c *Converter) GammaCorrect() bool {
	return c.gammaCorrect
}

func (c *Converter) normalize(r, g, b uint8) (float32, float32, float32) {
	if c.gammaCorrect {
		return c.table.Linear(r), c.table.Linear(g), c.table.Linear(b)
	}
	const divider = 1.0 / 255.0
	return float32(r) * divider, float32(g) * divider, float32(b) * divider
}

// RGBToYCbCr converts one pixel to luma and biased chroma.
func (c *Converter) RGBToYCbCr(or, og, ob uint8) (y, cb, cr float32) {
	r, g, b := c.normalize(or, og, ob)
	y = 0.299*r + 0.587*g + 0.114*b
	cb = (-0.168736*r - 0.331264*g + 0.5*b) + 0.5
	cr = (0.5*r - 0.418688*g - 0.081312*b) + 0.5
	return y, cb, cr
}

// YCbCrToRGB is the inverse of RGBToYCbCr. Out-of-range results are clamped.
func (c *Converter) YCbCrToRGB(y, cb, cr float32) (r, g, b uint8) {
	vr := y + 1.402*(cr-0.5)
	vg := y - 0.344136*(cb-0.5) - 0.714136*(cr-0.5)
	vb := y + 1.772*(cb-0.5)
	if c.gammaCorrect {
		vr, vg, vb = encodeSRGB(vr, vg, vb)
	}
	return clamp8(vr * 255), clamp8(vg * 255), clamp8(vb * 255)
}

// Forward splits img into its four planes.
func (c *Converter) Forward(img *image.NRGBA) [NumChannels]*plane.Plane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var planes [NumChannels]*plane.Plane
	for i := range planes {
		planes[i] = plane.New(w, h)
	}
	ys := planes[Luma].Data
	cbs := planes[Cb].Data
	crs := planes[Cr].Data
	as := planes[Alpha].Data

	const divider = 1.0 / 255.0
	for y := 0; y < h; y++ {
		si := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			px := img.Pix[si : si+4 : si+4]
			di := y*w + x
			ys[di], cbs[di], crs[di] = c.RGBToYCbCr(px[0], px[1], px[2])
			as[di] = float32(px[3]) * divider
			si += 4
		}
	}
	return planes
}

// Inverse assembles an image from four planes of equal size.
// The planes are released, including when ErrMismatch is returned.
func (c *Converter) Inverse(planes [NumChannels]*plane.Plane) (*image.NRGBA, error) {
	defer func() {
		for _, p := range planes {
			p.Release()
		}
	}()

	for _, p := range planes {
		if !p.Valid() || p.W != planes[Luma].W || p.H != planes[Luma].H {
			return nil, ErrMismatch
		}
	}
	w, h := planes[Luma].W, planes[Luma].H

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	ys := planes[Luma].Data
	cbs := planes[Cb].Data
	crs := planes[Cr].Data
	as := planes[Alpha].Data
	for i := 0; i < w*h; i++ {
		px := img.Pix[i*4 : i*4+4 : i*4+4]
		px[0], px[1], px[2] = c.YCbCrToRGB(ys[i], cbs[i], crs[i])
		px[3] = clamp8(as[i] * 255)
	}
	return img, nil
}

func clamp8(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
