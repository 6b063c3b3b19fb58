// Package downscale runs the perceptual resampler over all channels of an
// RGBA image.
package downscale

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"perc-downscale/internal/colormodel"
	"perc-downscale/internal/perceptual"
	"perc-downscale/internal/plane"
)

var (
	ErrInvalidFactor = errors.New("downscale: factor must be at least 2")
	ErrEmptyImage    = errors.New("downscale: image has no pixels")
	ErrBufferSize    = errors.New("downscale: pixel buffer does not match image size")
	ErrTooSmall      = errors.New("downscale: image is smaller than the downscale factor")
)

// Options selects the downscale factor and the conversion and boundary modes.
type Options struct {
	Factor       int
	GammaCorrect bool
	Tileable     bool
	// Parallel resamples the four channels concurrently.
	Parallel bool
}

// Report describes what happened to one image.
type Report struct {
	Input  image.Point
	Output image.Point
	// Discarded counts the columns (X) and rows (Y) dropped from the right
	// and bottom edges because the size was not a multiple of the factor.
	Discarded image.Point
}

// Cropped reports whether any input pixels were discarded.
func (r Report) Cropped() bool {
	return r.Discarded.X > 0 || r.Discarded.Y > 0
}

// Downscaler is safe for concurrent use; it holds no per-image state.
type Downscaler struct {
	opts      Options
	converter *colormodel.Converter
	resampler *perceptual.Resampler
}

// New validates opts and returns a Downscaler. table is shared, not copied;
// a nil table is built on demand when opts.GammaCorrect is set.
func New(opts Options, table *colormodel.Table) (*Downscaler, error) {
	if opts.Factor < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFactor, opts.Factor)
	}
	return &Downscaler{
		opts:      opts,
		converter: colormodel.NewConverter(opts.GammaCorrect, table),
		resampler: perceptual.New(opts.Factor, opts.Tileable),
	}, nil
}

// Options returns the options the Downscaler was built with.
func (d *Downscaler) Options() Options {
	return d.opts
}

// Validate checks the image buffer contract: non-empty, and exactly four
// bytes per pixel with no row padding.
func Validate(img *image.NRGBA) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return ErrEmptyImage
	}
	if img.Stride != w*4 || len(img.Pix) != w*h*4 {
		return fmt.Errorf("%w: %dx%d needs %d bytes, have %d (stride %d)",
			ErrBufferSize, w, h, w*h*4, len(img.Pix), img.Stride)
	}
	return nil
}

// Crop returns the largest top-left sub-image of img whose sides are
// multiples of s, copied into a fresh buffer, and the number of columns and
// rows discarded. img is returned as-is when nothing needs cropping.
func Crop(img *image.NRGBA, s int) (*image.NRGBA, image.Point) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	discarded := image.Pt(w%s, h%s)
	if discarded == (image.Point{}) {
		return img, discarded
	}

	cw, ch := w-discarded.X, h-discarded.Y
	dst := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	draw.Copy(dst, image.Point{}, img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+cw, b.Min.Y+ch), draw.Src, nil)
	return dst, discarded
}

// Downscale returns img reduced by the configured factor.
func (d *Downscaler) Downscale(img *image.NRGBA) (*image.NRGBA, Report, error) {
	var rep Report
	if err := Validate(img); err != nil {
		return nil, rep, err
	}
	rep.Input = img.Bounds().Size()

	s := d.opts.Factor
	if rep.Input.X < s || rep.Input.Y < s {
		return nil, rep, fmt.Errorf("%w: %dx%d by %d", ErrTooSmall, rep.Input.X, rep.Input.Y, s)
	}

	img, rep.Discarded = Crop(img, s)

	planes := d.converter.Forward(img)
	if err := d.resampleAll(&planes); err != nil {
		return nil, rep, err
	}

	out, err := d.converter.Inverse(planes)
	if err != nil {
		return nil, rep, fmt.Errorf("downscale: %w", err)
	}
	rep.Output = out.Bounds().Size()
	return out, rep, nil
}

// resampleAll replaces each plane with its downscaled version.
func (d *Downscaler) resampleAll(planes *[colormodel.NumChannels]*plane.Plane) error {
	if !d.opts.Parallel {
		for i, p := range planes {
			planes[i] = d.resampler.Downscale(p)
		}
		return nil
	}

	var g errgroup.Group
	for i := range planes {
		g.Go(func() error {
			planes[i] = d.resampler.Downscale(planes[i])
			return nil
		})
	}
	return g.Wait()
}
