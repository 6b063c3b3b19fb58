package batch

import (
	"context"
	"fmt"
	"image"

	"perc-downscale/internal/downscale"
	"perc-downscale/internal/logger"
	"perc-downscale/internal/postprocess"
)

// Apply downscales img with method m. The perceptual method goes through ds;
// the linear baselines reuse its factor and crop policy. A crop is logged as
// a warning, never returned as an error.
func Apply(ctx context.Context, ds *downscale.Downscaler, m postprocess.Method, img *image.NRGBA) (*image.NRGBA, downscale.Report, error) {
	var (
		out *image.NRGBA
		rep downscale.Report
		err error
	)
	if m == postprocess.Perceptual || m == "" {
		out, rep, err = ds.Downscale(img)
	} else {
		out, rep, err = applyLinear(ds.Options().Factor, m, img)
	}
	if rep.Cropped() {
		logger.For(ctx).Warn(
			"Image size is not a multiple of the downscaling factor; pixels discarded from the right and bottom borders",
			"cols", rep.Discarded.X,
			"rows", rep.Discarded.Y,
		)
	}
	if err != nil {
		return nil, rep, err
	}
	logger.For(ctx).Debug(
		"Downscaled image",
		"method", string(m),
		"from", fmt.Sprintf("%dx%d", rep.Input.X, rep.Input.Y),
		"to", fmt.Sprintf("%dx%d", rep.Output.X, rep.Output.Y),
	)
	return out, rep, nil
}

func applyLinear(s int, m postprocess.Method, img *image.NRGBA) (*image.NRGBA, downscale.Report, error) {
	var rep downscale.Report
	if err := downscale.Validate(img); err != nil {
		return nil, rep, err
	}
	rep.Input = img.Bounds().Size()
	if rep.Input.X < s || rep.Input.Y < s {
		return nil, rep, fmt.Errorf("%w: %dx%d by %d", downscale.ErrTooSmall, rep.Input.X, rep.Input.Y, s)
	}

	img, rep.Discarded = downscale.Crop(img, s)
	out, err := postprocess.Linear(img, s, m)
	if err != nil {
		return nil, rep, err
	}
	rep.Output = out.Bounds().Size()
	return out, rep, nil
}
