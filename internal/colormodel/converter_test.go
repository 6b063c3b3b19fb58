package colormodel

import (
	"image"
	"image/color"
	"math"
	"testing"

	"perc-downscale/internal/plane"
)

func srgbToLinearRef(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func TestTableMatchesTransferFunction(t *testing.T) {
	table := NewTable()
	if table[0] != 0 {
		t.Errorf("table[0] = %v, want 0", table[0])
	}
	if table[255] != 1 {
		t.Errorf("table[255] = %v, want 1", table[255])
	}
	for i := range table {
		want := srgbToLinearRef(float64(i) / 255)
		if got := float64(table.Linear(uint8(i))); math.Abs(got-want) > 1e-7 {
			t.Errorf("table[%d] = %v, want %v", i, got, want)
		}
	}
	// 10/255 sits below the 0.04045 knee, 11/255 above it.
	if got, want := float64(table[10]), 10.0/255/12.92; math.Abs(got-want) > 1e-9 {
		t.Errorf("table[10] = %v, want linear segment %v", got, want)
	}
	if got, want := float64(table[11]), math.Pow((11.0/255+0.055)/1.055, 2.4); math.Abs(got-want) > 1e-9 {
		t.Errorf("table[11] = %v, want power segment %v", got, want)
	}
}

func TestRoundTripAllColors(t *testing.T) {
	step := 1
	if testing.Short() {
		step = 7
	}
	table := NewTable()
	for _, tc := range []struct {
		name  string
		gamma bool
	}{
		{name: "gamma_naive", gamma: false},
		{name: "gamma_correct", gamma: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConverter(tc.gamma, table)
			failures := 0
			for r := 0; r < 256; r += step {
				for g := 0; g < 256; g += step {
					for b := 0; b < 256; b += step {
						y, cb, cr := c.RGBToYCbCr(uint8(r), uint8(g), uint8(b))
						r2, g2, b2 := c.YCbCrToRGB(y, cb, cr)
						if absDiff(r, r2) > 1 || absDiff(g, g2) > 1 || absDiff(b, b2) > 1 {
							failures++
							if failures <= 10 {
								t.Errorf("(%d,%d,%d) -> (%d,%d,%d)", r, g, b, r2, g2, b2)
							}
						}
					}
				}
			}
			if failures > 10 {
				t.Errorf("%d colors out of tolerance in total", failures)
			}
		})
	}
}

func absDiff(a int, b uint8) int {
	d := a - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestForwardKnownValues(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 128})
	img.SetNRGBA(2, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 0})

	planes := NewConverter(false, nil).Forward(img)
	for i, p := range planes {
		if p.W != 3 || p.H != 1 {
			t.Fatalf("plane %d is %dx%d, want 3x1", i, p.W, p.H)
		}
	}

	const eps = 1e-6
	check := func(name string, got, want float32) {
		t.Helper()
		if math.Abs(float64(got-want)) > eps {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	check("white luma", planes[Luma].Data[0], 1)
	check("white cb", planes[Cb].Data[0], 0.5)
	check("white cr", planes[Cr].Data[0], 0.5)
	check("white alpha", planes[Alpha].Data[0], 1)

	check("black luma", planes[Luma].Data[1], 0)
	check("black cb", planes[Cb].Data[1], 0.5)
	check("black alpha", planes[Alpha].Data[1], 128.0/255)

	check("red luma", planes[Luma].Data[2], 0.299)
	check("red cb", planes[Cb].Data[2], 0.5-0.168736)
	check("red cr", planes[Cr].Data[2], 1)
	check("red alpha", planes[Alpha].Data[2], 0)
}

func TestForwardHonorsBoundsOffset(t *testing.T) {
	big := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	big.SetNRGBA(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	sub := big.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)

	planes := NewConverter(false, nil).Forward(sub)
	if planes[Luma].W != 2 || planes[Luma].H != 2 {
		t.Fatalf("luma plane is %dx%d, want 2x2", planes[Luma].W, planes[Luma].H)
	}
	if got := planes[Luma].At(0, 0); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("luma(0,0) = %v, want 1", got)
	}
	if got := planes[Alpha].At(1, 1); got != 0 {
		t.Errorf("alpha(1,1) = %v, want 0", got)
	}
}

func TestImageRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 37)
	}
	for _, gamma := range []bool{false, true} {
		c := NewConverter(gamma, nil)
		if c.GammaCorrect() != gamma {
			t.Fatalf("GammaCorrect() = %v, want %v", c.GammaCorrect(), gamma)
		}
		planes := c.Forward(img)
		out, err := c.Inverse(planes)
		if err != nil {
			t.Fatalf("gamma=%v: Inverse: %v", gamma, err)
		}
		if got, want := out.Bounds(), img.Bounds(); got != want {
			t.Fatalf("gamma=%v: bounds %v, want %v", gamma, got, want)
		}
		for i := range img.Pix {
			if absDiff(int(img.Pix[i]), out.Pix[i]) > 1 {
				t.Errorf("gamma=%v: Pix[%d] = %d, want %d", gamma, i, out.Pix[i], img.Pix[i])
			}
		}
		for i, p := range planes {
			if p.Data != nil {
				t.Errorf("gamma=%v: plane %d not released", gamma, i)
			}
		}
	}
}

func TestInverseClampsAlphaAndColor(t *testing.T) {
	c := NewConverter(false, nil)
	var planes [NumChannels]*plane.Plane
	planes[Luma] = plane.Filled(1, 1, 2)
	planes[Cb] = plane.Filled(1, 1, 0.5)
	planes[Cr] = plane.Filled(1, 1, 0.5)
	planes[Alpha] = plane.Filled(1, 1, -0.3)
	img, err := c.Inverse(planes)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if got, want := img.NRGBAAt(0, 0), (color.NRGBA{R: 255, G: 255, B: 255, A: 0}); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestInverseMismatch(t *testing.T) {
	c := NewConverter(false, nil)
	planes := [NumChannels]*plane.Plane{
		plane.New(2, 2), plane.New(2, 2), plane.New(1, 2), plane.New(2, 2),
	}
	if _, err := c.Inverse(planes); err != ErrMismatch {
		t.Errorf("Inverse error = %v, want ErrMismatch", err)
	}
	for i, p := range planes {
		if p.Data != nil || p.W != 0 || p.H != 0 {
			t.Errorf("plane %d not released after ErrMismatch: %dx%d", i, p.W, p.H)
		}
	}

	if _, err := c.Inverse([NumChannels]*plane.Plane{plane.New(2, 2), nil, plane.New(2, 2), plane.New(2, 2)}); err != ErrMismatch {
		t.Errorf("Inverse with a nil plane: error = %v, want ErrMismatch", err)
	}
}
