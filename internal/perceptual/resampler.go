// Package perceptual implements perceptual downscaling of a single plane.
//
// The input is box-filtered to the output resolution, then every output
// sample is remapped so that each small patch of output cells carries the
// local variance of the full-resolution input rather than the reduced
// variance of the box average. The result of every patch that covers a
// cell is averaged.
//
// See Öztireli and Gross, "Perceptually Based Downscaling of Images",
// ACM SIGGRAPH 2015.
package perceptual

import (
	"math"

	"perc-downscale/internal/plane"
)

const (
	// PatchSize is the side length, in output cells, of a statistics patch.
	PatchSize = 2

	// Epsilon is the coarse variance below which a patch is treated as flat.
	Epsilon float32 = 1e-6

	// FallbackRatio is the contrast ratio used for flat patches.
	FallbackRatio float32 = 2.0
)

// Resampler downscales planes by an integer factor.
type Resampler struct {
	// Factor is the downscale factor, at least 2.
	Factor int
	// Tileable wraps patch neighborhoods around the plane edges instead of
	// replicating the edge cells.
	Tileable bool
}

// New returns a resampler for factor s.
func New(s int, tileable bool) *Resampler {
	return &Resampler{Factor: s, Tileable: tileable}
}

// Downscale returns p reduced to (p.W/s) x (p.H/s). Rows and columns past the
// last full s x s block are ignored. p is released and must not be reused.
func (rs *Resampler) Downscale(p *plane.Plane) *plane.Plane {
	w2 := p.W / rs.Factor
	h2 := p.H / rs.Factor

	l, l2 := boxStats(p, rs.Factor)
	p.Release()

	m, r := patchStats(l, l2, w2, h2, rs.Tileable)
	return blend(l, m, r, w2, h2, rs.Tileable)
}

// boxStats returns the s x s block means of p and of p squared.
func boxStats(p *plane.Plane, s int) (l, l2 []float32) {
	w := p.W
	w2 := p.W / s
	h2 := p.H / s
	input := p.Data

	l = make([]float32, w2*h2)
	l2 = make([]float32, w2*h2)

	dividerS := 1 / float32(s*s)
	for y2 := 0; y2 < h2; y2++ {
		for x2 := 0; x2 < w2; x2++ {
			x := x2 * s
			y := y2 * s
			var acc, acc2 float32
			for yc := y; yc < y+s; yc++ {
				row := input[yc*w : yc*w+w]
				for xc := x; xc < x+s; xc++ {
					v := row[xc]
					acc += v
					acc2 += v * v
				}
			}
			i := y2*w2 + x2
			l[i] = acc * dividerS
			l2[i] = acc2 * dividerS
		}
	}
	return l, l2
}

// patchStats returns, for the patch anchored at every output cell, the mean
// of l and the ratio between the fine and coarse standard deviation.
func patchStats(l, l2 []float32, w2, h2 int, tileable bool) (m, r []float32) {
	m = make([]float32, w2*h2)
	r = make([]float32, w2*h2)

	const patchDiv = 1.0 / (PatchSize * PatchSize)
	for ys := 0; ys < h2; ys++ {
		for xs := 0; xs < w2; xs++ {
			var accM, accR1, accR2 float32
			for y := ys; y < ys+PatchSize; y++ {
				for x := xs; x < xs+PatchSize; x++ {
					xi, yi := x, y
					if tileable {
						xi %= w2
						yi %= h2
					} else {
						xi = min(xi, w2-1)
						yi = min(yi, h2-1)
					}
					i := yi*w2 + xi
					accM += l[i]
					accR1 += l[i] * l[i]
					accR2 += l2[i]
				}
			}
			mv := accM * patchDiv
			slv := accR1*patchDiv - mv*mv
			shv := accR2*patchDiv - mv*mv

			i := ys*w2 + xs
			m[i] = mv
			r[i] = ratio(slv, shv)
		}
	}
	return m, r
}

// ratio maps coarse variance sl and fine variance sh to a contrast ratio.
func ratio(sl, sh float32) float32 {
	if sl >= Epsilon {
		return sqrt32(sh / sl)
	}
	return FallbackRatio
}

// blend averages, for every output cell, the predictions of all patches
// covering it.
func blend(l, m, r []float32, w2, h2 int, tileable bool) *plane.Plane {
	out := plane.New(w2, h2)
	d := out.Data

	const patchDiv = 1.0 / (PatchSize * PatchSize)
	for y := 0; y < h2; y++ {
		for x := 0; x < w2; x++ {
			i := y*w2 + x
			linear := l[i]
			var acc float32
			for yo := 0; yo > -PatchSize; yo-- {
				for xo := 0; xo > -PatchSize; xo-- {
					xp := x + xo
					yp := y + yo
					if tileable {
						xp = (xp + w2) % w2
						yp = (yp + h2) % h2
					} else {
						xp = max(xp, 0)
						yp = max(yp, 0)
					}
					ip := yp*w2 + xp
					mv := m[ip]
					rv := r[ip]
					acc += mv + rv*linear - rv*mv
				}
			}
			d[i] = acc * patchDiv
		}
	}
	return out
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
