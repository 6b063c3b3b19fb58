// Package plane holds single-channel float sample grids.
package plane

// Plane is one channel of an image as flat row-major samples for cache locality.
// len(Data) == W*H at all times.
type Plane struct {
	W    int
	H    int
	Data []float32
}

// New allocates a zeroed w x h plane.
func New(w, h int) *Plane {
	return &Plane{
		W:    w,
		H:    h,
		Data: make([]float32, w*h),
	}
}

// Filled allocates a w x h plane with every sample set to v.
func Filled(w, h int, v float32) *Plane {
	p := New(w, h)
	for i := range p.Data {
		p.Data[i] = v
	}
	return p
}

// Index returns the offset of (x, y) in Data.
func (p *Plane) Index(x, y int) int {
	return y*p.W + x
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) float32 {
	return p.Data[y*p.W+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v float32) {
	p.Data[y*p.W+x] = v
}

// Release drops the sample buffer. The plane must not be used afterwards.
// Releasing a nil plane is a no-op.
func (p *Plane) Release() {
	if p == nil {
		return
	}
	p.W = 0
	p.H = 0
	p.Data = nil
}

// Valid reports whether the dimensions agree with the buffer length.
func (p *Plane) Valid() bool {
	return p != nil && p.W > 0 && p.H > 0 && len(p.Data) == p.W*p.H
}
