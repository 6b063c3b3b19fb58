package colormodel

import colorful "github.com/lucasb-eyer/go-colorful"

// Table maps an 8-bit sRGB channel value to linear light in [0, 1].
// Build it once with NewTable and share it; it is never written after construction.
type Table [256]float32

// NewTable precomputes the sRGB decoding curve for all 256 channel values.
func NewTable() *Table {
	var t Table
	divider := 1.0 / 255.0
	for i := range t {
		v := float64(i) * divider
		lin, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
		t[i] = float32(lin)
	}
	return &t
}

// Linear returns the linear-light value of channel value c.
func (t *Table) Linear(c uint8) float32 {
	return t[c]
}

// encodeSRGB applies the sRGB encoding curve to linear r, g, b.
// Negative and >1 inputs are passed through the curve unclamped.
func encodeSRGB(r, g, b float32) (float32, float32, float32) {
	c := colorful.LinearRgb(float64(r), float64(g), float64(b))
	return float32(c.R), float32(c.G), float32(c.B)
}
