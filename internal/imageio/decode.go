// Package imageio decodes input images into 8-bit NRGBA buffers and encodes
// results as PNG, WebP or TGA.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Extensions lists the file extensions Decode understands.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".tga", ".bmp", ".tif", ".tiff", ".webp"}

// IsImagePath reports whether path has a decodable extension.
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// codec is a decoder selected by the leading bytes of a stream. '?' in magic
// matches any byte.
type codec struct {
	name   string
	magic  string
	decode func(io.Reader) (image.Image, error)
}

// Streams are dispatched here rather than through image.Decode: the tga
// package registers itself with an empty magic string, which would claim
// every stream ahead of the formats below. TGA has no signature and is tried
// last.
var codecs = []codec{
	{"png", "\x89PNG\r\n\x1a\n", png.Decode},
	{"jpeg", "\xff\xd8", jpeg.Decode},
	{"gif", "GIF8?a", gif.Decode},
	{"bmp", "BM????\x00\x00\x00\x00", bmp.Decode},
	{"tiff", "II\x2A\x00", tiff.Decode},
	{"tiff", "MM\x00\x2A", tiff.Decode},
	{"webp", "RIFF????WEBPVP8", webp.Decode},
}

const maxMagic = 16

func match(magic string, b []byte) bool {
	if len(magic) > len(b) {
		return false
	}
	for i, c := range b[:len(magic)] {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

func sniff(r *bufio.Reader) codec {
	b, _ := r.Peek(maxMagic)
	for _, c := range codecs {
		if match(c.magic, b) {
			return c
		}
	}
	return codec{"tga", "", tga.Decode}
}

// Decode reads an image and returns it as an origin-anchored NRGBA with
// len(Pix) == w*h*4, along with the format name.
func Decode(r io.Reader) (*image.NRGBA, string, error) {
	br := bufio.NewReader(r)
	c := sniff(br)
	img, err := c.decode(br)
	if err != nil {
		if c.name == "tga" {
			return nil, "", fmt.Errorf("imageio: decode: %w (as tga: %v)", image.ErrFormat, err)
		}
		return nil, "", fmt.Errorf("imageio: decode %s: %w", c.name, err)
	}
	return ToNRGBA(img), c.name, nil
}

// DecodeFile opens and decodes path.
func DecodeFile(path string) (*image.NRGBA, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// ToNRGBA converts any image to a tightly packed NRGBA starting at (0, 0).
// An image that already has that layout is returned unchanged.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == b.Dx()*4 && len(n.Pix) == b.Dx()*b.Dy()*4 {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
