package imageio

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Format is an output container format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatTGA  Format = "tga"
)

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "tga":
		return FormatTGA, nil
	}
	return "", fmt.Errorf("imageio: unknown output format %q", name)
}

// FormatFromPath picks the format from the extension of path, falling back
// to PNG when the extension is missing or not an output format.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatPNG
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// Encode writes img to w in format f. WebP output is lossless; TGA is
// written as uncompressed 32-bit BGRA.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		if err := pngEncoder.Encode(w, img); err != nil {
			return fmt.Errorf("imageio: PNG encode: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("imageio: WebP encode: %w", err)
		}
	case FormatTGA:
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("imageio: TGA encode: %w", err)
		}
	default:
		return fmt.Errorf("imageio: unknown output format %q", string(f))
	}
	return nil
}

// EncodeFile writes img to path, creating parent directories.
func EncodeFile(path string, img image.Image, f Format) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("imageio: close %s: %w", path, cerr)
		}
	}()
	return Encode(out, img, f)
}
