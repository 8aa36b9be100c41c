// =============================================================================
// EPC QR Code Generator - Image Writer Module
// =============================================================================
//
// This module rasterizes a QR module matrix and writes it as an image file.
// Compression is left to the format libraries:
//   - PNG  : image/png
//   - JPEG : image/jpeg
//   - QOI  : github.com/xfmoulet/qoi
//
// RASTER LAYOUT:
//
//   +---------------------------------------+
//   |  quiet zone (QuietZone light modules) |
//   |    +-----------------------------+    |
//   |    |  matrix, each module drawn  |    |
//   |    |  as ModuleSize x ModuleSize |    |
//   |    |  pixels, dark or light      |    |
//   |    +-----------------------------+    |
//   +---------------------------------------+
//
// FORMAT SELECTION:
//   When no format is given the destination's extension decides:
//   ".qoi" -> QOI, ".jpg"/".jpeg" -> JPEG, anything else -> PNG.
//
// =============================================================================

package imagewriter

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/qrrender"
	"github.com/xfmoulet/qoi"
)

// =============================================================================
// IMAGE FORMATS
// =============================================================================

// Format selects the output encoding.
type Format int

const (
	// FormatPNG is the default format.
	FormatPNG Format = iota
	FormatJPEG
	FormatQOI
)

// Formats lists every supported format, default first.
var Formats = []Format{FormatPNG, FormatJPEG, FormatQOI}

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatQOI:
		return "qoi"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + f.String()
}

// ParseFormat parses a format name as accepted by --image-format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "qoi":
		return FormatQOI, nil
	default:
		return 0, fmt.Errorf("unknown image format %q (supported: png, jpeg, qoi)", name)
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qoi":
		return FormatQOI
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// =============================================================================
// RASTER OPTIONS
// =============================================================================

// Options controls rasterization and encoding.
type Options struct {
	// ModuleSize is the edge length of one module in pixels.
	// Default: 8
	ModuleSize int

	// QuietZone is the width of the light border in modules.
	// Default: 4
	QuietZone int

	// Dark and Light are the pixel values for dark and light modules.
	// Default: black on white
	Dark  color.Gray
	Light color.Gray

	// JPEGQuality is passed to image/jpeg.
	// Default: 90
	JPEGQuality int
}

// DefaultOptions returns the default raster options.
func DefaultOptions() Options {
	return Options{
		ModuleSize:  8,
		QuietZone:   4,
		Dark:        color.Gray{Y: 0},
		Light:       color.Gray{Y: 255},
		JPEGQuality: 90,
	}
}

func (o Options) validate() error {
	if o.ModuleSize < 1 {
		return fmt.Errorf("module size must be at least 1, got %d", o.ModuleSize)
	}
	if o.QuietZone < 0 {
		return fmt.Errorf("quiet zone must not be negative, got %d", o.QuietZone)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", o.JPEGQuality)
	}
	return nil
}

// =============================================================================
// RASTERIZATION
// =============================================================================

// Rasterize draws the matrix into a grayscale image.
func Rasterize(m *qrrender.Matrix, opts Options) *image.Gray {
	side := (m.Size() + 2*opts.QuietZone) * opts.ModuleSize
	img := image.NewGray(image.Rect(0, 0, side, side))

	for py := 0; py < side; py++ {
		y := py/opts.ModuleSize - opts.QuietZone
		for px := 0; px < side; px++ {
			x := px/opts.ModuleSize - opts.QuietZone
			if m.Dark(x, y) {
				img.SetGray(px, py, opts.Dark)
			} else {
				img.SetGray(px, py, opts.Light)
			}
		}
	}

	return img
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *image.Gray, format Format, opts Options) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.JPEGQuality})
	case FormatQOI:
		return qoi.Encode(w, opaqueRGBA(img))
	default:
		return fmt.Errorf("unsupported image format %s", format)
	}
}

// opaqueRGBA copies each gray value into R, G and B. Alpha is always 255;
// the gray intensity is not carried into the alpha channel.
func opaqueRGBA(img *image.Gray) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// WriteFile rasterizes m and writes it to path. A nil format is inferred from
// the extension of path. On failure the file at path is removed.
func WriteFile(m *qrrender.Matrix, format *Format, path string, opts Options) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}

	f := FormatFromPath(path)
	if format != nil {
		f = *format
	}

	img := Rasterize(m, opts)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close image file: %w", cerr)
		}
		// No partial image is left behind.
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := Encode(file, img, f, opts); err != nil {
		return fmt.Errorf("failed to encode %s image: %w", f, err)
	}

	return nil
}
