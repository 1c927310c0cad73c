package renderer

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedImageFormat is returned for unknown output formats.
var ErrUnsupportedImageFormat = errors.New("unsupported image format")

// NormalizeFormat maps a configured format name to PNG, JPEG, BMP or TIFF.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "", "PNG":
		return "PNG", nil
	case "JPEG", "JPG":
		return "JPEG", nil
	case "BMP":
		return "BMP", nil
	case "TIFF", "TIF":
		return "TIFF", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImageFormat, format)
	}
}

// FormatExt returns the file extension for a format, including the dot.
func FormatExt(format string) string {
	f, err := NormalizeFormat(format)
	if err != nil {
		return ".png"
	}
	switch f {
	case "JPEG":
		return ".jpg"
	case "BMP":
		return ".bmp"
	case "TIFF":
		return ".tif"
	default:
		return ".png"
	}
}

func encoder(format string, quality int) (imgio.Encoder, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case "JPEG":
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		return imgio.JPEGEncoder(quality), nil
	case "BMP":
		return imgio.BMPEncoder(), nil
	case "TIFF":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return imgio.PNGEncoder(), nil
	}
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	enc, err := encoder(format, quality)
	if err != nil {
		return err
	}
	return enc(w, img)
}

// Save writes img to path, creating parent directories.
func Save(path string, img image.Image, format string, quality int) error {
	enc, err := encoder(format, quality)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
