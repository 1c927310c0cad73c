package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"strings"
)

// HDR format errors.
var (
	ErrInvalidHDRMagic      = errors.New("invalid HDR magic: expected '#?RADIANCE' or '#?RGBE'")
	ErrUnsupportedHDRFormat = errors.New("unsupported HDR pixel format")
	ErrUnsupportedHDRLayout = errors.New("unsupported HDR resolution layout")
	ErrTruncatedHDRData     = errors.New("truncated HDR data")
	ErrInvalidHDRRunLength  = errors.New("invalid HDR run length")
)

const maxHDRDimension = 1 << 15

// HDR represents a decoded Radiance RGBE image with linear float pixels.
type HDR struct {
	Width    int
	Height   int
	Exposure float64
	Pix      []float32 // RGB triples, row 0 at the top
}

// At returns the linear RGB radiance at (x, y).
// Coordinates are clamped to the image.
func (h *HDR) At(x, y int) [3]float32 {
	x = clampInt(x, 0, h.Width-1)
	y = clampInt(y, 0, h.Height-1)
	i := (y*h.Width + x) * 3
	return [3]float32{h.Pix[i], h.Pix[i+1], h.Pix[i+2]}
}

// ToneMapped converts the image to 8-bit sRGB-ish color using a Reinhard
// operator followed by gamma 2.2.
func (h *HDR) ToneMapped() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, h.Width, h.Height))
	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			c := h.At(x, y)
			img.SetRGBA(x, y, color.RGBA{
				R: toneMap(c[0]),
				G: toneMap(c[1]),
				B: toneMap(c[2]),
				A: 255,
			})
		}
	}
	return img
}

func toneMap(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	m := float64(v) / (1 + float64(v))
	return uint8(math.Round(math.Pow(m, 1/2.2) * 255))
}

// ParseHDR parses a Radiance .hdr file from raw bytes.
func ParseHDR(data []byte) (*HDR, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	magic, err := readHDRLine(r)
	if err != nil {
		return nil, ErrTruncatedHDRData
	}
	if magic != "#?RADIANCE" && magic != "#?RGBE" {
		return nil, ErrInvalidHDRMagic
	}

	hdr := &HDR{Exposure: 1}

	// Header variables end with an empty line.
	for {
		line, err := readHDRLine(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading header", ErrTruncatedHDRData)
		}
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "FORMAT":
			if value != "32-bit_rle_rgbe" {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedHDRFormat, value)
			}
		case "EXPOSURE":
			var e float64
			if _, err := fmt.Sscanf(value, "%g", &e); err == nil && e > 0 {
				hdr.Exposure *= e
			}
		}
	}

	res, err := readHDRLine(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading resolution", ErrTruncatedHDRData)
	}
	if _, err := fmt.Sscanf(res, "-Y %d +X %d", &hdr.Height, &hdr.Width); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHDRLayout, res)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || hdr.Width > maxHDRDimension || hdr.Height > maxHDRDimension {
		return nil, fmt.Errorf("invalid HDR dimensions: %dx%d", hdr.Width, hdr.Height)
	}

	hdr.Pix = make([]float32, hdr.Width*hdr.Height*3)
	scan := make([]byte, hdr.Width*4)
	for y := 0; y < hdr.Height; y++ {
		if err := readHDRScanline(r, scan, hdr.Width); err != nil {
			return nil, fmt.Errorf("scanline %d: %w", y, err)
		}
		row := hdr.Pix[y*hdr.Width*3:]
		for x := 0; x < hdr.Width; x++ {
			rgb := rgbeToFloat(scan[x*4 : x*4+4])
			row[x*3] = rgb[0]
			row[x*3+1] = rgb[1]
			row[x*3+2] = rgb[2]
		}
	}

	return hdr, nil
}

// ParseHDRFile parses an HDR file from disk.
func ParseHDRFile(path string) (*HDR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading HDR file: %w", err)
	}
	return ParseHDR(data)
}

func readHDRLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readHDRScanline fills dst with width RGBE pixels. New-style run-length
// encoded scanlines store each channel separately; anything else is read
// as flat pixels.
func readHDRScanline(r *bufio.Reader, dst []byte, width int) error {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return ErrTruncatedHDRData
	}

	rle := width >= 8 && width < 0x8000 &&
		head[0] == 2 && head[1] == 2 && head[2]&0x80 == 0
	if !rle {
		copy(dst, head[:])
		if _, err := io.ReadFull(r, dst[4:width*4]); err != nil {
			return ErrTruncatedHDRData
		}
		return nil
	}

	if int(head[2])<<8|int(head[3]) != width {
		return fmt.Errorf("%w: scanline width mismatch", ErrInvalidHDRRunLength)
	}

	for ch := 0; ch < 4; ch++ {
		for x := 0; x < width; {
			count, err := r.ReadByte()
			if err != nil {
				return ErrTruncatedHDRData
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > width {
					return ErrInvalidHDRRunLength
				}
				val, err := r.ReadByte()
				if err != nil {
					return ErrTruncatedHDRData
				}
				for i := 0; i < n; i++ {
					dst[(x+i)*4+ch] = val
				}
				x += n
				continue
			}

			n := int(count)
			if n == 0 || x+n > width {
				return ErrInvalidHDRRunLength
			}
			for i := 0; i < n; i++ {
				val, err := r.ReadByte()
				if err != nil {
					return ErrTruncatedHDRData
				}
				dst[(x+i)*4+ch] = val
			}
			x += n
		}
	}
	return nil
}

func rgbeToFloat(p []byte) [3]float32 {
	if p[3] == 0 {
		return [3]float32{}
	}
	f := math.Ldexp(1, int(p[3])-(128+8))
	return [3]float32{
		float32(float64(p[0]) * f),
		float32(float64(p[1]) * f),
		float32(float64(p[2]) * f),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
