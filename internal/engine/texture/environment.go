// Package texture provides environment maps that light and surround the scene.
package texture

import (
	"fmt"
	"image"
	gomath "math"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WEBP decoder

	"github.com/Monnte/car-dataset-generator/pkg/formats"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Environment is an equirectangular radiance map around the scene, with
// Z as the vertical axis. A flat environment has the same color everywhere.
type Environment struct {
	Name     string
	Strength float64

	width, height int
	pix           []math.Vec3 // linear RGB, row 0 at the top
	flat          math.Vec3
}

// Flat returns a uniform environment.
func Flat(c math.Vec3) *Environment {
	return &Environment{Name: "flat", Strength: 1, flat: c}
}

// LoadEnvironment reads an equirectangular map. Radiance .hdr files keep
// their linear values; 8-bit images are converted from sRGB.
func LoadEnvironment(path string, strength float64) (*Environment, error) {
	env := &Environment{
		Name:     filepath.Base(path),
		Strength: strength,
	}

	if strings.EqualFold(filepath.Ext(path), ".hdr") {
		hdr, err := formats.ParseHDRFile(path)
		if err != nil {
			return nil, err
		}
		env.width, env.height = hdr.Width, hdr.Height
		env.pix = make([]math.Vec3, hdr.Width*hdr.Height)
		for y := 0; y < hdr.Height; y++ {
			for x := 0; x < hdr.Width; x++ {
				c := hdr.At(x, y)
				env.pix[y*hdr.Width+x] = math.Vec3{
					X: float64(c[0]) * hdr.Exposure,
					Y: float64(c[1]) * hdr.Exposure,
					Z: float64(c[2]) * hdr.Exposure,
				}
			}
		}
		return env, nil
	}

	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening environment image: %w", err)
	}
	env.setImage(img)
	return env, nil
}

// FromImage wraps an 8-bit sRGB image as an environment.
func FromImage(name string, img image.Image, strength float64) *Environment {
	env := &Environment{Name: name, Strength: strength}
	env.setImage(img)
	return env
}

func (e *Environment) setImage(img image.Image) {
	b := img.Bounds()
	e.width, e.height = b.Dx(), b.Dy()
	e.pix = make([]math.Vec3, e.width*e.height)

	var lut [256]float64
	for i := range lut {
		lut[i] = gomath.Pow(float64(i)/255, 2.2)
	}

	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			e.pix[y*e.width+x] = math.Vec3{X: lut[r>>8], Y: lut[g>>8], Z: lut[bl>>8]}
		}
	}
}

// Size returns the map dimensions, zero for flat environments.
func (e *Environment) Size() (w, h int) {
	return e.width, e.height
}

// Sample returns the radiance seen along dir.
func (e *Environment) Sample(dir math.Vec3) math.Vec3 {
	if len(e.pix) == 0 {
		return e.flat.Scale(e.Strength)
	}

	d := dir.Normalize()
	u := gomath.Atan2(d.Y, -d.X)/(2*gomath.Pi) + 0.5
	v := gomath.Atan2(d.Z, gomath.Hypot(d.X, d.Y))/gomath.Pi + 0.5

	x := int(u * float64(e.width))
	y := int((1 - v) * float64(e.height))
	x = ((x % e.width) + e.width) % e.width
	if y < 0 {
		y = 0
	}
	if y >= e.height {
		y = e.height - 1
	}
	return e.pix[y*e.width+x].Scale(e.Strength)
}
