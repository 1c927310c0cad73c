// Package keypoint detects salient corner points in rendered images.
package keypoint

import (
	"errors"
	"image"
	gomath "math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Keypoint is a detected image location. Coordinates are in pixels with
// the origin at the top-left corner; pixel centers lie at .5 offsets.
type Keypoint struct {
	X, Y     float64
	Response float64
}

// Detector finds keypoints in an image.
type Detector interface {
	Detect(img image.Image) ([]Keypoint, error)
}

// Harris is a Harris-Stephens corner detector.
type Harris struct {
	Sigma        float64 // pre-smoothing radius, 0 disables
	K            float64 // sensitivity, typically 0.04-0.06
	RelThreshold float64 // minimum response relative to the strongest
	MaxKeypoints int     // strongest kept, 0 keeps all
	Border       int     // pixels ignored along each edge
}

// NewHarris returns a detector with common defaults.
func NewHarris(maxKeypoints int) *Harris {
	return &Harris{
		Sigma:        1,
		K:            0.04,
		RelThreshold: 0.01,
		MaxKeypoints: maxKeypoints,
		Border:       3,
	}
}

// Detect implements Detector. Keypoints are ordered by descending
// response, ties by position.
func (d *Harris) Detect(img image.Image) ([]Keypoint, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrEmptyImage
	}

	gray := effect.Grayscale(img)
	if d.Sigma > 0 {
		gray = blur.Gaussian(gray, d.Sigma)
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			lum[y*w+x] = float64(row[x*4]) / 255
		}
	}

	resp := d.response(lum, w, h)
	return d.selectPeaks(resp, w, h), nil
}

// response computes the Harris measure det(M) - k*trace(M)^2 for the
// structure tensor M summed over a 3x3 window.
func (d *Harris) response(lum []float64, w, h int) []float64 {
	at := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return lum[y*w+x]
	}

	ixx := make([]float64, w*h)
	iyy := make([]float64, w*h)
	ixy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Sobel
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			ixx[i] = gx * gx
			iyy[i] = gy * gy
			ixy[i] = gx * gy
		}
	}

	resp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sxx, syy, sxy float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					j := clamp(y+dy, 0, h-1)*w + clamp(x+dx, 0, w-1)
					sxx += ixx[j]
					syy += iyy[j]
					sxy += ixy[j]
				}
			}
			tr := sxx + syy
			resp[y*w+x] = sxx*syy - sxy*sxy - d.K*tr*tr
		}
	}
	return resp
}

// selectPeaks keeps 3x3 local maxima above the relative threshold.
// On plateaus only the first pixel in raster order survives.
func (d *Harris) selectPeaks(resp []float64, w, h int) []Keypoint {
	maxR := 0.0
	for _, r := range resp {
		maxR = gomath.Max(maxR, r)
	}
	if maxR <= 0 {
		return nil
	}
	threshold := maxR * d.RelThreshold

	var kps []Keypoint
	for y := d.Border; y < h-d.Border; y++ {
		for x := d.Border; x < w-d.Border; x++ {
			r := resp[y*w+x]
			if r <= threshold || !isPeak(resp, w, h, x, y) {
				continue
			}
			kps = append(kps, Keypoint{X: float64(x) + 0.5, Y: float64(y) + 0.5, Response: r})
		}
	}

	sort.SliceStable(kps, func(i, j int) bool {
		return kps[i].Response > kps[j].Response
	})
	if d.MaxKeypoints > 0 && len(kps) > d.MaxKeypoints {
		kps = kps[:d.MaxKeypoints]
	}
	return kps
}

func isPeak(resp []float64, w, h, x, y int) bool {
	r := resp[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			n := resp[ny*w+nx]
			before := dy < 0 || (dy == 0 && dx < 0)
			if n > r || (before && n == r) {
				return false
			}
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
