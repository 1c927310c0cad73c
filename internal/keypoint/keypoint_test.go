package keypoint

import (
	"image"
	"image/color"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareImage(size, lo, hi int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{A: 255}
			if x >= lo && x < hi && y >= lo && y < hi {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestHarrisFindsSquareCorners(t *testing.T) {
	kps, err := NewHarris(4).Detect(squareImage(64, 20, 44))
	require.NoError(t, err)
	require.Len(t, kps, 4)

	corners := [][2]float64{{20, 20}, {44, 20}, {20, 44}, {44, 44}}
	for _, c := range corners {
		best := gomath.Inf(1)
		for _, kp := range kps {
			best = gomath.Min(best, gomath.Hypot(kp.X-c[0], kp.Y-c[1]))
		}
		assert.Less(t, best, 3.0, "no keypoint near corner %v", c)
	}

	for i := 1; i < len(kps); i++ {
		assert.GreaterOrEqual(t, kps[i-1].Response, kps[i].Response)
	}
}

func TestHarrisFlatImage(t *testing.T) {
	img := image.NewUniform(color.RGBA{90, 90, 90, 255})
	kps, err := NewHarris(0).Detect(&boundedUniform{img, image.Rect(0, 0, 16, 16)})
	require.NoError(t, err)
	assert.Empty(t, kps)
}

func TestHarrisEmptyImage(t *testing.T) {
	_, err := NewHarris(0).Detect(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestPixelCenters(t *testing.T) {
	kps, err := NewHarris(1).Detect(squareImage(32, 10, 22))
	require.NoError(t, err)
	require.NotEmpty(t, kps)
	_, frac := gomath.Modf(kps[0].X)
	assert.Equal(t, 0.5, frac)
}

// boundedUniform gives image.Uniform finite bounds.
type boundedUniform struct {
	*image.Uniform
	rect image.Rectangle
}

func (b *boundedUniform) Bounds() image.Rectangle { return b.rect }
