package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitWithin(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	out := FitWithin(img, 50)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())

	// 已在范围内的图原样返回
	small := image.NewNRGBA(image.Rect(0, 0, 30, 40))
	assert.Same(t, small, FitWithin(small, 50))
}

func TestScaleTo(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 60, B: 30, A: 255})
		}
	}

	out := ScaleTo(img, 8, 8)
	assert.Equal(t, 8, out.Bounds().Dx())
	assert.Equal(t, 8, out.Bounds().Dy())
	// 纯色图缩放后仍是同一颜色
	c := out.NRGBAAt(4, 4)
	assert.InDelta(t, 120, int(c.R), 2)
	assert.InDelta(t, 255, int(c.A), 1)
}

func TestToNRGBA(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(0, 0, color.Gray{Y: 77})

	out := ToNRGBA(gray)
	c := out.NRGBAAt(0, 0)
	assert.Equal(t, uint8(77), c.R)
	assert.Equal(t, uint8(77), c.G)
	assert.Equal(t, uint8(77), c.B)
	assert.Equal(t, uint8(255), c.A)

	// NRGBA 输入不复制
	n := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	assert.Same(t, n, ToNRGBA(n))
}
