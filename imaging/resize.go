package imaging

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// ToNRGBA 统一转成 NRGBA，方便按 Pix 处理
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// FitWithin 缩放（最长边 <= maxSize），保持纵横比
func FitWithin(img *image.NRGBA, maxSize int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return ToNRGBA(resized)
}

// ScaleTo 缩放到指定尺寸（CatmullRom，用于把结果放回展示尺寸）
func ScaleTo(img image.Image, w, h int) *image.NRGBA {
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return ToNRGBA(img)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
