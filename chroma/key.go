package chroma

import (
	"fmt"
	"image"
)

// ApplyCube remaps every pixel of the mask through the cube, producing a
// transparency-carrying premultiplied image: transparent where the mask
// was maximal-brightness, opaque elsewhere.
func ApplyCube(mask image.Image, cube *Cube) (*image.RGBA, error) {
	if mask == nil || cube == nil {
		return nil, fmt.Errorf("%w: missing mask or cube", ErrFilter)
	}
	bounds := mask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty mask bounds", ErrFilter)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * out.Stride
		for x := 0; x < w; x++ {
			r, g, b, _ := mask.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			or, og, ob, oa := cube.Lookup(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)

			i := row + x*4
			out.Pix[i] = uint8(or*255 + 0.5)
			out.Pix[i+1] = uint8(og*255 + 0.5)
			out.Pix[i+2] = uint8(ob*255 + 0.5)
			out.Pix[i+3] = uint8(oa*255 + 0.5)
		}
	}
	return out, nil
}

// SourceOut composites src through the destination's transparency:
// out = src · (1 − dstAlpha). The photo shows through exactly where the
// keyed mask is transparent and is suppressed where it is opaque.
func SourceOut(src image.Image, dst *image.RGBA) (*image.RGBA, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: missing source or destination", ErrFilter)
	}
	sb, db := src.Bounds(), dst.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty source bounds", ErrFilter)
	}
	if w != db.Dx() || h != db.Dy() {
		return nil, fmt.Errorf("%w: source %dx%d vs destination %dx%d",
			ErrFilter, w, h, db.Dx(), db.Dy())
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * out.Stride
		for x := 0; x < w; x++ {
			da := dst.Pix[y*dst.Stride+x*4+3]
			keep := 1 - float64(da)/255.0

			// src.At().RGBA() 返回 16 位预乘分量
			sr, sg, sbv, sa := src.At(sb.Min.X+x, sb.Min.Y+y).RGBA()

			i := row + x*4
			out.Pix[i] = uint8(float64(sr>>8)*keep + 0.5)
			out.Pix[i+1] = uint8(float64(sg>>8)*keep + 0.5)
			out.Pix[i+2] = uint8(float64(sbv>>8)*keep + 0.5)
			out.Pix[i+3] = uint8(float64(sa>>8)*keep + 0.5)
		}
	}
	return out, nil
}
