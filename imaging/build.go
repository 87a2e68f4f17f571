// Package imaging turns decoded pixel buffers into images and prepares
// photos for inference input and display output.
package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/chaos-io/cutout/tensor"
)

// ErrBufferSize reports a pixel buffer whose length does not match its
// declared width, height and channel count.
var ErrBufferSize = errors.New("imaging: pixel buffer size mismatch")

// Build wraps decoded bytes into an image: 1 channel → *image.Gray,
// 4 channels → *image.NRGBA. The bytes are copied into the image's
// backing store so the decoder's scratch buffer is never aliased.
func Build(buf *tensor.PixelBuffer) (image.Image, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrBufferSize)
	}

	want := buf.Width * buf.Height * buf.Channels
	if len(buf.Pix) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%dx%d",
			ErrBufferSize, len(buf.Pix), buf.Width, buf.Height, buf.Channels)
	}

	rect := image.Rect(0, 0, buf.Width, buf.Height)
	switch buf.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, buf.Pix)
		return img, nil
	case 4:
		img := image.NewNRGBA(rect)
		copy(img.Pix, buf.Pix)
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %d channels", ErrBufferSize, buf.Channels)
	}
}
