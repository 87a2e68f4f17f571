package tensor

import "fmt"

// AxisUnused marks the channel axis as absent. Only valid for
// rank-2 (grayscale) tensors.
const AxisUnused = -1

// Axes assigns tensor dimensions to image roles.
type Axes struct {
	Channel int
	Height  int
	Width   int
}

// DefaultAxes 按惯例从 rank 推导轴分配：
// rank 2 → height=0, width=1, 无 channel 轴；否则 channel=0, height=1, width=2
func DefaultAxes(rank int) Axes {
	if rank == 2 {
		return Axes{Channel: AxisUnused, Height: 0, Width: 1}
	}
	return Axes{Channel: 0, Height: 1, Width: 2}
}

func (a Axes) validate(rank int) error {
	if a.Height < 0 || a.Height >= rank || a.Width < 0 || a.Width >= rank {
		return fmt.Errorf("%w: height=%d width=%d for rank %d", ErrAxis, a.Height, a.Width, rank)
	}
	if a.Height == a.Width {
		return fmt.Errorf("%w: height and width both on axis %d", ErrAxis, a.Height)
	}
	if a.Channel == AxisUnused {
		if rank != 2 {
			return fmt.Errorf("%w: channel axis required for rank %d", ErrAxis, rank)
		}
		return nil
	}
	if a.Channel < 0 || a.Channel >= rank || a.Channel == a.Height || a.Channel == a.Width {
		return fmt.Errorf("%w: channel=%d height=%d width=%d for rank %d",
			ErrAxis, a.Channel, a.Height, a.Width, rank)
	}
	return nil
}

// DecodeOptions configures a decode call.
type DecodeOptions struct {
	// Axes assigns tensor dimensions to channel/height/width.
	// nil derives the assignment from the tensor rank.
	Axes *Axes

	// Channel selects a single source channel. nil decodes all channels.
	Channel *int

	// Min and Max give the numeric range of the source data, in the
	// view's element kind. Max must be greater than Min.
	Min, Max float64
}

// PixelBuffer holds decoded flat interleaved pixel bytes.
// Channels is always 1 (grayscale) or 4 (RGBA).
type PixelBuffer struct {
	Pix      []uint8
	Width    int
	Height   int
	Channels int
}

type decodePlan struct {
	width, height int
	rowStride     int
	colStride     int
	chanStride    int
	base          int // offset of the selected channel
	srcChans      int // 0 when no channel axis
	outChans      int
	min, scale    float64
}

// Decode walks the view under the given axis assignment and produces
// interleaved pixel bytes, remapping [Min, Max] onto the byte range.
// The buffer is filled row-major, y outer and x inner, with channel the
// fastest-varying dimension within a pixel. A 3-channel source expands to
// RGBA with alpha forced to 255.
func Decode(v *View, opts DecodeOptions) (*PixelBuffer, error) {
	rank := v.Rank()
	if rank < 2 {
		return nil, fmt.Errorf("%w: got rank %d", ErrShape, rank)
	}
	if opts.Max <= opts.Min {
		return nil, fmt.Errorf("%w: min=%v max=%v", ErrRange, opts.Min, opts.Max)
	}

	axes := DefaultAxes(rank)
	if opts.Axes != nil {
		axes = *opts.Axes
	}
	if err := axes.validate(rank); err != nil {
		return nil, err
	}

	p := decodePlan{
		width:     v.shape[axes.Width],
		height:    v.shape[axes.Height],
		rowStride: v.strides[axes.Height],
		colStride: v.strides[axes.Width],
		min:       opts.Min,
		scale:     256 / (opts.Max - opts.Min),
	}

	if axes.Channel == AxisUnused {
		p.outChans = 1
	} else {
		chanDim := v.shape[axes.Channel]
		p.chanStride = v.strides[axes.Channel]
		switch {
		case opts.Channel != nil:
			c := *opts.Channel
			if c < 0 || c >= chanDim {
				return nil, fmt.Errorf("%w: channel %d of %d", ErrChannelRange, c, chanDim)
			}
			p.base = c * p.chanStride
			p.srcChans, p.outChans = 1, 1
		case chanDim == 1:
			p.srcChans, p.outChans = 1, 1
		case chanDim == 3:
			p.srcChans, p.outChans = 3, 4
		case chanDim == 4:
			p.srcChans, p.outChans = 4, 4
		default:
			return nil, fmt.Errorf("%w: channel dimension %d", ErrUnsupportedChannels, chanDim)
		}
	}

	// 单次按元素类型分派，内层算法对所有类型写一遍
	var pix []uint8
	switch v.dtype {
	case Float64:
		pix = fillPixels(v.f64, p)
	case Float32:
		pix = fillPixels(v.f32, p)
	case Int32:
		pix = fillPixels(v.i32, p)
	default:
		panic("tensor: unknown data type")
	}

	return &PixelBuffer{Pix: pix, Width: p.width, Height: p.height, Channels: p.outChans}, nil
}

type sample interface {
	~float64 | ~float32 | ~int32
}

func fillPixels[T sample](data []T, p decodePlan) []uint8 {
	pix := make([]uint8, p.width*p.height*p.outChans)
	i := 0
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			off := p.base + y*p.rowStride + x*p.colStride
			if p.srcChans == 0 {
				pix[i] = quantize(float64(data[off]), p.min, p.scale)
				i++
				continue
			}
			for c := 0; c < p.srcChans; c++ {
				pix[i] = quantize(float64(data[off+c*p.chanStride]), p.min, p.scale)
				i++
			}
			if p.srcChans == 3 {
				pix[i] = 255 // alpha forced opaque
				i++
			}
		}
	}
	return pix
}

// quantize 把源值线性映射到字节范围，截断取整并夹取到 [0, 255]
func quantize(v, min, scale float64) uint8 {
	s := (v - min) * scale
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s)
}
