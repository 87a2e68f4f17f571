// Package cutout orchestrates background removal: resize the photo to the
// model input size, run inference, decode the mask tensor, key out the
// bright background through the color cube, and composite the photo back
// at display size.
package cutout

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/chaos-io/cutout/chroma"
	"github.com/chaos-io/cutout/imaging"
	"github.com/chaos-io/cutout/infer"
	"github.com/chaos-io/cutout/tensor"
)

// Options 流水线配置：模型输入尺寸、cube 分辨率和解码参数
type Options struct {
	// ModelSize is the longest side of the inference input. Default 1024.
	ModelSize int

	// CubeDim is the chroma cube resolution. Default chroma.DefaultDimension.
	CubeDim int

	// Decode carries the tensor value range, channel selection and axis
	// assignment. Default range is [0, 1].
	Decode tensor.DecodeOptions
}

func (o *Options) fill() {
	if o.ModelSize <= 0 {
		o.ModelSize = 1024
	}
	if o.CubeDim <= 0 {
		o.CubeDim = chroma.DefaultDimension
	}
	if o.Decode.Min == 0 && o.Decode.Max == 0 {
		o.Decode.Max = 1
	}
}

type Pipeline struct {
	engine infer.Engine
	opts   Options
}

func New(engine infer.Engine, opts Options) *Pipeline {
	opts.fill()
	return &Pipeline{engine: engine, opts: opts}
}

// Remove 去背景。任一阶段失败都直接返回错误，绝不返回半成品
func (p *Pipeline) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	// 1. 备好推理输入像素
	src := imaging.FitWithin(imaging.ToNRGBA(img), p.opts.ModelSize)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	// 2. 推理（张量缓冲区只在本次解码内有效）
	view, err := p.engine.Infer(ctx, src.Pix, w, h)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	// 3. 张量 → 掩膜图
	buf, err := tensor.Decode(view, p.opts.Decode)
	if err != nil {
		return nil, fmt.Errorf("decode mask tensor: %w", err)
	}
	mask, err := imaging.Build(buf)
	if err != nil {
		return nil, fmt.Errorf("build mask image: %w", err)
	}
	if buf.Width != w || buf.Height != h {
		mask = imaging.ScaleTo(mask, w, h)
	}

	// 4. 键出高亮背景
	cube, err := chroma.Shared(p.opts.CubeDim)
	if err != nil {
		return nil, err
	}
	keyed, err := chroma.ApplyCube(mask, cube)
	if err != nil {
		return nil, fmt.Errorf("apply chroma key: %w", err)
	}

	// 5. 照片从掩膜透明区透出
	out, err := chroma.SourceOut(src, keyed)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	slog.Debug("background removed",
		"input", fmt.Sprintf("%dx%d", origW, origH),
		"model", fmt.Sprintf("%dx%d", w, h))

	// 6. 放回展示尺寸
	if origW != w || origH != h {
		return imaging.ScaleTo(out, origW, origH), nil
	}
	return out, nil
}
