// Package infer treats the segmentation model as an opaque producer of
// tensors: a prepared RGBA pixel buffer goes in, a strided tensor view
// comes back. Model architecture and the inference runtime live behind
// the Engine interface.
package infer

import (
	"context"

	"github.com/chaos-io/cutout/tensor"
)

type Engine interface {
	Infer(ctx context.Context, pix []uint8, width, height int) (*tensor.View, error)
}

// Passthrough 返回全白掩膜，整张照片都被保留（等价于不抠图）
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Infer(ctx context.Context, pix []uint8, width, height int) (*tensor.View, error) {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 1
	}
	shape := []int{1, height, width}
	return tensor.NewFloat32View(data, shape, tensor.ContiguousStrides(shape))
}
