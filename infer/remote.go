package infer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"mime/multipart"
	"strings"

	"github.com/chaos-io/cutout/tensor"
	nhttp "github.com/chaos-io/cutout/util/http"
)

const segmentPath = "api/segment"

// Remote runs segmentation on a remote inference server: the pixel buffer
// is uploaded as PNG and the mask tensor comes back as a JSON payload.
type Remote struct {
	baseURL string
	cli     nhttp.IClient
}

func NewRemote(baseURL string) *Remote {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Remote{
		baseURL: baseURL,
		cli:     nhttp.NewHTTPClient(),
	}
}

// tensorPayload 推理服务返回的张量：dtype + shape (+ 可选 strides) +
// little-endian base64 数据
type tensorPayload struct {
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Strides []int  `json:"strides,omitempty"`
	Data    string `json:"data"`
}

func (r *Remote) Infer(ctx context.Context, pix []uint8, width, height int) (*tensor.View, error) {
	img := &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return nil, fmt.Errorf("encode input image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "input.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(encoded.Bytes()); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}
	_ = writer.Close()

	payload := &tensorPayload{}
	reqParam := &nhttp.RequestParam{
		RequestURI: r.baseURL + segmentPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   payload,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	slog.Debug("segmentation tensor received",
		"dtype", payload.DType, "shape", payload.Shape)

	return payload.view()
}

// maxTensorElems 对服务端声明的张量规模设上限，防止 shape 乘积回绕
const maxTensorElems = 1 << 28

// view 把 JSON 载荷转成张量视图；strides 缺省按 row-major 连续布局。
// shape 和 strides 都来自服务端，不可信：任何可达偏移越过数据末尾都
// 必须在构造视图前拒绝，否则解码时会越界
func (p *tensorPayload) view() (*tensor.View, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode tensor data: %w", err)
	}

	n := 1
	for _, dim := range p.Shape {
		if dim < 0 {
			return nil, fmt.Errorf("negative tensor dimension %d in shape %v", dim, p.Shape)
		}
		if dim > 0 && n > maxTensorElems/dim {
			return nil, fmt.Errorf("tensor shape %v exceeds %d elements", p.Shape, maxTensorElems)
		}
		n *= dim
	}
	strides := p.Strides
	if strides == nil {
		strides = tensor.ContiguousStrides(p.Shape)
	}
	if err := validateStrides(p.Shape, strides, n); err != nil {
		return nil, err
	}

	switch p.DType {
	case "float32":
		if len(raw) != n*4 {
			return nil, fmt.Errorf("tensor data length %d != %d for shape %v", len(raw), n*4, p.Shape)
		}
		data := make([]float32, n)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return tensor.NewFloat32View(data, p.Shape, strides)
	case "float64":
		if len(raw) != n*8 {
			return nil, fmt.Errorf("tensor data length %d != %d for shape %v", len(raw), n*8, p.Shape)
		}
		data := make([]float64, n)
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return tensor.NewFloat64View(data, p.Shape, strides)
	case "int32":
		if len(raw) != n*4 {
			return nil, fmt.Errorf("tensor data length %d != %d for shape %v", len(raw), n*4, p.Shape)
		}
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return tensor.NewInt32View(data, p.Shape, strides)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %q", p.DType)
	}
}

// validateStrides 确保最大可达偏移 Σ (shape[i]-1)·strides[i] 落在
// n 个元素之内；负 stride 直接拒绝
func validateStrides(shape, strides []int, n int) error {
	if len(strides) != len(shape) {
		return fmt.Errorf("tensor strides rank %d != shape rank %d", len(strides), len(shape))
	}
	maxOff := 0
	for i, dim := range shape {
		s := strides[i]
		if s < 0 || s > maxTensorElems {
			return fmt.Errorf("invalid tensor stride %d at axis %d", s, i)
		}
		if dim > 0 {
			maxOff += (dim - 1) * s
		}
	}
	if n > 0 && maxOff >= n {
		return fmt.Errorf("tensor strides %v reach offset %d beyond %d elements", strides, maxOff, n)
	}
	return nil
}
