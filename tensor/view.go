package tensor

import "fmt"

// DataType 标识 View 底层缓冲区的元素类型
type DataType int

const (
	Float64 DataType = iota
	Float32
	Int32
)

func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// View is a read-only strided view over a caller-owned numeric buffer.
// The view borrows the buffer: it never allocates, frees, or retains it
// past the decode call it backs. Strides are element offsets per axis and
// need not be contiguous or row-major.
type View struct {
	dtype   DataType
	f64     []float64
	f32     []float32
	i32     []int32
	shape   []int
	strides []int
}

func validateLayout(shape, strides []int) error {
	if len(strides) != len(shape) {
		return fmt.Errorf("%w: %d strides for %d dimensions", ErrAxis, len(strides), len(shape))
	}
	for i, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("%w: negative dimension %d at axis %d", ErrShape, dim, i)
		}
	}
	return nil
}

// NewFloat64View 基于 caller 持有的 float64 缓冲区构造视图
func NewFloat64View(data []float64, shape, strides []int) (*View, error) {
	if err := validateLayout(shape, strides); err != nil {
		return nil, err
	}
	return &View{dtype: Float64, f64: data, shape: shape, strides: strides}, nil
}

// NewFloat32View 基于 caller 持有的 float32 缓冲区构造视图
func NewFloat32View(data []float32, shape, strides []int) (*View, error) {
	if err := validateLayout(shape, strides); err != nil {
		return nil, err
	}
	return &View{dtype: Float32, f32: data, shape: shape, strides: strides}, nil
}

// NewInt32View 基于 caller 持有的 int32 缓冲区构造视图
func NewInt32View(data []int32, shape, strides []int) (*View, error) {
	if err := validateLayout(shape, strides); err != nil {
		return nil, err
	}
	return &View{dtype: Int32, i32: data, shape: shape, strides: strides}, nil
}

// ContiguousStrides 计算 row-major 连续布局的 strides
// strides[i] = 后续所有维度的乘积
func ContiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	if len(shape) == 0 {
		return strides
	}
	strides[len(shape)-1] = 1
	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

// DType returns the element kind of the backing buffer.
func (v *View) DType() DataType { return v.dtype }

// Rank returns the number of dimensions.
func (v *View) Rank() int { return len(v.shape) }

// Shape returns the per-axis sizes. The slice must not be modified.
func (v *View) Shape() []int { return v.shape }

// Strides returns the per-axis element offsets. The slice must not be modified.
func (v *View) Strides() []int { return v.strides }

// At reads the element at the given per-axis indices, converted to float64.
// Offsets are computed as sum(indices[i] * strides[i]); staying within the
// shape is the caller's responsibility.
func (v *View) At(indices ...int) float64 {
	off := 0
	for i, idx := range indices {
		off += idx * v.strides[i]
	}
	switch v.dtype {
	case Float64:
		return v.f64[off]
	case Float32:
		return float64(v.f32[off])
	case Int32:
		return float64(v.i32[off])
	default:
		panic("tensor: unknown data type")
	}
}
