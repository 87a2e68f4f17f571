// Package chroma keys out the maximal-brightness region of a mask image
// through a procedurally generated color lookup cube and composites a photo
// through the resulting transparency.
package chroma

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// DefaultDimension is the customary per-axis resolution of the lookup cube.
const DefaultDimension = 64

// ErrFilter reports that a keying or compositing stage could not produce
// an output image.
var ErrFilter = errors.New("chroma: filter unavailable")

// Cube is an N³ premultiplied-RGBA color lookup table. It maps any
// maximal-brightness color to fully transparent and every other color to
// itself. Immutable after generation.
type Cube struct {
	dim  int
	data []float32
}

// Generate builds the cube for the given per-axis dimension.
//
// 枚举顺序是表的线性索引约定，不能改：z（蓝）最外层，y（绿）中间，
// x（红）最内层，每个格点依次写 R、G、B、A。消费方按
// ((z*N + y)*N + x)*4 + component 索引。
func Generate(n int) (*Cube, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: cube dimension %d", ErrFilter, n)
	}

	data := make([]float32, n*n*n*4)
	i := 0
	for z := 0; z < n; z++ {
		b := float64(z) / float64(n-1)
		for y := 0; y < n; y++ {
			g := float64(y) / float64(n-1)
			for x := 0; x < n; x++ {
				r := float64(x) / float64(n-1)

				// HSB 的明度分量；明度为 1 的颜色即被键出的背景色
				brightness := math.Max(r, math.Max(g, b))
				alpha := 1.0
				if brightness == 1 {
					alpha = 0
				}

				data[i] = float32(r * alpha)
				data[i+1] = float32(g * alpha)
				data[i+2] = float32(b * alpha)
				data[i+3] = float32(alpha)
				i += 4
			}
		}
	}

	return &Cube{dim: n, data: data}, nil
}

var (
	cubeMu sync.Mutex
	cubes  = map[int]*Cube{}
)

// Shared returns a process-wide memoized cube for the dimension. The cube
// is a pure function of n, so sharing one read-only instance is safe.
func Shared(n int) (*Cube, error) {
	cubeMu.Lock()
	defer cubeMu.Unlock()

	if c, ok := cubes[n]; ok {
		return c, nil
	}
	c, err := Generate(n)
	if err != nil {
		return nil, err
	}
	cubes[n] = c
	return c, nil
}

// Dim returns the per-axis resolution.
func (c *Cube) Dim() int { return c.dim }

// Data returns the raw table. The slice must not be modified.
func (c *Cube) Data() []float32 { return c.data }

// entry returns the premultiplied RGBA tuple at an exact grid point.
func (c *Cube) entry(x, y, z int) (r, g, b, a float64) {
	i := ((z*c.dim+y)*c.dim + x) * 4
	return float64(c.data[i]), float64(c.data[i+1]), float64(c.data[i+2]), float64(c.data[i+3])
}

// Lookup maps a normalized color through the cube with trilinear
// interpolation. Inputs are clamped to [0, 1]; the result is
// premultiplied RGBA.
func (c *Cube) Lookup(r, g, b float64) (or, og, ob, oa float64) {
	n := c.dim
	x0, x1, tx := lattice(r, n)
	y0, y1, ty := lattice(g, n)
	z0, z1, tz := lattice(b, n)

	// 8 个相邻格点的三线性插值
	var acc [4]float64
	corners := [8]struct {
		x, y, z int
		w       float64
	}{
		{x0, y0, z0, (1 - tx) * (1 - ty) * (1 - tz)},
		{x1, y0, z0, tx * (1 - ty) * (1 - tz)},
		{x0, y1, z0, (1 - tx) * ty * (1 - tz)},
		{x1, y1, z0, tx * ty * (1 - tz)},
		{x0, y0, z1, (1 - tx) * (1 - ty) * tz},
		{x1, y0, z1, tx * (1 - ty) * tz},
		{x0, y1, z1, (1 - tx) * ty * tz},
		{x1, y1, z1, tx * ty * tz},
	}
	for _, p := range corners {
		if p.w == 0 {
			continue
		}
		cr, cg, cb, ca := c.entry(p.x, p.y, p.z)
		acc[0] += cr * p.w
		acc[1] += cg * p.w
		acc[2] += cb * p.w
		acc[3] += ca * p.w
	}
	return acc[0], acc[1], acc[2], acc[3]
}

// lattice maps a normalized value to its bracketing grid indices and
// interpolation fraction.
func lattice(v float64, n int) (lo, hi int, t float64) {
	if v <= 0 {
		return 0, 0, 0
	}
	if v >= 1 {
		return n - 1, n - 1, 0
	}
	f := v * float64(n-1)
	lo = int(f)
	hi = lo + 1
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi, f - float64(lo)
}
