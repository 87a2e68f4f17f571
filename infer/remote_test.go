package infer

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/cutout/tensor"
)

func float32Payload(shape []int, values []float32) tensorPayload {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return tensorPayload{
		DType: "float32",
		Shape: shape,
		Data:  base64.StdEncoding.EncodeToString(raw),
	}
}

func TestRemote_Infer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/segment", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() {
			_ = file.Close()
		}()
		assert.Equal(t, "input.png", header.Filename)

		payload := float32Payload([]int{1, 2, 2}, []float32{0, 0.5, 1, 2})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	remote := NewRemote(server.URL)
	pix := make([]uint8, 2*2*4)
	view, err := remote.Infer(context.Background(), pix, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, tensor.Float32, view.DType())
	assert.Equal(t, []int{1, 2, 2}, view.Shape())

	buf, err := tensor.Decode(view, tensor.DecodeOptions{Min: 0, Max: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 64, 128, 255}, buf.Pix)
}

func TestRemote_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "inference error"}`))
	}))
	defer server.Close()

	remote := NewRemote(server.URL)
	_, err := remote.Infer(context.Background(), make([]uint8, 4), 1, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP request failed with status 500")
}

func TestTensorPayload_View(t *testing.T) {
	t.Parallel()

	t.Run("int32 with explicit strides", func(t *testing.T) {
		t.Parallel()

		raw := make([]byte, 4*4)
		for i, v := range []int32{1, 2, 3, 4} {
			binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
		}
		p := tensorPayload{
			DType:   "int32",
			Shape:   []int{2, 2},
			Strides: []int{1, 2}, // column-major
			Data:    base64.StdEncoding.EncodeToString(raw),
		}
		view, err := p.view()
		require.NoError(t, err)
		assert.Equal(t, 2.0, view.At(1, 0))
		assert.Equal(t, 3.0, view.At(0, 1))
	})

	t.Run("float64", func(t *testing.T) {
		t.Parallel()

		raw := make([]byte, 2*8)
		binary.LittleEndian.PutUint64(raw, math.Float64bits(0.25))
		binary.LittleEndian.PutUint64(raw[8:], math.Float64bits(0.75))
		p := tensorPayload{
			DType: "float64",
			Shape: []int{1, 2},
			Data:  base64.StdEncoding.EncodeToString(raw),
		}
		view, err := p.view()
		require.NoError(t, err)
		assert.Equal(t, 0.75, view.At(0, 1))
	})

	t.Run("strides reach beyond data", func(t *testing.T) {
		t.Parallel()

		// 4 个元素配上会指到 offset 100 的 strides，必须在构造视图前拒绝
		p := float32Payload([]int{1, 2, 2}, []float32{0, 0.5, 1, 2})
		p.Strides = []int{4, 100, 1}
		_, err := p.view()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strides")
	})

	t.Run("negative stride", func(t *testing.T) {
		t.Parallel()

		p := float32Payload([]int{1, 2, 2}, []float32{0, 0.5, 1, 2})
		p.Strides = []int{4, -2, 1}
		_, err := p.view()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stride")
	})

	t.Run("strides rank mismatch", func(t *testing.T) {
		t.Parallel()

		p := float32Payload([]int{1, 2, 2}, []float32{0, 0.5, 1, 2})
		p.Strides = []int{4, 1}
		_, err := p.view()
		assert.Error(t, err)
	})

	t.Run("oversized shape product", func(t *testing.T) {
		t.Parallel()

		p := tensorPayload{
			DType: "float32",
			Shape: []int{1 << 20, 1 << 20},
			Data:  "",
		}
		_, err := p.view()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})

	t.Run("negative dimension", func(t *testing.T) {
		t.Parallel()

		p := tensorPayload{DType: "float32", Shape: []int{-1, 2}, Data: ""}
		_, err := p.view()
		assert.Error(t, err)
	})

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()

		p := tensorPayload{
			DType: "float32",
			Shape: []int{2, 2},
			Data:  base64.StdEncoding.EncodeToString(make([]byte, 4)),
		}
		_, err := p.view()
		assert.Error(t, err)
	})

	t.Run("unknown dtype", func(t *testing.T) {
		t.Parallel()

		p := tensorPayload{DType: "int64", Shape: []int{1, 1}, Data: ""}
		_, err := p.view()
		assert.Error(t, err)
	})
}

func TestPassthrough_AllWhite(t *testing.T) {
	t.Parallel()

	view, err := NewPassthrough().Infer(context.Background(), make([]uint8, 3*2*4), 3, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, view.Shape())
	buf, err := tensor.Decode(view, tensor.DecodeOptions{Min: 0, Max: 1})
	require.NoError(t, err)
	for _, b := range buf.Pix {
		assert.Equal(t, uint8(255), b)
	}
}
