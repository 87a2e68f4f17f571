package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/cutout/cutout"
	"github.com/chaos-io/cutout/infer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pipeline := cutout.New(infer.NewPassthrough(), cutout.Options{})
	return New(pipeline, t.TempDir())
}

func uploadBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func encodeTestPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 100
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_Cutout(t *testing.T) {
	s := newTestServer(t)

	body, contentType := uploadBody(t, "image", encodeTestPhoto(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cutout", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Cutout-Name"))

	out, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, out.Bounds().Dx())

	// Passthrough 引擎下照片原样保留
	r, _, _, a := out.At(4, 4).RGBA()
	assert.InDelta(t, 100, int(r>>8), 2)
	assert.InDelta(t, 255, int(a>>8), 1)
}

func TestServer_MissingImageField(t *testing.T) {
	s := newTestServer(t)

	body, contentType := uploadBody(t, "wrong", encodeTestPhoto(t))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cutout", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_UndecodableImage(t *testing.T) {
	s := newTestServer(t)

	body, contentType := uploadBody(t, "image", []byte("not an image"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cutout", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Gray_Example(t *testing.T) {
	// 灰度 PNG 也能作为输入
	s := newTestServer(t)

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	img.SetGray(0, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	body, contentType := uploadBody(t, "image", buf.Bytes())
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/cutout", body)
	req.Header.Set("Content-Type", contentType)
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
