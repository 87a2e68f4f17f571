// Package server exposes the cutout pipeline over HTTP.
package server

import (
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/cutout/cutout"
)

// maxAge 超过该时长的输出文件会被定时清理
const maxAge = 24 * time.Hour

type Server struct {
	pipeline *cutout.Pipeline
	outDir   string
	router   *gin.Engine
	cron     *cron.Cron
}

func New(pipeline *cutout.Pipeline, outDir string) *Server {
	s := &Server{
		pipeline: pipeline,
		outDir:   outDir,
		router:   gin.Default(),
		cron:     cron.New(),
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.POST("/api/cutout", s.handleCutout)

	_, _ = s.cron.AddFunc("@hourly", s.sweepOutputs)
	return s
}

// Router 暴露给测试
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Run(addr string) error {
	_ = os.MkdirAll(s.outDir, os.ModePerm)
	s.cron.Start()
	defer s.cron.Stop()
	return s.router.Run(addr)
}

func (s *Server) handleCutout(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image field"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "undecodable image"})
		return
	}

	out, err := s.pipeline.Remove(c.Request.Context(), img)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	name := ksuid.New().String() + "_cutout.png"
	path := filepath.Join(s.outDir, name)
	if err := s.savePNG(out, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("cutout done", "file", name)
	c.Header("X-Cutout-Name", name)
	c.File(path)
}

func (s *Server) savePNG(img image.Image, path string) error {
	_ = os.MkdirAll(s.outDir, os.ModePerm)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}

// sweepOutputs 清理过期输出
func (s *Server) sweepOutputs() {
	entries, err := os.ReadDir(s.outDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(s.outDir, e.Name()))
			slog.Debug("swept output", "file", e.Name())
		}
	}
}
