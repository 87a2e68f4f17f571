package main

import (
	"context"
	"flag"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"

	"github.com/chaos-io/cutout/cutout"
	"github.com/chaos-io/cutout/infer"
	"github.com/chaos-io/cutout/server"
	"github.com/chaos-io/cutout/util"
)

func main() {
	var (
		inputPath = flag.String("input", "", "input image path or URL")
		outputDir = flag.String("output", "./output", "output directory")
		endpoint  = flag.String("endpoint", os.Getenv("CUTOUT_ENDPOINT"), "inference server base URL (empty = passthrough)")
		serveAddr = flag.String("serve", "", "listen address, e.g. :8080 (starts the HTTP server instead)")
		modelSize = flag.Int("model-size", 1024, "inference input long side")
	)
	flag.Parse()

	var engine infer.Engine = infer.NewPassthrough()
	if *endpoint != "" {
		engine = infer.NewRemote(*endpoint)
	}
	pipeline := cutout.New(engine, cutout.Options{ModelSize: *modelSize})

	if *serveAddr != "" {
		log.Println("serving on", *serveAddr)
		if err := server.New(pipeline, *outputDir).Run(*serveAddr); err != nil {
			log.Fatal("server stopped:", err)
		}
		return
	}

	if *inputPath == "" {
		log.Fatal("missing -input")
	}
	_ = os.MkdirAll(*outputDir, os.ModePerm)

	var img image.Image
	var err error
	if strings.HasPrefix(*inputPath, "http://") || strings.HasPrefix(*inputPath, "https://") {
		img, err = util.DownloadImage(*inputPath)
	} else {
		img, err = util.OpenImage(*inputPath)
	}
	if err != nil {
		log.Fatal("Failed to load image:", err)
	}

	out, err := pipeline.Remove(context.Background(), img)
	if err != nil {
		log.Fatal("Failed to remove background:", err)
	}

	outPath := filepath.Join(*outputDir, ksuid.New().String()+"_cutout.png")
	if err := util.SavePNG(out, outPath); err != nil {
		log.Fatal("Failed to save image:", err)
	}

	log.Println("Done! Cutout:", outPath)
}
