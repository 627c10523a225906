package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/annel0/endless-terrain/internal/compute"
	"github.com/annel0/endless-terrain/internal/config"
	"github.com/annel0/endless-terrain/internal/export"
	"github.com/annel0/endless-terrain/internal/texture"
	"github.com/annel0/endless-terrain/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration (default $TERRAIN_CONFIG)")
		mode       = flag.String("mode", "", "Draw mode: noise, colour, mesh (default from config)")
		out        = flag.String("out", "map.png", "PNG output path")
		objPath    = flag.String("obj", "", "OBJ output path (mesh mode only)")
		compress   = flag.Bool("zstd", false, "Compress OBJ with zstd")
		size       = flag.Int("size", 0, "Thumbnail size of the larger side (0 = full size)")
		seed       = flag.Int64("seed", 0, "Override noise seed")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *seed != 0 {
		cfg.Noise.Seed = *seed
	}
	if *mode != "" {
		cfg.Map.DrawMode = *mode
	}

	settings, err := cfg.GeneratorSettings()
	if err != nil {
		log.Fatalf("❌ Invalid generator settings: %v", err)
	}
	drawMode, err := cfg.DrawMode()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *objPath != "" {
		drawMode = world.DrawMesh
	}

	queue := compute.NewQueue(compute.WithExecutor(compute.NewGoroutineExecutor()))
	defer queue.Close()
	gen := world.NewMapGenerator(settings, queue, nil)

	start := time.Now()
	preview, err := gen.DrawMapInEditor(drawMode)
	if err != nil {
		log.Fatalf("❌ Generation failed: %v", err)
	}
	fmt.Printf("🗺️  %s %dx%d generated in %s\n", drawMode, preview.MapData.Width(), preview.MapData.Height(), time.Since(start).Round(time.Millisecond))

	if err := writePNG(*out, preview, *size); err != nil {
		log.Fatalf("❌ %v", err)
	}

	if *objPath != "" {
		name := strings.TrimSuffix(*objPath, ".obj")
		written, err := export.WriteOBJFile(*objPath, preview.Mesh, export.OBJOptions{Name: name, Normals: true}, *compress)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		printSize(written)
	}
}

func writePNG(path string, preview *world.Preview, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	img := preview.Texture
	if size > 0 {
		if err := texture.EncodePNG(f, texture.Thumbnail(img, size)); err != nil {
			return err
		}
	} else if err := texture.EncodePNG(f, img); err != nil {
		return err
	}
	printSize(path)
	return nil
}

func printSize(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	fmt.Printf("💾 %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
}
