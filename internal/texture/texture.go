// Package texture превращает карты высот и цветов в изображения.
package texture

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/nfnt/resize"
)

// FromColorMap создаёт изображение width x height из цветов ячеек
func FromColorMap(colors terrain.ColorMap, width, height int) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("неверный размер текстуры %dx%d", width, height)
	}
	if len(colors) != width*height {
		return nil, fmt.Errorf("карта цветов содержит %d ячеек, ожидалось %d", len(colors), width*height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, colors[y*width+x])
		}
	}
	return img, nil
}

// FromHeightMap рисует карту высот оттенками серого: 0: чёрный, 1: белый
func FromHeightMap(hm *noise.HeightMap) *image.RGBA {
	colors := make(terrain.ColorMap, hm.Width*hm.Height)
	for i, v := range hm.Values {
		g := uint8(v*255 + 0.5)
		colors[i] = color.RGBA{R: g, G: g, B: g, A: 0xff}
	}
	img, _ := FromColorMap(colors, hm.Width, hm.Height)
	return img
}

// Thumbnail масштабирует изображение до size по большей стороне без сглаживания
func Thumbnail(img image.Image, size int) image.Image {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return resize.Resize(uint(size), 0, img, resize.NearestNeighbor)
	}
	return resize.Resize(0, uint(size), img, resize.NearestNeighbor)
}

// EncodePNG пишет изображение в формате PNG
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("кодирование PNG: %w", err)
	}
	return nil
}
