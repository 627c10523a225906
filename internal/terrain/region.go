// Package terrain классифицирует высоты по регионам и собирает данные карты чанка.
package terrain

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"

	"github.com/annel0/endless-terrain/internal/noise"
)

// Region: полоса высот с цветом (вода, пляж, горы...).
// Список регионов должен идти по возрастанию Height: это обязанность вызывающего.
type Region struct {
	Name   string
	Height float64
	Color  color.RGBA
}

// ColorMap: цвета ячеек построчно, индекс y*width + x
type ColorMap []color.RGBA

// RegionIndex возвращает индекс первого региона, чья граница >= height, или -1
func RegionIndex(height float64, regions []Region) int {
	for i := range regions {
		if height <= regions[i].Height {
			return i
		}
	}
	return -1
}

// Classify раскрашивает карту высот. Ячейки выше всех границ остаются нулевого цвета.
func Classify(hm *noise.HeightMap, regions []Region) ColorMap {
	colors := make(ColorMap, hm.Width*hm.Height)
	for y := 0; y < hm.Height; y++ {
		for x := 0; x < hm.Width; x++ {
			if i := RegionIndex(hm.At(x, y), regions); i >= 0 {
				colors[y*hm.Width+x] = regions[i].Color
			}
		}
	}
	return colors
}

// ParseColor разбирает цвет вида "#rrggbb" или "#rrggbbaa"
func ParseColor(s string) (color.RGBA, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) != 6 && len(raw) != 8 {
		return color.RGBA{}, fmt.Errorf("цвет %q: ожидается #rrggbb или #rrggbbaa", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("цвет %q: %w", s, err)
	}
	c := color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

// FormatColor: обратное к ParseColor
func FormatColor(c color.RGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
