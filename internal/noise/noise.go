// Package noise строит нормализованные карты высот из многооктавного когерентного шума.
package noise

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/annel0/endless-terrain/internal/vec"
)

const (
	// MinScale подставляется вместо неположительного масштаба
	MinScale = 0.0001

	// OctaveJitter ограничивает случайное смещение каждой октавы
	OctaveJitter = 100000
)

// NormalizeMode определяет способ приведения суммы октав к [0, 1]
type NormalizeMode int

const (
	// NormalizeLocal растягивает наблюдаемые min/max карты на [0, 1]
	NormalizeLocal NormalizeMode = iota
	// NormalizeGlobal делит на теоретическую сумму амплитуд, одинаковую для всех чанков
	NormalizeGlobal
)

// String возвращает имя режима
func (m NormalizeMode) String() string {
	if m == NormalizeGlobal {
		return "global"
	}
	return "local"
}

// ParseNormalizeMode разбирает режим нормализации из конфигурации
func ParseNormalizeMode(s string) (NormalizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return NormalizeLocal, nil
	case "global":
		return NormalizeGlobal, nil
	default:
		return NormalizeLocal, fmt.Errorf("неизвестный режим нормализации %q", s)
	}
}

// Params: параметры генерации шума
type Params struct {
	Seed        int64
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Offset      vec.Vec2Float
	Normalize   NormalizeMode
	Algorithm   Algorithm
}

// Clamped возвращает копию параметров с приведёнными к допустимым значениям полями
func (p Params) Clamped() Params {
	if p.Scale <= 0 {
		p.Scale = MinScale
	}
	if p.Octaves < 0 {
		p.Octaves = 0
	}
	if p.Lacunarity < 1 {
		p.Lacunarity = 1
	}
	if p.Persistence < 0 {
		p.Persistence = 0
	}
	if p.Persistence > 1 {
		p.Persistence = 1
	}
	return p
}

// WithOffset возвращает параметры со сдвинутым смещением
func (p Params) WithOffset(delta vec.Vec2Float) Params {
	p.Offset = p.Offset.Add(delta)
	return p
}

// OctaveOffsets выводит смещения октав из сида. Результат детерминирован.
func OctaveOffsets(seed int64, octaves int) []vec.Vec2Float {
	if octaves < 0 {
		octaves = 0
	}
	prng := rand.New(rand.NewSource(seed))
	offsets := make([]vec.Vec2Float, octaves)
	for i := range offsets {
		offsets[i] = vec.Vec2Float{
			X: float64(prng.Intn(2*OctaveJitter) - OctaveJitter),
			Y: float64(prng.Intn(2*OctaveJitter) - OctaveJitter),
		}
	}
	return offsets
}

// MaxAmplitude: теоретическая сумма амплитуд всех октав
func MaxAmplitude(octaves int, persistence float64) float64 {
	sum := 0.0
	amplitude := 1.0
	for i := 0; i < octaves; i++ {
		sum += amplitude
		amplitude *= persistence
	}
	return sum
}

// HeightMap: неизменяемая карта высот в [0, 1], построчно
type HeightMap struct {
	Width  int
	Height int
	Values []float64
}

// At возвращает высоту ячейки (x, y)
func (h *HeightMap) At(x, y int) float64 {
	return h.Values[y*h.Width+x]
}

// MinMax возвращает наименьшее и наибольшее значение карты
func (h *HeightMap) MinMax() (float64, float64) {
	if len(h.Values) == 0 {
		return 0, 0
	}
	min, max := h.Values[0], h.Values[0]
	for _, v := range h.Values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Generate строит карту высот width x height.
// Нулевые и отрицательные размеры приводятся к 1.
func Generate(width, height int, params Params) *HeightMap {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p := params.Clamped()

	sampler := NewSampler(p.Algorithm, p.Seed)
	octaveOffsets := OctaveOffsets(p.Seed, p.Octaves)

	halfWidth := float64(width) / 2
	halfHeight := float64(height) / 2

	values := make([]float64, width*height)
	minValue := math.Inf(1)
	maxValue := math.Inf(-1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			amplitude := 1.0
			frequency := 1.0
			value := 0.0

			baseX := (float64(x) - halfWidth + p.Offset.X) / p.Scale
			baseY := (float64(y) - halfHeight + p.Offset.Y) / p.Scale

			for o := 0; o < p.Octaves; o++ {
				sampleX := baseX*frequency + octaveOffsets[o].X
				sampleY := baseY*frequency + octaveOffsets[o].Y

				value += sampler.Sample2D(sampleX, sampleY) * amplitude

				amplitude *= p.Persistence
				frequency *= p.Lacunarity
			}

			values[y*width+x] = value
			if value < minValue {
				minValue = value
			}
			if value > maxValue {
				maxValue = value
			}
		}
	}

	switch p.Normalize {
	case NormalizeGlobal:
		normalizeGlobal(values, MaxAmplitude(p.Octaves, p.Persistence))
	default:
		normalizeLocal(values, minValue, maxValue)
	}

	return &HeightMap{Width: width, Height: height, Values: values}
}

// normalizeLocal: одно линейное преобразование на всю карту
func normalizeLocal(values []float64, min, max float64) {
	span := max - min
	if span == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i, v := range values {
		values[i] = (v - min) / span
	}
}

func normalizeGlobal(values []float64, amplitude float64) {
	if amplitude == 0 {
		for i := range values {
			values[i] = 0.5
		}
		return
	}
	for i, v := range values {
		n := (v/amplitude + 1) / 2
		values[i] = math.Min(1, math.Max(0, n))
	}
}
