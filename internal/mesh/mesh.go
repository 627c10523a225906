// Package mesh строит треугольную сетку поверхности по карте высот.
package mesh

import (
	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLOD: наибольший поддерживаемый уровень детализации
const MaxLOD = 6

// Data: вершины, UV и индексы треугольников (тройками)
type Data struct {
	Vertices        []mgl32.Vec3
	UVs             []mgl32.Vec2
	Triangles       []uint32
	VerticesPerLine int
	LinesCount      int
}

// TriangleCount возвращает число треугольников
func (d *Data) TriangleCount() int { return len(d.Triangles) / 3 }

// ClampLOD приводит уровень детализации к [0, MaxLOD]
func ClampLOD(lod int) int {
	if lod < 0 {
		return 0
	}
	if lod > MaxLOD {
		return MaxLOD
	}
	return lod
}

// SimplificationIncrement: шаг выборки ячеек для уровня детализации
func SimplificationIncrement(lod int) int {
	lod = ClampLOD(lod)
	if lod == 0 {
		return 1
	}
	return lod * 2
}

// sampleIndices возвращает индексы 0, step, 2*step... и всегда последний индекс,
// чтобы габариты сетки не зависели от детализации.
func sampleIndices(n, step int) []int {
	idx := make([]int, 0, (n-1)/step+2)
	for i := 0; i < n-1; i += step {
		idx = append(idx, i)
	}
	return append(idx, n-1)
}

// Build строит сетку по карте высот.
// Y вершины = curve(h) * heightMultiplier; сетка центрирована в локальном начале координат.
func Build(hm *noise.HeightMap, heightMultiplier float64, curve Curve, lod int) *Data {
	if curve == nil {
		curve = Linear
	}

	width, height := hm.Width, hm.Height
	topLeftX := float32(width-1) / -2
	topLeftZ := float32(height-1) / 2

	step := SimplificationIncrement(lod)
	xs := sampleIndices(width, step)
	ys := sampleIndices(height, step)

	perLine := len(xs)
	lines := len(ys)

	data := &Data{
		Vertices:        make([]mgl32.Vec3, 0, perLine*lines),
		UVs:             make([]mgl32.Vec2, 0, perLine*lines),
		Triangles:       make([]uint32, 0, (perLine-1)*(lines-1)*6),
		VerticesPerLine: perLine,
		LinesCount:      lines,
	}

	for row, y := range ys {
		for col, x := range xs {
			h := curve.Evaluate(hm.At(x, y)) * heightMultiplier
			data.Vertices = append(data.Vertices, mgl32.Vec3{
				topLeftX + float32(x),
				float32(h),
				topLeftZ - float32(y),
			})
			data.UVs = append(data.UVs, mgl32.Vec2{
				float32(x) / float32(width),
				float32(y) / float32(height),
			})

			// Последний столбец и строка квадов не начинают
			if col < perLine-1 && row < lines-1 {
				a := uint32(row*perLine + col)
				b := a + 1
				c := a + uint32(perLine)
				d := c + 1
				data.Triangles = append(data.Triangles, a, d, c, d, a, b)
			}
		}
	}

	return data
}

// Normals считает нормали вершин как сумму нормалей прилежащих треугольников
func (d *Data) Normals() []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(d.Vertices))
	for i := 0; i+2 < len(d.Triangles); i += 3 {
		a, b, c := d.Triangles[i], d.Triangles[i+1], d.Triangles[i+2]
		n := d.Vertices[b].Sub(d.Vertices[a]).Cross(d.Vertices[c].Sub(d.Vertices[a]))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}

// Bounds возвращает минимальный и максимальный угол сетки
func (d *Data) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	if len(d.Vertices) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	min, max := d.Vertices[0], d.Vertices[0]
	for _, v := range d.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}
