package vec

import "math"

// Bounds: выровненный по осям прямоугольник, заданный центром и половиной размера
type Bounds struct {
	Center  Vec2Float
	Extents Vec2Float
}

// NewBounds создаёт прямоугольник с центром center и полным размером size
func NewBounds(center Vec2Float, size float64) Bounds {
	half := size / 2
	return Bounds{Center: center, Extents: Vec2Float{X: half, Y: half}}
}

// Min возвращает минимальный угол
func (b Bounds) Min() Vec2Float { return b.Center.Sub(b.Extents) }

// Max возвращает максимальный угол
func (b Bounds) Max() Vec2Float { return b.Center.Add(b.Extents) }

// SqrDistance: квадрат расстояния от точки до ближайшей точки прямоугольника (0 внутри)
func (b Bounds) SqrDistance(p Vec2Float) float64 {
	min, max := b.Min(), b.Max()
	dx := math.Max(0, math.Max(min.X-p.X, p.X-max.X))
	dy := math.Max(0, math.Max(min.Y-p.Y, p.Y-max.Y))
	return dx*dx + dy*dy
}

// Distance: евклидово расстояние от точки до прямоугольника
func (b Bounds) Distance(p Vec2Float) float64 {
	return math.Sqrt(b.SqrDistance(p))
}

// Contains проверяет, лежит ли точка внутри (включая границу)
func (b Bounds) Contains(p Vec2Float) bool {
	return b.SqrDistance(p) == 0
}
