package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет целочисленные 2D координаты (координаты чанка в сетке)
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Equals проверяет равенство по обеим компонентам
func (v Vec2) Equals(other Vec2) bool {
	return v.X == other.X && v.Y == other.Y
}

// ToFloat переводит координаты сетки в мировые, умножая на размер ячейки
func (v Vec2) ToFloat(cell float64) Vec2Float {
	return Vec2Float{X: float64(v.X) * cell, Y: float64(v.Y) * cell}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (v Vec2) String() string {
	return fmt.Sprintf("%d:%d", v.X, v.Y)
}
