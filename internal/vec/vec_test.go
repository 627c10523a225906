package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_RoundDiv(t *testing.T) {
	assert.Equal(t, Vec2{X: 0, Y: 0}, Vec2Float{X: 100, Y: -100}.RoundDiv(240))
	assert.Equal(t, Vec2{X: 1, Y: -1}, Vec2Float{X: 130, Y: -130}.RoundDiv(240))
	assert.Equal(t, Vec2{X: 2, Y: 0}, Vec2Float{X: 480, Y: 0}.RoundDiv(240))
}

func TestVec2_EqualsAndMapKey(t *testing.T) {
	a := Vec2{X: 3, Y: -2}
	b := Vec2{X: 3, Y: -2}
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(Vec2{X: -2, Y: 3}))

	m := map[Vec2]int{a: 1}
	assert.Equal(t, 1, m[b], "Одинаковые координаты должны давать один ключ")
	assert.Equal(t, "3:-2", a.String())
}

func TestBounds_Distance(t *testing.T) {
	b := NewBounds(Vec2Float{X: 240, Y: 0}, 240)

	assert.Equal(t, 0.0, b.Distance(Vec2Float{X: 240, Y: 10}), "Точка внутри")
	assert.InDelta(t, 120.0, b.Distance(Vec2Float{X: 0, Y: 0}), 1e-9)
	assert.InDelta(t, math.Sqrt(2)*10, b.Distance(Vec2Float{X: 370, Y: 130}), 1e-9)
	assert.True(t, b.Contains(Vec2Float{X: 120, Y: 120}), "Граница считается внутренней")
}
