package world

import (
	"sync"
	"time"

	"github.com/annel0/endless-terrain/internal/vec"
)

// Viewer: источник позиции наблюдателя (ось X и мировая Z)
type Viewer interface {
	Position() vec.Vec2Float
}

// StaticViewer: неподвижный наблюдатель
type StaticViewer struct {
	Pos vec.Vec2Float
}

func (v StaticViewer) Position() vec.Vec2Float { return v.Pos }

// PathViewer движется с постоянной скоростью (единиц в секунду)
type PathViewer struct {
	mu       sync.RWMutex
	pos      vec.Vec2Float
	velocity vec.Vec2Float
}

// NewPathViewer создаёт наблюдателя в start со скоростью velocity
func NewPathViewer(start, velocity vec.Vec2Float) *PathViewer {
	return &PathViewer{pos: start, velocity: velocity}
}

// Advance сдвигает наблюдателя на velocity*dt и возвращает новую позицию
func (v *PathViewer) Advance(dt time.Duration) vec.Vec2Float {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pos = v.pos.Add(v.velocity.Mul(dt.Seconds()))
	return v.pos
}

// SetVelocity меняет скорость
func (v *PathViewer) SetVelocity(velocity vec.Vec2Float) {
	v.mu.Lock()
	v.velocity = velocity
	v.mu.Unlock()
}

func (v *PathViewer) Position() vec.Vec2Float {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pos
}
