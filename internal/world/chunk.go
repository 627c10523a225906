package world

import (
	"image"

	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/vec"
)

// ChunkState: стадия конвейера генерации чанка
type ChunkState int

const (
	Unrequested ChunkState = iota
	MapDataPending
	MeshPending
	Ready
)

// String возвращает имя стадии
func (s ChunkState) String() string {
	switch s {
	case MapDataPending:
		return "map_data_pending"
	case MeshPending:
		return "mesh_pending"
	case Ready:
		return "ready"
	default:
		return "unrequested"
	}
}

// Renderable: отображаемый объект чанка
type Renderable interface {
	SetVisible(visible bool)
	IsVisible() bool
	SetMesh(m *mesh.Data, tex *image.RGBA)
}

// Releaser реализуют объекты, которым нужно освободить ресурсы при выгрузке чанка
type Releaser interface {
	Release()
}

// RenderableFactory создаёт отображаемый объект для нового чанка
type RenderableFactory func(key vec.Vec2, position vec.Vec2Float) Renderable

// SceneNode: Renderable без графики, для headless-режима и тестов
type SceneNode struct {
	Key      vec.Vec2
	Position vec.Vec2Float

	visible  bool
	mesh     *mesh.Data
	texture  *image.RGBA
	released bool
}

// NewSceneNode подходит в качестве RenderableFactory
func NewSceneNode(key vec.Vec2, position vec.Vec2Float) Renderable {
	return &SceneNode{Key: key, Position: position}
}

func (n *SceneNode) SetVisible(visible bool) { n.visible = visible }
func (n *SceneNode) IsVisible() bool         { return n.visible }

func (n *SceneNode) SetMesh(m *mesh.Data, tex *image.RGBA) {
	n.mesh = m
	n.texture = tex
}

// Mesh возвращает назначенный меш или nil
func (n *SceneNode) Mesh() *mesh.Data { return n.mesh }

// Texture возвращает назначенную текстуру или nil
func (n *SceneNode) Texture() *image.RGBA { return n.texture }

func (n *SceneNode) Release() {
	n.visible = false
	n.mesh = nil
	n.texture = nil
	n.released = true
}

// Released сообщает, был ли узел освобождён
func (n *SceneNode) Released() bool { return n.released }

// ChunkRecord: состояние одного чанка в рабочем наборе стримера
type ChunkRecord struct {
	Key        vec.Vec2
	Position   vec.Vec2Float // центр чанка в мировых координатах
	Bounds     vec.Bounds
	State      ChunkState
	MapData    *terrain.MapData
	Mesh       *mesh.Data
	Renderable Renderable

	visible bool
}

func newChunkRecord(key vec.Vec2, size float64, r Renderable) *ChunkRecord {
	pos := key.ToFloat(size)
	return &ChunkRecord{
		Key:        key,
		Position:   pos,
		Bounds:     vec.NewBounds(pos, size),
		State:      Unrequested,
		Renderable: r,
	}
}

// Visible сообщает текущую видимость чанка
func (c *ChunkRecord) Visible() bool { return c.visible }

func (c *ChunkRecord) setVisible(v bool) {
	c.visible = v
	c.Renderable.SetVisible(v)
}

// noiseCentre: смещение шума чанка: ось Y карты идёт против мировой Z
func (c *ChunkRecord) noiseCentre() vec.Vec2Float {
	return vec.Vec2Float{X: c.Position.X, Y: -c.Position.Y}
}
