package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/vec"
)

func TestSettings_Normalized(t *testing.T) {
	s := Settings{LevelOfDetail: 9}
	n := s.Normalized()
	assert.Equal(t, mesh.MaxLOD, n.LevelOfDetail)
	assert.Equal(t, MapChunkSize, n.MapChunkSize)
	assert.Equal(t, MapChunkSize, n.PreviewWidth)
	assert.NotNil(t, n.HeightCurve)
	assert.Equal(t, 240.0, n.ChunkSize())
}

func TestMapGenerator_RequestsDeliverThroughDrain(t *testing.T) {
	gen := newTestGenerator(t)

	var md *terrain.MapData
	var m *mesh.Data
	gen.RequestMapData(vec.Vec2Float{}, func(d terrain.MapData) {
		md = &d
		gen.RequestMeshData(d, func(data *mesh.Data) { m = data }, nil)
	}, nil)

	deadline := time.Now().Add(10 * time.Second)
	for m == nil {
		gen.Queue().Drain()
		require.False(t, time.Now().After(deadline), "результаты не доставлены")
		time.Sleep(time.Millisecond)
	}

	require.NotNil(t, md)
	assert.Equal(t, 241, md.Width())
	direct := gen.GenerateMapData(vec.Vec2Float{})
	assert.Equal(t, direct.HeightMap.Values, md.HeightMap.Values, "асинхронный и синхронный путь совпадают")
	assert.Equal(t, 61, m.VerticesPerLine)
}

func TestMapGenerator_MeshErrorForEmptyMap(t *testing.T) {
	gen := newTestGenerator(t)

	var gotErr error
	gen.RequestMeshData(terrain.MapData{}, func(*mesh.Data) {
		t.Error("меш не должен строиться без карты")
	}, func(err error) { gotErr = err })

	deadline := time.Now().Add(5 * time.Second)
	for gotErr == nil {
		gen.Queue().Drain()
		require.False(t, time.Now().After(deadline))
		time.Sleep(time.Millisecond)
	}
	assert.Error(t, gotErr)
}

func TestMapGenerator_DrawMapInEditor(t *testing.T) {
	gen := newTestGenerator(t)
	s := gen.Settings()
	s.PreviewWidth, s.PreviewHeight = 64, 32
	gen.Apply(s)

	assert.Nil(t, gen.LastPreview())

	p, err := gen.DrawMapInEditor(DrawNoiseMap)
	require.NoError(t, err)
	assert.Equal(t, 64, p.Texture.Bounds().Dx())
	assert.Equal(t, 32, p.Texture.Bounds().Dy())
	assert.Nil(t, p.Mesh)

	p, err = gen.DrawMapInEditor(DrawMesh)
	require.NoError(t, err)
	require.NotNil(t, p.Mesh)
	assert.Same(t, p, gen.LastPreview())

	_, err = gen.DrawMapInEditor(DrawMode(42))
	assert.Error(t, err)
}

func TestMapGenerator_ApplyKeepsSnapshot(t *testing.T) {
	gen := newTestGenerator(t)
	before := gen.Settings()

	changed := before
	changed.Noise.Seed = 99
	gen.Apply(changed)

	assert.Equal(t, int64(1), before.Noise.Seed)
	assert.Equal(t, int64(99), gen.Settings().Noise.Seed)
}

func TestParseDrawMode(t *testing.T) {
	m, err := ParseDrawMode("Colour")
	require.NoError(t, err)
	assert.Equal(t, DrawColourMap, m)

	m, err = ParseDrawMode("mesh")
	require.NoError(t, err)
	assert.Equal(t, "mesh", m.String())

	_, err = ParseDrawMode("voxel")
	assert.Error(t, err)
}
