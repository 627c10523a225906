package world

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/annel0/endless-terrain/internal/compute"
	"github.com/annel0/endless-terrain/internal/logging"
	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/texture"
	"github.com/annel0/endless-terrain/internal/vec"
)

// MapChunkSize: сторона карты высот чанка в вершинах.
// 241 = 240 + 1 делится на все шаги упрощения 2, 4, …, 12.
const MapChunkSize = 241

// DrawMode определяет, что строит предпросмотр
type DrawMode int

const (
	DrawNoiseMap DrawMode = iota
	DrawColourMap
	DrawMesh
)

// String возвращает имя режима
func (m DrawMode) String() string {
	switch m {
	case DrawColourMap:
		return "colour"
	case DrawMesh:
		return "mesh"
	default:
		return "noise"
	}
}

// ParseDrawMode разбирает режим из конфигурации или запроса
func ParseDrawMode(s string) (DrawMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "noise", "noisemap":
		return DrawNoiseMap, nil
	case "colour", "color", "colourmap", "colormap":
		return DrawColourMap, nil
	case "mesh":
		return DrawMesh, nil
	default:
		return DrawNoiseMap, fmt.Errorf("неизвестный режим отрисовки %q", s)
	}
}

// Settings: снимок параметров генерации. После Apply не изменяется.
type Settings struct {
	Noise            noise.Params
	Regions          []terrain.Region
	HeightMultiplier float64
	HeightCurve      mesh.Curve
	LevelOfDetail    int

	MapChunkSize  int // сторона карты чанка
	PreviewWidth  int // размеры карты предпросмотра
	PreviewHeight int
}

// DefaultSettings возвращает параметры по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Noise: noise.Params{
			Seed:        1,
			Scale:       50,
			Octaves:     4,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		HeightMultiplier: 20,
		HeightCurve:      mesh.Linear,
		MapChunkSize:     MapChunkSize,
		PreviewWidth:     MapChunkSize,
		PreviewHeight:    MapChunkSize,
	}
}

// Normalized приводит значения к допустимым диапазонам
func (s Settings) Normalized() Settings {
	s.Noise = s.Noise.Clamped()
	s.LevelOfDetail = mesh.ClampLOD(s.LevelOfDetail)
	if s.HeightCurve == nil {
		s.HeightCurve = mesh.Linear
	}
	if s.MapChunkSize < 2 {
		s.MapChunkSize = MapChunkSize
	}
	if s.PreviewWidth < 1 {
		s.PreviewWidth = s.MapChunkSize
	}
	if s.PreviewHeight < 1 {
		s.PreviewHeight = s.MapChunkSize
	}
	s.Regions = append([]terrain.Region(nil), s.Regions...)
	return s
}

// ChunkSize: сторона чанка в мировых единицах
func (s Settings) ChunkSize() float64 {
	return float64(s.MapChunkSize - 1)
}

// Preview: результат синхронной генерации для редактора
type Preview struct {
	Mode    DrawMode
	MapData terrain.MapData
	Texture *image.RGBA
	Mesh    *mesh.Data
}

// MapGenerator строит данные карт и мешей синхронно или через очередь вычислений
type MapGenerator struct {
	settings atomic.Pointer[Settings]
	preview  atomic.Pointer[Preview]
	queue    *compute.Queue
	logger   *logging.Logger
}

// NewMapGenerator создаёт генератор. queue обязателен для асинхронных запросов.
func NewMapGenerator(settings Settings, queue *compute.Queue, logger *logging.Logger) *MapGenerator {
	g := &MapGenerator{
		queue:  queue,
		logger: logging.OrDefault(logger),
	}
	g.Apply(settings)
	return g
}

// Apply атомарно заменяет параметры. Уже запущенные задачи используют старый снимок.
func (g *MapGenerator) Apply(settings Settings) {
	s := settings.Normalized()
	g.settings.Store(&s)
	g.logger.Debug("⚙️ Параметры генерации обновлены: seed=%d scale=%.3f octaves=%d lod=%d",
		s.Noise.Seed, s.Noise.Scale, s.Noise.Octaves, s.LevelOfDetail)
}

// Settings возвращает текущий снимок параметров
func (g *MapGenerator) Settings() Settings {
	return *g.settings.Load()
}

// Queue возвращает очередь, через которую доставляются результаты
func (g *MapGenerator) Queue() *compute.Queue {
	return g.queue
}

// GenerateMapData синхронно строит карту чанка со смещением шума centre
func (g *MapGenerator) GenerateMapData(centre vec.Vec2Float) terrain.MapData {
	return generateMapData(g.Settings(), centre)
}

func generateMapData(s Settings, centre vec.Vec2Float) terrain.MapData {
	return terrain.GenerateMapData(s.MapChunkSize, s.MapChunkSize, s.Noise.WithOffset(centre), s.Regions)
}

func buildMesh(s Settings, md terrain.MapData) *mesh.Data {
	return mesh.Build(md.HeightMap, s.HeightMultiplier, s.HeightCurve, s.LevelOfDetail)
}

// RequestMapData ставит построение карты в очередь; onResult вызывается из Drain.
// onError может быть nil.
func (g *MapGenerator) RequestMapData(centre vec.Vec2Float, onResult func(terrain.MapData), onError func(error)) uuid.UUID {
	s := g.Settings()
	return compute.SubmitWithError(g.queue, "map_data", func(ctx context.Context) (terrain.MapData, error) {
		return generateMapData(s, centre), nil
	}, onResult, onError)
}

// RequestMeshData ставит построение меша по готовой карте в очередь
func (g *MapGenerator) RequestMeshData(md terrain.MapData, onResult func(*mesh.Data), onError func(error)) uuid.UUID {
	s := g.Settings()
	return compute.SubmitWithError(g.queue, "mesh_data", func(ctx context.Context) (*mesh.Data, error) {
		if md.HeightMap == nil {
			return nil, fmt.Errorf("пустая карта высот")
		}
		return buildMesh(s, md), nil
	}, onResult, onError)
}

// DrawMapInEditor синхронно строит карту предпросмотра в начале координат шума
func (g *MapGenerator) DrawMapInEditor(mode DrawMode) (*Preview, error) {
	s := g.Settings()
	md := terrain.GenerateMapData(s.PreviewWidth, s.PreviewHeight, s.Noise, s.Regions)

	p := &Preview{Mode: mode, MapData: md}
	switch mode {
	case DrawNoiseMap:
		p.Texture = texture.FromHeightMap(md.HeightMap)
	case DrawColourMap, DrawMesh:
		tex, err := texture.FromColorMap(md.ColorMap, md.Width(), md.Height())
		if err != nil {
			return nil, fmt.Errorf("текстура предпросмотра: %w", err)
		}
		p.Texture = tex
		if mode == DrawMesh {
			p.Mesh = buildMesh(s, md)
		}
	default:
		return nil, fmt.Errorf("неизвестный режим отрисовки %d", mode)
	}

	g.preview.Store(p)
	g.logger.Info("🗺️ Предпросмотр %s %dx%d построен", mode, md.Width(), md.Height())
	return p, nil
}

// LastPreview возвращает последний построенный предпросмотр или nil
func (g *MapGenerator) LastPreview() *Preview {
	return g.preview.Load()
}
