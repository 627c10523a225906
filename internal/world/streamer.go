package world

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/endless-terrain/internal/eventbus"
	"github.com/annel0/endless-terrain/internal/logging"
	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/texture"
	"github.com/annel0/endless-terrain/internal/vec"
)

const eventSource = "world.streamer"

// StreamerSettings: параметры рабочего набора чанков
type StreamerSettings struct {
	MaxViewDistance float64 // чанки ближе этого расстояния видимы
	EvictDistance   float64 // 0: не выгружать; иначе не меньше MaxViewDistance
}

// DefaultStreamerSettings возвращает параметры по умолчанию
func DefaultStreamerSettings() StreamerSettings {
	return StreamerSettings{MaxViewDistance: 450}
}

// StreamerStats: счётчики стримера, безопасные для чтения из других горутин
type StreamerStats struct {
	Chunks       int `json:"chunks"`
	Visible      int `json:"visible"`
	Pending      int `json:"pending"`
	Ready        int `json:"ready"`
	Evicted      int `json:"evicted"`
	QueuePending int `json:"queue_pending"`
}

// StreamerOption настраивает ChunkStreamer
type StreamerOption func(*ChunkStreamer)

// WithStreamerLogger задаёт логгер стримера
func WithStreamerLogger(l *logging.Logger) StreamerOption {
	return func(s *ChunkStreamer) { s.logger = l }
}

// WithStreamerMetrics регистрирует gauge'и рабочего набора в reg
func WithStreamerMetrics(reg prometheus.Registerer) StreamerOption {
	return func(s *ChunkStreamer) { s.metrics = newStreamerMetrics(reg) }
}

// ChunkStreamer поддерживает набор чанков вокруг наблюдателя.
//
// Все методы, кроме Stats, должны вызываться из одной горутины-владельца:
// она же опустошает очередь вычислений через Tick.
type ChunkStreamer struct {
	gen      *MapGenerator
	viewer   Viewer
	factory  RenderableFactory
	settings StreamerSettings
	bus      eventbus.EventBus
	logger   *logging.Logger
	metrics  *streamerMetrics

	chunkSize     float64
	visibleRadius int

	viewerPos   vec.Vec2Float
	chunks      map[vec.Vec2]*ChunkRecord
	visibleLast []*ChunkRecord

	statChunks  atomic.Int64
	statVisible atomic.Int64
	statPending atomic.Int64
	statReady   atomic.Int64
	statEvicted atomic.Int64
}

// NewChunkStreamer создаёт стример. factory == nil означает SceneNode, bus может быть nil.
func NewChunkStreamer(gen *MapGenerator, viewer Viewer, factory RenderableFactory, settings StreamerSettings, bus eventbus.EventBus, opts ...StreamerOption) *ChunkStreamer {
	if factory == nil {
		factory = NewSceneNode
	}
	if settings.MaxViewDistance < 0 {
		settings.MaxViewDistance = 0
	}
	if settings.EvictDistance > 0 && settings.EvictDistance < settings.MaxViewDistance {
		settings.EvictDistance = settings.MaxViewDistance
	}

	s := &ChunkStreamer{
		gen:      gen,
		viewer:   viewer,
		factory:  factory,
		settings: settings,
		bus:      bus,
		chunks:   make(map[vec.Vec2]*ChunkRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)

	s.chunkSize = gen.Settings().ChunkSize()
	s.visibleRadius = int(math.Ceil(settings.MaxViewDistance / s.chunkSize))

	s.logger.Info("🌍 Стример чанков: размер чанка %.0f, дальность %.0f, радиус %d",
		s.chunkSize, settings.MaxViewDistance, s.visibleRadius)
	return s
}

// ChunkSize: сторона чанка в мировых единицах
func (s *ChunkStreamer) ChunkSize() float64 { return s.chunkSize }

// VisibleRadius: число чанков видимости в каждую сторону
func (s *ChunkStreamer) VisibleRadius() int { return s.visibleRadius }

// Tick читает позицию наблюдателя, обновляет набор чанков и доставляет
// готовые результаты. Возвращает число выполненных обратных вызовов.
func (s *ChunkStreamer) Tick() int {
	s.UpdateVisibleChunks(s.viewer.Position())
	n := s.gen.Queue().Drain()
	s.publishStats()
	return n
}

// UpdateVisibleChunks скрывает видимые ранее чанки и заново оценивает
// квадрат чанков вокруг наблюдателя, создавая недостающие.
func (s *ChunkStreamer) UpdateVisibleChunks(viewerPos vec.Vec2Float) {
	s.viewerPos = viewerPos

	for _, c := range s.visibleLast {
		c.setVisible(false)
	}
	s.visibleLast = s.visibleLast[:0]

	current := viewerPos.RoundDiv(s.chunkSize)
	for yOffset := -s.visibleRadius; yOffset <= s.visibleRadius; yOffset++ {
		for xOffset := -s.visibleRadius; xOffset <= s.visibleRadius; xOffset++ {
			key := vec.Vec2{X: current.X + xOffset, Y: current.Y + yOffset}

			c, ok := s.chunks[key]
			if !ok {
				c = s.createChunk(key)
			}
			s.updateChunk(c)
		}
	}

	if s.settings.EvictDistance > 0 {
		s.evictFar()
	}
	s.publishStats()
}

func (s *ChunkStreamer) createChunk(key vec.Vec2) *ChunkRecord {
	c := newChunkRecord(key, s.chunkSize, nil)
	c.Renderable = s.factory(key, c.Position)
	s.chunks[key] = c

	s.requestMapData(c)
	s.publish(eventbus.EventChunkCreated, c)
	s.logger.Trace("Создан чанк %s", key)
	return c
}

func (s *ChunkStreamer) updateChunk(c *ChunkRecord) {
	if c.State == Unrequested {
		s.requestMapData(c)
	}

	visible := c.Bounds.Distance(s.viewerPos) <= s.settings.MaxViewDistance
	c.setVisible(visible)
	if visible {
		s.visibleLast = append(s.visibleLast, c)
	}
}

func (s *ChunkStreamer) requestMapData(c *ChunkRecord) {
	c.State = MapDataPending
	s.gen.RequestMapData(c.noiseCentre(), func(md terrain.MapData) {
		s.onMapData(c, md)
	}, func(err error) {
		s.onTaskError(c, err)
	})
}

func (s *ChunkStreamer) onMapData(c *ChunkRecord, md terrain.MapData) {
	if !s.owns(c) {
		s.logger.Debug("Карта выгруженного чанка %s отброшена", c.Key)
		return
	}
	c.MapData = &md
	c.State = MeshPending
	s.gen.RequestMeshData(md, func(m *mesh.Data) {
		s.onMeshData(c, m)
	}, func(err error) {
		s.onTaskError(c, err)
	})
}

func (s *ChunkStreamer) onMeshData(c *ChunkRecord, m *mesh.Data) {
	if !s.owns(c) {
		s.logger.Debug("Меш выгруженного чанка %s отброшен", c.Key)
		return
	}

	tex, err := texture.FromColorMap(c.MapData.ColorMap, c.MapData.Width(), c.MapData.Height())
	if err != nil {
		s.logger.Error("❌ Текстура чанка %s: %v", c.Key, err)
	}

	c.Mesh = m
	c.State = Ready
	c.Renderable.SetMesh(m, tex)
	c.Renderable.SetVisible(c.visible)
	s.publish(eventbus.EventChunkReady, c)
}

// onTaskError возвращает чанк в Unrequested: запрос повторится при следующем обновлении
func (s *ChunkStreamer) onTaskError(c *ChunkRecord, err error) {
	if !s.owns(c) {
		return
	}
	s.logger.Warn("⚠️ Генерация чанка %s (%s) не удалась: %v", c.Key, c.State, err)
	c.State = Unrequested
}

func (s *ChunkStreamer) owns(c *ChunkRecord) bool {
	return s.chunks[c.Key] == c
}

func (s *ChunkStreamer) evictFar() {
	for key, c := range s.chunks {
		if c.Bounds.Distance(s.viewerPos) <= s.settings.EvictDistance {
			continue
		}
		c.setVisible(false)
		if r, ok := c.Renderable.(Releaser); ok {
			r.Release()
		}
		delete(s.chunks, key)
		s.statEvicted.Add(1)
		s.publish(eventbus.EventChunkEvicted, c)
		s.logger.Trace("Чанк %s выгружен", key)
	}
}

// Chunk возвращает запись чанка по ключу
func (s *ChunkStreamer) Chunk(key vec.Vec2) (*ChunkRecord, bool) {
	c, ok := s.chunks[key]
	return c, ok
}

// ChunkCount: число чанков в рабочем наборе
func (s *ChunkStreamer) ChunkCount() int { return len(s.chunks) }

// VisibleChunks возвращает ключи видимых чанков в порядке (Y, X)
func (s *ChunkStreamer) VisibleChunks() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(s.visibleLast))
	for _, c := range s.visibleLast {
		keys = append(keys, c.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// Stats возвращает последние опубликованные счётчики
func (s *ChunkStreamer) Stats() StreamerStats {
	return StreamerStats{
		Chunks:       int(s.statChunks.Load()),
		Visible:      int(s.statVisible.Load()),
		Pending:      int(s.statPending.Load()),
		Ready:        int(s.statReady.Load()),
		Evicted:      int(s.statEvicted.Load()),
		QueuePending: s.gen.Queue().Pending(),
	}
}

func (s *ChunkStreamer) publishStats() {
	var pending, ready int
	for _, c := range s.chunks {
		switch c.State {
		case MapDataPending, MeshPending:
			pending++
		case Ready:
			ready++
		}
	}
	s.statChunks.Store(int64(len(s.chunks)))
	s.statVisible.Store(int64(len(s.visibleLast)))
	s.statPending.Store(int64(pending))
	s.statReady.Store(int64(ready))
	s.metrics.set(len(s.chunks), len(s.visibleLast), pending, ready)
}

func (s *ChunkStreamer) publish(eventType string, c *ChunkRecord) {
	if s.bus == nil {
		return
	}
	payload := eventbus.ChunkEvent{
		X:        c.Key.X,
		Y:        c.Key.Y,
		Visible:  c.visible,
		Distance: c.Bounds.Distance(s.viewerPos),
	}
	if c.Mesh != nil {
		payload.Vertices = len(c.Mesh.Vertices)
		payload.Triangles = c.Mesh.TriangleCount()
	}

	ev, err := eventbus.NewEnvelope(eventSource, eventType, payload)
	if err != nil {
		s.logger.Error("❌ Событие %s: %v", eventType, err)
		return
	}
	if err := s.bus.Publish(context.Background(), ev); err != nil {
		s.logger.Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}

type streamerMetrics struct {
	chunks *prometheus.GaugeVec
}

func newStreamerMetrics(reg prometheus.Registerer) *streamerMetrics {
	m := &streamerMetrics{
		chunks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "terrain",
			Subsystem: "streamer",
			Name:      "chunks",
			Help:      "Чанки рабочего набора по состоянию.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(m.chunks)
	}
	return m
}

func (m *streamerMetrics) set(total, visible, pending, ready int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues("total").Set(float64(total))
	m.chunks.WithLabelValues("visible").Set(float64(visible))
	m.chunks.WithLabelValues("pending").Set(float64(pending))
	m.chunks.WithLabelValues("ready").Set(float64(ready))
}
