package world

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/endless-terrain/internal/compute"
	"github.com/annel0/endless-terrain/internal/eventbus"
	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/vec"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.Noise.Octaves = 2
	s.Regions = []terrain.Region{
		{Name: "water", Height: 0.4, Color: color.RGBA{0, 0, 255, 255}},
		{Name: "grass", Height: 0.7, Color: color.RGBA{0, 255, 0, 255}},
		{Name: "snow", Height: 1, Color: color.RGBA{255, 255, 255, 255}},
	}
	s.LevelOfDetail = 2
	return s
}

func newTestGenerator(t *testing.T) *MapGenerator {
	t.Helper()
	q := compute.NewQueue(compute.WithExecutor(compute.NewPoolExecutor(4)))
	t.Cleanup(q.Close)
	return NewMapGenerator(testSettings(), q, nil)
}

// tickUntilReady вызывает Tick, пока все чанки рабочего набора не станут Ready
func tickUntilReady(t *testing.T, s *ChunkStreamer) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		s.Tick()
		st := s.Stats()
		if st.Chunks > 0 && st.Ready == st.Chunks {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("чанки не готовы: %+v", st)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestChunkStreamer_VisibleSetAfterFirstUpdate(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 450}, nil)

	assert.Equal(t, 240.0, s.ChunkSize())
	assert.Equal(t, 2, s.VisibleRadius(), "ceil(450/240) = 2")

	s.UpdateVisibleChunks(vec.Vec2Float{})

	assert.Equal(t, 25, s.ChunkCount(), "создаётся квадрат 5x5")
	assert.Len(t, s.VisibleChunks(), 21, "угловые чанки дальше 450")

	visible := map[vec.Vec2]bool{}
	for _, k := range s.VisibleChunks() {
		visible[k] = true
	}
	for y := -2; y <= 2; y++ {
		for x := -2; x <= 2; x++ {
			key := vec.Vec2{X: x, Y: y}
			c, ok := s.Chunk(key)
			require.True(t, ok, "чанк %s должен существовать", key)
			assert.Equal(t, MapDataPending, c.State)

			want := c.Bounds.Distance(vec.Vec2Float{}) <= 450
			assert.Equal(t, want, c.Visible(), "видимость чанка %s", key)
			assert.Equal(t, want, visible[key])
			assert.Equal(t, want, c.Renderable.IsVisible())
		}
	}

	c21, _ := s.Chunk(vec.Vec2{X: 2, Y: 1})
	assert.True(t, c21.Visible(), "(2,1) на расстоянии ~379")
	c22, _ := s.Chunk(vec.Vec2{X: 2, Y: 2})
	assert.False(t, c22.Visible(), "(2,2) на расстоянии ~509")
}

func TestChunkStreamer_PipelineReachesReady(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 450}, nil)

	tickUntilReady(t, s)

	c, ok := s.Chunk(vec.Vec2{X: 1, Y: -1})
	require.True(t, ok)
	assert.Equal(t, Ready, c.State)
	require.NotNil(t, c.MapData)
	require.NotNil(t, c.Mesh)
	assert.Equal(t, 61*61, len(c.Mesh.Vertices), "LOD 2: шаг 4, 61 вершина на линию")

	node := c.Renderable.(*SceneNode)
	assert.Same(t, c.Mesh, node.Mesh())
	require.NotNil(t, node.Texture())
	assert.Equal(t, 241, node.Texture().Bounds().Dx())
	assert.True(t, node.IsVisible(), "готовый чанк сохраняет видимость")

	corner, _ := s.Chunk(vec.Vec2{X: -2, Y: -2})
	assert.Equal(t, Ready, corner.State, "невидимые чанки тоже генерируются")
	assert.False(t, corner.Renderable.IsVisible())

	assert.Equal(t, 0, gen.Queue().Pending())
}

func TestChunkStreamer_AdjacentChunksShareBorder(t *testing.T) {
	gen := newTestGenerator(t)
	settings := gen.Settings()
	settings.Noise.Normalize = noise.NormalizeGlobal
	gen.Apply(settings)

	origin := newChunkRecord(vec.Vec2{X: 0, Y: 0}, 240, nil)
	east := newChunkRecord(vec.Vec2{X: 1, Y: 0}, 240, nil)
	north := newChunkRecord(vec.Vec2{X: 0, Y: 1}, 240, nil)

	a := gen.GenerateMapData(origin.noiseCentre()).HeightMap
	b := gen.GenerateMapData(east.noiseCentre()).HeightMap
	c := gen.GenerateMapData(north.noiseCentre()).HeightMap

	for i := 0; i < 241; i += 10 {
		assert.Equal(t, a.At(240, i), b.At(0, i), "восточный край, строка %d", i)
		assert.Equal(t, a.At(i, 0), c.At(i, 240), "северный край, столбец %d", i)
	}
}

func TestChunkStreamer_MovingViewerHidesOldChunks(t *testing.T) {
	gen := newTestGenerator(t)
	viewer := NewPathViewer(vec.Vec2Float{}, vec.Vec2Float{X: 2400})
	s := NewChunkStreamer(gen, viewer, nil, StreamerSettings{MaxViewDistance: 450}, nil)

	s.Tick()
	before := s.VisibleChunks()
	require.Len(t, before, 21)

	viewer.Advance(time.Second)
	s.Tick()

	assert.Equal(t, 50, s.ChunkCount(), "старые чанки остаются без выгрузки")
	for _, key := range before {
		c, _ := s.Chunk(key)
		assert.False(t, c.Visible(), "чанк %s должен быть скрыт", key)
		assert.False(t, c.Renderable.IsVisible())
	}
	for _, key := range s.VisibleChunks() {
		assert.GreaterOrEqual(t, key.X, 8)
	}
}

func TestChunkStreamer_EvictionDropsLateResults(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 450, EvictDistance: 700}, nil)

	s.UpdateVisibleChunks(vec.Vec2Float{})
	origin, _ := s.Chunk(vec.Vec2{})
	node := origin.Renderable.(*SceneNode)

	// результаты для первых чанков ещё не доставлены
	s.UpdateVisibleChunks(vec.Vec2Float{X: 4800})
	_, ok := s.Chunk(vec.Vec2{})
	assert.False(t, ok, "дальний чанк выгружен")
	assert.True(t, node.Released())
	assert.Equal(t, 25, s.ChunkCount())

	deadline := time.Now().Add(30 * time.Second)
	for gen.Queue().Pending() > 0 {
		s.gen.Queue().Drain()
		require.False(t, time.Now().After(deadline), "очередь не опустела")
		time.Sleep(2 * time.Millisecond)
	}

	assert.Nil(t, node.Mesh(), "поздний результат не попадает в выгруженный чанк")
	_, ok = s.Chunk(vec.Vec2{})
	assert.False(t, ok, "поздний результат не воскрешает чанк")
	assert.Equal(t, 25, s.Stats().Evicted)
}

func TestNewChunkStreamer_ClampsEvictDistance(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 450, EvictDistance: 100}, nil)
	assert.Equal(t, 450.0, s.settings.EvictDistance)

	s.UpdateVisibleChunks(vec.Vec2Float{})
	assert.Len(t, s.VisibleChunks(), 21, "видимые чанки не выгружаются")
}

func TestChunkStreamer_FailedTaskIsRequestedAgain(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 100}, nil)

	s.UpdateVisibleChunks(vec.Vec2Float{})
	c, _ := s.Chunk(vec.Vec2{})
	s.onTaskError(c, assert.AnError)
	assert.Equal(t, Unrequested, c.State)

	s.UpdateVisibleChunks(vec.Vec2Float{})
	assert.Equal(t, MapDataPending, c.State)
}

func TestChunkStreamer_PublishesLifecycleEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(256)
	defer bus.Close()

	var mu sync.Mutex
	counts := map[string]int{}
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		counts[ev.EventType]++
		mu.Unlock()
	})
	require.NoError(t, err)

	gen := newTestGenerator(t)
	reg := prometheus.NewRegistry()
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 200}, bus, WithStreamerMetrics(reg))

	tickUntilReady(t, s)
	eventbus.Flush(bus)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 9, counts[eventbus.EventChunkCreated], "радиус 1: квадрат 3x3")
	assert.Equal(t, 9, counts[eventbus.EventChunkReady])
}

func TestStreamerStats(t *testing.T) {
	gen := newTestGenerator(t)
	s := NewChunkStreamer(gen, StaticViewer{}, nil, StreamerSettings{MaxViewDistance: 450}, nil)

	s.UpdateVisibleChunks(vec.Vec2Float{})
	st := s.Stats()
	assert.Equal(t, 25, st.Chunks)
	assert.Equal(t, 21, st.Visible)
	assert.Equal(t, 25, st.Pending)
	assert.Equal(t, 0, st.Ready)
}

func TestPathViewer_Advance(t *testing.T) {
	v := NewPathViewer(vec.Vec2Float{X: 1, Y: 2}, vec.Vec2Float{X: 10, Y: -4})
	pos := v.Advance(500 * time.Millisecond)
	assert.InDelta(t, 6.0, pos.X, 1e-9)
	assert.InDelta(t, 0.0, pos.Y, 1e-9)
	assert.Equal(t, pos, v.Position())
}
