package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/annel0/endless-terrain/internal/world"
)

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 450.0, cfg.Streaming.MaxViewDistance)
	assert.Equal(t, world.MapChunkSize, cfg.Map.Width)
	assert.Len(t, cfg.Regions, 8)
}

func TestLoad_FromEnvOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	yaml := `
noise:
  seed: 42
  algorithm: simplex
  normalize: global
mesh:
  level_of_detail: 3
streaming:
  tick_interval: 20ms
  viewer_velocity: {x: 30, y: 0}
regions:
  - {name: water, height: 0.4, color: "#0000ff"}
  - {name: land, height: 1, color: "#00ff0080"}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Noise.Seed)
	assert.Equal(t, 50.0, cfg.Noise.Scale, "незаданные поля сохраняют значения по умолчанию")
	assert.Equal(t, 20*time.Millisecond, cfg.Streaming.TickInterval)
	assert.Equal(t, 30.0, cfg.Streaming.ViewerVelocity.X)
	require.Len(t, cfg.Regions, 2, "список регионов заменяется целиком")

	settings, err := cfg.GeneratorSettings()
	require.NoError(t, err)
	assert.Equal(t, noise.AlgorithmSimplex, settings.Noise.Algorithm)
	assert.Equal(t, noise.NormalizeGlobal, settings.Noise.Normalize)
	assert.Equal(t, 3, settings.LevelOfDetail)
	assert.Equal(t, uint8(0x80), settings.Regions[1].Color.A)
	assert.Equal(t, world.MapChunkSize, settings.MapChunkSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNormalize_ClampsRanges(t *testing.T) {
	cfg, err := Parse([]byte(`
noise: {scale: -3, octaves: -1, persistence: 1.7, lacunarity: 0.2}
mesh: {level_of_detail: 11}
streaming: {max_view_distance: 450, evict_distance: 100, tick_interval: 0s}
map: {width: 0, height: -5}
`))
	require.NoError(t, err)

	assert.Equal(t, noise.MinScale, cfg.Noise.Scale)
	assert.Equal(t, 0, cfg.Noise.Octaves)
	assert.Equal(t, 1.0, cfg.Noise.Persistence)
	assert.Equal(t, 1.0, cfg.Noise.Lacunarity)
	assert.Equal(t, mesh.MaxLOD, cfg.Mesh.LevelOfDetail)
	assert.Equal(t, 450.0, cfg.Streaming.EvictDistance, "выгрузка не ближе дальности видимости")
	assert.Equal(t, 50*time.Millisecond, cfg.Streaming.TickInterval)
	assert.Equal(t, world.MapChunkSize, cfg.Map.Width)
	assert.Equal(t, world.MapChunkSize, cfg.Map.Height)
}

func TestGeneratorSettings_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Noise.Algorithm = "value"
	cfg.Regions[0].Color = "blue"
	cfg.Regions[3].Color = "#12"

	_, err := cfg.GeneratorSettings()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Contains(t, err.Error(), "value")
	assert.Contains(t, err.Error(), "water deep")
	assert.Contains(t, err.Error(), "grass")
}

func TestDrawMode(t *testing.T) {
	cfg := Default()
	mode, err := cfg.DrawMode()
	require.NoError(t, err)
	assert.Equal(t, world.DrawColourMap, mode)
}

func TestServerPorts_EnvFallback(t *testing.T) {
	t.Setenv("TERRAIN_PREVIEW_PORT", "9090")
	t.Setenv("TERRAIN_METRICS_PORT", "bad")

	s := ServerConfig{}
	assert.Equal(t, 9090, s.GetPreviewPort())
	assert.Equal(t, 2112, s.GetMetricsPort(), "некорректное значение окружения игнорируется")

	s.PreviewPort = 7000
	assert.Equal(t, 7000, s.GetPreviewPort(), "значение из конфига приоритетнее окружения")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("noise: {seed: 1}\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seeds []int64
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(cfg *Config) {
			mu.Lock()
			seeds = append(seeds, cfg.Noise.Seed)
			mu.Unlock()
		})
	}()

	// даём watcher'у подписаться
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("noise: {seed: 7}\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seeds) > 0 && seeds[len(seeds)-1] == 7
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "terrain.yaml"))
	require.NoError(t, err)

	_, err = cfg.GeneratorSettings()
	require.NoError(t, err)
	assert.True(t, cfg.Map.AutoUpdate)
	assert.Equal(t, 40.0, cfg.Streaming.ViewerVelocity.X)
}
