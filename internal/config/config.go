// Package config загружает YAML-конфигурацию генератора ландшафта.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/annel0/endless-terrain/internal/mesh"
	"github.com/annel0/endless-terrain/internal/noise"
	"github.com/annel0/endless-terrain/internal/terrain"
	"github.com/annel0/endless-terrain/internal/vec"
	"github.com/annel0/endless-terrain/internal/world"
)

// EnvConfigPath: переменная окружения с путём к конфигурации
const EnvConfigPath = "TERRAIN_CONFIG"

// Config корневая структура конфигурации приложения
type Config struct {
	Map       MapConfig       `yaml:"map"`
	Noise     NoiseConfig     `yaml:"noise"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Regions   []RegionConfig  `yaml:"regions"`
	Streaming StreamingConfig `yaml:"streaming"`
	Compute   ComputeConfig   `yaml:"compute"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MapConfig: режим одиночной карты (предпросмотр)
type MapConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	DrawMode   string `yaml:"draw_mode"`
	AutoUpdate bool   `yaml:"auto_update"`
}

type NoiseConfig struct {
	Algorithm   string        `yaml:"algorithm"`
	Seed        int64         `yaml:"seed"`
	Scale       float64       `yaml:"scale"`
	Octaves     int           `yaml:"octaves"`
	Persistence float64       `yaml:"persistence"`
	Lacunarity  float64       `yaml:"lacunarity"`
	Offset      vec.Vec2Float `yaml:"offset"`
	Normalize   string        `yaml:"normalize"`
}

type MeshConfig struct {
	HeightMultiplier float64         `yaml:"height_multiplier"`
	LevelOfDetail    int             `yaml:"level_of_detail"`
	HeightCurve      []mesh.Keyframe `yaml:"height_curve"`
}

// RegionConfig: порог высоты и цвет в формате #rrggbb[aa]
type RegionConfig struct {
	Name   string  `yaml:"name"`
	Height float64 `yaml:"height"`
	Color  string  `yaml:"color"`
}

type StreamingConfig struct {
	MaxViewDistance float64       `yaml:"max_view_distance"`
	EvictDistance   float64       `yaml:"evict_distance"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	ViewerStart     vec.Vec2Float `yaml:"viewer_start"`
	ViewerVelocity  vec.Vec2Float `yaml:"viewer_velocity"`
}

// ComputeConfig: max_workers < 0: горутина на задачу, 0: по числу CPU
type ComputeConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type ServerConfig struct {
	PreviewPort int `yaml:"preview_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// GetPreviewPort возвращает порт сервера предпросмотра с поддержкой fallback значений
func (s *ServerConfig) GetPreviewPort() int {
	return getPortWithEnvFallback(s.PreviewPort, "TERRAIN_PREVIEW_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "TERRAIN_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Map: MapConfig{
			Width:    world.MapChunkSize,
			Height:   world.MapChunkSize,
			DrawMode: "colour",
		},
		Noise: NoiseConfig{
			Algorithm:   "perlin",
			Seed:        1,
			Scale:       50,
			Octaves:     4,
			Persistence: 0.5,
			Lacunarity:  2,
			Normalize:   "local",
		},
		Mesh: MeshConfig{
			HeightMultiplier: 20,
			HeightCurve: []mesh.Keyframe{
				{Time: 0, Value: 0},
				{Time: 0.4, Value: 0},
				{Time: 1, Value: 1},
			},
		},
		Regions: []RegionConfig{
			{Name: "water deep", Height: 0.3, Color: "#3263c3"},
			{Name: "water shallow", Height: 0.4, Color: "#3666c6"},
			{Name: "sand", Height: 0.45, Color: "#d0d17f"},
			{Name: "grass", Height: 0.55, Color: "#589c1a"},
			{Name: "grass 2", Height: 0.6, Color: "#3e6b13"},
			{Name: "rock", Height: 0.7, Color: "#5a453c"},
			{Name: "rock 2", Height: 0.9, Color: "#4b3c35"},
			{Name: "snow", Height: 1, Color: "#ffffff"},
		},
		Streaming: StreamingConfig{
			MaxViewDistance: 450,
			TickInterval:    50 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "endless-terrain",
		},
		Logging: LoggingConfig{
			Level: "INFO",
			Dir:   "logs",
		},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берёт путь из ENV TERRAIN_CONFIG; если и он пуст: возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает YAML поверх значений по умолчанию и нормализует результат
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize приводит значения вне допустимых диапазонов к ближайшим допустимым
func (c *Config) Normalize() {
	if c.Map.Width < 1 {
		c.Map.Width = world.MapChunkSize
	}
	if c.Map.Height < 1 {
		c.Map.Height = world.MapChunkSize
	}

	if c.Noise.Scale <= 0 {
		c.Noise.Scale = noise.MinScale
	}
	if c.Noise.Octaves < 0 {
		c.Noise.Octaves = 0
	}
	if c.Noise.Persistence < 0 {
		c.Noise.Persistence = 0
	}
	if c.Noise.Persistence > 1 {
		c.Noise.Persistence = 1
	}
	if c.Noise.Lacunarity < 1 {
		c.Noise.Lacunarity = 1
	}

	c.Mesh.LevelOfDetail = mesh.ClampLOD(c.Mesh.LevelOfDetail)

	if c.Streaming.MaxViewDistance < 0 {
		c.Streaming.MaxViewDistance = 0
	}
	if c.Streaming.EvictDistance < 0 {
		c.Streaming.EvictDistance = 0
	}
	if c.Streaming.EvictDistance > 0 && c.Streaming.EvictDistance < c.Streaming.MaxViewDistance {
		c.Streaming.EvictDistance = c.Streaming.MaxViewDistance
	}
	if c.Streaming.TickInterval <= 0 {
		c.Streaming.TickInterval = 50 * time.Millisecond
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "endless-terrain"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// ParsedRegions разбирает цвета регионов. Все ошибки собираются в одну.
func (c *Config) ParsedRegions() ([]terrain.Region, error) {
	var errs *multierror.Error
	regions := make([]terrain.Region, 0, len(c.Regions))
	for i, r := range c.Regions {
		col, err := terrain.ParseColor(r.Color)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("регион %d (%s): %w", i, r.Name, err))
			continue
		}
		regions = append(regions, terrain.Region{Name: r.Name, Height: r.Height, Color: col})
	}
	return regions, errs.ErrorOrNil()
}

// NoiseParams переводит секцию noise в параметры генератора шума
func (c *Config) NoiseParams() (noise.Params, error) {
	var errs *multierror.Error

	alg, err := noise.ParseAlgorithm(c.Noise.Algorithm)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	norm, err := noise.ParseNormalizeMode(c.Noise.Normalize)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	return noise.Params{
		Seed:        c.Noise.Seed,
		Scale:       c.Noise.Scale,
		Octaves:     c.Noise.Octaves,
		Persistence: c.Noise.Persistence,
		Lacunarity:  c.Noise.Lacunarity,
		Offset:      c.Noise.Offset,
		Normalize:   norm,
		Algorithm:   alg,
	}, errs.ErrorOrNil()
}

// GeneratorSettings собирает параметры генератора карт
func (c *Config) GeneratorSettings() (world.Settings, error) {
	var errs *multierror.Error

	params, err := c.NoiseParams()
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	regions, err := c.ParsedRegions()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	var curve mesh.Curve = mesh.Linear
	if len(c.Mesh.HeightCurve) > 0 {
		curve = mesh.NewKeyframes(c.Mesh.HeightCurve...)
	}

	s := world.Settings{
		Noise:            params,
		Regions:          regions,
		HeightMultiplier: c.Mesh.HeightMultiplier,
		HeightCurve:      curve,
		LevelOfDetail:    c.Mesh.LevelOfDetail,
		MapChunkSize:     world.MapChunkSize,
		PreviewWidth:     c.Map.Width,
		PreviewHeight:    c.Map.Height,
	}
	return s.Normalized(), errs.ErrorOrNil()
}

// StreamerSettings возвращает параметры стримера чанков
func (c *Config) StreamerSettings() world.StreamerSettings {
	return world.StreamerSettings{
		MaxViewDistance: c.Streaming.MaxViewDistance,
		EvictDistance:   c.Streaming.EvictDistance,
	}
}

// DrawMode разбирает режим предпросмотра
func (c *Config) DrawMode() (world.DrawMode, error) {
	return world.ParseDrawMode(c.Map.DrawMode)
}
