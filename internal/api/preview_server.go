package api

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/endless-terrain/internal/eventbus"
	"github.com/annel0/endless-terrain/internal/export"
	"github.com/annel0/endless-terrain/internal/logging"
	"github.com/annel0/endless-terrain/internal/middleware"
	"github.com/annel0/endless-terrain/internal/texture"
	"github.com/annel0/endless-terrain/internal/world"
)

// MaxThumbnailSize ограничивает параметр size у /api/preview.png
const MaxThumbnailSize = 2048

// StatsProvider отдаёт счётчики стримера чанков
type StatsProvider interface {
	Stats() world.StreamerStats
}

// Config содержит конфигурацию сервера предпросмотра
type Config struct {
	Addr       string                // адрес, например ":8088"
	Generator  *world.MapGenerator   // обязателен
	Streamer   StatsProvider         // может быть nil
	Bus        eventbus.EventBus     // может быть nil
	DrawMode   world.DrawMode        // режим по умолчанию
	Registerer prometheus.Registerer // метрики HTTP; nil: не регистрировать
	Gatherer   prometheus.Gatherer   // источник /metrics; nil: глобальный регистр
	Logger     *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PreviewServer: HTTP-сервер предпросмотра карты и статистики стримера
type PreviewServer struct {
	router   *gin.Engine
	server   *http.Server
	gen      *world.MapGenerator
	streamer StatsProvider
	bus      eventbus.EventBus
	mode     world.DrawMode
	metrics  *ServerMetrics
	logger   *logging.Logger

	// перегенерация синхронная, одна за раз
	regenMu sync.Mutex
}

// NewPreviewServer создает сервер и настраивает маршруты
func NewPreviewServer(cfg Config) *PreviewServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	logger := logging.OrDefault(cfg.Logger)

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.NewRequestLogger(logger).Handler())
	router.Use(otelgin.Middleware("preview_api"))

	promMw := middleware.NewPrometheusMiddleware("terrain_preview", cfg.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	ps := &PreviewServer{
		router:   router,
		gen:      cfg.Generator,
		streamer: cfg.Streamer,
		bus:      cfg.Bus,
		mode:     cfg.DrawMode,
		metrics:  NewServerMetrics(),
		logger:   logger,
	}
	ps.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ps.setupRoutes()
	return ps
}

func (ps *PreviewServer) setupRoutes() {
	ps.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := ps.router.Group("/api")
	{
		api.POST("/regenerate", ps.handleRegenerate)
		api.GET("/preview.png", ps.handlePreviewPNG)
		api.GET("/mesh.obj", ps.handleMeshOBJ)
		api.GET("/stats", ps.handleStats)
	}

	ps.router.GET("/health", ps.handleHealth)
}

// Handler возвращает http.Handler (используется в тестах)
func (ps *PreviewServer) Handler() http.Handler { return ps.router }

// Start запускает сервер; блокирует до Shutdown
func (ps *PreviewServer) Start() error {
	ps.logger.Info("🌐 Сервер предпросмотра слушает %s", ps.server.Addr)
	if err := ps.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("сервер предпросмотра: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер
func (ps *PreviewServer) Shutdown(ctx context.Context) error {
	return ps.server.Shutdown(ctx)
}

// Regenerate синхронно перестраивает предпросмотр
func (ps *PreviewServer) Regenerate(mode world.DrawMode) (*world.Preview, time.Duration, error) {
	ps.regenMu.Lock()
	defer ps.regenMu.Unlock()

	start := time.Now()
	p, err := ps.gen.DrawMapInEditor(mode)
	return p, time.Since(start), err
}

// previewFor возвращает последний предпросмотр в режиме mode, строя его при необходимости
func (ps *PreviewServer) previewFor(mode world.DrawMode) (*world.Preview, error) {
	if p := ps.gen.LastPreview(); p != nil && p.Mode == mode {
		return p, nil
	}
	p, _, err := ps.Regenerate(mode)
	return p, err
}

func (ps *PreviewServer) modeParam(c *gin.Context) (world.DrawMode, bool) {
	raw, ok := c.GetQuery("mode")
	if !ok {
		return ps.mode, true
	}
	mode, err := world.ParseDrawMode(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return 0, false
	}
	return mode, true
}

// handleRegenerate: синхронный триггер «перегенерировать сейчас»
func (ps *PreviewServer) handleRegenerate(c *gin.Context) {
	mode, ok := ps.modeParam(c)
	if !ok {
		return
	}

	p, took, err := ps.Regenerate(mode)
	if err != nil {
		ps.logger.Error("❌ Перегенерация не удалась: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	data := gin.H{
		"mode":    p.Mode.String(),
		"width":   p.MapData.Width(),
		"height":  p.MapData.Height(),
		"took_ms": took.Milliseconds(),
	}
	if p.Mesh != nil {
		data["vertices"] = len(p.Mesh.Vertices)
		data["triangles"] = p.Mesh.TriangleCount()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Карта перегенерирована", Data: data})
}

func (ps *PreviewServer) handlePreviewPNG(c *gin.Context) {
	mode, ok := ps.modeParam(c)
	if !ok {
		return
	}
	if mode == world.DrawMesh {
		mode = world.DrawColourMap
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxThumbnailSize {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: fmt.Sprintf("size должен быть в диапазоне 1..%d", MaxThumbnailSize),
			})
			return
		}
		size = n
	}

	p, err := ps.previewFor(mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	var img image.Image = p.Texture
	if size > 0 {
		img = texture.Thumbnail(img, size)
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := texture.EncodePNG(c.Writer, img); err != nil {
		ps.logger.Warn("⚠️ Отправка PNG прервана: %v", err)
	}
}

func (ps *PreviewServer) handleMeshOBJ(c *gin.Context) {
	p, err := ps.previewFor(world.DrawMesh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	opts := export.OBJOptions{Name: "preview", Normals: c.Query("normals") == "1"}
	if c.Query("compress") == "zstd" {
		c.Header("Content-Type", "application/zstd")
		c.Header("Content-Disposition", "attachment; filename=preview.obj.zst")
		c.Status(http.StatusOK)
		err = export.WriteOBJCompressed(c.Writer, p.Mesh, opts)
	} else {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		err = export.WriteOBJ(c.Writer, p.Mesh, opts)
	}
	if err != nil {
		ps.logger.Warn("⚠️ Отправка OBJ прервана: %v", err)
	}
}

// handleStats возвращает статистику стримера, шины и процесса
func (ps *PreviewServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"server": ps.metrics.Snapshot(),
	}
	if q := ps.gen.Queue(); q != nil {
		stats["queue_pending"] = q.Pending()
	}
	if ps.streamer != nil {
		stats["streamer"] = ps.streamer.Stats()
	}
	if ps.bus != nil {
		stats["eventbus"] = ps.bus.Metrics()
	}
	if p := ps.gen.LastPreview(); p != nil {
		stats["preview"] = gin.H{"mode": p.Mode.String(), "width": p.MapData.Width(), "height": p.MapData.Height()}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleHealth проверка состояния сервера
func (ps *PreviewServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
