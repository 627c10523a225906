package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/endless-terrain/internal/api"
	"github.com/annel0/endless-terrain/internal/compute"
	"github.com/annel0/endless-terrain/internal/config"
	"github.com/annel0/endless-terrain/internal/eventbus"
	"github.com/annel0/endless-terrain/internal/logging"
	"github.com/annel0/endless-terrain/internal/observability"
	"github.com/annel0/endless-terrain/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $TERRAIN_CONFIG)")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("terrain"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.SetLevels(logging.ParseLevel(cfg.Logging.Level), logging.DEBUG)

	logging.Info("🏔️ Запуск endless-terrain...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry := observability.ShutdownFunc(observability.NoopShutdown)
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
			shutdownTelemetry = observability.NoopShutdown
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === ГЕНЕРАЦИЯ ===
	settings, err := cfg.GeneratorSettings()
	if err != nil {
		log.Fatalf("❌ Некорректные параметры генерации: %v", err)
	}
	mode, err := cfg.DrawMode()
	if err != nil {
		log.Fatalf("❌ Некорректный режим отрисовки: %v", err)
	}

	queue := compute.NewQueue(
		compute.WithExecutor(compute.ExecutorFor(cfg.Compute.MaxWorkers)),
		compute.WithMetrics(compute.NewMetrics(reg)),
		compute.WithLogger(logging.GetComputeLogger()),
		compute.WithContext(ctx),
	)
	gen := world.NewMapGenerator(settings, queue, logging.GetWorldLogger())

	bus := eventbus.NewMemoryBus(1024)
	if _, err := eventbus.StartLoggingListener(bus, logging.GetComponentLogger("events")); err != nil {
		logging.Warn("⚠️ LoggingListener не запущен: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(time.Second)

	viewer := world.NewPathViewer(cfg.Streaming.ViewerStart, cfg.Streaming.ViewerVelocity)
	streamer := world.NewChunkStreamer(gen, viewer, nil, cfg.StreamerSettings(), bus,
		world.WithStreamerLogger(logging.GetWorldLogger()),
		world.WithStreamerMetrics(reg),
	)

	// === HTTP ===
	previewPort := cfg.Server.GetPreviewPort()
	metricsPort := cfg.Server.GetMetricsPort()

	server := api.NewPreviewServer(api.Config{
		Addr:       fmt.Sprintf(":%d", previewPort),
		Generator:  gen,
		Streamer:   streamer,
		Bus:        bus,
		DrawMode:   mode,
		Registerer: reg,
		Gatherer:   reg,
		Logger:     logging.GetAPILogger(),
	})
	go func() {
		if err := server.Start(); err != nil {
			logging.Error("❌ %v", err)
			stop()
		}
	}()

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу :%d", metricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	if _, _, err := server.Regenerate(mode); err != nil {
		logging.Error("❌ Начальный предпросмотр не построен: %v", err)
	}

	if cfg.Map.AutoUpdate && *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, logging.GetComponentLogger("config"), func(next *config.Config) {
				s, err := next.GeneratorSettings()
				if err != nil {
					logging.Warn("⚠️ Новые параметры отклонены: %v", err)
					return
				}
				gen.Apply(s)
				if _, _, err := server.Regenerate(mode); err != nil {
					logging.Error("❌ Перегенерация после изменения конфигурации: %v", err)
				}
			})
			if err != nil {
				logging.Error("❌ Слежение за конфигурацией остановлено: %v", err)
			}
		}()
	}

	observability.StartProcessReporter(ctx, time.Minute, logging.GetComponentLogger("process"))

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 Предпросмотр: http://localhost:%d/api/preview.png", previewPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", previewPort)

	// === ЦИКЛ ВЛАДЕЛЬЦА ЧАНКОВ ===
	runOwnerLoop(ctx, cfg.Streaming.TickInterval, viewer, streamer)

	// === GRACEFUL SHUTDOWN ===
	logging.Info("📡 Получен сигнал завершения, остановка...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера предпросмотра: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	queue.Close()
	busMetrics.Stop()
	bus.Close()

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}
	if err := logging.GetLoggerManager().CloseAll(); err != nil {
		log.Printf("ошибка закрытия логов: %v", err)
	}

	logging.Info("👋 endless-terrain остановлен")
}

// runOwnerLoop двигает наблюдателя и обслуживает стример до отмены ctx.
// Только эта горутина изменяет набор чанков.
func runOwnerLoop(ctx context.Context, interval time.Duration, viewer *world.PathViewer, streamer *world.ChunkStreamer) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			viewer.Advance(now.Sub(last))
			last = now
			if n := streamer.Tick(); n > 0 {
				logging.Trace("Доставлено результатов: %d", n)
			}
		}
	}
}
