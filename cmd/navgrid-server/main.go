package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/navgrid/internal/api"
	"github.com/annel0/navgrid/internal/auth"
	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/eventbus"
	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/observability"
	"github.com/annel0/navgrid/internal/storage"
	"github.com/annel0/navgrid/internal/terrain"
	"github.com/annel0/navgrid/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или NAVGRID_CONFIG)")
	activate := flag.Int("activate", 1, "Радиус активируемых при старте регионов вокруг (0, 0); 0 - не активировать")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("navgrid-server"); err != nil {
		log.Fatalf("Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.SetDefaultLevels(logging.ParseLevel(cfg.LogLevel), logging.TRACE)

	logging.Info("Запуск navgrid сервера")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("Ошибка инициализации OpenTelemetry: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === МИР ===
	gen := terrain.NewGenerator(cfg.Terrain)
	regions := world.NewRegionManager(gen, cfg.NavGrid, cfg.World)

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		logging.GetStorageLogger().Error("Ошибка открытия хранилища %s: %v", cfg.Storage.Backend, err)
		os.Exit(1)
	}
	if store != nil {
		regions.SetStore(store, time.Duration(cfg.Storage.TimeoutMs)*time.Millisecond)
		logging.GetStorageLogger().Info("Хранилище регионов: %s", cfg.Storage.Backend)
	}

	for rx := -*activate + 1; rx < *activate; rx++ {
		for ry := -*activate + 1; ry < *activate; ry++ {
			if err := regions.ActivateRegion(world.RegionKey{X: rx, Y: ry}); err != nil {
				logging.Error("Ошибка активации региона (%d, %d): %v", rx, ry, err)
			}
		}
	}
	regions.Start()

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		logging.Error("Ошибка подключения к шине событий: %v", err)
		os.Exit(1)
	}
	eventbus.Init(bus)
	eventLog, err := eventbus.StartLoggingListener(ctx, bus, nil,
		world.EventPlacementSpawn, world.EventPlacementMove, world.EventPlacementDespawn)
	if err != nil {
		logging.Warn("Журнал событий не запущен: %v", err)
	}

	placement := world.NewPlacementListener(regions)
	if err := placement.Start(ctx, bus); err != nil {
		logging.Error("PlacementListener не запущен: %v", err)
	}

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	worldMetrics := world.NewMetricsExporter(regions, registry)
	worldMetrics.Start(time.Second)
	busMetrics := eventbus.NewMetricsExporter(bus, registry)
	busMetrics.Start(time.Second)
	metricsSrv := eventbus.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), registry)

	// === REST API ===
	gin.SetMode(gin.ReleaseMode)
	apiLog := logging.GetAPILogger()
	var tokens *auth.TokenIssuer
	if secret := cfg.Server.GetAuthSecret(); secret != "" {
		tokens, err = auth.NewTokenIssuer(secret, 24*time.Hour)
		if err != nil {
			logging.Error("Некорректный auth_secret: %v", err)
			os.Exit(1)
		}
		apiLog.Info("Изменяющие запросы API требуют Bearer токен")
	} else {
		apiLog.Warn("auth_secret не задан: изменяющие запросы API без авторизации")
	}
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest := api.NewRestServer(api.Config{
		Port:        restPort,
		Regions:     regions,
		Registry:    registry,
		ServiceName: cfg.Telemetry.ServiceName,
		Tokens:      tokens,
	})
	go func() {
		if err := rest.Start(); err != nil {
			apiLog.Error("Ошибка REST API: %v", err)
		}
	}()

	logging.Info("Сервисы запущены: REST API http://localhost%s, метрики :%d/metrics", restPort, cfg.Server.GetMetricsPort())
	logging.Info("   curl 'http://localhost%s/api/regions/0/0/random-position?water=above&slope_max=%g'", restPort, cfg.NavGrid.MaxWalkableSlope)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := rest.Stop(stopCtx); err != nil {
		apiLog.Error("Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(stopCtx); err != nil {
		logging.Error("Ошибка остановки сервера метрик: %v", err)
	}
	placement.Stop()
	worldMetrics.Stop()
	busMetrics.Stop()
	regions.Stop()
	if store != nil {
		if err := regions.SaveAll(stopCtx); err != nil {
			logging.Error("Ошибка сохранения регионов: %v", err)
		}
		if err := store.Close(); err != nil {
			logging.Error("Ошибка закрытия хранилища: %v", err)
		}
	}
	if eventLog != nil {
		eventLog.Unsubscribe()
	}
	if err := eventbus.Close(); err != nil {
		logging.Error("Ошибка закрытия шины событий: %v", err)
	}
	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.Error("Ошибка остановки OpenTelemetry: %v", err)
	}
	logging.Debug("Закрываем логгеры компонентов: %v", logging.GetLoggerManager().Components())
	if err := logging.GetLoggerManager().CloseAll(); err != nil {
		logging.Error("Ошибка закрытия логов: %v", err)
	}

	logging.Info("Сервер остановлен. %s", regions.GetStats())
}

// newEventBus выбирает JetStream, если задан URL, иначе шину в памяти
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("Шина событий: in-memory (буфер %d)", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}

	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, err
	}
	logging.Info("Шина событий: JetStream %s, стрим %s", cfg.URL, cfg.Stream)
	return bus, nil
}
