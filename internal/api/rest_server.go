package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/navgrid/internal/auth"
	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/middleware"
	"github.com/annel0/navgrid/internal/observability"
	"github.com/annel0/navgrid/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// RestServer отладочный REST API над менеджером регионов
type RestServer struct {
	router     *gin.Engine
	regions    *world.RegionManager
	port       string
	metrics    *ServerMetrics
	tracer     trace.Tracer
	tokens     *auth.TokenIssuer
	httpServer *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string               // порт для запуска сервера, например ":8088"
	Regions     *world.RegionManager // менеджер регионов
	Registry    *prometheus.Registry // реестр метрик; nil - отдельный реестр
	ServiceName string               // имя сервиса для otelgin и метрик
	Tokens      *auth.TokenIssuer    // nil - изменяющие запросы без авторизации
}

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "navgrid"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware(config.ServiceName+"_api", config.Registry)
	router.Use(promMw.Handler())
	middleware.RegisterMetricsEndpoint(router, config.Registry)

	server := &RestServer{
		router:  router,
		regions: config.Regions,
		port:    config.Port,
		metrics: NewServerMetrics(),
		tracer:  observability.Tracer(),
		tokens:  config.Tokens,
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/stats", rs.handleStats)
	api.GET("/regions", rs.handleListRegions)

	region := api.Group("/regions/:rx/:ry")
	region.Use(regionKeyMiddleware())
	{
		region.GET("/random-position", rs.handleRandomPosition)
		region.GET("/checkpoint", rs.handleCheckpoint)
		region.GET("/map", rs.handleMap)

		region.POST("/activate", authMiddleware(rs.tokens, false), rs.handleActivate)
		region.DELETE("", authMiddleware(rs.tokens, true), rs.handleUnload)
		region.POST("/dirty", authMiddleware(rs.tokens, false), rs.handleSetDirty)
		region.POST("/use", authMiddleware(rs.tokens, false), rs.handleUseField)
		region.POST("/spawn", authMiddleware(rs.tokens, false), rs.handleSpawn)
	}
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"world":  rs.regions.Stats(),
			"server": rs.metrics.Snapshot(),
		},
	})
}

// Start запускает сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logging.Info("REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	return rs.httpServer.Shutdown(ctx)
}
