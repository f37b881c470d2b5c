package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockwatch/internal/config"
	"stockwatch/internal/database"
	"stockwatch/internal/feed"
	"stockwatch/internal/handler"
	"stockwatch/internal/middleware"
	"stockwatch/internal/monitor"
	"stockwatch/internal/redis"
	"stockwatch/internal/repository"
	"stockwatch/internal/service/alert"
	"stockwatch/internal/service/stock"
	"stockwatch/internal/watch"
	"stockwatch/pkg/limiter"
	"stockwatch/pkg/log"
	"stockwatch/pkg/queue"
	"stockwatch/pkg/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}

	log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})

	// database
	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to migrate database")
	}

	// redis
	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	metrics := monitor.NewMetrics()

	tracer, err := monitor.NewTracer(&monitor.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Server.Mode,
		JaegerEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create tracer")
	}

	// change feed transport
	messageQueue, err := queue.NewMemoryQueue(&queue.MemoryQueueConfig{
		BufferSize: cfg.Feed.BufferSize,
		Timeout:    cfg.Feed.PublishTimeout,
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create message queue")
	}
	defer messageQueue.Close()

	source := feed.NewMemorySource(messageQueue)

	db := database.GetDB()
	unitRepo := repository.NewUnitRepository(db)
	movementRepo := repository.NewMovementRepository(db)

	queryService, err := stock.NewStoreQueryService(unitRepo, redis.GetClient())
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create query service")
	}

	settings := alert.NewSettings(alert.Thresholds{
		LowStock:   cfg.Watch.Thresholds.LowStock,
		OutOfStock: cfg.Watch.Thresholds.OutOfStock,
		Overstock:  cfg.Watch.Thresholds.Overstock,
	})

	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	registry := watch.NewRegistry(source, queryService, settings, idGenerator,
		watch.WithMetrics(metrics),
		watch.WithTracer(tracer),
		watch.WithCheckTimeout(cfg.Watch.CheckTimeout),
	)
	defer registry.Cleanup()

	router := setupRouter(cfg, registry, queryService, movementRepo, metrics)

	server := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
		}).Info("Server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Server forced to shutdown")
	}

	if err := tracer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Tracer shutdown failed")
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, registry *watch.Registry, queryService stock.QueryService, movementRepo repository.MovementRepository, metrics *monitor.Metrics) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		checks := gin.H{}

		if err := database.Health(); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		}
		if err := redis.Health(); err != nil {
			status = "degraded"
			checks["redis"] = err.Error()
		}

		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"checks": checks,
		})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(
			promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		))
	}

	watchHandler := handler.NewWatchHandler(registry, queryService, movementRepo)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/watch/status", watchHandler.GetStatus)
		v1.GET("/watch/thresholds", watchHandler.GetThresholds)
		v1.PUT("/watch/thresholds", watchHandler.UpdateThresholds)

		v1.GET("/stock/snapshot", watchHandler.GetSnapshot)
		v1.GET("/stock/movements", watchHandler.ListMovements)
		// Writes share one redis-backed window across instances; the
		// read endpoints stay on the default per-client token bucket.
		v1.POST("/stock/transactions",
			middleware.RateLimitWithConfig(middleware.RateLimitConfig{
				Rate:  cfg.Watch.RateLimit.RPS,
				Burst: cfg.Watch.RateLimit.Burst,
				Limiter: limiter.NewSlidingWindowLimiter(
					redis.GetClient(),
					int(cfg.Watch.RateLimit.RPS),
					time.Second,
				),
			}),
			watchHandler.CreateTransaction)
	}

	return router
}
