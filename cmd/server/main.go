package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nandanugg/fleet-geozone/config"
	"github.com/nandanugg/fleet-geozone/module/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg, logger)
	if err != nil {
		return err
	}
	defer mqttClient.Disconnect(250)

	redisClient, err := config.NewRedis(cfg)
	if err != nil {
		return err
	}
	var rdb redis.Cmdable
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		rdb = redisClient
	} else {
		logger.Warn("REDIS_ADDR not set, current-zone read model disabled")
	}

	coreModule, err := core.Build(core.Deps{
		DB:         db,
		AMQP:       amqpConn,
		MQTT:       mqttClient,
		Redis:      rdb,
		Registerer: prometheus.DefaultRegisterer,
		Logger:     logger,
		Workers:    cfg.TrackerWorkers,
		QueueSize:  cfg.TrackerQueueSize,
	})
	if err != nil {
		return err
	}

	if err := coreModule.LoadZones(ctx); err != nil {
		return err
	}
	if err := coreModule.StartSubscribers(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	defer coreModule.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	config.NewHealthChecker(db, amqpConn, mqttClient, rdb).Register(r)
	r.GET("/metrics", gin.WrapH(coreModule.MetricsHandler()))
	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
