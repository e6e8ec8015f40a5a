package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minjaeoh/quality-metrics-service/internal/api"
	"github.com/minjaeoh/quality-metrics-service/internal/core/services/metrics"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/cache"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/database"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/database/repositories"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/queue"
	"github.com/minjaeoh/quality-metrics-service/internal/pkg/config"
	"github.com/minjaeoh/quality-metrics-service/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Initialize(cfg.Environment)
	log := logger.Get()
	cfg.LogConfig()

	db, err := database.NewPostgresDB(&cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Views fall back to computing per request when the cache is unavailable
	snapshotCache, err := cache.NewRedisCache(&cfg.Cache, log)
	if err != nil {
		log.Warn("snapshot cache unavailable, views will compute per request",
			slog.Any("error", err))
		snapshotCache = nil
	} else {
		defer snapshotCache.Close()
	}

	queueClient, err := queue.NewAsynqClient(&cfg.Queue, log)
	if err != nil {
		log.Error("failed to create queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer queueClient.Close()

	defectRepo := repositories.NewDefectRepository(db.DB, log)
	qualityRepo := repositories.NewQualityRepository(db.DB, log)
	priceRepo := repositories.NewPriceRepository(db.DB, log)
	metricRepo := repositories.NewMetricRepository(db.DB, log)
	batchRepo := repositories.NewBatchRepository(db.DB, log)
	qrRepo := repositories.NewQuickResponseRepository(db.DB, log)

	metricSvc := metrics.NewService(metricRepo, log)

	handler := api.NewHandler(
		&api.QueueEnqueuer{Client: queueClient},
		defectRepo, qualityRepo, priceRepo, batchRepo, qrRepo,
		metricSvc, snapshotCache, cfg.Upload, log,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("http server shutdown failed", slog.Any("error", err))
	}
}
