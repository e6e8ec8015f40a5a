package main

import (
	"log/slog"
	"os"

	"github.com/minjaeoh/quality-metrics-service/internal/core/services/ingest"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/cache"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/database"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/database/repositories"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
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

	snapshotCache, err := cache.NewRedisCache(&cfg.Cache, log)
	if err != nil {
		log.Warn("snapshot cache unavailable, uploads will skip invalidation",
			slog.Any("error", err))
		snapshotCache = nil
	} else {
		defer snapshotCache.Close()
	}

	factory := parsers.NewParserFactory(&parsers.ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    cfg.Upload.MaxFileSizeMB * 1024 * 1024,
	})

	defectRepo := repositories.NewDefectRepository(db.DB, log)
	qualityRepo := repositories.NewQualityRepository(db.DB, log)
	priceRepo := repositories.NewPriceRepository(db.DB, log)

	var invalidator ingest.SnapshotInvalidator
	if snapshotCache != nil {
		invalidator = snapshotCache
	}

	ingestSvc := ingest.NewService(factory, defectRepo, qualityRepo, priceRepo, invalidator, log)

	server, err := queue.NewAsynqServer(&cfg.Queue, log)
	if err != nil {
		log.Error("failed to create queue server", slog.Any("error", err))
		os.Exit(1)
	}

	server.HandleFunc(queue.TaskTypeUploadIngest, queue.NewUploadTaskHandler(ingestSvc, log))

	if err := server.Start(); err != nil {
		log.Error("queue server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
