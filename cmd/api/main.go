package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/andresuchdata/autopo-replenish/internal/cache"
	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/drive"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}

	redisClient, err := cache.Open(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, catalog cache not invalidated on ingest")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ingestService := drive.NewIngestService(driveService,
		postgres.NewDemandRepository(db),
		postgres.NewProductRepository(db),
		cache.NewProductCache(redisClient, cfg.Cache.CatalogTTL()),
		cfg.Drive.DownloadDir,
	)

	r := mux.NewRouter()
	drive.NewHandler(driveService, ingestService).RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive ingest server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive ingest server stopped")
	}
}
