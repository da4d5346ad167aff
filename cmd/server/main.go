package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/api"
	"github.com/andresuchdata/autopo-replenish/internal/cache"
	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/drive"
	"github.com/andresuchdata/autopo-replenish/internal/export"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/internal/sequence"
	"github.com/andresuchdata/autopo-replenish/internal/service"
	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/andresuchdata/autopo-replenish/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON(os.Stdout)
	}

	ctx := context.Background()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}

	redisClient, err := cache.Open(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	catalog := source.NewCachedCatalog(
		postgres.NewProductRepository(db),
		cache.NewProductCache(redisClient, cfg.Cache.CatalogTTL()),
		logger.Component("catalog"),
	)
	sources := &service.Sources{
		Demand:       postgres.NewDemandRepository(db),
		Catalog:      catalog,
		DownloadDir:  cfg.Drive.DownloadDir,
		InputDir:     cfg.Replenishment.InputDir,
		LinesFile:    cfg.Replenishment.LinesFile,
		ProductsFile: cfg.Replenishment.ProductsFile,
		Logger:       logger.Component("source"),
	}
	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		sources.Fetcher = drive.NewDownloader(driveService)
	}

	deps := service.Deps{
		Sequence:     sequence.New(cfg.Replenishment, redisClient, logger.Log),
		Writer:       export.NewWriter(cfg.Replenishment.OutputDir, logger.Component("export")),
		BundlePrefix: cfg.Storage.Prefix,
		Runs:         postgres.NewRunRepository(db),
		Cache:        cache.NewRunCache(redisClient, cfg.Cache.LastRunTTL()),
		Logger:       logger.Component("replenishment"),
	}
	if cfg.Storage.Endpoint != "" {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		deps.Storage = objects
	}

	router := api.NewRouter(&api.Services{
		Replenishment: service.NewReplenishmentService(cfg.Replenishment, deps),
		Sources:       sources,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// runs are synchronous, give an in-flight one time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
