package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-replenish/internal/cache"
	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/drive"
	"github.com/andresuchdata/autopo-replenish/internal/export"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/internal/rules"
	"github.com/andresuchdata/autopo-replenish/internal/sequence"
	"github.com/andresuchdata/autopo-replenish/internal/service"
	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/andresuchdata/autopo-replenish/pkg/logger"
	"github.com/urfave/cli/v2"
)

func runCommand(cfg *config.Config) *cli.Command {
	flags := append(rulesFlags(cfg),
		newDBURLFlag(false),
		&cli.StringFlag{Name: "lines", Usage: "Demand export (CSV or XLSX)", Value: cfg.Replenishment.LinesFile, EnvVars: []string{"LINES_FILE"}},
		&cli.StringFlag{Name: "products", Usage: "Product export (CSV or XLSX)", Value: cfg.Replenishment.ProductsFile, EnvVars: []string{"PRODUCTS_FILE"}},
		&cli.StringFlag{Name: "drive-folder-id", Usage: "Drive folder holding the ERP exports", Value: cfg.Drive.FolderID},
		&cli.StringFlag{Name: "snapshot-date", Usage: "Snapshot day to read from the database (YYYY-MM-DD), latest when empty"},
		&cli.StringFlag{Name: "output-dir", Usage: "Directory receiving the exports", Value: cfg.Replenishment.OutputDir, EnvVars: []string{"OUTPUT_DIR"}},
		&cli.IntFlag{Name: "workers", Usage: "Engine worker count, 0 uses every CPU", Value: cfg.Replenishment.Workers},
		&cli.BoolFlag{Name: "no-upload", Usage: "Keep the bundle local even when object storage is configured"},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Compute a replenishment run and export the order files",
		Flags:  flags,
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			rc := cfg.Replenishment
			rc.RulesFile = c.String("rules")
			rc.RulesProfile = c.String("profile")
			rc.OutputDir = c.String("output-dir")
			rc.Workers = c.Int("workers")

			redisClient, err := cache.Open(cfg.Cache)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			sources := &service.Sources{
				DownloadDir:  cfg.Drive.DownloadDir,
				AllowAnyPath: true,
				Logger:       logger.Component("source"),
			}
			deps := service.Deps{
				Sequence:     sequence.New(rc, redisClient, logger.Log),
				Writer:       export.NewWriter(rc.OutputDir, logger.Component("export")),
				BundlePrefix: cfg.Storage.Prefix,
				Cache:        cache.NewRunCache(redisClient, cfg.Cache.LastRunTTL()),
				Logger:       logger.Component("replenishment"),
			}

			if db := dbFrom(c); db != nil {
				products := cache.NewProductCache(redisClient, cfg.Cache.CatalogTTL())
				sources.Demand = postgres.NewDemandRepository(db)
				sources.Catalog = source.NewCachedCatalog(postgres.NewProductRepository(db), products, logger.Component("catalog"))
				deps.Runs = postgres.NewRunRepository(db)
			}

			if folder := c.String("drive-folder-id"); folder != "" {
				driveService, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
				if err != nil {
					return err
				}
				sources.Fetcher = drive.NewDownloader(driveService)
			}

			if cfg.Storage.Endpoint != "" && !c.Bool("no-upload") {
				objects, err := storage.NewMinioClient(cfg.Storage)
				if err != nil {
					return err
				}
				deps.Storage = objects
			}

			loader, kind, err := sources.Loader(service.SourceRequest{
				LinesFile:    c.String("lines"),
				ProductsFile: c.String("products"),
				FolderID:     c.String("drive-folder-id"),
				SnapshotDate: c.String("snapshot-date"),
			})
			if err != nil {
				return err
			}

			svc := service.NewReplenishmentService(rc, deps)
			run, err := svc.Run(c.Context, service.RunOptions{Source: kind, Loader: loader})
			if err != nil {
				return err
			}
			return printJSON(run)
		},
	}
}

func validateRulesCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "validate-rules",
		Usage: "Load and validate rule profiles without running anything",
		Flags: append(rulesFlags(cfg),
			&cli.BoolFlag{Name: "all", Usage: "Validate every profile in the file"},
		),
		Action: func(c *cli.Context) error {
			path := c.String("rules")
			profiles := []string{c.String("profile")}
			if c.Bool("all") && path != "" {
				names, err := rules.Profiles(path)
				if err != nil {
					return err
				}
				profiles = names
			}

			for _, name := range profiles {
				rs, err := rules.Load(path, name)
				if err != nil {
					return err
				}
				fmt.Printf("%s: ok (%s, %d routes, %d category rules)\n", rs.Name, rs.Profile, len(rs.Routes), len(rs.CategoryRules))
			}
			return nil
		},
	}
}

func ingestCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Store ERP exports as a database snapshot",
		Flags: []cli.Flag{
			newDBURLFlag(true),
			&cli.StringFlag{Name: "lines", Usage: "Demand export (CSV or XLSX)", Required: true},
			&cli.StringFlag{Name: "products", Usage: "Product export (CSV or XLSX); empty reads catalog columns from the demand export"},
		},
		Before: initDB,
		After:  closeDB,
		Action: func(c *cli.Context) error {
			db := dbFrom(c)

			redisClient, err := cache.Open(cfg.Cache)
			if err != nil {
				logger.Log.Warn().Err(err).Msg("Redis unavailable, catalog cache not invalidated")
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			ingest := drive.NewIngestService(nil,
				postgres.NewDemandRepository(db),
				postgres.NewProductRepository(db),
				cache.NewProductCache(redisClient, cfg.Cache.CatalogTTL()),
				cfg.Drive.DownloadDir,
			)

			snap, err := source.NewFileLoader(c.String("lines"), c.String("products"), logger.Component("source")).Load(c.Context)
			if err != nil {
				return err
			}
			report, err := ingest.Ingest(c.Context, snap)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
