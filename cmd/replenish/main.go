package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func rulesFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "rules",
			Usage:   "Rule profiles file (YAML or JSON); empty uses the built-in profile",
			Value:   cfg.Replenishment.RulesFile,
			EnvVars: []string{"RULES_FILE"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "Rule profile name",
			Value:   cfg.Replenishment.RulesProfile,
			EnvVars: []string{"RULES_PROFILE"},
		},
	}
}

// initDB opens the database when a connection string was given.
func initDB(c *cli.Context) error {
	url := c.String("db-url")
	if url == "" {
		return nil
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	wrapped := postgres.Wrap(db, "pgx")
	if err := wrapped.EnsureSchema(c.Context); err != nil {
		db.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, dbKey, wrapped)
	return nil
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	app := &cli.App{
		Name:  "replenish",
		Usage: "Compute store replenishment orders from ERP snapshots",
		Commands: []*cli.Command{
			runCommand(cfg),
			validateRulesCommand(cfg),
			ingestCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("replenish failed")
		os.Exit(1)
	}
}
