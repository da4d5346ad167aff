package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/cache"
	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/export"
	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/internal/rules"
	"github.com/andresuchdata/autopo-replenish/internal/sequence"
	"github.com/andresuchdata/autopo-replenish/internal/source"
	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoRuns is returned by LastRun before any run has been recorded.
var ErrNoRuns = errors.New("no replenishment run recorded")

// ErrRunInProgress is returned when a run is requested while another one is computing.
var ErrRunInProgress = errors.New("a replenishment run is already in progress")

// RunStore persists run summaries.
type RunStore interface {
	Save(ctx context.Context, run domain.RunSummary) error
	Latest(ctx context.Context) (*domain.RunSummary, error)
}

// RunOptions selects the rule profile and snapshot of one run.
type RunOptions struct {
	Profile string
	Source  string
	Loader  source.Loader
}

// Deps are the collaborators of the service. Storage and Runs are optional.
type Deps struct {
	Sequence     sequence.Store
	Writer       *export.Writer
	Storage      storage.ObjectStorage
	BundlePrefix string
	Runs         RunStore
	Cache        cache.RunCache
	Logger       zerolog.Logger
}

// RulesInfo describes the rule profiles available to a run.
type RulesInfo struct {
	File     string                 `json:"file,omitempty"`
	Profiles []string               `json:"profiles"`
	Active   *replenishment.RuleSet `json:"active"`
}

type ReplenishmentService struct {
	rulesFile string
	profile   string
	workers   int
	deps      Deps
	now       func() time.Time

	// one run at a time: the sequence and the output tree are shared
	running sync.Mutex
}

func NewReplenishmentService(cfg config.ReplenishmentConfig, deps Deps) *ReplenishmentService {
	if deps.Cache == nil {
		deps.Cache = cache.NewRunCache(nil, 0)
	}
	if deps.Writer == nil {
		deps.Writer = export.NewWriter(cfg.OutputDir, deps.Logger)
	}
	if deps.Sequence == nil {
		deps.Sequence = sequence.New(cfg, nil, deps.Logger)
	}
	return &ReplenishmentService{
		rulesFile: cfg.RulesFile,
		profile:   cfg.RulesProfile,
		workers:   cfg.Workers,
		deps:      deps,
		now:       time.Now,
	}
}

// Run computes a full replenishment run and exports it. A run either completes
// with every file written or fails before any output is produced.
func (s *ReplenishmentService) Run(ctx context.Context, opts RunOptions) (*domain.RunSummary, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("a snapshot loader is required")
	}
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	profile := opts.Profile
	if profile == "" {
		profile = s.profile
	}

	run := &domain.RunSummary{
		ID:        uuid.New(),
		Profile:   profile,
		Source:    opts.Source,
		Status:    domain.RunPending,
		StartedAt: s.now(),
	}
	logger := s.deps.Logger.With().Str("run_id", run.ID.String()).Logger()

	result, err := s.compute(ctx, opts.Loader, run, logger)
	if err != nil {
		return s.fail(ctx, run, err, logger)
	}

	seq, err := s.deps.Sequence.Next(ctx)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("run sequence: %w", err), logger)
	}
	run.Sequence = seq

	manifest, err := s.deps.Writer.Write(result, seq)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("export: %w", err), logger)
	}
	run.OutputDir = manifest.Dir
	run.Files = manifest.Files

	if err := s.bundle(ctx, run, logger); err != nil {
		s.discard(run, logger)
		return s.fail(ctx, run, err, logger)
	}

	run.Status = domain.RunCompleted
	run.FinishedAt = s.now()
	s.record(ctx, run, logger)

	logger.Info().
		Str("sequence", run.Sequence).
		Str("profile", run.Profile).
		Int("files", len(run.Files)).
		Int("units", run.OrderedUnits).
		Dur("duration", run.Duration()).
		Msg("Replenishment run completed")

	return run, nil
}

func (s *ReplenishmentService) compute(ctx context.Context, loader source.Loader, run *domain.RunSummary, logger zerolog.Logger) (*replenishment.Result, error) {
	rs, err := rules.Load(s.rulesFile, run.Profile)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	run.Profile = rs.Name

	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	engine, err := replenishment.NewEngine(rs,
		replenishment.WithLogger(logger),
		replenishment.WithWorkers(s.workers),
	)
	if err != nil {
		return nil, err
	}

	result, err := engine.Run(ctx, *snap)
	if err != nil {
		return nil, err
	}

	run.Lines = result.Stats.Lines
	run.Skipped = result.Stats.Skipped
	run.Products = result.Stats.Products
	run.OrderedUnits = result.Stats.OrderedUnits
	run.Shortfalls = result.Stats.Shortfalls
	return result, nil
}

// bundle zips the run folder next to it and publishes it when object storage
// is configured. An upload failure does not fail the run: the bundle stays on disk.
func (s *ReplenishmentService) bundle(ctx context.Context, run *domain.RunSummary, logger zerolog.Logger) error {
	data, err := export.Zip(run.OutputDir)
	if err != nil {
		return err
	}

	name := filepath.Base(run.OutputDir) + ".zip"
	bundlePath := filepath.Join(filepath.Dir(run.OutputDir), name)
	if err := os.WriteFile(bundlePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	run.BundlePath = bundlePath

	if s.deps.Storage == nil {
		return nil
	}

	key := name
	if s.deps.BundlePrefix != "" {
		key = path.Join(s.deps.BundlePrefix, name)
	}
	if err := s.deps.Storage.UploadObject(ctx, key, data); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Bundle upload failed, kept locally")
		return nil
	}
	run.BundleKey = key
	return nil
}

// discard removes the exported folder and bundle of a run that did not complete.
func (s *ReplenishmentService) discard(run *domain.RunSummary, logger zerolog.Logger) {
	for _, p := range []string{run.OutputDir, run.BundlePath} {
		if p == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("Failed to remove partial run output")
		}
	}
	run.OutputDir, run.BundlePath, run.Files = "", "", nil
}

func (s *ReplenishmentService) fail(ctx context.Context, run *domain.RunSummary, err error, logger zerolog.Logger) (*domain.RunSummary, error) {
	run.Status = domain.RunFailed
	run.Error = err.Error()
	run.FinishedAt = s.now()
	logger.Error().Err(err).Str("profile", run.Profile).Msg("Replenishment run failed")

	// the failure is still recorded when the caller's context is gone
	s.record(context.WithoutCancel(ctx), run, logger)
	return run, err
}

func (s *ReplenishmentService) record(ctx context.Context, run *domain.RunSummary, logger zerolog.Logger) {
	if s.deps.Runs != nil {
		if err := s.deps.Runs.Save(ctx, *run); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist run summary")
		}
	}
	if err := s.deps.Cache.SetLastRun(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache run summary")
	}
}

// LastRun returns the most recent run, from cache when possible.
func (s *ReplenishmentService) LastRun(ctx context.Context) (*domain.RunSummary, error) {
	if run, ok, err := s.deps.Cache.GetLastRun(ctx); err == nil && ok {
		return run, nil
	} else if err != nil {
		s.deps.Logger.Warn().Err(err).Msg("Last run cache get failed")
	}

	if s.deps.Runs == nil {
		return nil, ErrNoRuns
	}

	run, err := s.deps.Runs.Latest(ctx)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}

	if err := s.deps.Cache.SetLastRun(ctx, run); err != nil {
		s.deps.Logger.Warn().Err(err).Msg("Last run cache set failed")
	}
	return run, nil
}

// Rules loads a profile without running anything, so a rules file can be checked.
func (s *ReplenishmentService) Rules(profile string) (*RulesInfo, error) {
	if profile == "" {
		profile = s.profile
	}
	rs, err := rules.Load(s.rulesFile, profile)
	if err != nil {
		return nil, err
	}

	info := &RulesInfo{File: s.rulesFile, Active: rs, Profiles: []string{rs.Name}}
	if s.rulesFile != "" {
		names, err := rules.Profiles(s.rulesFile)
		if err != nil {
			return nil, err
		}
		info.Profiles = names
	}
	return info, nil
}
