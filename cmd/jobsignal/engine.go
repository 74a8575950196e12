package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"jobsignal-engine/internal/aggregate"
	"jobsignal-engine/internal/config"
	"jobsignal-engine/internal/events"
	"jobsignal-engine/internal/ingest"
	"jobsignal-engine/internal/lifecycle"
	"jobsignal-engine/internal/logging"
	"jobsignal-engine/internal/metrics"
	"jobsignal-engine/internal/normalize"
	"jobsignal-engine/internal/sources"
	"jobsignal-engine/internal/store"
	"jobsignal-engine/internal/taxonomy"
)

// engine bundles everything a subcommand needs after bootstrap.
type engine struct {
	cfg      config.Config
	log      *zap.Logger
	db       *store.DB
	registry *sources.Registry
	hub      *events.Hub
	lock     *flock.Flock

	ingester   *ingest.Ingester
	sweeper    *lifecycle.Sweeper
	aggregator *aggregate.Aggregator
}

// dataDir resolves the engine data directory: flag, then env, then cwd.
func dataDir() string {
	if flagDataDir != "" {
		return flagDataDir
	}
	if d := os.Getenv("JOBSIGNAL_DATA_DIR"); d != "" {
		return d
	}
	return "."
}

// openEngine runs the full bootstrap: data dir, process lock, config chain,
// logger, store, registry. The caller must Close the result.
func openEngine(ctx context.Context) (*engine, error) {
	dir := dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	// One engine process per data dir: sqlite has a single writer and the
	// spool archive step must not race a second drain.
	lock := flock.New(filepath.Join(dir, "jobsignal.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data dir %s is in use by another jobsignal process", dir)
	}

	eng, err := buildEngine(ctx, dir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	eng.lock = lock
	return eng, nil
}

func buildEngine(ctx context.Context, dir string) (*engine, error) {
	userCfgPath, err := config.EnsureUserConfig(dir, flagDefaultConfig)
	if err != nil {
		return nil, fmt.Errorf("config bootstrap: %w", err)
	}
	cfg, err := config.Load(userCfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", userCfgPath, err)
	}
	if err := config.OverlaySources(&cfg, filepath.Join(dir, "sources.yml")); err != nil {
		return nil, fmt.Errorf("sources overlay: %w", err)
	}

	cfg, check := config.NormalizeAndValidate(cfg)
	log := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	for _, w := range check.Warnings {
		log.Warn("config warning", zap.String("warning", w))
	}
	if !check.OK() {
		return nil, fmt.Errorf("config invalid:\n  - %s", strings.Join(check.Errors, "\n  - "))
	}

	// Relative intake paths anchor to the data dir.
	cfg.Intake.SpoolDir = resolveDir(dir, cfg.Intake.SpoolDir, "spool")
	cfg.Intake.MacroDir = resolveDir(dir, cfg.Intake.MacroDir, "macro")

	registry, err := sources.NewRegistry(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("source registry: %w", err)
	}

	rules := taxonomy.DefaultRules()
	if cfg.Taxonomy.RulesPath != "" {
		if rules, err = taxonomy.LoadRules(cfg.Taxonomy.RulesPath); err != nil {
			return nil, err
		}
	}

	db, err := store.Open(filepath.Join(dir, "jobsignal.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(db.Pool); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := store.SyncSources(ctx, db.Pool, registry.All()); err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics.Init()

	eng := &engine{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: registry,
		hub:      events.NewHub(),
		ingester: &ingest.Ingester{
			DB:              db,
			Log:             log,
			Registry:        registry,
			Parser:          taxonomy.NewParser(rules),
			Metros:          normalize.NewMetroTable(cfg.Metros),
			ReviewThreshold: cfg.Review.Threshold,
		},
		sweeper: &lifecycle.Sweeper{
			DB:            db,
			Log:           log,
			StalenessDays: cfg.Lifecycle.StalenessDays,
		},
		aggregator: &aggregate.Aggregator{
			DB:              db,
			Log:             log,
			Registry:        registry,
			WindowDays:      cfg.Aggregation.WindowDays,
			MaxParallelKeys: cfg.Aggregation.MaxParallelKeys,
			UpsertsPerSec:   cfg.Aggregation.UpsertsPerSec,
		},
	}

	log.Info("engine ready",
		zap.String("data_dir", dir),
		zap.String("config", userCfgPath),
		zap.Int("sources", registry.Len()))
	return eng, nil
}

func resolveDir(base, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (e *engine) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
}

// The pass methods run one batch pass each and publish its completion to SSE
// subscribers. The daemon schedules them; one-shot commands call the
// underlying components directly.

func (e *engine) ingestPass(ctx context.Context) error {
	stats, macro, err := e.ingester.DrainSpool(ctx, e.cfg.Intake.SpoolDir, e.cfg.Intake.MacroDir)
	if err != nil {
		return err
	}
	e.hub.Publish(events.Make(events.TypeIngestComplete, stats.RunID, stats))
	if macro.Received > 0 {
		e.hub.Publish(events.Make(events.TypeMacroComplete, macro.RunID, macro))
	}
	return nil
}

func (e *engine) sweepPass(ctx context.Context) error {
	stats, err := e.sweeper.Run(ctx)
	if err != nil {
		return err
	}
	e.hub.Publish(events.Make(events.TypeSweepComplete, stats.RunID, stats))
	return nil
}

func (e *engine) aggregatePass(ctx context.Context) error {
	stats, err := e.aggregator.Run(ctx)
	if err != nil {
		return err
	}
	e.hub.Publish(events.Make(events.TypeAggregateComplete, stats.RunID, stats))
	return nil
}
