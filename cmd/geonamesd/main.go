// Command geonamesd runs the geonames-engine query service: it loads the
// dataset once at startup (optionally warm-starting from an on-disk
// snapshot), serves the C8 query-parameter front-end and administrative
// endpoints over HTTP, and keeps the dataset current via a background
// autoreload loop.
//
// It collapses the teacher's gateway/indexer/searcher/analytics process
// split into a single binary, the way a self-contained in-memory engine
// calls for: there is one shared generation to build and one process to
// serve it from, not a Kafka-mediated pipeline of independently scaled
// services.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fmidev/geonames-engine/internal/adminauth"
	"github.com/fmidev/geonames-engine/internal/cache"
	"github.com/fmidev/geonames-engine/internal/cacheinvalidate"
	"github.com/fmidev/geonames-engine/internal/demland"
	"github.com/fmidev/geonames-engine/internal/engine"
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/httpapi"
	"github.com/fmidev/geonames-engine/internal/loader"
	"github.com/fmidev/geonames-engine/internal/mockcorpus"
	"github.com/fmidev/geonames-engine/internal/rank"
	"github.com/fmidev/geonames-engine/internal/snapshot"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/telemetry"
	"github.com/fmidev/geonames-engine/internal/workerpool"
	"github.com/fmidev/geonames-engine/pkg/config"
	"github.com/fmidev/geonames-engine/pkg/health"
	"github.com/fmidev/geonames-engine/pkg/kafka"
	"github.com/fmidev/geonames-engine/pkg/logger"
	"github.com/fmidev/geonames-engine/pkg/metrics"
	"github.com/fmidev/geonames-engine/pkg/middleware"
	"github.com/fmidev/geonames-engine/pkg/postgres"
	pkgredis "github.com/fmidev/geonames-engine/pkg/redis"
)

// poolSize and poolQueueSize bound the C8 query front-end's concurrency, per
// §5's "a worker pool with a bounded size and queue" rule. The specification
// names the requirement but not a number; these are a starting point for
// production tuning, not a derived constant.
const (
	poolSize      = 32
	poolQueueSize = 256
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting geonames-engine", "port", cfg.Server.Port, "mock", cfg.Mock)

	var db *postgres.Client
	if cfg.Mock {
		sqliteDB, err := mockcorpus.Open()
		if err != nil {
			slog.Error("failed to build mock corpus", "error", err)
			os.Exit(1)
		}
		db = &postgres.Client{DB: sqliteDB}
		slog.Info("mock mode: serving the bundled in-memory fixture corpus instead of Postgres")
	} else {
		if cfg.Database.Disable {
			slog.Error("database.disable is set; geonames-engine has no source to load from")
			os.Exit(1)
		}
		db, err = postgres.New(cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dem := demland.NewBinding(nil, nil, cfg.Dem.MaxDemResolution)

	ld := loader.New(db.DB, dem, buildRankTables(cfg.Priorities), loader.Options{
		Strict:                 cfg.Strict.Strict,
		WhereGeonames:          cfg.Database.Where.Geonames,
		WhereAlternateGeonames: cfg.Database.Where.AlternateGeonames,
		AsciiAutocomplete:      cfg.Locale.AsciiAutocomplete,
		RemoveUnderscores:      cfg.Locale.RemoveUnderscores,
		Locale:                 cfg.Locale.Locale,
		Mock:                   cfg.Mock,
	})

	queryNormalizer := suggest.NewNormalizer(suggest.NewCollator(cfg.Locale.Locale), cfg.Locale.RemoveUnderscores)
	pool := workerpool.New(poolSize, poolQueueSize)
	resultCache := cache.New(cfg.Cache.MaxSize, cfg.Cache.CacheEmptyNameResults)

	eng, err := engine.New(ld, resultCache, pool, dem, queryNormalizer, int64(cfg.Priorities.Match), cfg.Security.Names.Deny, cfg.Security.Disable)
	if err != nil {
		slog.Error("failed to construct engine", "error", err)
		os.Exit(1)
	}

	if err := initialLoad(ctx, eng, ld, cfg.Snapshot); err != nil {
		slog.Error("initial load failed", "error", err)
		os.Exit(1)
	}
	slog.Info("initial load complete", "locations", eng.Meta().LocationCount)

	// Kafka producers/consumers for reload and query telemetry, grounded on
	// the teacher's searcher main's analytics wiring: a consumer is built
	// twice because the aggregator it ultimately reports to doesn't exist
	// until after the first consumer does, and the handler needs the
	// aggregator.
	reloadProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReloadEvents)
	queryProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
	collector := telemetry.NewCollector(reloadProducer, queryProducer, 10000, 1.0)
	collector.Start(ctx)
	defer collector.Close()
	eng.SetCollector(collector)
	slog.Info("telemetry collector started")

	reloadConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReloadEvents, nil)
	queryConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, nil)
	agg := telemetry.NewAggregator(reloadConsumer, queryConsumer)
	reloadConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReloadEvents, telemetry.ReloadHandler(agg))
	queryConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, telemetry.QueryHandler(agg))
	agg = telemetry.NewAggregator(reloadConsumer, queryConsumer)

	go func() {
		if err := agg.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("telemetry aggregator stopped", "error", err)
		}
	}()
	slog.Info("telemetry aggregator started")

	var publisher *cacheinvalidate.Publisher
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cross-instance cache invalidation disabled", "error", err)
	} else {
		defer redisClient.Close()
		publisher = cacheinvalidate.NewPublisher(redisClient, cfg.Redis.Channel)
		subscriber := cacheinvalidate.NewSubscriber(redisClient, cfg.Redis.Channel, resultCache)
		go func() {
			if err := subscriber.Listen(ctx); err != nil && ctx.Err() == nil {
				slog.Error("cache invalidation subscriber stopped", "error", err)
			}
		}()
		slog.Info("cache invalidation wired", "channel", cfg.Redis.Channel)
	}

	if cfg.Autoreload.Period > 0 {
		autoreloader := loader.NewAutoreloader(ld, cfg.Autoreload.Period, cfg.Autoreload.GracePeriod, eng.Reload)
		go autoreloader.Run(ctx)
		slog.Info("autoreload enabled", "period", cfg.Autoreload.Period, "grace_period", cfg.Autoreload.GracePeriod)
	}

	validator := adminauth.NewValidator(db)
	limiter := adminauth.NewRateLimiter(time.Minute)

	queryHandler := httpapi.New(eng, collector)
	adminHandler := httpapi.NewAdminHandler(eng, publisher)
	router := httpapi.Router(queryHandler, adminHandler, validator, limiter, cfg.Server.WriteTimeout)

	checker := health.NewChecker()
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		meta := eng.Meta()
		if meta.LocationCount > 0 || cfg.Mock {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d locations loaded", meta.LocationCount)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no locations loaded"}
	})
	checker.Register("database", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if cfg.Metrics.Enabled {
		m := metrics.New()
		chain = middleware.Metrics(m)(chain)
		metricsShutdown := metrics.StartServer(cfg.Metrics.Port)
		defer metricsShutdown(context.Background())
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := eng.Shutdown(shutdownCtx); err != nil {
			slog.Error("engine shutdown error", "error", err)
		}
	}()

	slog.Info("geonames-engine listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("geonames-engine stopped")
}

// initialLoad performs the engine's first, synchronous load. When snapshot
// warm-starting is enabled and the most recent on-disk snapshot's
// fingerprint still matches the database's current one, it completes that
// snapshot in-process via Warmstart instead of re-running the full SQL
// phase; otherwise it falls through to a plain Load and, on success, writes
// a fresh snapshot for the next restart.
func initialLoad(ctx context.Context, eng *engine.Engine, ld *loader.Loader, snapCfg config.SnapshotConfig) error {
	if !snapCfg.Enabled {
		return eng.Load(ctx)
	}

	path, ok := latestSnapshot(snapCfg.Dir)
	if !ok {
		slog.Info("no snapshot found, falling back to a full load")
		if err := eng.Load(ctx); err != nil {
			return err
		}
		return writeSnapshotAsync(eng, ld, snapCfg.Dir)
	}

	restored, err := snapshot.Restore(path)
	if err != nil {
		slog.Warn("snapshot restore failed, falling back to a full load", "path", path, "error", err)
		if err := eng.Load(ctx); err != nil {
			return err
		}
		return writeSnapshotAsync(eng, ld, snapCfg.Dir)
	}

	fp, ok, err := ld.Fingerprint(ctx)
	if err != nil {
		return err
	}
	if !ok || !restored.HasFingerprint || fp != restored.Fingerprint {
		slog.Info("snapshot fingerprint stale, falling back to a full load", "path", path)
		if err := eng.Load(ctx); err != nil {
			return err
		}
		return writeSnapshotAsync(eng, ld, snapCfg.Dir)
	}

	warm := ld.Warmstart(restored)
	eng.Restore(warm)
	slog.Info("warm-started from snapshot", "path", path, "fingerprint", warm.Fingerprint)
	return nil
}

// writeSnapshotAsync persists the engine's freshly loaded generation for
// the next restart's warm start. Snapshot writing never blocks startup or
// fails it: a write failure just means the next restart falls back to a
// full load again.
func writeSnapshotAsync(eng *engine.Engine, ld *loader.Loader, dir string) error {
	go func() {
		if path, err := eng.WriteSnapshot(dir); err != nil {
			slog.Warn("writing startup snapshot failed", "error", err)
		} else {
			slog.Info("wrote startup snapshot", "path", path)
		}
	}()
	return nil
}

// latestSnapshot returns the lexicographically greatest (and therefore most
// recent, since snapshot filenames embed a fixed-width UnixNano) .gnsnap
// file under dir.
func latestSnapshot(dir string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.gnsnap"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true
}

// buildRankTables converts the YAML-sourced PriorityConfig into the
// internal int64/geoname.Feature-keyed rank.Tables the ranker consults.
func buildRankTables(cfg config.PriorityConfig) *rank.Tables {
	t := rank.NewTables()
	t.ExactMatch = int64(cfg.Match)
	for k, v := range cfg.Countries {
		t.Countries[k] = int64(v)
	}
	for k, v := range cfg.Areas {
		t.Areas[k] = int64(v)
	}
	for k, v := range cfg.Populations {
		t.Populations[k] = int64(v)
	}
	for k, v := range cfg.Features {
		t.Features[k] = v
	}
	for mapName, features := range cfg.FeatureMaps {
		converted := make(map[geoname.Feature]int64, len(features))
		for feature, value := range features {
			converted[geoname.Feature(feature)] = int64(value)
		}
		t.FeatureMaps[mapName] = converted
	}
	return t
}

