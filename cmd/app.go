package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/openrecipes/harvester/internal/config"
	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/discovery"
	"github.com/openrecipes/harvester/internal/events"
	"github.com/openrecipes/harvester/internal/extract"
	"github.com/openrecipes/harvester/internal/fingerprint"
	"github.com/openrecipes/harvester/internal/logger"
	"github.com/openrecipes/harvester/internal/metrics"
	"github.com/openrecipes/harvester/internal/normalize"
	"github.com/openrecipes/harvester/internal/providers"
	"github.com/openrecipes/harvester/internal/ratelimit"
	"github.com/openrecipes/harvester/internal/retry"
	"github.com/openrecipes/harvester/internal/saga"
)

const metricsReadHeaderTimeout = 5 * time.Second

// app wires the application components for one CLI invocation.
type app struct {
	cfg  *config.Config
	log  logger.Logger
	db   *sqlx.DB
	rdb  *redis.Client
	bus  *events.Bus
	orch *saga.Orchestrator
}

// newApp loads configuration and builds the full component graph.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logger.Level = "debug"
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	registry, err := providers.NewRegistry(cfg.Providers, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewBus(log)
	metrics.New(prometheus.DefaultRegisterer).Subscribe(bus)
	subscribeLogging(bus, log)

	orch := saga.NewOrchestrator(saga.Params{
		Batches:      database.NewBatchRepository(db),
		Recipes:      database.NewRecipeRepository(db),
		Fingerprints: fingerprint.NewService(database.NewFingerprintRepository(db), rdb, log),
		Limiter:      ratelimit.New(ratelimit.Config{}, log),
		Executor:     retry.NewExecutor(log, nil),
		Bus:          bus,
		Providers:    registry,
		Discovery:    discovery.NewRouter(log),
		Extractor:    extract.NewSlug(),
		Normalizer:   normalize.NewStatic(cfg.IngredientMappings),
		BaseDelay:    cfg.Harvest.BaseDelay,
		Logger:       log,
	})

	return &app{cfg: cfg, log: log, db: db, rdb: rdb, bus: bus, orch: orch}, nil
}

// serveMetrics exposes the Prometheus endpoint in the background for the
// lifetime of the command.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Harvest.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Harvest.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Warn("metrics server stopped", logger.Error(err))
		}
	}()
}

// Close drains in-flight event handlers and releases resources.
func (a *app) Close() {
	a.bus.Drain()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.db.Close()
	_ = a.log.Sync()
}

// subscribeLogging wires structured-log handlers for batch lifecycle
// events.
func subscribeLogging(bus *events.Bus, log logger.Logger) {
	bus.Subscribe(events.BatchCompletedName, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.BatchCompleted); ok {
			log.Info("batch finished",
				logger.String("batch_id", ev.BatchID),
				logger.String("provider_id", ev.ProviderID),
				logger.Int("processed", ev.Processed),
				logger.Int("skipped", ev.Skipped),
				logger.Int("failed", ev.Failed),
				logger.Bool("partial", ev.Partial),
			)
		}
		return nil
	})
	bus.Subscribe(events.IngredientMappingMissingName, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.IngredientMappingMissing); ok {
			log.Warn("ingredient mapping missing",
				logger.String("provider_id", ev.ProviderID),
				logger.String("provider_code", ev.ProviderCode),
			)
		}
		return nil
	})
}
