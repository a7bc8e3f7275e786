package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tobiaswidmer/poisearch/internal/analytics"
	"github.com/tobiaswidmer/poisearch/internal/catalog"
	"github.com/tobiaswidmer/poisearch/internal/geofence"
	"github.com/tobiaswidmer/poisearch/internal/index"
	"github.com/tobiaswidmer/poisearch/internal/index/scoring"
	"github.com/tobiaswidmer/poisearch/internal/refresh"
	"github.com/tobiaswidmer/poisearch/internal/searcher/cache"
	"github.com/tobiaswidmer/poisearch/internal/searcher/handler"
	"github.com/tobiaswidmer/poisearch/pkg/config"
	"github.com/tobiaswidmer/poisearch/pkg/health"
	"github.com/tobiaswidmer/poisearch/pkg/kafka"
	"github.com/tobiaswidmer/poisearch/pkg/logger"
	"github.com/tobiaswidmer/poisearch/pkg/metrics"
	"github.com/tobiaswidmer/poisearch/pkg/middleware"
	"github.com/tobiaswidmer/poisearch/pkg/postgres"
	pkgredis "github.com/tobiaswidmer/poisearch/pkg/redis"
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
	slog.Info("starting poi search service",
		"port", cfg.Server.Port,
		"q", cfg.Index.Q,
		"scoring", cfg.Index.Scoring,
		"source", cfg.Index.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	fences, err := loadGeofences(cfg.Geofence)
	if err != nil {
		slog.Error("failed to load geofences", "error", err)
		os.Exit(1)
	}

	build, pgClient, err := buildFunc(cfg, fences, m)
	if err != nil {
		slog.Error("failed to set up catalog source", "error", err)
		os.Exit(1)
	}
	if pgClient != nil {
		defer pgClient.Close()
	}

	var resultCache *cache.ResultCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	refreshOpts := []refresh.Option{refresh.WithAnalytics(collector)}
	if resultCache != nil {
		refreshOpts = append(refreshOpts, refresh.WithCache(resultCache))
	}
	if m != nil {
		refreshOpts = append(refreshOpts, refresh.WithMetrics(m))
	}
	refresher := refresh.New(build, cfg.Index.RefreshInterval, refreshOpts...)
	if err := refresher.Refresh(ctx, "startup"); err != nil {
		slog.Error("initial index build failed", "error", err)
		os.Exit(1)
	}
	go refresher.Run(ctx)

	refreshConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogRefresh, refresher.TriggerHandler())
	go func() {
		if err := refreshConsumer.Start(ctx); err != nil {
			slog.Error("refresh consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		idx := refresher.Current()
		if idx == nil || idx.Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d records", idx.Len())}
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
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := handler.New(refresher, resultCache, collector, m, cfg.Index.DefaultK, cfg.Index.MaxK)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

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
	}()

	slog.Info("poi search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("poi search service stopped")
}

// loadGeofences reads every configured fence file into a channel registry.
// Returns nil when geofencing is disabled.
func loadGeofences(cfg config.GeofenceConfig) (*geofence.Registry, error) {
	if !cfg.Enabled || len(cfg.Channels) == 0 {
		return nil, nil
	}
	registry := geofence.NewRegistry()
	for channel, path := range cfg.Channels {
		set, err := geofence.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", channel, err)
		}
		registry.Register(channel, set)
		slog.Info("geofence loaded", "channel", channel, "polygons", len(set.Polygons))
	}
	return registry, nil
}

// buildFunc returns the index build closure for the configured catalog
// source, plus the postgres client when one was opened.
func buildFunc(cfg *config.Config, fences *geofence.Registry, m *metrics.Metrics) (refresh.BuildFunc, *postgres.Client, error) {
	opts := []index.Option{index.WithScoring(scoring.Method(cfg.Index.Scoring))}
	if fences != nil {
		opts = append(opts, index.WithGeofences(fences))
	}
	if m != nil {
		opts = append(opts, index.WithFenceDrops(m.GeofenceDropsTotal.Inc))
	}

	switch cfg.Index.Source {
	case "csv":
		path := cfg.Index.CSVPath
		return func(ctx context.Context) (*index.PointIndex, error) {
			idx := index.NewPointIndex(cfg.Index.Q, opts...)
			if err := idx.BuildFromFile(path); err != nil {
				return nil, err
			}
			return idx, nil
		}, nil, nil
	case "postgres":
		pgClient, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		source := catalog.NewSource(pgClient, cfg.Postgres)
		return func(ctx context.Context) (*index.PointIndex, error) {
			rows, err := source.Pull(ctx)
			if err != nil {
				return nil, err
			}
			idx := index.NewPointIndex(cfg.Index.Q, opts...)
			if err := idx.BuildFromRows(rows); err != nil {
				return nil, err
			}
			return idx, nil
		}, pgClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Index.Source)
	}
}
