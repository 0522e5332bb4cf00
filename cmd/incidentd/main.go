package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/consolecfg"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/debounce"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/httpapi"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/store/postgres"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/telemetry"
)

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Println(version)
		return
	}

	var (
		configPath  = flag.String("config", "config/console.yaml", "console config path")
		bind        = flag.String("bind", "", "API listen address (overrides config)")
		metricsBind = flag.String("metrics-bind", "", "metrics listen address (overrides config)")
		dsn         = flag.String("postgres-dsn", "", "monitoring store DSN (overrides config)")
	)
	flag.Parse()

	cfg, err := consolecfg.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *bind != "" {
		cfg.HTTP.Bind = *bind
	}
	if *metricsBind != "" {
		cfg.HTTP.MetricsBind = *metricsBind
	}
	if *dsn != "" {
		cfg.Storage.PostgresDSN = *dsn
	}
	if cfg.Storage.PostgresDSN == "" {
		log.Fatal("storage.postgres_dsn is required")
	}

	logger, err := telemetry.NewLogger(cfg.Log.Development)
	if err != nil {
		log.Fatalf("setup logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("incidentd stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg consolecfg.ConsoleConfig, logger *zap.Logger) error {
	shutdownTracer, err := telemetry.SetupTracerProvider(ctx, telemetry.TracerConfig{
		ServiceName:    "rsm-incidentd",
		Endpoint:       cfg.OTLP.Endpoint,
		StdoutFallback: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("setup tracer provider: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracer(sctx)
	}()

	if cfg.Storage.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.Storage.PostgresDSN, logger); err != nil {
			return err
		}
	}

	pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := postgres.New(pool)

	resolver, closeResolver, err := buildResolver(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeResolver()

	engine := incident.NewReconstructor(store, store.Probes(), store.Metrics(), resolver,
		incident.WithLogger(logger.Named("incident")),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := httpapi.NewMetrics(registry)
	handler := httpapi.NewHandler(engine, httpapi.Config{
		DefaultLimit:      cfg.Pagination.DefaultLimit,
		MaxLimit:          cfg.Pagination.MaxLimit,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		ValidateResponses: cfg.HTTP.ValidateResponses,
	}, metrics, logger.Named("http"))

	metricsServer := &http.Server{
		Addr:              cfg.HTTP.MetricsBind,
		Handler:           metricsMux(registry, pool),
		ReadHeaderTimeout: 5 * time.Second,
	}
	apiServer := &http.Server{
		Addr:              cfg.HTTP.Bind,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{metricsServer, apiServer} {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}
	logger.Info("incidentd listening",
		zap.String("bind", cfg.HTTP.Bind),
		zap.String("metrics_bind", cfg.HTTP.MetricsBind),
		zap.String("version", version),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = apiServer.Shutdown(sctx)
	_ = metricsServer.Shutdown(sctx)
	logger.Info("incidentd shut down")
	return runErr
}

// buildResolver prefers configured debounce values and falls back to the
// store's macros. A configured redis address adds the cache in front.
func buildResolver(ctx context.Context, cfg consolecfg.ConsoleConfig, store *postgres.Store, logger *zap.Logger) (incident.DebounceResolver, func(), error) {
	var resolver incident.DebounceResolver = store
	if len(cfg.Checks) > 0 {
		resolver = debounce.NewStaticResolver(cfg.Checks)
	}
	if cfg.Cache.RedisAddr == "" {
		return resolver, func() {}, nil
	}

	client, err := debounce.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		logger.Warn("debounce cache disabled", zap.String("redis_addr", cfg.Cache.RedisAddr), zap.Error(err))
		return resolver, func() {}, nil
	}
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	cached := debounce.NewCachedResolver(resolver, client, ttl, logger.Named("debounce"))
	return cached, func() { _ = client.Close() }, nil
}

func metricsMux(registry *prometheus.Registry, pool *pgxpool.Pool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}
