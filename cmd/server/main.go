package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"caseform/internal/audit"
	"caseform/internal/catalog"
	"caseform/internal/jwttoken"
	"caseform/internal/platform/config"
	"caseform/internal/platform/httpserver"
	"caseform/internal/platform/logger"
	platformmetrics "caseform/internal/platform/metrics"
	"caseform/internal/platform/middleware"
	platformredis "caseform/internal/platform/redis"
	recordmetrics "caseform/internal/record/metrics"
	"caseform/internal/remote"
	"caseform/internal/session"
	httptransport "caseform/internal/transport/http"
)

// main wires the process-wide collaborators and keeps the server lifecycle
// small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx := context.Background()

	source, cleanupCatalog, err := buildCatalogSource(ctx, cfg, log)
	if err != nil {
		log.Error("catalog source setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanupCatalog()

	publisher, cleanupAudit, err := buildAuditPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("audit setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanupAudit()

	var services remote.Services
	if cfg.RemoteBaseURL == "" {
		log.Warn("no remote base URL configured, using the in-memory backend")
		services = remote.NewMemory().Services()
	} else {
		client := remote.NewHTTPClient(cfg.RemoteBaseURL, &http.Client{Timeout: 30 * time.Second}, log)
		services = client.Services()
	}

	manager := session.NewManager(session.ManagerConfig{
		Services: services,
		Catalog:  catalog.NewCache(source),
		Audit:    publisher,
		Metrics:  recordmetrics.New(),
		Logger:   log,
	})

	var validator middleware.JWTValidator
	if cfg.AuthDisabled {
		log.Warn("authentication disabled")
	} else {
		validator = jwttoken.NewJWTService(cfg.JWTSigningKey, "caseform", "caseform-api")
	}

	handler := httptransport.NewHandler(manager, validator, platformmetrics.New(), log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting caseform", slog.String("addr", cfg.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// buildCatalogSource selects the reference-data source and optionally wraps it
// with the shared redis snapshot.
func buildCatalogSource(ctx context.Context, cfg config.Server, log *slog.Logger) (catalog.Source, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var source catalog.Source = catalog.NewStaticSource()
	if cfg.CatalogSource == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)
		source = catalog.NewPostgresSource(pool)
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return nil, cleanup, err
	}
	if rdb != nil {
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		source = catalog.NewRedisSnapshotSource(source, rdb.Client, config.CatalogSnapshotTTL)
		log.Info("catalog redis snapshot enabled")
	}

	return source, cleanup, nil
}

// buildAuditPublisher wires the audit trail: in-memory by default, postgres
// when a DSN is configured, with an optional kafka fan-out.
func buildAuditPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (*audit.Publisher, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var store audit.Store = audit.NewInMemoryStore()
	if cfg.AuditDSN != "" {
		db, err := sql.Open("postgres", cfg.AuditDSN)
		if err != nil {
			return nil, cleanup, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = db.Close() })
		store = audit.NewPostgresStore(db)
	}

	opts := []audit.Option{audit.WithLogger(log)}
	if cfg.AuditBuffer > 0 {
		opts = append(opts, audit.WithAsyncBuffer(cfg.AuditBuffer))
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, sink.Close)
		opts = append(opts, audit.WithSink(sink))
		log.Info("audit kafka sink enabled", slog.String("topic", cfg.AuditTopic))
	}

	publisher := audit.NewPublisher(store, opts...)
	cleanups = append(cleanups, publisher.Close)
	return publisher, cleanup, nil
}
