package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	segkafka "github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (e.g. configs/development.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting textsearch", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		metricsServer, err := metrics.Listen(cfg.Metrics.Port, prometheus.DefaultGatherer)
		if err != nil {
			slog.Error("metrics server disabled", "error", err)
		} else {
			defer metricsServer.Shutdown(context.Background())
		}
	}

	checker := health.NewChecker()

	// Analytics: events are aggregated locally unless the aggregate is read
	// back from the shared topic.
	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	localAggregate := aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		if cfg.Kafka.AggregateFromTopic {
			localAggregate = nil
			analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, segkafka.FirstOffset, analytics.HandleEvent(aggregator))
			go func() {
				if err := analyticsConsumer.Start(ctx); err != nil {
					slog.Error("analytics consumer stopped", "error", err)
				}
			}()
		}
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}, true))
	}
	collector := analytics.NewCollector(localAggregate, publisher, cfg.Ingest.AnalyticsBuffer)
	collector.Start(ctx)
	defer collector.Close()

	s := store.New(analytics.NewStoreObserver(m, collector))
	checker.Register("store", storeCheck(s, m))

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.Connect(ctx, cfg.Postgres, resilience.RetryConfig{MaxAttempts: 5})
		if err != nil {
			slog.Error("postgres unavailable, continuing without it", "error", err)
		} else {
			defer db.Close()
			if err := db.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
				slog.Warn("postgres pool metrics not registered", "error", err)
			}
			checker.Register("postgres", health.PingCheck(db.Ping, true))
		}
	}
	// Background writers finish before the database closes.
	var background sync.WaitGroup
	defer background.Wait()
	history := startSnapshots(ctx, cfg.Postgres, db, aggregator, &background)

	p := pipeline.New(s, extractor.New(cfg.Ingest.ExtractTimeout), m)
	loadDocuments(ctx, cfg, p, db)

	if cfg.Kafka.Enabled {
		ingestConsumer := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, segkafka.FirstOffset, consumer.HandleMessage(p)))
		go func() {
			if err := ingestConsumer.Start(ctx); err != nil {
				slog.Error("ingest consumer stopped", "error", err)
			}
		}()
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, pkgredis.IsNilError)
			checker.Register("redis", redisCheck(redisClient))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
	}
	handler := router.New(router.Handlers{
		Documents: ingesthandler.New(p, s, cfg.Server.MaxUploadBytes),
		Search:    searchhandler.New(executor.New(s, cfg.Search), s, queryCache, collector, m, cfg.Search.DefaultSnippets),
		Analytics: analytics.NewHandler(aggregator),
		History:   history,
		Health:    checker,
	}, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout(),
		Metrics:        m,
		RateLimiter:    limiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("textsearch listening", "addr", server.Addr, "documents", s.Len())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// ListenAndServe returns as soon as Shutdown starts; in-flight handlers
	// may still Track events until it finishes.
	<-shutdownDone

	slog.Info("textsearch stopped")
}

// loadDocuments ingests the startup sources. A source that fails to load is
// logged and the service starts with whatever did load.
func loadDocuments(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, db *postgres.Client) {
	var sources []loader.Source
	if cfg.Dataset.Enabled {
		sources = append(sources, loader.Directory{Dir: cfg.Dataset.Dir})
	}
	if db != nil && cfg.Postgres.Table != "" {
		sources = append(sources, loader.Postgres{DB: db.DB, Table: cfg.Postgres.Table})
	}
	if len(sources) == 0 {
		return
	}
	n, err := loader.LoadAll(ctx, p, sources...)
	if err != nil {
		slog.Error("startup load incomplete", "loaded", n, "error", err)
		return
	}
	slog.Info("startup documents loaded", "count", n)
}

// startSnapshots creates the snapshot table and saves the aggregate on an
// interval until ctx ends. It returns nil when snapshots are not possible.
func startSnapshots(ctx context.Context, cfg config.PostgresConfig, db *postgres.Client, agg *analytics.Aggregator, wg *sync.WaitGroup) *snapshot.Store {
	if db == nil || cfg.SnapshotTable == "" {
		return nil
	}
	history := snapshot.New(db.DB, cfg.SnapshotTable)
	if err := history.EnsureTable(ctx); err != nil {
		slog.Error("analytics snapshots disabled", "error", err)
		return nil
	}
	wg.Go(func() { history.Run(ctx, agg, cfg.SnapshotInterval) })
	return history
}

func storeCheck(s *store.Store, m *metrics.Metrics) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		if s.Poisoned() {
			m.StorePoisoned.Set(1)
			return health.ComponentHealth{Status: health.StatusDown, Message: apperrors.ErrStorePoisoned.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", s.Len())}
	}
}

func redisCheck(c *pkgredis.Client) health.Check {
	ping := health.PingCheck(c.Ping, true)
	return func(ctx context.Context) health.ComponentHealth {
		if state := c.BreakerState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return ping(ctx)
	}
}
