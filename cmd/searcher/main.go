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

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/invalidator"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/registry"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "format", cfg.Search.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()

	st, err := store.New(cfg.Indexer.DataDir)
	if err != nil {
		slog.Error("failed to open index store", "error", err)
		os.Exit(1)
	}
	checker.Register("index_store", health.DirCheck(st.Dir()))

	lang, err := tokenizer.ParseLanguage(cfg.Indexer.Language)
	if err != nil {
		slog.Error("invalid indexer language", "error", err)
		os.Exit(1)
	}
	reg, err := registry.New(st, cfg.Search.Format, lang, cfg.Search.RegistrySize, m)
	if err != nil {
		slog.Error("failed to create index registry", "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Addr != "" {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var messages resolver.Resolver
	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, message lookup disabled", "error", err)
		} else {
			defer pg.Close()
			if err := pg.Migrate(ctx); err != nil {
				slog.Error("failed to migrate postgres", "error", err)
				os.Exit(1)
			}
			messages = resolver.NewPostgresResolver(pg)
			checker.Register("postgres", health.PingCheck(pg.Ping, true))
		}
	}

	if kafka.Enabled(cfg.Kafka) {
		var inv invalidator.CacheInvalidator
		if queryCache != nil {
			inv = queryCache
		}
		// Every searcher replica needs every event, so each uses its own group.
		kcfg := cfg.Kafka
		host, _ := os.Hostname()
		kcfg.ConsumerGroup = fmt.Sprintf("chatsearch-searcher-%s-%d", host, os.Getpid())
		eventConsumer := kafka.NewConsumer(kcfg, cfg.Kafka.Topics.IndexComplete, invalidator.HandleIndexComplete(reg, inv))
		defer eventConsumer.Close()
		go func() {
			if err := eventConsumer.Start(ctx); err != nil {
				slog.Error("index-complete consumer error", "error", err)
			}
		}()
		slog.Info("listening for index updates", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	params := ranker.Params{K1: cfg.Search.K1, B: cfg.Search.B}
	exec := executor.New(reg, params, cfg.Search.MaxConcurrentQueries, m)
	h := handler.New(exec, reg, handler.Options{
		Cache:    queryCache,
		Resolver: messages,
		Metrics:  m,
	}, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
