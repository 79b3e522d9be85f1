package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	buildDir := flag.String("build", "", "build every chatlog in this directory before consuming")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"data_dir", cfg.Indexer.DataDir,
		"language", cfg.Indexer.Language,
		"formats", cfg.Indexer.Formats,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Indexer.DataDir)
	if err != nil {
		slog.Error("failed to open index store", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}
	opts := []indexer.EngineOption{indexer.WithMetrics(m)}

	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate postgres", "error", err)
			os.Exit(1)
		}
		opts = append(opts, indexer.WithMessageStore(resolver.NewPostgresResolver(pg)))
		slog.Info("message store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	kafkaEnabled := kafka.Enabled(cfg.Kafka)
	if kafkaEnabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, indexer.WithPublisher(producer))
	}

	engine, err := indexer.NewEngine(cfg.Indexer, st, opts...)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if *buildDir != "" {
		results, err := engine.BuildFolder(ctx, *buildDir)
		slog.Info("initial build finished", "dir", *buildDir, "built", len(results))
		if err != nil {
			slog.Error("some conversations failed to build", "error", err)
		}
	}

	if !kafkaEnabled {
		slog.Info("no kafka brokers configured, indexer service stopped")
		return
	}

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.ConversationIngest,
		consumer.HandleMessage(engine),
	)
	defer kafkaConsumer.Close()
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ConversationIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
	slog.Info("indexer service stopped")
}
