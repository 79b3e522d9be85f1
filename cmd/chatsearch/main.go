// Command chatsearch builds and queries conversation indexes from the
// command line without the indexer or search services.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/registry"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/logger"
)

// globals set by persistent flags
var (
	configPath string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "chatsearch",
	Short:         "Build and search positional indexes over chat conversations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "index directory, overrides indexer.dataDir")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides logging.level")

	rootCmd.AddCommand(buildCmd, searchCmd, searchAllCmd, showCmd, convertCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "chatsearch: %v\n", err)
		os.Exit(1)
	}
}

// env is the state shared by every subcommand.
type env struct {
	cfg   *config.Config
	store *store.Store
}

func loadEnv() (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(configPath); err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Indexer.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	st, err := store.New(cfg.Indexer.DataDir)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: st}, nil
}

func (e *env) registry(format string) (*registry.Registry, error) {
	if format == "" {
		format = e.cfg.Search.Format
	}
	lang, err := tokenizer.ParseLanguage(e.cfg.Indexer.Language)
	if err != nil {
		return nil, err
	}
	return registry.New(e.store, format, lang, e.cfg.Search.RegistrySize, nil)
}

func (e *env) executor(format string) (*executor.Executor, *registry.Registry, error) {
	reg, err := e.registry(format)
	if err != nil {
		return nil, nil, err
	}
	params := ranker.Params{K1: e.cfg.Search.K1, B: e.cfg.Search.B}
	return executor.New(reg, params, e.cfg.Search.MaxConcurrentQueries, nil), reg, nil
}
