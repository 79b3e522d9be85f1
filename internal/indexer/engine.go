package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
)

// IndexCompleteEvent is published after a conversation's index files have
// been replaced. Searchers evict the conversation from their registry and
// cache when they see it.
type IndexCompleteEvent struct {
	Conversation string    `json:"conversation"`
	Language     string    `json:"language"`
	Formats      []string  `json:"formats"`
	Documents    int       `json:"documents"`
	Terms        int       `json:"terms"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// BuildResult describes one finished conversation build.
type BuildResult struct {
	Conversation string
	Language     tokenizer.Language
	Messages     int
	Stats        BuildStats
	Index        *index.Index
}

// Engine turns chatlog files into stored conversation indexes. The message
// store, event publisher and metrics are optional.
type Engine struct {
	cfg       config.IndexerConfig
	language  tokenizer.Language
	store     *store.Store
	messages  resolver.Store
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type EngineOption func(*Engine)

// WithMessageStore records every built conversation's messages so search
// hits can be resolved back to text.
func WithMessageStore(s resolver.Store) EngineOption {
	return func(e *Engine) { e.messages = s }
}

// WithPublisher publishes an IndexCompleteEvent after every build.
func WithPublisher(p kafka.Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine rejects an unknown language or an empty format list.
func NewEngine(cfg config.IndexerConfig, st *store.Store, opts ...EngineOption) (*Engine, error) {
	lang, err := tokenizer.ParseLanguage(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("indexer.language: %w", err)
	}
	if len(cfg.Formats) == 0 {
		return nil, fmt.Errorf("indexer.formats must name at least one format")
	}
	e := &Engine{
		cfg:      cfg,
		language: lang,
		store:    st,
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Documents returns the indexable messages as build input.
func Documents(msgs []chatlog.Message) []Document {
	docs := make([]Document, 0, len(msgs))
	for _, m := range msgs {
		if m.Indexable() {
			docs = append(docs, Document{ID: m.DocNo, Text: m.Text})
		}
	}
	return docs
}

// BuildConversation indexes one chatlog with the configured language.
func (e *Engine) BuildConversation(ctx context.Context, chatlogPath string) (*BuildResult, error) {
	return e.Build(ctx, BuildRequest{ChatlogPath: chatlogPath})
}

// requestLanguage is the language named by req, or the engine default when
// req names none.
func (e *Engine) requestLanguage(req BuildRequest) (tokenizer.Language, error) {
	if req.Language == "" {
		return e.language, nil
	}
	return tokenizer.ParseLanguage(req.Language)
}

// Build runs a full rebuild of the requested conversation: read the
// chatlog, index it, replace the stored index files, store the messages and
// announce completion.
func (e *Engine) Build(ctx context.Context, req BuildRequest) (result *BuildResult, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lang, err := e.requestLanguage(req)
	if err != nil {
		return nil, err
	}
	name := req.name()
	logger := e.logger.With("conversation", name, "language", lang.String())

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
			logger.Error("conversation build failed", "error", err)
		}
		if e.metrics != nil {
			e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
			e.metrics.IndexBuildDuration.WithLabelValues(lang.String()).Observe(time.Since(start).Seconds())
		}
	}()

	msgs, info, err := e.readConversation(req.ChatlogPath, name)
	if err != nil {
		return nil, err
	}
	tok, err := tokenizer.New(lang)
	if err != nil {
		return nil, err
	}
	idx, stats, err := NewBuilder(tok, e.cfg.Workers).Build(ctx, Documents(msgs))
	if err != nil {
		return nil, err
	}
	if err := e.store.Save(name, idx, e.cfg.Formats...); err != nil {
		return nil, err
	}
	builtAt := time.Now().UTC()
	err = e.store.SaveManifest(store.Manifest{
		Conversation: name,
		Language:     lang.String(),
		Formats:      e.cfg.Formats,
		Documents:    stats.Indexed,
		Terms:        stats.Terms,
		BuiltAt:      builtAt,
	})
	if err != nil {
		return nil, err
	}

	if e.messages != nil {
		conv := resolver.Conversation{Info: info, Language: lang.String()}
		if err := e.messages.Store(ctx, conv, msgs); err != nil {
			return nil, fmt.Errorf("storing messages for %s: %w", name, err)
		}
	}
	if e.metrics != nil {
		e.metrics.IndexDocumentsTotal.Add(float64(stats.Indexed))
		e.metrics.IndexDocumentsSkipped.Add(float64(stats.Skipped))
		e.metrics.IndexTerms.WithLabelValues(name).Set(float64(stats.Terms))
	}
	if e.publisher != nil {
		event := kafka.Event{Key: name, Value: IndexCompleteEvent{
			Conversation: name,
			Language:     lang.String(),
			Formats:      e.cfg.Formats,
			Documents:    stats.Indexed,
			Terms:        stats.Terms,
			IndexedAt:    builtAt,
		}}
		if err := e.publisher.Publish(ctx, event); err != nil {
			return nil, fmt.Errorf("announcing index for %s: %w", name, err)
		}
	}

	logger.Info("conversation indexed",
		"messages", len(msgs),
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"terms", stats.Terms,
		"duration", time.Since(start),
	)
	return &BuildResult{
		Conversation: name,
		Language:     lang,
		Messages:     len(msgs),
		Stats:        stats,
		Index:        idx,
	}, nil
}

func (e *Engine) readConversation(path, name string) ([]chatlog.Message, chatlog.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, chatlog.Info{}, fmt.Errorf("opening chatlog: %w", err)
	}
	defer f.Close()
	cols := chatlog.Columns{DocID: e.cfg.DocIDColumn, Message: e.cfg.MessageColumn}
	msgs, err := chatlog.ReadChatlog(f, cols)
	if err != nil {
		return nil, chatlog.Info{}, fmt.Errorf("reading %s: %w", path, err)
	}

	info := chatlog.Info{InternalName: name, DisplayName: name, Platform: chatlog.PlatformOf(name)}
	infoFile, err := os.Open(chatlog.InfoPath(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return msgs, info, nil
	case err != nil:
		return nil, chatlog.Info{}, fmt.Errorf("opening info file: %w", err)
	}
	defer infoFile.Close()
	parsed, err := chatlog.ReadInfo(infoFile)
	if err != nil {
		e.logger.Warn("ignoring unreadable info file", "conversation", name, "error", err)
		return msgs, info, nil
	}
	parsed.InternalName = name
	if parsed.DisplayName == "" {
		parsed.DisplayName = name
	}
	return msgs, parsed, nil
}

// BuildFolder builds every *.chatlog.csv directly inside dir in name order.
// A failing conversation does not stop the others; all failures are joined
// into the returned error.
func (e *Engine) BuildFolder(ctx context.Context, dir string) ([]*BuildResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+chatlog.ChatlogSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing chatlogs: %w", err)
	}
	sort.Strings(paths)
	e.logger.Info("building folder", "dir", dir, "chatlogs", len(paths))

	var results []*BuildResult
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := e.BuildConversation(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
