// Package registry keeps recently queried conversation indexes loaded in
// memory together with their ranking statistics.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
)

// Conversation is a loaded, read-only index. It is shared by every query
// against the conversation and must not be mutated.
type Conversation struct {
	Name      string
	Language  tokenizer.Language
	Tokenizer tokenizer.Tokenizer
	Index     *index.Index
	Stats     ranker.Stats
	Format    string
	LoadedAt  time.Time
}

// Loader reads stored indexes. *store.Store implements it.
type Loader interface {
	Load(name, format string) (*index.Index, error)
	LoadManifest(name string) (store.Manifest, error)
	Exists(name, format string) bool
	List() ([]string, error)
}

type Registry struct {
	loader   Loader
	format   string
	language tokenizer.Language
	loaded   *lru.Cache[string, *Conversation]
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

// New returns a registry holding at most size conversations loaded in
// format. Conversations without a manifest are queried with
// defaultLanguage. m may be nil.
func New(loader Loader, format string, defaultLanguage tokenizer.Language, size int, m *metrics.Metrics) (*Registry, error) {
	cache, err := lru.New[string, *Conversation](size)
	if err != nil {
		return nil, fmt.Errorf("creating registry cache: %w", err)
	}
	return &Registry{
		loader:   loader,
		format:   format,
		language: defaultLanguage,
		loaded:   cache,
		metrics:  m,
		logger:   slog.Default().With("component", "index-registry", "format", format),
		gens:     make(map[string]uint64),
	}, nil
}

// Get returns the loaded conversation, reading it from the store on a
// miss. Concurrent misses for the same name share one load.
func (r *Registry) Get(ctx context.Context, name string) (*Conversation, error) {
	if conv, ok := r.loaded.Get(name); ok {
		return conv, nil
	}
	ch := r.group.DoChan(name, func() (any, error) {
		if conv, ok := r.loaded.Get(name); ok {
			return conv, nil
		}
		gen := r.generation(name)
		conv, err := r.load(name)
		if err != nil {
			return nil, err
		}
		if r.generation(name) == gen {
			r.loaded.Add(name, conv)
		}
		return conv, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: loading %s: %v", apperrors.ErrTimeout, name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Conversation), nil
	}
}

func (r *Registry) generation(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[name]
}

func (r *Registry) load(name string) (*Conversation, error) {
	start := time.Now()
	idx, err := r.loader.Load(name, r.format)
	if err != nil {
		r.recordLoad("failure")
		if errors.Is(err, apperrors.ErrIndexNotFound) {
			return nil, apperrors.Newf(apperrors.ErrConversationNotFound, http.StatusNotFound, "conversation %q has no %s index", name, r.format)
		}
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	lang := r.language
	manifest, err := r.loader.LoadManifest(name)
	switch {
	case err == nil:
		if parsed, perr := tokenizer.ParseLanguage(manifest.Language); perr == nil {
			lang = parsed
		} else {
			r.logger.Warn("manifest names unknown language, using default",
				"conversation", name, "language", manifest.Language)
		}
	case !errors.Is(err, apperrors.ErrIndexNotFound):
		r.logger.Warn("unreadable manifest, using default language", "conversation", name, "error", err)
	}
	tok, err := tokenizer.New(lang)
	if err != nil {
		r.recordLoad("failure")
		return nil, err
	}

	conv := &Conversation{
		Name:      name,
		Language:  lang,
		Tokenizer: tok,
		Index:     idx,
		Stats:     ranker.NewStats(idx),
		Format:    r.format,
		LoadedAt:  time.Now(),
	}
	r.recordLoad("success")
	r.logger.Info("conversation loaded",
		"conversation", name,
		"language", lang.String(),
		"terms", idx.Len(),
		"docs", conv.Stats.N,
		"duration", time.Since(start),
	)
	return conv, nil
}

func (r *Registry) recordLoad(status string) {
	if r.metrics != nil {
		r.metrics.IndexLoadsTotal.WithLabelValues(r.format, status).Inc()
	}
}

// Evict drops name so the next Get reloads it from the store. A load
// already in flight is not cached.
func (r *Registry) Evict(name string) bool {
	r.mu.Lock()
	r.gens[name]++
	r.mu.Unlock()
	r.group.Forget(name)
	removed := r.loaded.Remove(name)
	r.logger.Info("conversation evicted", "conversation", name, "was_loaded", removed)
	return removed
}

// Names lists the conversations stored in the registry's format.
func (r *Registry) Names() ([]string, error) {
	all, err := r.loader.List()
	if err != nil {
		return nil, err
	}
	names := all[:0]
	for _, name := range all {
		if r.loader.Exists(name, r.format) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Loaded returns the names currently held in memory.
func (r *Registry) Loaded() []string {
	return r.loaded.Keys()
}
