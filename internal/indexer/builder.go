package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

// Document is one message to index.
type Document struct {
	ID   index.DocID
	Text string
}

// BuildStats summarises a Build call.
type BuildStats struct {
	Documents int
	Indexed   int
	Empty     int
	Skipped   int
	Terms     int
	Workers   int
	Duration  time.Duration
}

// Builder constructs a conversation index from a finalised document set.
// Documents are split into contiguous chunks; every chunk is tokenized into
// its own partial index by one goroutine, and the partials are merged in
// chunk order once all workers are done.
type Builder struct {
	tokenizer tokenizer.Tokenizer
	workers   int
	logger    *slog.Logger
}

// NewBuilder returns a Builder using tok. workers <= 0 means GOMAXPROCS.
func NewBuilder(tok tokenizer.Tokenizer, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		tokenizer: tok,
		workers:   workers,
		logger:    slog.Default().With("component", "index-builder"),
	}
}

type chunkStats struct {
	indexed, empty, skipped int
}

// Build indexes docs. A document whose text cannot be tokenized is skipped
// and counted; it never fails the build. Document ids must be unique.
func (b *Builder) Build(ctx context.Context, docs []Document) (*index.Index, BuildStats, error) {
	start := time.Now()
	stats := BuildStats{Documents: len(docs)}
	if err := checkUnique(docs); err != nil {
		return nil, stats, err
	}
	if len(docs) == 0 {
		stats.Duration = time.Since(start)
		return index.New(), stats, nil
	}

	chunkSize := (len(docs) + b.workers - 1) / b.workers
	numChunks := (len(docs) + chunkSize - 1) / chunkSize
	partials := make([]*index.Index, numChunks)
	counts := make([]chunkStats, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	for i := range numChunks {
		lo := i * chunkSize
		hi := min(lo+chunkSize, len(docs))
		g.Go(func() error {
			partial, cs, err := b.buildChunk(gctx, docs[lo:hi])
			if err != nil {
				return err
			}
			partials[i] = partial
			counts[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, fmt.Errorf("building index: %w", err)
	}

	merged := partials[0]
	for i, partial := range partials[1:] {
		merged.Merge(partial)
		partials[i+1] = nil
	}
	for _, cs := range counts {
		stats.Indexed += cs.indexed
		stats.Empty += cs.empty
		stats.Skipped += cs.skipped
	}
	stats.Terms = merged.Len()
	stats.Workers = numChunks
	stats.Duration = time.Since(start)

	b.logger.Info("index built",
		"documents", stats.Documents,
		"indexed", stats.Indexed,
		"empty", stats.Empty,
		"skipped", stats.Skipped,
		"terms", stats.Terms,
		"workers", stats.Workers,
		"duration", stats.Duration,
	)
	return merged, stats, nil
}

func (b *Builder) buildChunk(ctx context.Context, docs []Document) (*index.Index, chunkStats, error) {
	partial := index.New()
	var cs chunkStats
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, cs, err
		}
		terms, err := b.tokenize(doc.Text)
		if err != nil {
			cs.skipped++
			b.logger.Warn("skipping document", "doc_id", doc.ID, "error", err)
			continue
		}
		if len(terms) == 0 {
			cs.empty++
			continue
		}
		partial.AddDocument(doc.ID, terms)
		cs.indexed++
	}
	return partial, cs, nil
}

// tokenize converts a tokenizer panic into an error so one bad message
// cannot take down the whole build.
func (b *Builder) tokenize(text string) (terms []string, err error) {
	if text == "" {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	return b.tokenizer.Tokenize(text)
}

func checkUnique(docs []Document) error {
	seen := make(map[index.DocID]struct{}, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			return fmt.Errorf("%w: duplicate document id %q", apperrors.ErrInvalidInput, doc.ID)
		}
		seen[doc.ID] = struct{}{}
	}
	return nil
}
