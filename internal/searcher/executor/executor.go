package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/registry"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
)

type SearchResult struct {
	Conversation string             `json:"conversation"`
	Query        string             `json:"query"`
	Mode         query.Mode         `json:"mode"`
	TotalHits    int                `json:"total_hits"`
	Results      []ranker.ScoredDoc `json:"results"`
	TermStats    map[string]int     `json:"term_stats"`
}

// GlobalResult is the merged outcome of a query run against every stored
// conversation.
type GlobalResult struct {
	Query         string     `json:"query"`
	Mode          query.Mode `json:"mode"`
	Conversations int        `json:"conversations"`
	TotalHits     int        `json:"total_hits"`
	Results       []Hit      `json:"results"`
	Failed        []string   `json:"failed,omitempty"`
}

// Conversations is the part of registry.Registry the executor reads from.
type Conversations interface {
	Get(ctx context.Context, name string) (*registry.Conversation, error)
	Names() ([]string, error)
}

type Executor struct {
	convs         Conversations
	params        ranker.Params
	maxConcurrent int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// New returns an Executor. maxConcurrent bounds how many conversations
// ExecuteAll searches at once; m may be nil.
func New(convs Conversations, params ranker.Params, maxConcurrent int, m *metrics.Metrics) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Executor{
		convs:         convs,
		params:        params,
		maxConcurrent: maxConcurrent,
		metrics:       m,
		logger:        slog.Default().With("component", "query-executor"),
	}
}

// Execute runs raw against one conversation. Ranked queries are scored
// with BM25. Boolean queries are ordered by how often their non-negated
// terms occur in each hit, ties in document order. limit <= 0 returns every
// hit.
func (e *Executor) Execute(ctx context.Context, conv string, raw string, limit int) (*SearchResult, error) {
	c, err := e.convs.Get(ctx, conv)
	if err != nil {
		return nil, err
	}
	plan, err := query.Parse(raw, c.Tokenizer)
	if err != nil {
		e.record(query.Classify(raw), "error", 0)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}

	var hits []ranker.ScoredDoc
	if plan.Mode == query.ModeRanked {
		hits = ranker.Rank(c.Index, c.Stats, plan.Terms, e.params, 0)
	} else {
		hits = booleanHits(c.Index, plan)
	}
	result := &SearchResult{
		Conversation: conv,
		Query:        raw,
		Mode:         plan.Mode,
		TotalHits:    len(hits),
		Results:      truncate(hits, limit),
		TermStats:    termStats(c.Index, plan.PositiveTerms()),
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.record(plan.Mode, resultType, len(result.Results))
	e.logger.Debug("query executed",
		"conversation", conv,
		"query", raw,
		"plan", plan.String(),
		"mode", plan.Mode.String(),
		"hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Executor) record(mode query.Mode, resultType string, n int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(mode.String(), resultType).Inc()
	if resultType != "error" {
		e.metrics.SearchResultsCount.WithLabelValues(mode.String()).Observe(float64(n))
	}
}

// booleanHits scores each matching document by the summed frequency of
// the plan's non-negated terms.
func booleanHits(idx *index.Index, plan *query.Plan) []ranker.ScoredDoc {
	docs := plan.Evaluate(idx).Sorted()
	terms := plan.PositiveTerms()
	hits := make([]ranker.ScoredDoc, len(docs))
	for i, doc := range docs {
		score := 0
		for _, t := range terms {
			if rec, ok := idx.Lookup(t); ok {
				score += len(rec.Postings[doc])
			}
		}
		hits[i] = ranker.ScoredDoc{DocID: doc, Score: float64(score)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

func termStats(idx *index.Index, terms []string) map[string]int {
	stats := make(map[string]int, len(terms))
	for _, t := range terms {
		stats[t] = idx.DocumentFrequency(t)
	}
	return stats
}

func truncate(hits []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}

// ExecuteAll runs raw against every stored conversation and merges the
// per-conversation top results into one list. A conversation that fails to
// load is logged and reported in Failed; a query that cannot be parsed
// fails the whole call.
func (e *Executor) ExecuteAll(ctx context.Context, raw string, limit int) (*GlobalResult, error) {
	names, err := e.convs.Names()
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	results := make([]*SearchResult, len(names))
	failed := make([]bool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i, name := range names {
		g.Go(func() error {
			res, err := e.Execute(gctx, name, raw, limit)
			switch {
			case err == nil:
				results[i] = res
			case errors.Is(err, apperrors.ErrInvalidQuery), gctx.Err() != nil:
				return err
			default:
				e.logger.Error("conversation search failed", "conversation", name, "error", err)
				failed[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	global := &GlobalResult{Query: raw, Mode: query.Classify(raw), Conversations: len(names)}
	perConv := make([][]Hit, 0, len(names))
	for i, res := range results {
		if failed[i] {
			global.Failed = append(global.Failed, names[i])
			continue
		}
		global.TotalHits += res.TotalHits
		hits := make([]Hit, len(res.Results))
		for j, d := range res.Results {
			hits[j] = Hit{Conversation: res.Conversation, DocID: d.DocID, Score: d.Score}
		}
		perConv = append(perConv, hits)
	}
	global.Results = Merge(perConv, limit)

	e.logger.Info("query executed across conversations",
		"query", raw,
		"conversations", len(names),
		"failed", len(global.Failed),
		"hits", global.TotalHits,
		"results", len(global.Results),
	)
	return global, nil
}
