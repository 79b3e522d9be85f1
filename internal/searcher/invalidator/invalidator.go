// Package invalidator keeps a searcher consistent with the indexer: every
// index-complete event evicts the rebuilt conversation from the registry
// and drops its cached results.
package invalidator

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/kafka"
)

type Evictor interface {
	Evict(name string) bool
}

type CacheInvalidator interface {
	InvalidateConversation(ctx context.Context, conv string) (int64, error)
}

// HandleIndexComplete returns a MessageHandler for the index-complete
// topic. cache may be nil. A cache failure is returned so the event is
// redelivered; the registry eviction has already happened by then.
func HandleIndexComplete(reg Evictor, cache CacheInvalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-invalidator")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.IndexCompleteEvent](value)
		if err != nil || event.Conversation == "" {
			logger.Error("dropping malformed index-complete event",
				"key", string(key),
				"error", err,
			)
			return nil
		}
		evicted := reg.Evict(event.Conversation)
		var deleted int64
		if cache != nil {
			deleted, err = cache.InvalidateConversation(ctx, event.Conversation)
			if err != nil {
				return err
			}
		}
		logger.Info("conversation refreshed",
			"conversation", event.Conversation,
			"terms", event.Terms,
			"was_loaded", evicted,
			"cache_keys_deleted", deleted,
		)
		return nil
	}
}
