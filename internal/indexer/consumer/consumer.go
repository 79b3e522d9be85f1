// Package consumer drives the indexer engine from Kafka build requests.
package consumer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/kafka"
)

// Builder is the part of indexer.Engine the consumer needs.
type Builder interface {
	Build(ctx context.Context, req indexer.BuildRequest) (*indexer.BuildResult, error)
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that rebuilds the conversation
// named by each BuildRequest. Requests that can never succeed (undecodable,
// invalid, or pointing at an unreadable chatlog) are logged and committed;
// anything else is returned so the offset stays uncommitted and the build
// is retried.
func HandleMessage(b Builder) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[indexer.BuildRequest](value)
		if err != nil {
			logger.Error("failed to decode build request",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing build request",
			"conversation", req.Conversation,
			"chatlog", req.ChatlogPath,
		)
		res, err := b.Build(ctx, req)
		if err != nil {
			if permanent(err) {
				logger.Error("dropping build request",
					"chatlog", req.ChatlogPath,
					"error", err,
				)
				return nil
			}
			return err
		}
		logger.Info("build request completed",
			"conversation", res.Conversation,
			"documents", res.Stats.Indexed,
			"terms", res.Stats.Terms,
		)
		return nil
	}
}

func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrUnsupportedLanguage) ||
		errors.Is(err, fs.ErrNotExist)
}
