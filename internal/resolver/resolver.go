// Package resolver turns search hits (conversation, doc id) back into the
// messages and conversation metadata they refer to.
package resolver

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

// Conversation is the stored metadata for one indexed chat.
type Conversation struct {
	chatlog.Info
	Language     string    `json:"language"`
	MessageCount int       `json:"message_count"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// Resolver looks up messages by conversation and doc id. Unknown
// conversations fail with ErrConversationNotFound and unknown doc ids with
// ErrDocumentNotFound.
type Resolver interface {
	Message(ctx context.Context, conv string, doc index.DocID) (chatlog.Message, error)
	// Window returns up to n messages before doc, doc itself and up to n
	// after it, in conversation order. Unless includeMedia is set, media
	// messages are left out and a media target is replaced by one extra
	// message after it.
	Window(ctx context.Context, conv string, doc index.DocID, n int, includeMedia bool) ([]chatlog.Message, error)
	Conversation(ctx context.Context, conv string) (Conversation, error)
}

// Store is a Resolver that can be populated by the indexer.
type Store interface {
	Resolver
	Store(ctx context.Context, conv Conversation, msgs []chatlog.Message) error
}

// window applies the Window selection to msgs, which must be in sequence
// order, around msgs[target].
func window(msgs []chatlog.Message, target, n int, includeMedia bool) []chatlog.Message {
	keep := func(m chatlog.Message) bool { return includeMedia || !m.IsMedia }

	var before []chatlog.Message
	for i := target - 1; i >= 0 && len(before) < n; i-- {
		if keep(msgs[i]) {
			before = append(before, msgs[i])
		}
	}
	out := make([]chatlog.Message, 0, 2*n+1)
	for i := len(before) - 1; i >= 0; i-- {
		out = append(out, before[i])
	}

	after := n
	if keep(msgs[target]) {
		out = append(out, msgs[target])
	} else {
		after++
	}
	for i := target + 1; i < len(msgs) && after > 0; i++ {
		if keep(msgs[i]) {
			out = append(out, msgs[i])
			after--
		}
	}
	return out
}
