package resolver

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

type memConversation struct {
	meta  Conversation
	msgs  []chatlog.Message
	bySeq map[index.DocID]int
}

// MemoryResolver keeps chatlog messages in process memory. The CLI uses it
// when no Postgres is configured.
type MemoryResolver struct {
	mu    sync.RWMutex
	convs map[string]*memConversation
}

func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{convs: make(map[string]*memConversation)}
}

// Store replaces everything held for conv.InternalName.
func (r *MemoryResolver) Store(_ context.Context, conv Conversation, msgs []chatlog.Message) error {
	sorted := make([]chatlog.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	bySeq := make(map[index.DocID]int, len(sorted))
	for i, m := range sorted {
		bySeq[m.DocNo] = i
	}
	conv.MessageCount = len(sorted)
	if conv.IndexedAt.IsZero() {
		conv.IndexedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.convs[conv.InternalName] = &memConversation{meta: conv, msgs: sorted, bySeq: bySeq}
	r.mu.Unlock()
	return nil
}

func (r *MemoryResolver) lookup(conv string) (*memConversation, error) {
	r.mu.RLock()
	c, ok := r.convs[conv]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrConversationNotFound, http.StatusNotFound, "conversation %q not found", conv)
	}
	return c, nil
}

func (c *memConversation) position(conv string, doc index.DocID) (int, error) {
	i, ok := c.bySeq[doc]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "message %q not found in %q", doc, conv)
	}
	return i, nil
}

func (r *MemoryResolver) Message(_ context.Context, conv string, doc index.DocID) (chatlog.Message, error) {
	c, err := r.lookup(conv)
	if err != nil {
		return chatlog.Message{}, err
	}
	i, err := c.position(conv, doc)
	if err != nil {
		return chatlog.Message{}, err
	}
	return c.msgs[i], nil
}

func (r *MemoryResolver) Window(_ context.Context, conv string, doc index.DocID, n int, includeMedia bool) ([]chatlog.Message, error) {
	c, err := r.lookup(conv)
	if err != nil {
		return nil, err
	}
	i, err := c.position(conv, doc)
	if err != nil {
		return nil, err
	}
	return window(c.msgs, i, max(n, 0), includeMedia), nil
}

func (r *MemoryResolver) Conversation(_ context.Context, conv string) (Conversation, error) {
	c, err := r.lookup(conv)
	if err != nil {
		return Conversation{}, err
	}
	return c.meta, nil
}
