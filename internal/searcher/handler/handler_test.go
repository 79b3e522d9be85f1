package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

type stubExecutor struct {
	limits []int
}

func (s *stubExecutor) Execute(_ context.Context, conv, raw string, limit int) (*executor.SearchResult, error) {
	s.limits = append(s.limits, limit)
	switch {
	case conv != "pets":
		return nil, apperrors.Newf(apperrors.ErrConversationNotFound, 404, "conversation %q not found", conv)
	case raw == "AND":
		return nil, apperrors.New(apperrors.ErrInvalidQuery, 400, "dangling operator")
	}
	return &executor.SearchResult{
		Conversation: conv,
		Query:        raw,
		Mode:         query.ModeRanked,
		TotalHits:    1,
		Results:      []ranker.ScoredDoc{{DocID: "1", Score: 2}},
		TermStats:    map[string]int{raw: 1},
	}, nil
}

func (s *stubExecutor) ExecuteAll(_ context.Context, raw string, limit int) (*executor.GlobalResult, error) {
	return &executor.GlobalResult{
		Query:         raw,
		Conversations: 1,
		TotalHits:     1,
		Results:       []executor.Hit{{Conversation: "pets", DocID: "1", Score: 2}},
	}, nil
}

type stubConvs struct{ evicted []string }

func (s *stubConvs) Names() ([]string, error) { return []string{"pets", "unknown"}, nil }
func (s *stubConvs) Evict(name string) bool {
	s.evicted = append(s.evicted, name)
	return true
}

func newServer(t *testing.T, withResolver bool) (*httptest.Server, *stubExecutor, *stubConvs) {
	t.Helper()
	exec := &stubExecutor{}
	convs := &stubConvs{}
	var opts Options
	if withResolver {
		r := resolver.NewMemoryResolver()
		msgs := make([]chatlog.Message, 5)
		for i := range msgs {
			msgs[i] = chatlog.Message{DocNo: index.DocID(strconv.Itoa(i)), Seq: i, Text: "msg " + strconv.Itoa(i)}
		}
		require.NoError(t, r.Store(context.Background(), resolver.Conversation{Info: chatlog.Info{
			InternalName: "pets", DisplayName: "Pets", Platform: "whatsapp",
		}}, msgs))
		opts.Resolver = r
	}
	h := New(exec, convs, opts, 10, 50)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, exec, convs
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSearch(t *testing.T) {
	srv, exec, _ := newServer(t, true)

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/v1/conversations/pets/search?q=cat&resolve=true", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pets", body["conversation"])
	assert.Equal(t, "ranked", body["mode"])
	assert.Equal(t, false, body["cache_hit"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1)

	getJSON(t, srv.URL+"/api/v1/conversations/pets/search?q=cat&limit=500", nil)
	assert.Equal(t, []int{10, 50}, exec.limits, "default limit, then clamped to max")
}

func TestSearchErrors(t *testing.T) {
	srv, _, _ := newServer(t, false)
	cases := []struct {
		url  string
		want int
	}{
		{"/api/v1/conversations/pets/search", http.StatusBadRequest},
		{"/api/v1/conversations/pets/search?q=cat&limit=0", http.StatusBadRequest},
		{"/api/v1/conversations/pets/search?q=AND", http.StatusBadRequest},
		{"/api/v1/conversations/ghosts/search?q=cat", http.StatusNotFound},
		{"/api/v1/search", http.StatusBadRequest},
		{"/api/v1/conversations/pets/messages/1", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		var body map[string]string
		assert.Equal(t, tc.want, getJSON(t, srv.URL+tc.url, &body), tc.url)
		assert.NotEmpty(t, body["error"], tc.url)
	}
}

func TestSearchAll(t *testing.T) {
	srv, _, _ := newServer(t, false)
	var res executor.GlobalResult
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/search?q=cat", &res))
	require.Len(t, res.Results, 1)
	assert.Equal(t, "pets", res.Results[0].Conversation)
}

func TestConversations(t *testing.T) {
	srv, _, _ := newServer(t, true)
	var body struct {
		Conversations []resolver.Conversation `json:"conversations"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/conversations", &body))
	require.Len(t, body.Conversations, 2)
	assert.Equal(t, "Pets", body.Conversations[0].DisplayName)
	assert.Equal(t, "unknown", body.Conversations[1].DisplayName)

	var conv resolver.Conversation
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/conversations/pets", &conv))
	assert.Equal(t, 5, conv.MessageCount)
}

func TestMessageAndWindow(t *testing.T) {
	srv, _, _ := newServer(t, true)

	var msg chatlog.Message
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/conversations/pets/messages/2", &msg))
	assert.Equal(t, "msg 2", msg.Text)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/conversations/pets/messages/99", nil))

	var win struct {
		Messages []chatlog.Message `json:"messages"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/conversations/pets/messages/2/window?n=1", &win))
	require.Len(t, win.Messages, 3)
	assert.Equal(t, index.DocID("1"), win.Messages[0].DocNo)
	assert.Equal(t, index.DocID("3"), win.Messages[2].DocNo)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/conversations/pets/messages/2/window?n=-1", nil))
}

func TestCacheInvalidateWithoutCache(t *testing.T) {
	srv, _, convs := newServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json",
		bytes.NewBufferString(`{"conversation":"pets"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"pets"}, convs.evicted)

	resp, err = http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", bytes.NewBufferString(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
