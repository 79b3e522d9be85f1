package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchURL(t *testing.T) {
	cfg := Config{BaseURL: "http://svc", Limit: 5}
	assert.Equal(t, "http://svc/api/v1/search?q=dinner+tonight&limit=5", cfg.searchURL("dinner tonight"))

	cfg.Conversation = "whatsapp__family"
	assert.Equal(t, "http://svc/api/v1/conversations/whatsapp__family/search?q=%22see+you%22&limit=5", cfg.searchURL(`"see you"`))
}

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Equal(t, time.Duration(1), percentile(lat, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestReadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("dinner\n\n// comment\n  cake AND candles  \n"), 0o644))
	qs, err := readQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dinner", "cake AND candles"}, qs)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = readQueries(empty)
	assert.Error(t, err)
}

func TestSearchRecordsCacheHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "missing" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_hits":1,"cache_hit":true}`))
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL, Limit: 10}
	status, hit, err := search(context.Background(), srv.Client(), cfg.searchURL("cake"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, hit)

	status, hit, err = search(context.Background(), srv.Client(), cfg.searchURL("missing"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, hit)

	stats := NewStats()
	stats.Record(time.Millisecond, http.StatusOK, true, nil)
	stats.Record(time.Millisecond, http.StatusNotFound, false, nil)
	assert.EqualValues(t, 2, stats.total.Load())
	assert.EqualValues(t, 1, stats.success.Load())
	assert.EqualValues(t, 1, stats.cacheHits.Load())
}
