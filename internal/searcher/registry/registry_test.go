package registry

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
)

type countingLoader struct {
	*store.Store
	loads atomic.Int32
	delay time.Duration
}

func (c *countingLoader) Load(name, format string) (*index.Index, error) {
	c.loads.Add(1)
	time.Sleep(c.delay)
	return c.Store.Load(name, format)
}

func setup(t *testing.T) *countingLoader {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	idx := index.New()
	idx.AddDocument("1", []string{"cat", "sat"})
	idx.AddDocument("2", []string{"dog"})
	require.NoError(t, st.Save("pets", idx, config.FormatBinary))
	require.NoError(t, st.Save("textonly", idx, config.FormatText))
	require.NoError(t, st.SaveManifest(store.Manifest{Conversation: "pets", Language: "turkish"}))
	return &countingLoader{Store: st}
}

func TestGetLoadsOnceAndCaches(t *testing.T) {
	loader := setup(t)
	loader.delay = 20 * time.Millisecond
	r, err := New(loader, config.FormatBinary, tokenizer.English, 4, metrics.NewWithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	convs := make([]*Conversation, 8)
	for i := range convs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Get(context.Background(), "pets")
			assert.NoError(t, err)
			convs[i] = c
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.loads.Load())
	for _, c := range convs {
		assert.Same(t, convs[0], c)
	}
	assert.Equal(t, tokenizer.Turkish, convs[0].Language)
	assert.Equal(t, 2, convs[0].Stats.N)
	assert.Equal(t, []string{"pets"}, r.Loaded())
}

func TestEvictForcesReload(t *testing.T) {
	loader := setup(t)
	r, err := New(loader, config.FormatBinary, tokenizer.English, 4, nil)
	require.NoError(t, err)

	first, err := r.Get(context.Background(), "pets")
	require.NoError(t, err)
	assert.True(t, r.Evict("pets"))
	assert.False(t, r.Evict("pets"))

	second, err := r.Get(context.Background(), "pets")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), loader.loads.Load())
}

func TestGetMissing(t *testing.T) {
	loader := setup(t)
	r, err := New(loader, config.FormatBinary, tokenizer.English, 4, nil)
	require.NoError(t, err)

	_, err = r.Get(context.Background(), "textonly")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	_, err = r.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestDefaultLanguageWithoutManifest(t *testing.T) {
	loader := setup(t)
	r, err := New(loader, config.FormatText, tokenizer.English, 4, nil)
	require.NoError(t, err)
	c, err := r.Get(context.Background(), "textonly")
	require.NoError(t, err)
	assert.Equal(t, tokenizer.English, c.Language)
}

func TestNamesFiltersByFormat(t *testing.T) {
	loader := setup(t)
	r, err := New(loader, config.FormatBinary, tokenizer.English, 4, nil)
	require.NoError(t, err)
	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"pets"}, names)
}

func TestLRUBound(t *testing.T) {
	loader := setup(t)
	r, err := New(loader, config.FormatText, tokenizer.English, 1, nil)
	require.NoError(t, err)
	require.NoError(t, loader.Save("other", index.New(), config.FormatText))

	_, err = r.Get(context.Background(), "textonly")
	require.NoError(t, err)
	_, err = r.Get(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, r.Loaded())
}

func TestGetHonoursContext(t *testing.T) {
	loader := setup(t)
	loader.delay = time.Second
	r, err := New(loader, config.FormatBinary, tokenizer.English, 4, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Get(ctx, "pets")
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}
