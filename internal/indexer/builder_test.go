package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

func english(t testing.TB) tokenizer.Tokenizer {
	t.Helper()
	tok, err := tokenizer.New(tokenizer.English)
	require.NoError(t, err)
	return tok
}

func TestBuildCatDog(t *testing.T) {
	docs := []Document{
		{ID: "1", Text: "the cat sat on the mat"},
		{ID: "2", Text: "the dog sat on the log"},
	}
	idx, stats, err := NewBuilder(english(t), 2).Build(context.Background(), docs)
	require.NoError(t, err)

	rec, ok := idx.Lookup("sat")
	require.True(t, ok)
	assert.Equal(t, 2, rec.DocumentFrequency)
	assert.Equal(t, map[index.DocID]index.Positions{"1": {2}, "2": {2}}, rec.Postings)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 5, stats.Terms)
	assert.NoError(t, idx.Validate())
}

func TestBuildEmpty(t *testing.T) {
	idx, stats, err := NewBuilder(english(t), 4).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, stats.Documents)
}

func TestBuildWorkerCountDoesNotChangeResult(t *testing.T) {
	var docs []Document
	for i := range 57 {
		docs = append(docs, Document{
			ID:   index.DocID(fmt.Sprint(i)),
			Text: strings.Repeat(fmt.Sprintf("message %d about cats and dogs ", i%7), 1+i%3),
		})
	}
	want, _, err := NewBuilder(english(t), 1).Build(context.Background(), docs)
	require.NoError(t, err)
	for _, workers := range []int{2, 3, 8, 100} {
		got, stats, err := NewBuilder(english(t), workers).Build(context.Background(), docs)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "workers=%d", workers)
		assert.LessOrEqual(t, stats.Workers, workers)
		assert.NoError(t, got.Validate())
	}
}

type flakyTokenizer struct{ tokenizer.Tokenizer }

func (f flakyTokenizer) Tokenize(text string) ([]string, error) {
	switch text {
	case "explode":
		panic("boom")
	case "reject":
		return nil, errors.New("cannot parse")
	}
	return f.Tokenizer.Tokenize(text)
}

func TestBuildSkipsBadDocuments(t *testing.T) {
	docs := []Document{
		{ID: "1", Text: "cat"},
		{ID: "2", Text: "explode"},
		{ID: "3", Text: "reject"},
		{ID: "4", Text: ""},
		{ID: "5", Text: "bad \xff utf8"},
		{ID: "6", Text: "dog"},
	}
	idx, stats, err := NewBuilder(flakyTokenizer{english(t)}, 3).Build(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.Empty)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, []index.DocID{"1", "6"}, idx.Docs())
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	docs := []Document{{ID: "1", Text: "a"}, {ID: "1", Text: "b"}}
	_, _, err := NewBuilder(english(t), 1).Build(context.Background(), docs)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewBuilder(english(t), 2).Build(ctx, []Document{{ID: "1", Text: "cat"}})
	assert.ErrorIs(t, err, context.Canceled)
}
