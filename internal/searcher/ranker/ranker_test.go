package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

func catDog() *index.Index {
	x := index.New()
	x.AddDocument("1", []string{"cat", "sat", "mat"})
	x.AddDocument("2", []string{"dog", "sat", "log"})
	return x
}

func TestNewStats(t *testing.T) {
	x := index.New()
	x.AddDocument("1", []string{"a", "b", "c", "d"})
	x.AddDocument("2", []string{"a", "b"})
	s := NewStats(x)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 3.0, s.AvgDL)
	assert.Equal(t, map[index.DocID]int{"1": 4, "2": 2}, s.DocLengths)
}

func TestRankSharedTermKeepsFirstScoredOrder(t *testing.T) {
	x := catDog()
	got := Rank(x, NewStats(x), []string{"sat"}, DefaultParams(), 10)
	require.Len(t, got, 2)
	assert.Equal(t, index.DocID("1"), got[0].DocID)
	assert.Equal(t, index.DocID("2"), got[1].DocID)
	assert.Equal(t, got[0].Score, got[1].Score)

	// N=2, df=2: idf = ln(0.5/2.5 + 1); both docs have length 3 = avgdl so
	// the tf part is (1*2.5)/(1+1.5) = 1.
	assert.InDelta(t, math.Log(1.2), got[0].Score, 1e-12)
}

func TestRankFormula(t *testing.T) {
	x := index.New()
	x.AddDocument("1", []string{"a", "b", "a"})
	x.AddDocument("2", []string{"b"})
	x.AddDocument("3", []string{"c", "c"})
	s := NewStats(x)
	p := Params{K1: 0.75, B: 0.75}

	got := Rank(x, s, []string{"a"}, p, 0)
	require.Len(t, got, 1)
	idf := math.Log((3-1+0.5)/(1+0.5) + 1)
	avgdl := (3.0 + 1 + 2) / 3
	tf := (2 * 1.75) / (2 + 0.75*(1-0.75+0.75*3/avgdl))
	assert.InDelta(t, idf*tf, got[0].Score, 1e-12)
}

func TestRankOrdersByScoreAndTruncates(t *testing.T) {
	x := index.New()
	x.AddDocument("1", []string{"x", "y"})
	x.AddDocument("2", []string{"y", "y", "y"})
	x.AddDocument("3", []string{"z"})
	s := NewStats(x)

	got := Rank(x, s, []string{"y"}, DefaultParams(), 0)
	require.Len(t, got, 2)
	assert.Equal(t, index.DocID("2"), got[0].DocID)

	got = Rank(x, s, []string{"y", "x", "missing"}, DefaultParams(), 1)
	require.Len(t, got, 1)
}

func TestRankIdempotent(t *testing.T) {
	x := catDog()
	s := NewStats(x)
	a := Rank(x, s, []string{"sat", "cat"}, DefaultParams(), 10)
	b := Rank(x, s, []string{"sat", "cat"}, DefaultParams(), 10)
	assert.Equal(t, a, b)
}

func TestRankEmptyIndex(t *testing.T) {
	x := index.New()
	got := Rank(x, NewStats(x), []string{"anything"}, DefaultParams(), 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRankUnknownTerms(t *testing.T) {
	x := catDog()
	assert.Empty(t, Rank(x, NewStats(x), []string{"zebra"}, DefaultParams(), 10))
	assert.Empty(t, Rank(x, NewStats(x), nil, DefaultParams(), 10))
}
