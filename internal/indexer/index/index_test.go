package index

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catDog() *Index {
	x := New()
	x.AddDocument("1", []string{"cat", "sat", "mat"})
	x.AddDocument("2", []string{"dog", "sat", "log"})
	return x
}

func TestAddDocument(t *testing.T) {
	x := catDog()

	rec, ok := x.Lookup("sat")
	require.True(t, ok)
	assert.Equal(t, 2, rec.DocumentFrequency)
	want := map[DocID]Positions{"1": {2}, "2": {2}}
	if diff := cmp.Diff(want, rec.Postings); diff != "" {
		t.Errorf("sat postings (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, x.Len())
	assert.Equal(t, 2, x.DocCount())
	assert.NoError(t, x.Validate())
}

func TestRepeatedTermCountsDocumentOnce(t *testing.T) {
	x := New()
	x.AddDocument("7", []string{"ha", "ha", "ha"})
	assert.Equal(t, 1, x.DocumentFrequency("ha"))
	assert.Equal(t, PostingList{{DocID: "7", Positions: Positions{1, 2, 3}}}, x.Postings("ha"))
}

func TestEmptyDocumentAddsNothing(t *testing.T) {
	x := New()
	x.AddDocument("1", nil)
	assert.Equal(t, 0, x.Len())
	assert.Equal(t, 0, x.DocCount())
	assert.Empty(t, x.Docs())
}

func TestMerge(t *testing.T) {
	a := New()
	a.AddDocument("1", []string{"cat", "sat", "mat"})
	b := New()
	b.AddDocument("2", []string{"dog", "sat", "log"})
	a.Merge(b)

	assert.True(t, a.Equal(catDog()))
	assert.Equal(t, 2, a.DocumentFrequency("sat"))
	assert.NoError(t, a.Validate())
}

func TestDocLengths(t *testing.T) {
	x := New()
	x.AddDocument("1", []string{"a", "b", "a", "c"})
	x.AddDocument("2", []string{"z"})
	assert.Equal(t, map[DocID]int{"1": 4, "2": 1}, x.DocLengths())
	assert.Equal(t, []DocID{"1", "2"}, x.Docs())
}

func TestEntriesOrdering(t *testing.T) {
	x := New()
	x.AddDocument("10", []string{"b", "a"})
	x.AddDocument("9", []string{"a"})
	x.AddDocument("msg-1", []string{"a"})

	entries := x.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Term)
	var docs []DocID
	for _, p := range entries[0].Postings {
		docs = append(docs, p.DocID)
	}
	assert.Equal(t, []DocID{"9", "10", "msg-1"}, docs)
}

func TestValidate(t *testing.T) {
	cases := map[string]*TermRecord{
		"df mismatch":    {DocumentFrequency: 2, Postings: map[DocID]Positions{"1": {1}}},
		"empty postings": {DocumentFrequency: 0, Postings: map[DocID]Positions{}},
		"empty list":     {DocumentFrequency: 1, Postings: map[DocID]Positions{"1": {}}},
		"zero position":  {DocumentFrequency: 1, Postings: map[DocID]Positions{"1": {0, 1}}},
		"not increasing": {DocumentFrequency: 1, Postings: map[DocID]Positions{"1": {3, 3}}},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			x := New()
			x.terms["t"] = rec
			assert.Error(t, x.Validate())
		})
	}
}

func TestEqual(t *testing.T) {
	a, b := catDog(), catDog()
	assert.True(t, a.Equal(b))
	b.Add("sat", "1", 9)
	assert.False(t, a.Equal(b))
	b = catDog()
	b.Add("new", "3", 1)
	assert.False(t, a.Equal(b))
}

func TestCompareDocIDs(t *testing.T) {
	assert.Negative(t, CompareDocIDs("2", "10"))
	assert.Positive(t, CompareDocIDs("b", "a"))
	assert.Negative(t, CompareDocIDs("999", "a"))
	assert.Positive(t, CompareDocIDs("a", "1"))
	assert.Zero(t, CompareDocIDs("5", "5"))
	assert.NotZero(t, CompareDocIDs("05", "5"))
}
