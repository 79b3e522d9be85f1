package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

func catDog() *index.Index {
	x := index.New()
	x.AddDocument("1", []string{"cat", "sat", "mat"})
	x.AddDocument("2", []string{"dog", "sat", "log"})
	x.AddDocument("10", []string{"sat", "sat"})
	return x
}

func TestWriteTextExactFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, catDog()))
	want := "cat: 1\n\t1: 1\n\n" +
		"dog: 1\n\t2: 1\n\n" +
		"log: 1\n\t2: 3\n\n" +
		"mat: 1\n\t1: 3\n\n" +
		"sat: 3\n\t1: 2\n\t2: 2\n\t10: 1, 2\n\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text output (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := catDog()
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, orig))

	got, stats, err := ReadText(&buf)
	require.NoError(t, err)
	assert.True(t, orig.Equal(got))
	assert.Zero(t, stats.Skipped)
	assert.Equal(t, 5, stats.Terms)
	assert.Equal(t, 7, stats.Postings)
}

func TestRoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, index.New()))
	assert.Empty(t, buf.String())
	got, _, err := ReadText(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestReadTextTolerant(t *testing.T) {
	input := strings.Join([]string{
		"orphan posting comes first",
		"\t9: 1",
		"cat: 1",
		"    1: 1, 4",
		"dog: 2",
		"\t2: 1",
		"\t3: two",
		"\t4: 5, 3",
		"\t2: 7",
		"sat: x",
		"\t1: 2",
		"mat: 1",
		"\t1: 3",
		"",
	}, "\r\n")

	got, stats, err := ReadText(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "mat"}, got.Terms())
	assert.Equal(t, index.PostingList{{DocID: "1", Positions: index.Positions{1, 4}}}, got.Postings("cat"))
	assert.Equal(t, 1, got.DocumentFrequency("dog"))
	assert.Equal(t, 7, stats.Skipped)
	assert.Equal(t, 1, stats.DFMismatches)
	assert.NoError(t, got.Validate())
}

func TestReadTextRepeatedTermBlock(t *testing.T) {
	input := "cat: 1\n\t1: 5\n\ncat: 1\n\t1: 2\n\t2: 1\n\ndog: 1\n\t2: 3\n"

	got, stats, err := ReadText(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: "1", Positions: index.Positions{5}}}, got.Postings("cat"))
	assert.Equal(t, index.PostingList{{DocID: "2", Positions: index.Positions{3}}}, got.Postings("dog"))
	assert.Equal(t, 1, stats.DuplicateTerms)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 0, stats.DFMismatches)
	assert.NoError(t, got.Validate())
}
