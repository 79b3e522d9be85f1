// Package benchmark measures index builds, index file encoding and query
// execution over synthetic conversations.
package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
)

var vocabulary = []string{
	"dinner", "tonight", "photos", "trip", "train", "late", "birthday", "cake",
	"meeting", "office", "weekend", "beach", "weather", "rain", "coffee", "morning",
	"movie", "tickets", "parents", "visit", "holiday", "flight", "hotel", "booked",
}

// conversation returns n synthetic messages of 6 to 17 words.
func conversation(n int) []indexer.Document {
	docs := make([]indexer.Document, n)
	for i := range docs {
		words := 6 + i%12
		var buf bytes.Buffer
		for w := 0; w < words; w++ {
			if w > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(vocabulary[(i*7+w*3)%len(vocabulary)])
		}
		docs[i] = indexer.Document{ID: index.DocID(fmt.Sprint(i)), Text: buf.String()}
	}
	return docs
}

func buildIndex(b *testing.B, n int) *index.Index {
	b.Helper()
	tok, err := tokenizer.New(tokenizer.English)
	if err != nil {
		b.Fatal(err)
	}
	idx, _, err := indexer.NewBuilder(tok, 0).Build(context.Background(), conversation(n))
	if err != nil {
		b.Fatal(err)
	}
	return idx
}

// BenchmarkBuild compares the sequential build with the parallel fork-join
// build over 20 000 messages.
func BenchmarkBuild(b *testing.B) {
	docs := conversation(20000)
	tok, err := tokenizer.New(tokenizer.English)
	if err != nil {
		b.Fatal(err)
	}
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			builder := indexer.NewBuilder(tok, workers)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := builder.Build(context.Background(), docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkWriteText(b *testing.B) {
	idx := buildIndex(b, 20000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := codec.WriteText(&buf, idx); err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(buf.Len()))
	}
}

func BenchmarkLoad(b *testing.B) {
	idx := buildIndex(b, 20000)

	var text bytes.Buffer
	if err := codec.WriteText(&text, idx); err != nil {
		b.Fatal(err)
	}
	b.Run("text", func(b *testing.B) {
		b.ReportAllocs()
		b.SetBytes(int64(text.Len()))
		for i := 0; i < b.N; i++ {
			if _, _, err := codec.ReadText(bytes.NewReader(text.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})

	path := filepath.Join(b.TempDir(), "bench.pii.bin")
	f, err := os.Create(path)
	if err != nil {
		b.Fatal(err)
	}
	if err := segment.Write(f, idx); err != nil {
		b.Fatal(err)
	}
	if err := f.Close(); err != nil {
		b.Fatal(err)
	}
	b.Run("binary", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := segment.ReadIndex(path); err != nil {
				b.Fatal(err)
			}
		}
	})
}
