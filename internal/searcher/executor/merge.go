package executor

import (
	"container/heap"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

// Hit is one result of a multi-conversation search.
type Hit struct {
	Conversation string      `json:"conversation"`
	DocID        index.DocID `json:"doc_id"`
	Score        float64     `json:"score"`
}

// before reports whether a ranks ahead of b: higher score first, then
// conversation name, then document order.
func before(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if c := strings.Compare(a.Conversation, b.Conversation); c != 0 {
		return c < 0
	}
	return index.CompareDocIDs(a.DocID, b.DocID) < 0
}

// Merge keeps the best limit hits across all lists using a bounded
// min-heap. limit <= 0 keeps everything.
func Merge(lists [][]Hit, limit int) []Hit {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	if limit <= 0 || limit > total {
		limit = total
	}
	h := &hitHeap{}
	for _, l := range lists {
		for _, hit := range l {
			if h.Len() < limit {
				heap.Push(h, hit)
			} else if limit > 0 && before(hit, (*h)[0]) {
				(*h)[0] = hit
				heap.Fix(h, 0)
			}
		}
	}
	out := make([]Hit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Hit)
	}
	return out
}

// hitHeap keeps the worst retained hit at the root.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return before(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
