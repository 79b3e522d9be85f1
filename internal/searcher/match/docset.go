// Package match resolves boolean operands (terms, phrases and proximity
// groups) to the set of documents they match in one conversation index.
package match

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

// DocSet is an unordered set of documents. The zero value is an empty set
// ready for reading; use NewDocSet before adding.
type DocSet map[index.DocID]struct{}

func NewDocSet(docs ...index.DocID) DocSet {
	s := make(DocSet, len(docs))
	for _, d := range docs {
		s[d] = struct{}{}
	}
	return s
}

func (s DocSet) Contains(doc index.DocID) bool {
	_, ok := s[doc]
	return ok
}

func (s DocSet) Len() int {
	return len(s)
}

// Intersect returns the documents in both s and other.
func (s DocSet) Intersect(other DocSet) DocSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(DocSet, len(small))
	for d := range small {
		if large.Contains(d) {
			out[d] = struct{}{}
		}
	}
	return out
}

// Union returns the documents in either s or other.
func (s DocSet) Union(other DocSet) DocSet {
	out := make(DocSet, len(s)+len(other))
	for d := range s {
		out[d] = struct{}{}
	}
	for d := range other {
		out[d] = struct{}{}
	}
	return out
}

// Difference returns the documents of s that are not in other.
func (s DocSet) Difference(other DocSet) DocSet {
	out := make(DocSet, len(s))
	for d := range s {
		if !other.Contains(d) {
			out[d] = struct{}{}
		}
	}
	return out
}

// Sorted lists the set in natural document order.
func (s DocSet) Sorted() []index.DocID {
	docs := make([]index.DocID, 0, len(s))
	for d := range s {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return index.CompareDocIDs(docs[i], docs[j]) < 0
	})
	return docs
}
