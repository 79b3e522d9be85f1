// Package index holds the positional inverted index of a single
// conversation: term -> document -> positions.
//
// An Index is mutated only while it is being built or decoded. Once handed
// to the searcher it is read-only and may be queried from many goroutines
// without locking.
package index

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

type Index struct {
	terms map[string]*TermRecord
}

func New() *Index {
	return &Index{terms: make(map[string]*TermRecord)}
}

// Add records that term occurs at pos in doc. The first occurrence of a
// term in a document creates its posting and bumps DocumentFrequency.
// Positions for a (term, doc) pair must be added in increasing order.
func (x *Index) Add(term string, doc DocID, pos int) {
	rec, ok := x.terms[term]
	if !ok {
		rec = &TermRecord{Postings: make(map[DocID]Positions)}
		x.terms[term] = rec
	}
	positions, seen := rec.Postings[doc]
	if !seen {
		rec.DocumentFrequency++
		positions = make(Positions, 0, 2)
	}
	rec.Postings[doc] = append(positions, pos)
}

// AddDocument indexes terms as the token stream of doc, numbering them
// from 1. An empty stream adds nothing.
func (x *Index) AddDocument(doc DocID, terms []string) {
	for i, term := range terms {
		x.Add(term, doc, i+1)
	}
}

// Merge folds other into x. Document ids of the two indexes must be
// disjoint, which holds when each document is tokenized by exactly one
// builder worker. other must not be used afterwards.
func (x *Index) Merge(other *Index) {
	for term, orec := range other.terms {
		rec, ok := x.terms[term]
		if !ok {
			x.terms[term] = orec
			continue
		}
		for doc, positions := range orec.Postings {
			rec.Postings[doc] = positions
		}
		rec.DocumentFrequency += orec.DocumentFrequency
	}
}

// Lookup returns the record for term. The record is shared and must not be
// modified.
func (x *Index) Lookup(term string) (*TermRecord, bool) {
	rec, ok := x.terms[term]
	return rec, ok
}

// DocumentFrequency returns the number of documents containing term, or 0.
func (x *Index) DocumentFrequency(term string) int {
	if rec, ok := x.terms[term]; ok {
		return rec.DocumentFrequency
	}
	return 0
}

// Postings returns the postings of term in natural document order.
func (x *Index) Postings(term string) PostingList {
	rec, ok := x.terms[term]
	if !ok {
		return nil
	}
	docs := sortedKeys(rec.Postings)
	list := make(PostingList, len(docs))
	for i, doc := range docs {
		list[i] = Posting{DocID: doc, Positions: rec.Postings[doc]}
	}
	return list
}

// SortedDocs returns the documents containing term in natural order.
func (x *Index) SortedDocs(term string) []DocID {
	rec, ok := x.terms[term]
	if !ok {
		return nil
	}
	return sortedKeys(rec.Postings)
}

// Terms returns every term in lexical order.
func (x *Index) Terms() []string {
	return slices.Sorted(maps.Keys(x.terms))
}

// Entries snapshots the whole index sorted by term, with postings in
// natural document order. Serializers write from this view.
func (x *Index) Entries() []TermEntry {
	terms := x.Terms()
	entries := make([]TermEntry, len(terms))
	for i, term := range terms {
		entries[i] = TermEntry{
			Term:              term,
			DocumentFrequency: x.terms[term].DocumentFrequency,
			Postings:          x.Postings(term),
		}
	}
	return entries
}

// Docs returns every document that has at least one posting, in natural
// order.
func (x *Index) Docs() []DocID {
	return sortedKeys(x.DocLengths())
}

// DocLengths maps each document to its length, the largest position any
// term occupies in it.
func (x *Index) DocLengths() map[DocID]int {
	lengths := make(map[DocID]int)
	for _, rec := range x.terms {
		for doc, positions := range rec.Postings {
			if len(positions) == 0 {
				continue
			}
			if last := positions[len(positions)-1]; last > lengths[doc] {
				lengths[doc] = last
			}
		}
	}
	return lengths
}

// Len returns the number of distinct terms.
func (x *Index) Len() int {
	return len(x.terms)
}

// DocCount returns the number of distinct documents with postings.
func (x *Index) DocCount() int {
	docs := make(map[DocID]struct{})
	for _, rec := range x.terms {
		for doc := range rec.Postings {
			docs[doc] = struct{}{}
		}
	}
	return len(docs)
}

// Validate checks the structural invariants: DocumentFrequency matches the
// posting count, no posting list is empty, and positions are strictly
// increasing and at least 1.
func (x *Index) Validate() error {
	for _, term := range x.Terms() {
		rec := x.terms[term]
		if len(rec.Postings) == 0 {
			return fmt.Errorf("term %q has no postings", term)
		}
		if rec.DocumentFrequency != len(rec.Postings) {
			return fmt.Errorf("term %q: document frequency %d, %d postings",
				term, rec.DocumentFrequency, len(rec.Postings))
		}
		for doc, positions := range rec.Postings {
			if len(positions) == 0 {
				return fmt.Errorf("term %q doc %s: empty position list", term, doc)
			}
			prev := 0
			for _, p := range positions {
				if p <= prev {
					return fmt.Errorf("term %q doc %s: positions not strictly increasing from 1: %v",
						term, doc, positions)
				}
				prev = p
			}
		}
	}
	return nil
}

// Equal reports whether x and other hold the same terms, document
// frequencies and per-document positions. Iteration order is irrelevant.
func (x *Index) Equal(other *Index) bool {
	if len(x.terms) != len(other.terms) {
		return false
	}
	for term, rec := range x.terms {
		orec, ok := other.terms[term]
		if !ok || rec.DocumentFrequency != orec.DocumentFrequency {
			return false
		}
		if !maps.EqualFunc(rec.Postings, orec.Postings, func(a, b Positions) bool {
			return slices.Equal(a, b)
		}) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[DocID]V) []DocID {
	docs := make([]DocID, 0, len(m))
	for doc := range m {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return CompareDocIDs(docs[i], docs[j]) < 0
	})
	return docs
}
