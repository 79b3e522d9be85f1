package match

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

// Term returns the documents containing term. Unknown terms match nothing.
func Term(idx *index.Index, term string) DocSet {
	rec, ok := idx.Lookup(term)
	if !ok {
		return DocSet{}
	}
	s := make(DocSet, len(rec.Postings))
	for d := range rec.Postings {
		s[d] = struct{}{}
	}
	return s
}

// candidates returns the records of all terms and the documents containing
// every one of them. ok is false when any term is absent from the index or
// terms is empty.
func candidates(idx *index.Index, terms []string) (recs []*index.TermRecord, docs DocSet, ok bool) {
	if len(terms) == 0 {
		return nil, nil, false
	}
	recs = make([]*index.TermRecord, len(terms))
	for i, t := range terms {
		rec, found := idx.Lookup(t)
		if !found {
			return nil, nil, false
		}
		recs[i] = rec
	}
	docs = Term(idx, terms[0])
	for _, t := range terms[1:] {
		docs = docs.Intersect(Term(idx, t))
	}
	return recs, docs, true
}

// Phrase returns the documents where terms occur at consecutive positions
// in the given order. A single-term phrase behaves like Term.
func Phrase(idx *index.Index, terms []string) DocSet {
	recs, docs, ok := candidates(idx, terms)
	if !ok {
		return DocSet{}
	}
	out := make(DocSet)
	for d := range docs {
		if hasRun(recs, d) {
			out[d] = struct{}{}
		}
	}
	return out
}

func hasRun(recs []*index.TermRecord, doc index.DocID) bool {
	for _, start := range recs[0].Postings[doc] {
		aligned := true
		for k := 1; k < len(recs); k++ {
			if !containsPos(recs[k].Postings[doc], start+k) {
				aligned = false
				break
			}
		}
		if aligned {
			return true
		}
	}
	return false
}

// Proximity returns the documents where one occurrence of every term can be
// chosen so that all of them fall within window consecutive positions. The
// search is anchored on occurrences of the rarest term; window < 1 matches
// nothing.
func Proximity(idx *index.Index, window int, terms []string) DocSet {
	if window < 1 {
		return DocSet{}
	}
	recs, docs, ok := candidates(idx, terms)
	if !ok {
		return DocSet{}
	}
	anchor := 0
	for i, rec := range recs {
		if rec.DocumentFrequency < recs[anchor].DocumentFrequency {
			anchor = i
		}
	}
	span := window - 1
	out := make(DocSet)
	for d := range docs {
		if withinWindow(recs, anchor, d, span) {
			out[d] = struct{}{}
		}
	}
	return out
}

// withinWindow reports whether some window [s, s+span] containing an anchor
// occurrence also holds an occurrence of every other term.
func withinWindow(recs []*index.TermRecord, anchor int, doc index.DocID, span int) bool {
	for _, p := range recs[anchor].Postings[doc] {
		for start := p - span; start <= p; start++ {
			if allInRange(recs, anchor, doc, start, start+span) {
				return true
			}
		}
	}
	return false
}

func allInRange(recs []*index.TermRecord, anchor int, doc index.DocID, lo, hi int) bool {
	for i, rec := range recs {
		if i == anchor {
			continue
		}
		if !anyInRange(rec.Postings[doc], lo, hi) {
			return false
		}
	}
	return true
}

func containsPos(positions index.Positions, p int) bool {
	i := sort.SearchInts(positions, p)
	return i < len(positions) && positions[i] == p
}

func anyInRange(positions index.Positions, lo, hi int) bool {
	i := sort.SearchInts(positions, lo)
	return i < len(positions) && positions[i] <= hi
}
