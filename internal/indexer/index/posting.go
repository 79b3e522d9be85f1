package index

import (
	"cmp"
	"strconv"
)

// DocID identifies a message within one conversation. Chatlog exports use
// numeric ids, but any stable string is accepted.
type DocID string

// Positions lists the 1-indexed token positions of a term in one document,
// strictly increasing.
type Positions []int

// TermRecord is the index entry for one term. DocumentFrequency always equals
// len(Postings).
type TermRecord struct {
	DocumentFrequency int
	Postings          map[DocID]Positions
}

// Posting is one (document, positions) pair of a TermRecord, used when the
// postings need a deterministic order.
type Posting struct {
	DocID     DocID
	Positions Positions
}

type PostingList []Posting

// TermEntry is a term with its postings in natural document order.
type TermEntry struct {
	Term              string
	DocumentFrequency int
	Postings          PostingList
}

// CompareDocIDs orders numeric ids numerically and places them before any
// non-numeric id; non-numeric ids compare lexically.
func CompareDocIDs(a, b DocID) int {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
