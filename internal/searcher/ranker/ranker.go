// Package ranker scores documents of one conversation index with Okapi
// BM25.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns k1=1.5, b=0.75.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

type ScoredDoc struct {
	DocID index.DocID `json:"doc_id"`
	Score float64     `json:"score"`
}

// Stats are the collection statistics BM25 needs. They are derived once
// when an index is loaded and shared by every query against it.
type Stats struct {
	DocLengths map[index.DocID]int
	N          int
	AvgDL      float64
}

// NewStats derives document lengths (the largest position in each
// document), the document count and the average length from idx.
func NewStats(idx *index.Index) Stats {
	lengths := idx.DocLengths()
	s := Stats{DocLengths: lengths, N: len(lengths)}
	if s.N == 0 {
		return s
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	s.AvgDL = float64(total) / float64(s.N)
	return s
}

// Rank scores every document containing at least one of terms and returns
// them by descending score. Terms missing from the index contribute
// nothing; a repeated term contributes once per occurrence. Equal scores
// keep the order in which documents were first scored (query term order,
// then natural document order). topN <= 0 returns all scored documents.
func Rank(idx *index.Index, stats Stats, terms []string, params Params, topN int) []ScoredDoc {
	if stats.N == 0 || stats.AvgDL == 0 {
		return []ScoredDoc{}
	}
	scores := make(map[index.DocID]float64)
	var order []index.DocID
	for _, term := range terms {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := computeIDF(stats.N, len(postings))
		for _, p := range postings {
			tfNorm := computeTFNorm(
				float64(len(p.Positions)),
				float64(stats.DocLengths[p.DocID]),
				stats.AvgDL,
				params,
			)
			if _, seen := scores[p.DocID]; !seen {
				order = append(order, p.DocID)
			}
			scores[p.DocID] += idf * tfNorm
		}
	}

	result := make([]ScoredDoc, len(order))
	for i, doc := range order {
		result[i] = ScoredDoc{DocID: doc, Score: scores[doc]}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if topN > 0 && len(result) > topN {
		result = result[:topN]
	}
	return result
}

func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq, docLength, avgDocLength float64, p Params) float64 {
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}
