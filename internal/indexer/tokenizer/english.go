package tokenizer

import (
	"strings"

	snowballeng "github.com/kljensen/snowball/english"
)

// EnglishTokenizer splits on anything that is not an ASCII letter, drops
// stopwords and applies the Snowball English stemmer.
type EnglishTokenizer struct {
	stopwords StopwordSet
}

func NewEnglish(stopwords StopwordSet) *EnglishTokenizer {
	return &EnglishTokenizer{stopwords: stopwords}
}

func (t *EnglishTokenizer) Tokenize(text string) ([]string, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if t.stopwords.Contains(w) {
			continue
		}
		stemmed := snowballeng.Stem(w, false)
		if stemmed == "" {
			continue
		}
		terms = append(terms, stemmed)
	}
	return terms, nil
}

func englishStopwords() StopwordSet {
	return NewStopwordSet(
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
		"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "her",
		"hers", "herself", "it", "its", "itself", "they", "them", "their", "theirs",
		"themselves", "what", "which", "who", "whom", "this", "that", "these", "those",
		"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
		"having", "do", "does", "did", "doing", "a", "an", "the", "and", "but", "if",
		"or", "because", "as", "until", "while", "of", "at", "by", "for", "with",
		"about", "against", "between", "into", "through", "during", "before", "after",
		"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
		"under", "again", "further", "then", "once", "here", "there", "when", "where",
		"why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
		"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
		"very", "s", "t", "can", "will", "just", "don", "should", "now",
	)
}
