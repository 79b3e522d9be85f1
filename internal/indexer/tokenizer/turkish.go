package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TurkishTokenizer applies Turkish case folding (dotted and dotless i) and
// removes stopwords. No Turkish stemmer is applied.
type TurkishTokenizer struct {
	stopwords StopwordSet
}

func NewTurkish(stopwords StopwordSet) *TurkishTokenizer {
	return &TurkishTokenizer{
		stopwords: stopwords,
	}
}

func (t *TurkishTokenizer) Tokenize(text string) ([]string, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	// A cases.Caser is stateful, so builder workers each get their own.
	words := strings.FieldsFunc(cases.Lower(language.Turkish).String(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || t.stopwords.Contains(w) {
			continue
		}
		terms = append(terms, w)
	}
	return terms, nil
}

func turkishStopwords() StopwordSet {
	return NewStopwordSet(
		"acaba", "ama", "aslında", "az", "bazı", "belki", "biri", "birkaç", "birşey",
		"biz", "bu", "çok", "çünkü", "da", "daha", "de", "defa", "diye", "eğer", "en",
		"gibi", "hem", "hep", "hepsi", "her", "hiç", "için", "ile", "ise", "kez", "ki",
		"kim", "mı", "mu", "mü", "nasıl", "ne", "neden", "nerde", "nerede", "nereye",
		"niçin", "niye", "o", "sanki", "şey", "siz", "şu", "tüm", "ve", "veya", "ya",
		"yani", "ben", "sen", "onlar", "bir", "olan", "olarak", "var", "yok",
	)
}
