// Package tokenizer turns message text into the ordered, normalised term
// sequence the index is built from. One implementation exists per supported
// chat language; the language is chosen once, when the Tokenizer is built.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

// Tokenizer maps raw text to normalised terms in reading order. Positions
// are assigned by the caller, so removed stopwords leave no gaps.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// Language selects a Tokenizer implementation.
type Language int

const (
	English Language = iota
	SimplifiedChinese
	TraditionalChinese
	Turkish
)

func (l Language) String() string {
	switch l {
	case English:
		return "english"
	case SimplifiedChinese:
		return "zh-cn"
	case TraditionalChinese:
		return "zh-tw"
	case Turkish:
		return "turkish"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// ParseLanguage accepts the names used in configuration files and build
// requests.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "en", "english":
		return English, nil
	case "zh-cn", "zh_cn", "zh_simp", "chinese", "simplified_chinese":
		return SimplifiedChinese, nil
	case "zh-tw", "zh_tw", "zh_trad", "traditional_chinese":
		return TraditionalChinese, nil
	case "tr", "turkish":
		return Turkish, nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedLanguage, s)
	}
}

// New builds the Tokenizer for lang with its default stopword set.
func New(lang Language) (Tokenizer, error) {
	switch lang {
	case English:
		return NewEnglish(englishStopwords()), nil
	case SimplifiedChinese:
		return NewChinese(simplifiedChineseStopwords()), nil
	case TraditionalChinese:
		return NewChinese(traditionalChineseStopwords()), nil
	case Turkish:
		return NewTurkish(turkishStopwords()), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedLanguage, lang)
	}
}

// Token is a term together with its 1-indexed position in the filtered
// token stream.
type Token struct {
	Term     string
	Position int
}

// Positioned tokenizes text and numbers the resulting terms from 1.
func Positioned(t Tokenizer, text string) ([]Token, error) {
	terms, err := t.Tokenize(text)
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, len(terms))
	for i, term := range terms {
		tokens[i] = Token{Term: term, Position: i + 1}
	}
	return tokens, nil
}

// StopwordSet is a read-only set of terms removed before indexing.
type StopwordSet map[string]struct{}

// NewStopwordSet builds a set from words.
func NewStopwordSet(words ...string) StopwordSet {
	s := make(StopwordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s StopwordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

func checkText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", apperrors.ErrInvalidInput)
	}
	return nil
}
