package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ChineseTokenizer emits each Han character as its own term and keeps runs
// of other letters or digits (Latin words, numbers) as lower-cased words.
// Input is NFKC-normalised first so full-width forms match their ASCII
// equivalents.
type ChineseTokenizer struct {
	stopwords StopwordSet
}

func NewChinese(stopwords StopwordSet) *ChineseTokenizer {
	return &ChineseTokenizer{stopwords: stopwords}
}

func (t *ChineseTokenizer) Tokenize(text string) ([]string, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	text = norm.NFKC.String(text)

	var terms []string
	var word strings.Builder
	emit := func(term string) {
		if term != "" && !t.stopwords.Contains(term) {
			terms = append(terms, term)
		}
	}
	flush := func() {
		emit(strings.ToLower(word.String()))
		word.Reset()
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			emit(string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms, nil
}

func simplifiedChineseStopwords() StopwordSet {
	return NewStopwordSet(
		"的", "了", "是", "在", "我", "有", "和", "就", "不", "人", "都", "一", "上",
		"也", "很", "到", "说", "要", "去", "你", "会", "着", "没", "看", "好", "这",
		"那", "吗", "吧", "啊", "呢", "个", "们", "他", "她", "它",
	)
}

func traditionalChineseStopwords() StopwordSet {
	return NewStopwordSet(
		"的", "了", "是", "在", "我", "有", "和", "就", "不", "人", "都", "一", "上",
		"也", "很", "到", "說", "要", "去", "你", "會", "著", "沒", "看", "好", "這",
		"那", "嗎", "吧", "啊", "呢", "個", "們", "他", "她", "它",
	)
}
