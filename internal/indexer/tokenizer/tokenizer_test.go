package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

func mustNew(t *testing.T, lang Language) Tokenizer {
	t.Helper()
	tok, err := New(lang)
	require.NoError(t, err)
	return tok
}

func TestEnglish(t *testing.T) {
	tok := mustNew(t, English)
	cases := []struct {
		in   string
		want []string
	}{
		{"the cat sat on the mat", []string{"cat", "sat", "mat"}},
		{"The dog sat on the log", []string{"dog", "sat", "log"}},
		{"Running runners RUN", []string{"run", "runner", "run"}},
		{"abc123def 42", []string{"abc", "def"}},
		{"", []string{}},
		{"the and of", []string{}},
	}
	for _, tc := range cases {
		got, err := tok.Tokenize(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestInvalidUTF8(t *testing.T) {
	for _, lang := range []Language{English, SimplifiedChinese, TraditionalChinese, Turkish} {
		_, err := mustNew(t, lang).Tokenize("bad \xff byte")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, lang.String())
	}
}

func TestTurkishCaseFolding(t *testing.T) {
	got, err := mustNew(t, Turkish).Tokenize("İSTANBUL ve IĞDIR çok güzel")
	require.NoError(t, err)
	assert.Equal(t, []string{"istanbul", "ığdır", "güzel"}, got)
}

func TestChinese(t *testing.T) {
	got, err := mustNew(t, SimplifiedChinese).Tokenize("我喜欢Go语言！")
	require.NoError(t, err)
	assert.Equal(t, []string{"喜", "欢", "go", "语", "言"}, got)

	// Full-width Latin is folded by NFKC.
	got, err = mustNew(t, TraditionalChinese).Tokenize("ＡＰＩ 說明")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "明"}, got)
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{
		"english": English, "EN": English, "": English,
		"zh_simp": SimplifiedChinese, "chinese": SimplifiedChinese,
		"zh_trad": TraditionalChinese, "zh-tw": TraditionalChinese,
		"tr": Turkish,
	} {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLanguage("klingon")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedLanguage)

	_, err = New(Language(42))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedLanguage)
}

func TestPositioned(t *testing.T) {
	tokens, err := Positioned(mustNew(t, English), "the cat sat on the mat")
	require.NoError(t, err)
	assert.Equal(t, []Token{{"cat", 1}, {"sat", 2}, {"mat", 3}}, tokens)
}
