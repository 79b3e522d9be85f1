package benchmark

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
)

var sampleTexts = map[tokenizer.Language]string{
	tokenizer.English: strings.Repeat("Are we still meeting for dinner tonight? I booked the table at seven, "+
		"bring the photos from the trip if you remember. ", 10),
	tokenizer.Turkish: strings.Repeat("Bu akşam yemeğe hâlâ geliyor musunuz? Masayı yedide ayırttım, "+
		"hatırlarsan gezinin fotoğraflarını getir. ", 10),
	tokenizer.SimplifiedChinese: strings.Repeat("我们今晚还一起吃晚饭吗？我订了七点的桌子，如果你记得的话把旅行的照片带来。", 10),
}

func BenchmarkTokenize(b *testing.B) {
	for lang, text := range sampleTexts {
		tok, err := tokenizer.New(lang)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(lang.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				if _, err := tok.Tokenize(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
