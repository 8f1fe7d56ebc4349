// Package language implements a lightweight Malay/English detector for chat
// messages. The result is stored as metadata on extractions; pattern rules
// match both languages directly and never consult the detector.
package language

import (
	"strings"

	"github.com/pocketmoney/chatledger/internal/model"
)

var (
	malayKeywords   = []string{"nak", "mau", "dah", "sudah", "beli", "pesan", "alamat", "hantar"}
	englishKeywords = []string{"want", "need", "buy", "order", "address", "deliver", "paid", "done"}
)

// Detect classifies text as Malay or English by keyword presence counts.
// English wins ties, including the empty-text case.
func Detect(text string) model.Language {
	lower := strings.ToLower(text)

	malay := 0
	for _, kw := range malayKeywords {
		if strings.Contains(lower, kw) {
			malay++
		}
	}
	english := 0
	for _, kw := range englishKeywords {
		if strings.Contains(lower, kw) {
			english++
		}
	}

	if malay > english {
		return model.LanguageMalay
	}
	return model.LanguageEnglish
}
