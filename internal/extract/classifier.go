package extract

import (
	"strings"

	"github.com/pocketmoney/chatledger/internal/model"
)

// Keyword tables for category routing. Matching is plain substring search
// on the lowercased message so multi-word phrases stay intact. The lists
// mix Malay and English because real customer chats code-switch freely.
var (
	orderKeywords = []string{
		"nak", "mau", "order", "pesan", "beli",
		"want", "need", "buy", "ambil", "take", "booking",
	}

	paymentKeywords = []string{
		"dah transfer", "sudah bayar", "done payment", "paid",
		"transfer done", "ref:", "reference", "receipt",
		"maybank", "cimb", "public bank",
	}

	deliveryKeywords = []string{
		"alamat", "address", "hantar", "deliver", "pos",
		"courier", "sampai bila", "when arrive", "location",
	}
)

// Classify routes a message to its business category. Order keywords win
// over payment keywords and payment over delivery, so a message like
// "nak order, dah transfer rm20" is treated as the order it opens with.
// Messages matching nothing are customer inquiries.
func Classify(content string) model.Category {
	lower := strings.ToLower(content)

	switch {
	case containsAny(lower, orderKeywords):
		return model.CategoryOrder
	case containsAny(lower, paymentKeywords):
		return model.CategoryPayment
	case containsAny(lower, deliveryKeywords):
		return model.CategoryDelivery
	default:
		return model.CategoryInquiry
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
