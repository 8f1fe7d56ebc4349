// Package extract turns raw WhatsApp messages into structured business
// extractions: orders, payments, delivery confirmations, or inquiries.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pocketmoney/chatledger/internal/language"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/pattern"
)

// InquiryConfidence is the fixed confidence for messages that match no
// business category. Inquiries always land in the review queue.
const InquiryConfidence = 0.3

// Extractor is the deterministic extraction pipeline. It holds only the
// compiled rule library and is safe for concurrent use.
type Extractor struct {
	lib *pattern.Library
}

// New creates an extractor backed by the built-in rule library.
func New() *Extractor {
	return NewWithLibrary(pattern.DefaultLibrary())
}

// NewWithLibrary creates an extractor with a custom rule library.
func NewWithLibrary(lib *pattern.Library) *Extractor {
	return &Extractor{lib: lib}
}

// Extract classifies the message and runs the category's extractor over it.
// The result is always non-nil: a message with no recognizable signals
// comes back as a low-confidence inquiry. Callers validate input length
// before calling.
func (e *Extractor) Extract(ctx context.Context, msg model.Message) (*model.Extraction, error) {
	content := strings.TrimSpace(msg.Content)

	ext := &model.Extraction{
		Category: Classify(content),
		RawText:  content,
		Language: language.Detect(content),
	}

	switch ext.Category {
	case model.CategoryOrder:
		ext.Order, ext.Confidence = e.extractOrder(msg, content)
	case model.CategoryPayment:
		ext.Payment, ext.Confidence = e.extractPayment(msg, content)
	case model.CategoryDelivery:
		ext.Delivery, ext.Confidence = e.extractDelivery(msg, content)
	default:
		ext.Confidence = InquiryConfidence
	}

	slog.Debug("message extracted",
		"category", ext.Category,
		"language", ext.Language,
		"confidence", ext.Confidence)

	return ext, nil
}
