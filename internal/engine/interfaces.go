package engine

import (
	"context"

	"github.com/pocketmoney/chatledger/internal/model"
)

// Extractor turns a raw message into a structured extraction. Implementations
// must return a non-nil extraction on success; unclassifiable messages come
// back as low-confidence inquiries, not errors.
type Extractor interface {
	Extract(ctx context.Context, msg model.Message) (*model.Extraction, error)
}
