// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pocketmoney/chatledger/internal/model"
)

// ExtractionFilter defines filtering options for extraction queries.
// Nil pointer fields mean "any".
type ExtractionFilter struct {
	Since    *time.Time
	Until    *time.Time
	Category *model.Category
	Status   *model.ExtractionStatus
	Sender   string
	Limit    int
	Offset   int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Extraction operations
	InsertExtraction(ctx context.Context, ext *model.StoredExtraction) (string, error)
	GetExtraction(ctx context.Context, id string) (*model.StoredExtraction, error)
	QueryExtractions(ctx context.Context, userID string, filter ExtractionFilter) ([]model.StoredExtraction, error)
	// UpdateExtraction rewrites a stored extraction and, for manual
	// corrections, records the previous state in the corrections audit
	// table.
	UpdateExtraction(ctx context.Context, ext *model.StoredExtraction) error
	GetStats(ctx context.Context, userID string, since time.Time) (*StatsSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// UsageStore tracks per-user monthly feature usage for quota enforcement.
type UsageStore interface {
	// GetFeatureUsage returns the current count for the month. A month
	// with no recorded usage comes back with Count zero, not an error.
	GetFeatureUsage(ctx context.Context, userID, feature, monthKey string) (*model.FeatureUsage, error)
	IncrementFeatureUsage(ctx context.Context, userID, feature, monthKey string) error
}

// AtomicUsageStore reserves quota in a single round trip, closing the
// window between check and increment that the plain store leaves open.
// Stores that can do this atomically implement it on top of UsageStore.
type AtomicUsageStore interface {
	UsageStore
	// ReserveFeatureUsage increments and returns the new count, rolling
	// back and failing when the count would pass the limit.
	ReserveFeatureUsage(ctx context.Context, userID, feature, monthKey string, limit int) (int, error)
}

// OrderCreator turns a processed order extraction into an order record.
type OrderCreator interface {
	CreateOrder(ctx context.Context, userID string, payload model.OrderPayload, extractionID string) (string, error)
}

// StatsSummary aggregates a user's extraction history for reporting.
type StatsSummary struct {
	ByCategory        map[model.Category]int
	ByStatus          map[model.ExtractionStatus]int
	TopSenders        []SenderCount
	Total             int
	ManualCorrections int
	AverageConfidence float64
}

// SenderCount pairs a sender with how many messages they produced.
type SenderCount struct {
	Sender string
	Count  int
}

// ProcessResult is the outcome of processing one message end to end. A
// failed order creation reports through OrderErr; the extraction itself is
// already persisted by then and is not rolled back.
type ProcessResult struct {
	Extraction *model.StoredExtraction
	OrderErr   error
	OrderID    string
}
