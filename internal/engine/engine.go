// Package engine orchestrates the extraction pipeline: quota enforcement,
// message extraction, persistence, and optional order creation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/phone"
	"github.com/pocketmoney/chatledger/internal/service"
)

// ExtractionEngine drives inbound messages through quota checks, extraction
// and storage.
type ExtractionEngine struct {
	storage   service.Storage
	usage     service.UsageStore
	extractor Extractor
	orders    service.OrderCreator
	cfg       Config
}

// Config holds the engine's quota and review policy.
type Config struct {
	Feature         string
	FreeTierLimit   int
	ReviewThreshold float64
}

// DefaultConfig returns the production policy: 50 free extractions per
// calendar month, manual review at or below 0.7 confidence.
func DefaultConfig() Config {
	return Config{
		Feature:         model.FeatureWhatsAppExtract,
		FreeTierLimit:   50,
		ReviewThreshold: model.ReviewThreshold,
	}
}

// New creates an extraction engine with the default configuration. orders
// may be nil when no order backend is configured.
func New(storage service.Storage, usage service.UsageStore, extractor Extractor, orders service.OrderCreator) *ExtractionEngine {
	return NewWithConfig(storage, usage, extractor, orders, DefaultConfig())
}

// NewWithConfig creates an extraction engine with custom configuration.
func NewWithConfig(storage service.Storage, usage service.UsageStore, extractor Extractor, orders service.OrderCreator, cfg Config) *ExtractionEngine {
	return &ExtractionEngine{
		storage:   storage,
		usage:     usage,
		extractor: extractor,
		orders:    orders,
		cfg:       cfg,
	}
}

// ParseMessage runs one message through the full pipeline and returns the
// stored extraction. The quota check runs before input validation, so an
// over-quota caller sees the quota error first; invalid input never
// consumes quota.
func (e *ExtractionEngine) ParseMessage(ctx context.Context, userID string, msg model.Message) (*model.StoredExtraction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required: %w", common.ErrInvalidInput)
	}

	monthKey := model.MonthKey(time.Now().UTC())
	usage, err := e.usage.GetFeatureUsage(ctx, userID, e.cfg.Feature, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check feature usage: %w", err)
	}
	usage.Limit = e.cfg.FreeTierLimit
	if usage.Exceeded() {
		return nil, &common.QuotaExceededError{
			Feature:      e.cfg.Feature,
			MonthKey:     monthKey,
			CurrentUsage: usage.Count,
			Limit:        usage.Limit,
		}
	}

	if err := validateMessage(msg); err != nil {
		return nil, err
	}

	// A store that supports reservation claims the slot up front, closing
	// the window between the read check above and the increment below where
	// two concurrent calls could both slip past the limit.
	atomic, isAtomic := e.usage.(service.AtomicUsageStore)
	if isAtomic {
		if _, err := atomic.ReserveFeatureUsage(ctx, userID, e.cfg.Feature, monthKey, e.cfg.FreeTierLimit); err != nil {
			var quotaErr *common.QuotaExceededError
			if errors.As(err, &quotaErr) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to reserve feature usage: %w", err)
		}
	}

	ext, err := e.extractor.Extract(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract message: %w", err)
	}

	stored := &model.StoredExtraction{
		Extraction:  *ext,
		UserID:      userID,
		SenderName:  msg.SenderName,
		SenderPhone: phone.Normalize(msg.SenderPhone),
		Status:      e.statusFor(ext.Confidence),
	}
	// Imported chat lines carry their own timestamp; live messages get the
	// insert time stamped by storage.
	if !msg.Timestamp.IsZero() {
		stored.CreatedAt = msg.Timestamp.UTC()
	}

	if _, err := e.storage.InsertExtraction(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store extraction: %w", err)
	}

	if !isAtomic {
		// The extraction is already stored; a missed count is logged, not
		// fatal.
		if err := e.usage.IncrementFeatureUsage(ctx, userID, e.cfg.Feature, monthKey); err != nil {
			slog.Warn("failed to record feature usage",
				"user_id", userID,
				"month", monthKey,
				"error", err)
		}
	}

	slog.Info("message processed",
		"user_id", userID,
		"extraction_id", stored.ID,
		"category", stored.Category,
		"confidence", stored.Confidence,
		"status", stored.Status)

	return stored, nil
}

// ProcessAndMaybeCreateOrder parses the message and, when it comes out as a
// confidently extracted order with at least one line item, creates an order
// record through the configured backend. A failed order creation does not
// roll back the stored extraction; the failure is reported in the result.
func (e *ExtractionEngine) ProcessAndMaybeCreateOrder(ctx context.Context, userID string, msg model.Message, autoCreate bool) (*service.ProcessResult, error) {
	stored, err := e.ParseMessage(ctx, userID, msg)
	if err != nil {
		return nil, err
	}

	result := &service.ProcessResult{Extraction: stored}
	if !autoCreate || e.orders == nil {
		return result, nil
	}
	if stored.Category != model.CategoryOrder || stored.Status != model.StatusProcessed {
		return result, nil
	}
	if stored.Order == nil || len(stored.Order.Items) == 0 {
		return result, nil
	}

	orderID, err := e.orders.CreateOrder(ctx, userID, *stored.Order, stored.ID)
	if err != nil {
		result.OrderErr = fmt.Errorf("failed to create order: %w", err)
		slog.Warn("order creation failed",
			"user_id", userID,
			"extraction_id", stored.ID,
			"error", err)
		return result, nil
	}

	result.OrderID = orderID
	slog.Info("order created",
		"user_id", userID,
		"extraction_id", stored.ID,
		"order_id", orderID)
	return result, nil
}

func (e *ExtractionEngine) statusFor(confidence float64) model.ExtractionStatus {
	if confidence > e.cfg.ReviewThreshold {
		return model.StatusProcessed
	}
	return model.StatusNeedsReview
}

func validateMessage(msg model.Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("message content is empty: %w", common.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(msg.Content); n > model.MaxContentLength {
		return fmt.Errorf("message content is %d characters, limit is %d: %w",
			n, model.MaxContentLength, common.ErrInvalidInput)
	}
	return nil
}
