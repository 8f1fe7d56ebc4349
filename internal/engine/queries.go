package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
)

// defaultHistoryLimit caps GetExtractionHistory when the caller passes no
// limit.
const defaultHistoryLimit = 20

// GetExtraction returns a single stored extraction by ID.
func (e *ExtractionEngine) GetExtraction(ctx context.Context, id string) (*model.StoredExtraction, error) {
	return e.storage.GetExtraction(ctx, id)
}

// GetExtractionHistory returns a page of the user's extractions, newest
// first. A non-positive limit falls back to the default page size.
func (e *ExtractionEngine) GetExtractionHistory(ctx context.Context, userID string, limit, offset int) ([]model.StoredExtraction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return e.History(ctx, userID, service.ExtractionFilter{Limit: limit, Offset: offset})
}

// History returns the user's extractions matching the filter, newest first.
func (e *ExtractionEngine) History(ctx context.Context, userID string, filter service.ExtractionFilter) ([]model.StoredExtraction, error) {
	extractions, err := e.storage.QueryExtractions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query extractions: %w", err)
	}
	return extractions, nil
}

// GetStats aggregates the user's extraction history over the trailing
// window. A non-positive windowDays covers all time.
func (e *ExtractionEngine) GetStats(ctx context.Context, userID string, windowDays int) (*service.StatsSummary, error) {
	var since time.Time
	if windowDays > 0 {
		since = time.Now().UTC().AddDate(0, 0, -windowDays)
	}

	summary, err := e.storage.GetStats(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return summary, nil
}

// Usage returns the user's quota counter for the current month, with the
// engine's limit stamped on it.
func (e *ExtractionEngine) Usage(ctx context.Context, userID string) (*model.FeatureUsage, error) {
	monthKey := model.MonthKey(time.Now().UTC())
	usage, err := e.usage.GetFeatureUsage(ctx, userID, e.cfg.Feature, monthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get feature usage: %w", err)
	}
	usage.Limit = e.cfg.FreeTierLimit
	return usage, nil
}
