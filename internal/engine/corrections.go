package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
)

// ApplyManualCorrection overrides a stored extraction with operator-supplied
// fields, forces its confidence to 1.0 and marks it processed. The previous
// state lands in the corrections audit trail.
func (e *ExtractionEngine) ApplyManualCorrection(ctx context.Context, extractionID string, corr model.Correction) (*model.StoredExtraction, error) {
	if corr.Empty() {
		return nil, fmt.Errorf("correction changes nothing: %w", common.ErrInvalidInput)
	}

	stored, err := e.storage.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction: %w", err)
	}

	previousCategory := stored.Category
	if err := stored.ApplyCorrection(corr); err != nil {
		return nil, fmt.Errorf("invalid correction: %w", err)
	}

	if err := e.storage.UpdateExtraction(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save correction: %w", err)
	}

	slog.Info("extraction corrected",
		"extraction_id", stored.ID,
		"previous_category", previousCategory,
		"category", stored.Category)

	return stored, nil
}
