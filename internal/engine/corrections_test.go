package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/extract"
	"github.com/pocketmoney/chatledger/internal/model"
)

func TestApplyManualCorrection(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	// "nak" reads as an order, but there is nothing to extract from it.
	stored, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "nak tanya sikit boleh?"})
	require.NoError(t, err)
	require.Equal(t, model.CategoryOrder, stored.Category)
	require.Equal(t, model.StatusNeedsReview, stored.Status)

	inquiry := model.CategoryInquiry
	corrected, err := eng.ApplyManualCorrection(ctx, stored.ID, model.Correction{Category: &inquiry})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryInquiry, corrected.Category)
	assert.Equal(t, 1.0, corrected.Confidence)
	assert.Equal(t, model.StatusProcessed, corrected.Status)
	assert.True(t, corrected.ManuallyCorrected)
	assert.Nil(t, corrected.Order)

	// The correction is persisted and audited.
	loaded, err := db.GetExtraction(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryInquiry, loaded.Category)
	assert.True(t, loaded.ManuallyCorrected)

	records, err := db.GetCorrections(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(model.CategoryOrder), records[0].PreviousCategory)
}

func TestApplyManualCorrectionReplacesPayload(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	stored, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "nak tanya pasal kek"})
	require.NoError(t, err)

	payment := model.CategoryPayment
	corrected, err := eng.ApplyManualCorrection(ctx, stored.ID, model.Correction{
		Category: &payment,
		Payment: &model.PaymentPayload{
			Method: model.PaymentMethodEWallet,
			Amount: 25,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryPayment, corrected.Category)
	require.NotNil(t, corrected.Payment)
	assert.Equal(t, model.PaymentMethodEWallet, corrected.Payment.Method)
	assert.InDelta(t, 25.0, corrected.Payment.Amount, 0.001)
	assert.Nil(t, corrected.Order)
}

func TestApplyManualCorrectionRejectsEmptyCorrection(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	_, err := eng.ApplyManualCorrection(ctx, "any-id", model.Correction{})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestApplyManualCorrectionUnknownExtraction(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	inquiry := model.CategoryInquiry
	_, err := eng.ApplyManualCorrection(ctx, "no-such-id", model.Correction{Category: &inquiry})
	require.ErrorIs(t, err, common.ErrNotFound)
}
