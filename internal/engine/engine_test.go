package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/extract"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
	"github.com/pocketmoney/chatledger/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func currentMonthKey() string {
	return model.MonthKey(time.Now().UTC())
}

func TestParseMessageStoresExtraction(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	eng := New(db, usage, extract.New(), nil)

	msg := model.Message{
		Content:     "Nak 2 nasi lemak rm15",
		SenderName:  "Ali",
		SenderPhone: "0123456789",
	}

	stored, err := eng.ParseMessage(ctx, "user-1", msg)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, model.CategoryOrder, stored.Category)
	assert.Equal(t, model.StatusProcessed, stored.Status)
	assert.Equal(t, "Ali", stored.SenderName)
	assert.Equal(t, "+60123456789", stored.SenderPhone)
	assert.False(t, stored.CreatedAt.IsZero())
	require.NotNil(t, stored.Order)
	require.Len(t, stored.Order.Items, 1)
	assert.Equal(t, "nasi lemak", stored.Order.Items[0].Name)
	assert.Equal(t, 2, stored.Order.Items[0].Quantity)

	// Round-trips through storage under the generated ID.
	loaded, err := db.GetExtraction(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Category, loaded.Category)
	assert.Equal(t, stored.Confidence, loaded.Confidence)

	assert.Equal(t, 1, usage.count("user-1", model.FeatureWhatsAppExtract, currentMonthKey()))
	assert.Equal(t, 1, usage.incrCalls)
}

func TestParseMessageKeepsMessageTimestamp(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	ts := time.Date(2024, 1, 2, 10, 15, 0, 0, time.UTC)
	stored, err := eng.ParseMessage(ctx, "user-1", model.Message{
		Timestamp: ts,
		Content:   "transfer done rm50",
	})
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(ts), "created_at should carry the chat timestamp, got %v", stored.CreatedAt)
}

func TestParseMessageChecksQuotaBeforeExtraction(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	usage.setCount("user-1", model.FeatureWhatsAppExtract, currentMonthKey(), 50)
	extractor := &mockExtractor{}
	eng := New(db, usage, extractor, nil)

	_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "nak 1 kek"})
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	var quotaErr *common.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, model.FeatureWhatsAppExtract, quotaErr.Feature)
	assert.Equal(t, 50, quotaErr.CurrentUsage)
	assert.Equal(t, 50, quotaErr.Limit)

	assert.Zero(t, extractor.callCount(), "extractor must not run for an over-quota user")
	assert.Zero(t, usage.incrCalls)
}

func TestParseMessageQuotaErrorBeatsInvalidInput(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	usage.setCount("user-1", model.FeatureWhatsAppExtract, currentMonthKey(), 50)
	eng := New(db, usage, &mockExtractor{}, nil)

	_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "   "})
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
}

func TestParseMessageRejectsInvalidContent(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "whitespace only", content: "  \n\t "},
		{name: "over length limit", content: strings.Repeat("a", model.MaxContentLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := newMockUsageStore()
			extractor := &mockExtractor{}
			eng := New(db, usage, extractor, nil)

			_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: tt.content})
			require.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Zero(t, extractor.callCount())
			assert.Zero(t, usage.incrCalls, "invalid input must not consume quota")
		})
	}
}

func TestParseMessageAcceptsContentAtLengthLimit(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	stored, err := eng.ParseMessage(ctx, "user-1", model.Message{
		Content: strings.Repeat("a", model.MaxContentLength),
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryInquiry, stored.Category)
}

func TestParseMessageRequiresUserID(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	eng := New(db, usage, &mockExtractor{}, nil)

	for _, userID := range []string{"", "   "} {
		_, err := eng.ParseMessage(ctx, userID, model.Message{Content: "hello"})
		require.ErrorIs(t, err, common.ErrInvalidInput)
	}
	assert.Zero(t, usage.getCalls)
}

func TestParseMessageStatusThreshold(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		confidence float64
		want       model.ExtractionStatus
	}{
		{name: "well below", confidence: 0.3, want: model.StatusNeedsReview},
		{name: "exactly at threshold", confidence: 0.7, want: model.StatusNeedsReview},
		{name: "just above", confidence: 0.71, want: model.StatusProcessed},
		{name: "certain", confidence: 1.0, want: model.StatusProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestStorage(t)
			extractor := &mockExtractor{result: &model.Extraction{
				Category:   model.CategoryPayment,
				RawText:    "payment received",
				Language:   model.LanguageEnglish,
				Confidence: tt.confidence,
				Payment:    &model.PaymentPayload{Method: model.PaymentMethodUnknown},
			}}
			eng := New(db, newMockUsageStore(), extractor, nil)

			stored, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "payment received"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestParseMessageCountsEachMessage(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	eng := New(db, usage, extract.New(), nil)

	for i := 0; i < 3; i++ {
		_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "berapa harga?"})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, usage.count("user-1", model.FeatureWhatsAppExtract, currentMonthKey()))
}

func TestParseMessageSucceedsWhenUsageRecordingFails(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockUsageStore()
	usage.incrErr = errors.New("usage table locked")
	eng := New(db, usage, extract.New(), nil)

	stored, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "berapa harga?"})
	require.NoError(t, err)

	_, err = db.GetExtraction(ctx, stored.ID)
	assert.NoError(t, err, "extraction should be persisted even when the usage count is lost")
}

func TestParseMessageReservesOnAtomicStore(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockAtomicUsageStore()
	eng := New(db, usage, extract.New(), nil)

	_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "berapa harga?"})
	require.NoError(t, err)

	assert.Equal(t, 1, usage.reserveCalls)
	assert.Zero(t, usage.incrCalls, "atomic stores must not be incremented twice")
	assert.Equal(t, 1, usage.count("user-1", model.FeatureWhatsAppExtract, currentMonthKey()))
}

func TestParseMessageAtomicReservationFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	usage := newMockAtomicUsageStore()
	usage.reserveErr = &common.QuotaExceededError{
		Feature:      model.FeatureWhatsAppExtract,
		MonthKey:     currentMonthKey(),
		CurrentUsage: 50,
		Limit:        50,
	}
	extractor := &mockExtractor{}
	eng := New(db, usage, extractor, nil)

	_, err := eng.ParseMessage(ctx, "user-1", model.Message{Content: "nak 1 kek"})
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.Zero(t, extractor.callCount(), "extraction must not run after a failed reservation")

	rows, err := db.QueryExtractions(ctx, "user-1", service.ExtractionFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProcessAndMaybeCreateOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{}
	eng := New(db, newMockUsageStore(), extract.New(), orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{
		Content:     "Nak 2 nasi lemak rm15",
		SenderName:  "Ali",
		SenderPhone: "0123456789",
	}, true)
	require.NoError(t, err)
	require.NotNil(t, result.Extraction)
	require.NoError(t, result.OrderErr)
	assert.NotEmpty(t, result.OrderID)

	require.Equal(t, 1, orders.callCount())
	call := orders.calls[0]
	assert.Equal(t, "user-1", call.userID)
	assert.Equal(t, result.Extraction.ID, call.extractionID)
	require.Len(t, call.payload.Items, 1)
	assert.Equal(t, "nasi lemak", call.payload.Items[0].Name)
}

func TestProcessAndMaybeCreateOrderSkipsWhenDisabled(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{}
	eng := New(db, newMockUsageStore(), extract.New(), orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{
		Content: "Nak 2 nasi lemak rm15",
	}, false)
	require.NoError(t, err)
	assert.Empty(t, result.OrderID)
	assert.Zero(t, orders.callCount())
}

func TestProcessAndMaybeCreateOrderSkipsNonOrders(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{}
	eng := New(db, newMockUsageStore(), extract.New(), orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{
		Content: "dah transfer rm50 maybank",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryPayment, result.Extraction.Category)
	assert.Empty(t, result.OrderID)
	assert.Zero(t, orders.callCount())
}

func TestProcessAndMaybeCreateOrderSkipsNeedsReview(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{}
	extractor := &mockExtractor{result: &model.Extraction{
		Category:   model.CategoryOrder,
		RawText:    "maybe an order",
		Language:   model.LanguageEnglish,
		Confidence: 0.5,
		Order: &model.OrderPayload{
			Notes: "maybe an order",
			Items: []model.OrderItem{{Name: "kek", Quantity: 1}},
		},
	}}
	eng := New(db, newMockUsageStore(), extractor, orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{Content: "maybe an order"}, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNeedsReview, result.Extraction.Status)
	assert.Zero(t, orders.callCount(), "low-confidence orders stay in the review queue")
}

func TestProcessAndMaybeCreateOrderSkipsEmptyItems(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{}
	extractor := &mockExtractor{result: &model.Extraction{
		Category:   model.CategoryOrder,
		RawText:    "nak order nanti",
		Language:   model.LanguageMalay,
		Confidence: 0.9,
		Order:      &model.OrderPayload{Notes: "nak order nanti"},
	}}
	eng := New(db, newMockUsageStore(), extractor, orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{Content: "nak order nanti"}, true)
	require.NoError(t, err)
	assert.Empty(t, result.OrderID)
	assert.Zero(t, orders.callCount())
}

func TestProcessAndMaybeCreateOrderReportsCreatorFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	orders := &mockOrderCreator{err: errors.New("order backend down")}
	eng := New(db, newMockUsageStore(), extract.New(), orders)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{
		Content: "Nak 2 nasi lemak rm15",
	}, true)
	require.NoError(t, err, "a failed order must not fail the whole pipeline")
	require.NotNil(t, result.Extraction)
	require.Error(t, result.OrderErr)
	assert.Empty(t, result.OrderID)

	// The extraction survives the order failure.
	_, err = db.GetExtraction(ctx, result.Extraction.ID)
	assert.NoError(t, err)
}

func TestProcessAndMaybeCreateOrderWithoutBackend(t *testing.T) {
	ctx := context.Background()
	db := newTestStorage(t)
	eng := New(db, newMockUsageStore(), extract.New(), nil)

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, "user-1", model.Message{
		Content: "Nak 2 nasi lemak rm15",
	}, true)
	require.NoError(t, err)
	assert.Empty(t, result.OrderID)
}
