// Package testutil provides test utilities for the chatledger project.
// It offers an in-memory database with automatic migration and cleanup,
// plus fixtures for the common extraction shapes.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/storage"
)

// TestDB wraps an in-memory SQLite store for tests. The concrete type is
// exposed on purpose: tests reach past the service interfaces for orders,
// usage counters, and correction history.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustInsertExtraction seeds an extraction or fails the test.
func (db *TestDB) MustInsertExtraction(ctx context.Context, ext *model.StoredExtraction) string {
	db.t.Helper()

	id, err := db.Storage.InsertExtraction(ctx, ext)
	if err != nil {
		db.t.Fatalf("failed to insert extraction: %v", err)
	}
	return id
}

// OrderExtraction builds a valid processed order extraction for userID.
func OrderExtraction(userID string) *model.StoredExtraction {
	price := 15.0
	return &model.StoredExtraction{
		UserID:      userID,
		SenderName:  "Ali",
		SenderPhone: "+60123456789",
		Status:      model.StatusProcessed,
		Extraction: model.Extraction{
			Category:   model.CategoryOrder,
			RawText:    "nak 2 nasi lemak rm15",
			Language:   model.LanguageMalay,
			Confidence: 0.85,
			Order: &model.OrderPayload{
				Items: []model.OrderItem{
					{Name: "nasi lemak", Quantity: 2, UnitPrice: &price},
				},
				TotalAmount:   &price,
				CustomerName:  "Ali",
				CustomerPhone: "+60123456789",
				Notes:         "nak 2 nasi lemak rm15",
			},
		},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// PaymentExtraction builds a valid processed payment extraction for userID.
func PaymentExtraction(userID string) *model.StoredExtraction {
	return &model.StoredExtraction{
		UserID:      userID,
		SenderName:  "Siti",
		SenderPhone: "+60198765432",
		Status:      model.StatusProcessed,
		Extraction: model.Extraction{
			Category:   model.CategoryPayment,
			RawText:    "dah transfer rm50 ref: ABC123",
			Language:   model.LanguageMalay,
			Confidence: 0.9,
			Payment: &model.PaymentPayload{
				Amount:          50,
				Method:          model.PaymentMethodBankTransfer,
				ReferenceNumber: "ABC123",
				SenderInfo:      "Siti (+60198765432)",
			},
		},
		CreatedAt: time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC),
	}
}

// InquiryExtraction builds a review-queue inquiry extraction for userID.
func InquiryExtraction(userID string) *model.StoredExtraction {
	return &model.StoredExtraction{
		UserID:      userID,
		SenderPhone: "+60171112222",
		Status:      model.StatusNeedsReview,
		Extraction: model.Extraction{
			Category:   model.CategoryInquiry,
			RawText:    "berapa harga?",
			Language:   model.LanguageEnglish,
			Confidence: 0.3,
		},
		CreatedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
	}
}
