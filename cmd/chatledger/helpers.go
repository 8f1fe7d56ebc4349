// Package main contains the chatledger CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pocketmoney/chatledger/internal/config"
	"github.com/pocketmoney/chatledger/internal/engine"
	"github.com/pocketmoney/chatledger/internal/extract"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
	"github.com/pocketmoney/chatledger/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	cfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine wires storage, the usage store and the extractor into a ready
// extraction engine. The concrete store is returned alongside for commands
// that read tables the engine does not front (orders, correction history).
// The returned cleanup closes every store that was opened.
func initEngine(ctx context.Context) (*engine.ExtractionEngine, *storage.SQLiteStorage, func(), error) {
	cfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	// The SQLite storage doubles as the usage store unless Redis is
	// configured; Redis adds the atomic quota reservation path.
	var usage service.UsageStore = store
	var redisStore *storage.RedisUsageStore
	if cfg.RedisEnabled() {
		redisStore, err = storage.NewRedisUsageStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		usage = redisStore
	}

	cleanup := func() {
		if redisStore != nil {
			if closeErr := redisStore.Close(); closeErr != nil {
				slog.Error("failed to close Redis usage store", "error", closeErr)
			}
		}
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}

	eng := engine.New(store, usage, extract.New(), store)
	return eng, store, cleanup, nil
}

// currentUser returns the account extractions are recorded under.
func currentUser() string {
	user := viper.GetString("user")
	if user == "" {
		user = "default"
	}
	return user
}

// parseCategory accepts both the stored constants and friendly shorthands.
func parseCategory(s string) (model.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "order", "orders":
		return model.CategoryOrder, nil
	case "payment", "payments":
		return model.CategoryPayment, nil
	case "delivery", "deliveries":
		return model.CategoryDelivery, nil
	case "inquiry", "inquiries":
		return model.CategoryInquiry, nil
	}

	category := model.Category(strings.ToUpper(strings.TrimSpace(s)))
	if category.Valid() {
		return category, nil
	}
	return "", fmt.Errorf("unknown category %q (use order, payment, delivery or inquiry)", s)
}

// parseStatus accepts both the stored constants and friendly shorthands.
func parseStatus(s string) (model.ExtractionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processed", "done":
		return model.StatusProcessed, nil
	case "needs-review", "needs_review", "review", "pending":
		return model.StatusNeedsReview, nil
	}
	return "", fmt.Errorf("unknown status %q (use processed or needs-review)", s)
}
