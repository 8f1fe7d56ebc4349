package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pocketmoney/chatledger/internal/model"
)

// GetFeatureUsage returns the usage counter for one user, feature, and
// month. A month with no recorded usage comes back with Count zero.
// Limit is left for the caller to stamp; storage records counts, policy
// lives in the engine.
func (s *SQLiteStorage) GetFeatureUsage(ctx context.Context, userID, feature, monthKey string) (*model.FeatureUsage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(feature, "feature"); err != nil {
		return nil, err
	}
	if err := validateString(monthKey, "monthKey"); err != nil {
		return nil, err
	}

	usage := &model.FeatureUsage{
		UserID:   userID,
		Feature:  feature,
		MonthKey: monthKey,
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT count FROM feature_usage
		WHERE user_id = ? AND feature = ? AND month_key = ?
	`, userID, feature, monthKey).Scan(&usage.Count)
	if err == sql.ErrNoRows {
		return usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature usage: %w", err)
	}

	return usage, nil
}

// IncrementFeatureUsage bumps the month's counter by one, creating the row
// on first use.
func (s *SQLiteStorage) IncrementFeatureUsage(ctx context.Context, userID, feature, monthKey string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(feature, "feature"); err != nil {
		return err
	}
	if err := validateString(monthKey, "monthKey"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feature_usage (user_id, feature, month_key, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(user_id, feature, month_key) DO UPDATE SET
			count = count + 1,
			updated_at = CURRENT_TIMESTAMP
	`, userID, feature, monthKey)
	if err != nil {
		return fmt.Errorf("failed to increment feature usage: %w", err)
	}

	return nil
}
