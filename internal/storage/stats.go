package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
)

const topSenderLimit = 5

// GetStats aggregates a user's extraction history. A zero since covers all
// time.
func (s *SQLiteStorage) GetStats(ctx context.Context, userID string, since time.Time) (*service.StatsSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	where := `WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		where += ` AND created_at >= ?`
		args = append(args, since)
	}

	summary := &service.StatsSummary{
		ByCategory: make(map[model.Category]int),
		ByStatus:   make(map[model.ExtractionStatus]int),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(confidence), 0),
			COALESCE(SUM(manually_corrected), 0)
		FROM extractions `+where, args...,
	).Scan(&summary.Total, &summary.AverageConfidence, &summary.ManualCorrections)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate extractions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM extractions `+where+` GROUP BY category
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by category: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		summary.ByCategory[model.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}

	statusRows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM extractions `+where+` GROUP BY status
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer func() { _ = statusRows.Close() }()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		summary.ByStatus[model.ExtractionStatus(status)] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	// Senders are labelled by name when we have one, phone otherwise.
	senderRows, err := s.db.QueryContext(ctx, `
		SELECT
			CASE WHEN COALESCE(sender_name, '') != '' THEN sender_name
				ELSE COALESCE(sender_phone, '') END AS sender,
			COUNT(*) AS messages
		FROM extractions `+where+`
			AND (COALESCE(sender_name, '') != '' OR COALESCE(sender_phone, '') != '')
		GROUP BY sender
		ORDER BY messages DESC, sender
		LIMIT ?
	`, append(append([]any{}, args...), topSenderLimit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank senders: %w", err)
	}
	defer func() { _ = senderRows.Close() }()
	for senderRows.Next() {
		var sc service.SenderCount
		if err := senderRows.Scan(&sc.Sender, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan sender count: %w", err)
		}
		summary.TopSenders = append(summary.TopSenders, sc)
	}
	if err := senderRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sender counts: %w", err)
	}

	return summary, nil
}
