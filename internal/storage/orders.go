package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
)

// CreateOrder persists an order built from an order extraction and returns
// the new order ID.
func (s *SQLiteStorage) CreateOrder(ctx context.Context, userID string, payload model.OrderPayload, extractionID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(userID, "userID"); err != nil {
		return "", err
	}

	id := uuid.New().String()

	var items sql.NullString
	if len(payload.Items) > 0 {
		data, err := json.Marshal(payload.Items)
		if err != nil {
			return "", fmt.Errorf("failed to marshal order items: %w", err)
		}
		items = sql.NullString{String: string(data), Valid: true}
	}

	var total sql.NullFloat64
	if payload.TotalAmount != nil {
		total = sql.NullFloat64{Float64: *payload.TotalAmount, Valid: true}
	}

	var extRef sql.NullString
	if extractionID != "" {
		extRef = sql.NullString{String: extractionID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, extraction_id, customer_name, customer_phone,
			items, total_amount, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		userID,
		extRef,
		payload.CustomerName,
		payload.CustomerPhone,
		items,
		total,
		payload.Notes,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	return id, nil
}

// GetOrder loads a single order by ID.
func (s *SQLiteStorage) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, extraction_id, customer_name, customer_phone,
			items, total_amount, notes, created_at
		FROM orders
		WHERE id = ?
	`, id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// QueryOrders returns a user's orders, newest first.
func (s *SQLiteStorage) QueryOrders(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, extraction_id, customer_name, customer_phone,
			items, total_amount, notes, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []model.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan order: %w", scanErr)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row scanner) (*model.Order, error) {
	var order model.Order
	var extRef, items, customerName, customerPhone, notes sql.NullString
	var total sql.NullFloat64

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&extRef,
		&customerName,
		&customerPhone,
		&items,
		&total,
		&notes,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.ExtractionID = extRef.String
	order.CustomerName = customerName.String
	order.CustomerPhone = customerPhone.String
	order.Notes = notes.String
	if total.Valid {
		order.TotalAmount = &total.Float64
	}
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &order.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
	}

	return &order, nil
}
