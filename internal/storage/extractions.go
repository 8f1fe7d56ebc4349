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
	"github.com/pocketmoney/chatledger/internal/service"
)

const extractionColumns = `id, user_id, sender_name, sender_phone, category, raw_text,
	language, confidence, status, payload, manually_corrected, created_at`

// InsertExtraction persists a new extraction and returns its ID. An empty
// ID gets a generated UUID and a zero CreatedAt gets the current time, so
// callers only set them when replaying history.
func (s *SQLiteStorage) InsertExtraction(ctx context.Context, ext *model.StoredExtraction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateStoredExtraction(ext); err != nil {
		return "", err
	}

	if ext.ID == "" {
		ext.ID = uuid.New().String()
	}
	if ext.CreatedAt.IsZero() {
		ext.CreatedAt = time.Now().UTC()
	}

	payload, err := marshalPayload(&ext.Extraction)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extractions (
			id, user_id, sender_name, sender_phone, category, raw_text,
			language, confidence, status, payload, manually_corrected, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ext.ID,
		ext.UserID,
		ext.SenderName,
		ext.SenderPhone,
		string(ext.Category),
		ext.RawText,
		string(ext.Language),
		ext.Confidence,
		string(ext.Status),
		payload,
		ext.ManuallyCorrected,
		ext.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert extraction: %w", err)
	}

	return ext.ID, nil
}

// GetExtraction loads a single extraction by ID.
func (s *SQLiteStorage) GetExtraction(ctx context.Context, id string) (*model.StoredExtraction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+extractionColumns+`
		FROM extractions
		WHERE id = ?
	`, id)

	ext, err := scanExtraction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("extraction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}
	return ext, nil
}

// QueryExtractions returns a user's extractions, newest first, narrowed by
// the filter. Sender matches either the stored phone or the stored name
// exactly.
func (s *SQLiteStorage) QueryExtractions(ctx context.Context, userID string, filter service.ExtractionFilter) ([]model.StoredExtraction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + extractionColumns + `
		FROM extractions
		WHERE user_id = ?`
	args := []any{userID}

	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		query += ` AND created_at < ?`
		args = append(args, *filter.Until)
	}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, string(*filter.Category))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.Sender != "" {
		query += ` AND (sender_phone = ? OR sender_name = ?)`
		args = append(args, filter.Sender, filter.Sender)
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query extractions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var extractions []model.StoredExtraction
	for rows.Next() {
		ext, scanErr := scanExtraction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", scanErr)
		}
		extractions = append(extractions, *ext)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate extractions: %w", err)
	}

	return extractions, nil
}

// UpdateExtraction rewrites a stored extraction. When the new state is a
// manual correction, the previous category, confidence, and payload are
// recorded in the corrections audit table in the same transaction.
func (s *SQLiteStorage) UpdateExtraction(ctx context.Context, ext *model.StoredExtraction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ext.ID, "id"); err != nil {
		return err
	}
	if err := validateStoredExtraction(ext); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var prevCategory string
	var prevConfidence float64
	var prevPayload sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT category, confidence, payload FROM extractions WHERE id = ?
	`, ext.ID).Scan(&prevCategory, &prevConfidence, &prevPayload)
	if err == sql.ErrNoRows {
		return fmt.Errorf("extraction %s: %w", ext.ID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load extraction for update: %w", err)
	}

	payload, err := marshalPayload(&ext.Extraction)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE extractions
		SET category = ?, raw_text = ?, language = ?, confidence = ?,
			status = ?, payload = ?, manually_corrected = ?
		WHERE id = ?
	`,
		string(ext.Category),
		ext.RawText,
		string(ext.Language),
		ext.Confidence,
		string(ext.Status),
		payload,
		ext.ManuallyCorrected,
		ext.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}

	if ext.ManuallyCorrected {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO extraction_corrections (
				extraction_id, previous_category, previous_confidence, previous_payload
			) VALUES (?, ?, ?, ?)
		`, ext.ID, prevCategory, prevConfidence, prevPayload)
		if err != nil {
			return fmt.Errorf("failed to record correction: %w", err)
		}
	}

	return tx.Commit()
}

// CorrectionRecord is one entry in an extraction's correction history.
type CorrectionRecord struct {
	CorrectedAt        time.Time
	ExtractionID       string
	PreviousCategory   string
	PreviousPayload    string
	PreviousConfidence float64
}

// GetCorrections returns the correction history for an extraction, oldest
// first.
func (s *SQLiteStorage) GetCorrections(ctx context.Context, extractionID string) ([]CorrectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(extractionID, "extractionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT extraction_id, previous_category, previous_confidence, previous_payload, corrected_at
		FROM extraction_corrections
		WHERE extraction_id = ?
		ORDER BY id
	`, extractionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []CorrectionRecord
	for rows.Next() {
		var rec CorrectionRecord
		var payload sql.NullString
		if err := rows.Scan(&rec.ExtractionID, &rec.PreviousCategory, &rec.PreviousConfidence, &payload, &rec.CorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		rec.PreviousPayload = payload.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corrections: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row scanner) (*model.StoredExtraction, error) {
	var ext model.StoredExtraction
	var senderName, senderPhone, payload sql.NullString
	var category, lang, status string

	err := row.Scan(
		&ext.ID,
		&ext.UserID,
		&senderName,
		&senderPhone,
		&category,
		&ext.RawText,
		&lang,
		&ext.Confidence,
		&status,
		&payload,
		&ext.ManuallyCorrected,
		&ext.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ext.SenderName = senderName.String
	ext.SenderPhone = senderPhone.String
	ext.Category = model.Category(category)
	ext.Language = model.Language(lang)
	ext.Status = model.ExtractionStatus(status)

	if err := unmarshalPayload(&ext, payload); err != nil {
		return nil, err
	}
	return &ext, nil
}

// marshalPayload encodes the category's payload as JSON for the single
// payload column. Inquiries have no payload and store NULL.
func marshalPayload(ext *model.Extraction) (sql.NullString, error) {
	var payload any
	switch ext.Category {
	case model.CategoryOrder:
		payload = ext.Order
	case model.CategoryPayment:
		payload = ext.Payment
	case model.CategoryDelivery:
		payload = ext.Delivery
	default:
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalPayload(ext *model.StoredExtraction, payload sql.NullString) error {
	if !payload.Valid || payload.String == "" {
		return nil
	}

	data := []byte(payload.String)
	switch ext.Category {
	case model.CategoryOrder:
		ext.Order = &model.OrderPayload{}
		if err := json.Unmarshal(data, ext.Order); err != nil {
			return fmt.Errorf("failed to unmarshal order payload: %w", err)
		}
	case model.CategoryPayment:
		ext.Payment = &model.PaymentPayload{}
		if err := json.Unmarshal(data, ext.Payment); err != nil {
			return fmt.Errorf("failed to unmarshal payment payload: %w", err)
		}
	case model.CategoryDelivery:
		ext.Delivery = &model.DeliveryPayload{}
		if err := json.Unmarshal(data, ext.Delivery); err != nil {
			return fmt.Errorf("failed to unmarshal delivery payload: %w", err)
		}
	}
	return nil
}
