// Package export renders a user's extraction history as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
)

// SheetName is the workbook sheet extraction rows land on.
const SheetName = "Extractions"

const maxMessageCell = 140

var headers = []string{
	"Date",
	"Category",
	"Status",
	"Confidence",
	"Language",
	"Sender",
	"Amount (RM)",
	"Details",
	"Message",
	"Corrected",
}

// Service produces spreadsheet exports from stored extractions.
type Service struct {
	storage service.Storage
}

// NewService creates an export service.
func NewService(storage service.Storage) *Service {
	return &Service{storage: storage}
}

// ExtractionsXLSX returns an XLSX workbook of the user's extractions inside
// the date window, newest first. Nil bounds leave that side open; to is
// inclusive of its whole day. Returns ErrEmptyExport when nothing matches.
func (s *Service) ExtractionsXLSX(ctx context.Context, userID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	filter := service.ExtractionFilter{}
	if from != nil {
		f := dateOnly(*from)
		filter.Since = &f
	}
	if to != nil {
		u := dateOnly(*to).AddDate(0, 0, 1)
		filter.Until = &u
	}

	extractions, err := s.storage.QueryExtractions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query extractions: %w", err)
	}
	if len(extractions) == 0 {
		return nil, common.ErrEmptyExport
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, ext := range extractions {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, ext.CreatedAt.Format("2006-01-02 15:04"))
		write(2, string(ext.Category))
		write(3, string(ext.Status))
		write(4, ext.Confidence)
		write(5, string(ext.Language))
		write(6, senderLabel(&ext))
		if amount, ok := amountFor(&ext); ok {
			write(7, amount)
		}
		write(8, detailsFor(&ext))
		write(9, truncate(ext.RawText, maxMessageCell))
		if ext.ManuallyCorrected {
			write(10, "yes")
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 17)
	_ = f.SetColWidth(SheetName, "B", "C", 14)
	_ = f.SetColWidth(SheetName, "E", "F", 16)
	_ = f.SetColWidth(SheetName, "H", "H", 40)
	_ = f.SetColWidth(SheetName, "I", "I", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	slog.Info("exported extractions",
		"user_id", userID,
		"rows", len(extractions),
		"elapsed_ms", time.Since(start).Milliseconds())

	return buf.Bytes(), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func senderLabel(ext *model.StoredExtraction) string {
	if ext.SenderName != "" {
		return ext.SenderName
	}
	return ext.SenderPhone
}

func amountFor(ext *model.StoredExtraction) (float64, bool) {
	switch {
	case ext.Order != nil && ext.Order.TotalAmount != nil:
		return *ext.Order.TotalAmount, true
	case ext.Payment != nil && ext.Payment.Amount > 0:
		return ext.Payment.Amount, true
	default:
		return 0, false
	}
}

// detailsFor summarizes the payload in one cell: order line items, payment
// method and reference, or delivery address and time.
func detailsFor(ext *model.StoredExtraction) string {
	switch {
	case ext.Order != nil:
		items := make([]string, 0, len(ext.Order.Items))
		for _, item := range ext.Order.Items {
			line := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
			if item.UnitPrice != nil {
				line += " @ RM" + strconv.FormatFloat(*item.UnitPrice, 'f', 2, 64)
			}
			items = append(items, line)
		}
		return strings.Join(items, "; ")
	case ext.Payment != nil:
		parts := []string{ext.Payment.Method}
		if ext.Payment.BankName != "" {
			parts = append(parts, ext.Payment.BankName)
		}
		if ext.Payment.ReferenceNumber != "" {
			parts = append(parts, "ref "+ext.Payment.ReferenceNumber)
		}
		return strings.Join(parts, " / ")
	case ext.Delivery != nil:
		var parts []string
		if ext.Delivery.Address != "" {
			parts = append(parts, ext.Delivery.Address)
		}
		if ext.Delivery.DeliveryTime != "" {
			parts = append(parts, ext.Delivery.DeliveryTime)
		}
		return strings.Join(parts, " / ")
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
