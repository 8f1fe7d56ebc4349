package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/testutil"
)

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func exportRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestExtractionsXLSX(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.MustInsertExtraction(ctx, testutil.OrderExtraction("user-1"))
	db.MustInsertExtraction(ctx, testutil.PaymentExtraction("user-1"))
	db.MustInsertExtraction(ctx, testutil.InquiryExtraction("user-1"))
	db.MustInsertExtraction(ctx, testutil.OrderExtraction("someone-else"))

	svc := NewService(db.Storage)
	data, err := svc.ExtractionsXLSX(ctx, "user-1", nil, nil)
	require.NoError(t, err)

	rows := exportRows(t, data)
	require.Len(t, rows, 4, "header plus three rows")
	assert.Equal(t, headers, rows[0])

	// Newest first: inquiry (Mar 3), payment (Mar 2), order (Mar 1).
	assert.Equal(t, "INQUIRY", cell(rows[1], 1))
	assert.Equal(t, "+60171112222", cell(rows[1], 5))

	payment := rows[2]
	assert.Equal(t, "PAYMENT", cell(payment, 1))
	assert.Equal(t, "50", cell(payment, 6))
	assert.Contains(t, cell(payment, 7), "Bank Transfer")
	assert.Contains(t, cell(payment, 7), "ref ABC123")

	order := rows[3]
	assert.Equal(t, "2024-03-01 10:00", cell(order, 0))
	assert.Equal(t, "ORDER", cell(order, 1))
	assert.Equal(t, "PROCESSED", cell(order, 2))
	assert.Equal(t, "Ali", cell(order, 5))
	assert.Equal(t, "15", cell(order, 6))
	assert.Contains(t, cell(order, 7), "2x nasi lemak")
}

func TestExtractionsXLSXDateWindow(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.MustInsertExtraction(ctx, testutil.OrderExtraction("user-1"))   // Mar 1
	db.MustInsertExtraction(ctx, testutil.PaymentExtraction("user-1")) // Mar 2
	db.MustInsertExtraction(ctx, testutil.InquiryExtraction("user-1")) // Mar 3

	svc := NewService(db.Storage)

	from := time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)
	data, err := svc.ExtractionsXLSX(ctx, "user-1", &from, nil)
	require.NoError(t, err)
	assert.Len(t, exportRows(t, data), 3, "from is truncated to the start of its day")

	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	data, err = svc.ExtractionsXLSX(ctx, "user-1", nil, &to)
	require.NoError(t, err)
	assert.Len(t, exportRows(t, data), 3, "to covers its whole day")

	data, err = svc.ExtractionsXLSX(ctx, "user-1", &to, &to)
	require.NoError(t, err)
	rows := exportRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "PAYMENT", cell(rows[1], 1))
}

func TestExtractionsXLSXEmpty(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	svc := NewService(db.Storage)
	_, err := svc.ExtractionsXLSX(ctx, "user-1", nil, nil)
	require.ErrorIs(t, err, common.ErrEmptyExport)
}

func TestExtractionsXLSXMarksCorrections(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	ext := testutil.InquiryExtraction("user-1")
	db.MustInsertExtraction(ctx, ext)
	require.NoError(t, ext.ApplyCorrection(model.Correction{Category: categoryPtr(model.CategoryPayment)}))
	require.NoError(t, db.Storage.UpdateExtraction(ctx, ext))

	svc := NewService(db.Storage)
	data, err := svc.ExtractionsXLSX(ctx, "user-1", nil, nil)
	require.NoError(t, err)

	rows := exportRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "yes", cell(rows[1], 9))
	assert.Equal(t, "1", cell(rows[1], 3), "corrected rows read back with full confidence")
}

func categoryPtr(c model.Category) *model.Category {
	return &c
}
