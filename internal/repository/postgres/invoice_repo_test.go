package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
	"fatura/internal/port"
)

var invoiceColumns = []string{
	"id", "status", "original_file", "supplier_name", "supplier_link", "invoice_number",
	"invoice_date", "currency", "subtotal", "tax_amount", "total_amount", "tax_rate",
	"extracted_data", "version", "created_at", "updated_at",
}

func TestInvoiceRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)

	inv := &domain.ExtractedInvoice{
		OriginalFile: "/private/files/a.pdf",
		Items: []domain.ExtractedInvoiceItem{
			{ExtractedText: "Widget", Quantity: 1, Rate: 10},
			{ExtractedText: "Bolt", Quantity: 2, Rate: 5},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO extracted_invoices`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO extracted_invoice_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO extracted_invoice_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), inv))
	assert.NotEqual(t, uuid.Nil, inv.ID)
	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 1, inv.Version)
	assert.Equal(t, 1, inv.Items[0].Idx)
	assert.Equal(t, 2, inv.Items[1].Idx)
	assert.Equal(t, inv.ID, inv.Items[1].InvoiceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_CreateRollsBackOnItemFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)

	inv := &domain.ExtractedInvoice{Items: []domain.ExtractedInvoiceItem{{ExtractedText: "Widget"}}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO extracted_invoices`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO extracted_invoice_items`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), inv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)

	id := uuid.New()
	now := time.Now().UTC()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM extracted_invoices WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(
			id, "Ready", "/files/a.pdf", "Acme", "SUP-1", "INV-1",
			date, "SAR", 100.0, 15.0, 115.0, 15.0,
			[]byte(`{"supplier":"Acme"}`), 3, now, now))
	mock.ExpectQuery(`SELECT \* FROM extracted_invoice_items WHERE invoice_id = \$1 ORDER BY idx`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "idx", "item_name", "quantity", "rate", "amount"}).
			AddRow(uuid.New(), id, 1, "ITM-1", 2.0, 50.0, 100.0))

	inv, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusReady, inv.Status)
	assert.Equal(t, 3, inv.Version)
	require.NotNil(t, inv.InvoiceDate)
	assert.True(t, date.Equal(*inv.InvoiceDate))
	assert.True(t, inv.HasExtractedData())
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "ITM-1", inv.Items[0].ItemName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM extracted_invoices WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(invoiceColumns))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM extracted_invoices`).
		WithArgs("Ready").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM extracted_invoices .* ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("Ready", 2, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "extracted_data", "version", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Ready", []byte("null"), 1, now, now).
			AddRow(uuid.New(), "Ready", []byte("null"), 1, now, now))

	invoices, total, err := repo.List(context.Background(), port.InvoiceFilter{Status: domain.InvoiceStatusReady}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, invoices, 2)
	assert.False(t, invoices[0].HasExtractedData())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)

	inv := &domain.ExtractedInvoice{
		ID:      uuid.New(),
		Status:  domain.InvoiceStatusReady,
		Version: 3,
		Items:   []domain.ExtractedInvoiceItem{{ItemName: "ITM-1", Quantity: 1, Rate: 10}},
	}

	args := make([]driver.Value, 0, 20)
	for i := 0; i < 18; i++ {
		args = append(args, sqlmock.AnyArg())
	}
	args = append(args, inv.ID, 3)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE extracted_invoices SET`).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM extracted_invoice_items WHERE invoice_id = \$1`).
		WithArgs(inv.ID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO extracted_invoice_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), inv))
	assert.Equal(t, 4, inv.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_UpdateStaleVersion(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{"stale version", true, domain.ErrVersionConflict},
		{"deleted meanwhile", false, domain.ErrInvoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewInvoiceRepo(db)
			inv := &domain.ExtractedInvoice{ID: uuid.New(), Version: 2}

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE extracted_invoices SET`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(inv.ID).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			mock.ExpectRollback()

			err := repo.Update(context.Background(), inv)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 2, inv.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvoiceRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepo(db)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM extracted_invoices WHERE id = \$1`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id))

	mock.ExpectExec(`DELETE FROM extracted_invoices WHERE id = \$1`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id), domain.ErrInvoiceNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
