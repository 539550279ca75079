package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
)

func TestPurchaseInvoiceRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPurchaseInvoiceRepo(db)

	pi := &domain.PurchaseInvoice{
		ExtractedInvoiceID: uuid.New(),
		SupplierID:         "SUP-1",
		Currency:           "SAR",
		Items: []domain.PurchaseInvoiceItem{
			{ItemCode: "ITM-1", Qty: 1, Rate: 10, Amount: 10, UOM: "Unit"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO purchase_invoices`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO purchase_invoice_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), pi))
	assert.NotEqual(t, uuid.Nil, pi.ID)
	assert.Equal(t, pi.ID, pi.Items[0].PurchaseInvoiceID)
	assert.Equal(t, 1, pi.Items[0].Idx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseInvoiceRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPurchaseInvoiceRepo(db)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM purchase_invoices WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_id", "posting_date", "due_date", "currency", "tax_rate", "created_at"}).
			AddRow(id, "SUP-1", now, now, "SAR", nil, now))
	mock.ExpectQuery(`SELECT \* FROM purchase_invoice_items WHERE purchase_invoice_id = \$1 ORDER BY idx`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "idx", "item_code"}))

	pi, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, pi.TaxRate)
	assert.Empty(t, pi.Items)

	mock.ExpectQuery(`SELECT \* FROM purchase_invoices WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
