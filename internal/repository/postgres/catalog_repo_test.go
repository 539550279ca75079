package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
)

func TestCatalogRepo_FindSupplierLike(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT \* FROM suppliers WHERE supplier_name ILIKE \$1`).
		WithArgs(`%Acme 100\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_name", "tax_id"}).
			AddRow("SUP-1", "Acme 100% Trading", "300000000000003"))

	s, err := repo.FindSupplierLike(context.Background(), "Acme 100%")
	require.NoError(t, err)
	assert.Equal(t, "SUP-1", s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepo_FindSupplierLikeNoMatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT \* FROM suppliers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_name", "tax_id"}))

	_, err := repo.FindSupplierLike(context.Background(), "Nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogRepo_FindItemByTag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT \* FROM catalog_items WHERE description LIKE \$1`).
		WithArgs("%#A\\_12#%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_name", "description", "stock_uom"}).
			AddRow("ITM-7", "Cement", "grey #A_12# bag", "Bag"))

	it, err := repo.FindItemByTag(context.Background(), "A_12")
	require.NoError(t, err)
	assert.Equal(t, "ITM-7", it.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepo_FindItemByNameLikeError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT \* FROM catalog_items WHERE item_name ILIKE \$1`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindItemByNameLike(context.Background(), "Cement")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogRepo_GetSupplierAndItem(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT \* FROM suppliers WHERE id = \$1`).
		WithArgs("SUP-404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_name", "tax_id"}))
	_, err := repo.GetSupplier(context.Background(), "SUP-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectQuery(`SELECT \* FROM catalog_items WHERE id = \$1`).
		WithArgs("ITM-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_name", "description", "stock_uom"}).
			AddRow("ITM-1", "Cement", "", "Bag"))
	it, err := repo.GetItem(context.Background(), "ITM-1")
	require.NoError(t, err)
	assert.Equal(t, "Bag", it.StockUOM)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepo_CurrencyExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM currencies WHERE code = \$1\)`).
		WithArgs("USD").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM currencies WHERE code = \$1\)`).
		WithArgs("XYZ").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.CurrencyExists(context.Background(), "USD")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CurrencyExists(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
