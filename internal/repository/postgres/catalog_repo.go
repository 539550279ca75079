package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"fatura/internal/domain"
	"fatura/internal/port"
)

type catalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo creates a new PostgreSQL-backed CatalogRepository.
func NewCatalogRepo(db *sqlx.DB) port.CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) FindSupplierLike(ctx context.Context, name string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.GetContext(ctx, &s,
		"SELECT * FROM suppliers WHERE supplier_name ILIKE $1 ORDER BY supplier_name LIMIT 1",
		containsPattern(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.FindSupplierLike: %w", err)
	}
	return &s, nil
}

func (r *catalogRepo) FindItemByTag(ctx context.Context, tag string) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := r.db.GetContext(ctx, &it,
		"SELECT * FROM catalog_items WHERE description LIKE $1 ORDER BY id LIMIT 1",
		containsPattern("#"+tag+"#"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.FindItemByTag: %w", err)
	}
	return &it, nil
}

func (r *catalogRepo) FindItemByNameLike(ctx context.Context, name string) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := r.db.GetContext(ctx, &it,
		"SELECT * FROM catalog_items WHERE item_name ILIKE $1 ORDER BY item_name LIMIT 1",
		containsPattern(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.FindItemByNameLike: %w", err)
	}
	return &it, nil
}

func (r *catalogRepo) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.GetContext(ctx, &s, "SELECT * FROM suppliers WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.GetSupplier: %w", err)
	}
	return &s, nil
}

func (r *catalogRepo) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := r.db.GetContext(ctx, &it, "SELECT * FROM catalog_items WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.GetItem: %w", err)
	}
	return &it, nil
}

func (r *catalogRepo) CurrencyExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM currencies WHERE code = $1)", code)
	if err != nil {
		return false, fmt.Errorf("catalogRepo.CurrencyExists: %w", err)
	}
	return exists, nil
}
