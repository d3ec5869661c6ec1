package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/oolio-fulfillment/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT sku, name, price, weight_kg, category, fragile
		FROM products ORDER BY sku`

	getProductSQL = `SELECT sku, name, price, weight_kg, category, fragile
		FROM products WHERE sku = $1`

	upsertProductSQL = `INSERT INTO products (sku, name, price, weight_kg, category, fragile)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			weight_kg = EXCLUDED.weight_kg,
			category = EXCLUDED.category,
			fragile = EXCLUDED.fragile`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by SKU.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Get returns the product with the given SKU or a *catalog.NotFoundError.
func (r *ProductRepository) Get(ctx context.Context, sku string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, sku)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", sku)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.NotFoundError{SKU: sku}
		}
		return nil, errors.Wrapf(err, "get product %q", sku)
	}
	return &p, nil
}

// SeedProducts upserts products in a single batch.
func (r *ProductRepository) SeedProducts(ctx context.Context, products []catalog.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL, p.SKU, p.Name, p.Price, p.WeightKg, p.Category, p.Fragile)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Price, &p.WeightKg, &p.Category, &p.Fragile)
	return p, err
}
