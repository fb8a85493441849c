package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]*models.Product, error)
}

type productRepo struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, sku, name, barcode, min_stock_level, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Barcode, &p.MinStockLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, sku, name, barcode, min_stock_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.ID, product.SKU, product.Name, product.Barcode, product.MinStockLevel).
		Scan(&product.CreatedAt, &product.UpdatedAt)
	return duplicate(err)
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *productRepo) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`
	return scanProduct(r.db.QueryRow(ctx, query, barcode))
}

func (r *productRepo) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
	return scanProduct(r.db.QueryRow(ctx, query, sku))
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	limit, offset = pageDefaults(limit, offset)
	query := `SELECT ` + productColumns + ` FROM products ORDER BY sku LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
