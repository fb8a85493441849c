// Package testhelpers sets up a real PostgreSQL database for integration tests.
// Tests using it are skipped unless TEST_DATABASE_URL is set.
package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

var tables = []string{
	"low_stock_alerts",
	"goods_receipt_items",
	"goods_receipts",
	"return_items",
	"product_returns",
	"pick_list_items",
	"pick_lists",
	"order_items",
	"orders",
	"stock_movements",
	"ledger_entries",
	"locations",
	"products",
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the migrations and empties every table
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	db := &TestDB{Pool: pool, Cleanup: pool.Close}

	applyMigrations(t, ctx, pool)
	db.Truncate(t)
	t.Cleanup(db.Cleanup)
	return db
}

func applyMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	_, file, _, _ := runtime.Caller(0)
	files, err := filepath.Glob(filepath.Join(filepath.Dir(file), "..", "migrations", "*.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("No migrations found: %v", err)
	}
	sort.Strings(files)

	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		// no arguments, so pgx sends the whole file over the simple protocol
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("Failed to apply %s: %v", filepath.Base(f), err)
		}
	}
}

// Truncate empties every table, children first
func (db *TestDB) Truncate(t *testing.T) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Pool.Exec(context.Background(), "TRUNCATE "+table+" CASCADE"); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}

// SeedProduct inserts a product with a unique SKU and barcode
func (db *TestDB) SeedProduct(t *testing.T, minStock int) *models.Product {
	t.Helper()

	id := uuid.New()
	product := &models.Product{
		ID:            id,
		SKU:           "SKU-" + id.String()[:8],
		Name:          "Test Product",
		Barcode:       id.String()[:13],
		MinStockLevel: minStock,
	}
	query := `
		INSERT INTO products (id, sku, name, barcode, min_stock_level)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := db.Pool.QueryRow(context.Background(), query, product.ID, product.SKU, product.Name, product.Barcode, product.MinStockLevel).
		Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}

// SeedLocation inserts an active location with the given capacity
func (db *TestDB) SeedLocation(t *testing.T, code string, capacity int) *models.Location {
	t.Helper()

	location := &models.Location{
		ID:          uuid.New(),
		Code:        code,
		Aisle:       "A",
		Rack:        "01",
		Level:       "1",
		MaxCapacity: capacity,
		IsActive:    true,
	}
	query := `
		INSERT INTO locations (id, code, aisle, rack, level, max_capacity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := db.Pool.QueryRow(context.Background(), query, location.ID, location.Code, location.Aisle, location.Rack,
		location.Level, location.MaxCapacity, location.IsActive).Scan(&location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test location: %v", err)
	}
	return location
}
